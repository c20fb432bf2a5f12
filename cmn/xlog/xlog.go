// Package xlog is stacksd's structured logger: Infof/Warnf/Errorf call
// sites, one log line per notable event, backed by go.uber.org/zap's
// SugaredLogger.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package xlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	l    *zap.SugaredLogger
)

func logger() *zap.SugaredLogger {
	once.Do(func() {
		z, err := zap.NewProduction()
		if err != nil {
			z = zap.NewNop()
		}
		l = z.Sugar()
	})
	return l
}

// SetLogger swaps the underlying zap logger, e.g. to a development config
// that writes human-readable lines to stderr for `cmd/stacksd`.
func SetLogger(z *zap.Logger) {
	once.Do(func() {})
	l = z.Sugar()
}

func Infof(format string, args ...interface{})  { logger().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { logger().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { logger().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { logger().Fatalf(format, args...) }
func Debugf(format string, args ...interface{}) { logger().Debugf(format, args...) }
