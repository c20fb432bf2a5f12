// Package jsp (JSON persistence) saves and loads arbitrary JSON-encodable
// structures to disk with an atomic rename-on-write.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package jsp

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/cablehead/stacks/cmn/cos"
	"github.com/cablehead/stacks/cmn/xlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Save JSON-encodes v and writes it to filepath via a temp-file-then-rename,
// so a process crash mid-write never corrupts the file readers see.
func Save(filepath string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "jsp: failed to encode %s", filepath)
	}
	if err := cos.WriteFileAtomic(filepath, b); err != nil {
		xlog.Errorf("jsp: failed to save %s: %v", filepath, err)
		return errors.Wrapf(err, "jsp: failed to save %s", filepath)
	}
	return nil
}

// Load reads filepath and JSON-decodes it into v. A missing file is reported
// as os.ErrNotExist so callers can distinguish "nothing saved yet" from a
// genuine decode failure.
func Load(filepath string, v interface{}) error {
	b, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "jsp: failed to decode %s", filepath)
	}
	return nil
}

// LoadOrDefault loads filepath into v, leaving v untouched (its zero/default
// value) when the file doesn't exist yet.
func LoadOrDefault(filepath string, v interface{}) error {
	err := Load(filepath, v)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
