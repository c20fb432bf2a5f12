// Package main is stacksd's process entrypoint: parse flags, open the data
// dir, wire the Engine and its background workers, block on signals.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cablehead/stacks/clipboard"
	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/xlog"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
	"github.com/cablehead/stacks/publish"
	"github.com/cablehead/stacks/store"
	"github.com/cablehead/stacks/tokenizer"
)

func main() {
	app := &cli.App{
		Name:  "stacksd",
		Usage: "the clipboard-history / stack-organizer core engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", EnvVars: []string{"STACKSD_DATA_DIR"}, Value: defaultDataDir()},
			&cli.StringFlag{Name: "http-addr", EnvVars: []string{"STACKSD_HTTP_ADDR"}},
			&cli.StringFlag{Name: "metrics-addr", EnvVars: []string{"STACKSD_METRICS_ADDR"}},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		xlog.Fatalf("stacksd: %v", err)
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.stacksd"
	}
	return ".stacksd"
}

func run(c *cli.Context) error {
	dataDir := c.String("data-dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	cfgPath := cmn.SavePath(dataDir)
	cfg, err := cmn.LoadConfig(cfgPath, dataDir)
	if err != nil {
		return err
	}
	if v := c.String("http-addr"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := c.String("metrics-addr"); v != "" {
		cfg.MetricsAddr = v
	}

	paths := store.Paths{
		CASDir:       cfg.DataDir + "/cas",
		IndexDir:     cfg.DataDir + "/index",
		PacketsFile:  cfg.DataDir + "/packets.db",
		MetaFile:     cfg.DataDir + "/content_meta.db",
		SettingsFile: cfg.DataDir + "/meta.db",
	}

	e, err := engine.Open(paths)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The background workers (tokenizer, publisher, clipboard ingress) are
	// independent I/O loops over the same engine; errgroup waits for all of
	// them at shutdown, and a worker that returns a non-nil error cancels
	// gctx for the others.
	g, gctx := errgroup.WithContext(ctx)

	tok := tokenizer.New(e, naiveTokenCount)
	tok.Backfill()
	g.Go(func() error { tok.Run(gctx); return nil })

	pub := publish.New(e, naivePreview)
	g.Go(func() error { runPublishLoop(gctx, e, pub); return nil })

	ingress := &clipboard.Ingress{Engine: e}
	g.Go(func() error { return ingress.Run(gctx, noopClipboardAgent{}) })

	if cfg.MetricsAddr != "" {
		g.Go(func() error { serveMetrics(gctx, cfg.MetricsAddr); return nil })
	}

	xlog.Infof("stacksd: engine ready at %s", cfg.DataDir)
	waitForSignal()
	cancel()
	if err := g.Wait(); err != nil && err != context.Canceled {
		xlog.Warnf("stacksd: a background worker exited with error: %v", err)
	}
	return nil
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		xlog.Warnf("stacksd: metrics server exited: %v", err)
	}
}

// runPublishLoop drives the publisher's per-update entry point off the
// bus the engine's content-meta writes already broadcast on: a new blob
// implies a view update worth checking the cross-stream stack against.
func runPublishLoop(ctx context.Context, e *engine.Engine, pub *publish.Publisher) {
	events, unsubscribe := e.Store.Bus.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			pub.OnUpdate(ctx)
		}
	}
}

// naiveTokenCount is the out-of-process-box tiktoken stand-in: a
// whitespace-split word count. tokenizer.Count is a pure plug point; a real
// BPE tokenizer is out of scope.
func naiveTokenCount(content []byte) (int, error) {
	return len(strings.Fields(string(content))), nil
}

// naivePreview is the out-of-the-box Preview stand-in: an HTML-escaped
// terse excerpt. Preview HTML rendering and syntax highlighting are out of
// scope; this only satisfies the publish.Preview contract so stacksd runs
// end to end.
func naivePreview(content []byte, mime contentmeta.MimeType, contentType string, ephemeral bool) string {
	if mime == contentmeta.ImagePng {
		return "[image]"
	}
	text := cosTruncate(string(content))
	return htmlEscape(text)
}

func cosTruncate(s string) string {
	const maxPreviewBytes = 280
	if len(s) <= maxPreviewBytes {
		return s
	}
	return s[:maxPreviewBytes] + "…"
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// noopClipboardAgent is the default ClipboardAgent: the real OS-pasteboard
// binding is explicitly out of scope (an opaque collaborator with two
// operations and one event); this variant simply never produces events.
type noopClipboardAgent struct{}

func (noopClipboardAgent) Events(ctx context.Context) (<-chan clipboard.Event, error) {
	ch := make(chan clipboard.Event)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
