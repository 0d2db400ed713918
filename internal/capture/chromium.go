// Package capture takes PNG snapshots of the rendered grid page with a
// headless Chromium.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"lifeweeks/internal/config"
	appLog "lifeweeks/internal/log"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultWidth      = 1920
	DefaultHeight     = 1200
	DefaultTimeoutSec = 30
)

// ReadySelector is present once the grid page has painted every cell.
const ReadySelector = `[data-ready="true"]`

// Options describes one snapshot.
type Options struct {
	// URL of the grid page, e.g. "http://127.0.0.1:8080/grid".
	URL string
	// OutputPath receives the PNG.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

// OptionsFromConfig fills Options from the capture section of cfg.
func OptionsFromConfig(cfg *config.Config, url string) Options {
	return Options{
		URL:        url,
		OutputPath: cfg.Capture.Output,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
		Timeout:    time.Duration(cfg.Capture.TimeoutSeconds) * time.Second,
	}
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeoutSec * time.Second
	}
	return nil
}

// GridPNG opens the grid page, waits for ReadySelector and writes a full
// page screenshot to opts.OutputPath.
func GridPNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := config.WriteFileAtomic(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	appLog.Info("grid snapshot written", "path", opts.OutputPath, "bytes", len(png))
	return nil
}
