package capture

import (
	"context"
	"testing"
	"time"

	"lifeweeks/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	o := OptionsFromConfig(cfg, "http://127.0.0.1:8080/grid")
	if o.Width != cfg.Capture.Width || o.OutputPath != cfg.Capture.Output {
		t.Errorf("options = %+v", o)
	}
	if o.Timeout != time.Duration(cfg.Capture.TimeoutSeconds)*time.Second {
		t.Errorf("timeout = %v", o.Timeout)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	o := Options{URL: "http://x/grid", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeoutSec*time.Second {
		t.Errorf("defaults not applied: %+v", o)
	}
}

func TestGridPNGRequiresTarget(t *testing.T) {
	if err := GridPNG(context.Background(), Options{OutputPath: "x.png"}); err == nil {
		t.Error("missing URL accepted")
	}
	if err := GridPNG(context.Background(), Options{URL: "http://x/grid"}); err == nil {
		t.Error("missing output accepted")
	}
}
