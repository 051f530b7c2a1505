package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModelDefaults(t *testing.T) {
	cfg, err := LoadModel(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if cfg.Visitor.BaseSeed != 1000001 || cfg.Airport.SeedStride != 101 {
		t.Errorf("unexpected seed defaults: %+v", cfg.Visitor)
	}
	if cfg.Scheduler.Threshold != 1000 {
		t.Errorf("threshold = %d", cfg.Scheduler.Threshold)
	}
}

func TestLoadModelOverlay(t *testing.T) {
	path := writeFile(t, `
visitor:
  sample_rate: 0.25
  trace_tour: 17
  stop:
    purposes: [dining, shopping]
    sample_size: 20
    scaling: inclusive
    distance_coef: [-0.5, -0.5]
  stop_purpose_shares: [0.5, 0.5]
scheduler:
  parallelism: 3
  policy: static
`)
	cfg, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if cfg.Visitor.SampleRate != 0.25 || cfg.Visitor.TraceTour != 17 {
		t.Errorf("visitor overlay lost: %+v", cfg.Visitor)
	}
	if cfg.Visitor.Stop.Scaling != "inclusive" || len(cfg.Visitor.Stop.Purposes) != 2 {
		t.Errorf("stop overlay lost: %+v", cfg.Visitor.Stop)
	}
	// untouched sections keep their defaults
	if cfg.Visitor.Destination.SampleSize != 30 {
		t.Errorf("destination sample size = %d", cfg.Visitor.Destination.SampleSize)
	}
	if cfg.Scheduler.Policy != "static" || cfg.Scheduler.Parallelism != 3 {
		t.Errorf("scheduler overlay lost: %+v", cfg.Scheduler)
	}
}

func TestLoadModelInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"coefficient count", "visitor:\n  destination:\n    distance_coef: [-0.1]\n", "distance coefficients"},
		{"bad scaling", "visitor:\n  stop:\n    scaling: sideways\n", "invalid model config"},
		{"sample rate", "visitor:\n  sample_rate: 1.5\n", "invalid model config"},
		{"bad policy", "scheduler:\n  policy: steal\n", "invalid model config"},
		{"tour purpose", "visitor:\n  tours:\n    - {purpose: golf, count: 3}\n", "golf"},
		{"origin attribute", "visitor:\n  origin_attribute: beaches\n", "beaches"},
		{"malformed", "visitor: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(writeFile(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", ":9999")
	t.Setenv("DB_PATH", filepath.Join(dir, "x.db"))
	t.Setenv("MODEL_FILE", filepath.Join(dir, "none.yaml"))
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != ":9999" || cfg.JWTSecret == "" || cfg.Model == nil {
		t.Errorf("unexpected config: %+v", cfg)
	}

	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Error("expected missing JWT_SECRET error in production")
	}
}
