package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"port": "9000", "model": {"imageSize": 28, "classes": ["cat", "dog"], "interpolation": "bilinear"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.Model.ImageSize != 28 {
		t.Fatalf("expected image size 28, got %d", cfg.Model.ImageSize)
	}
	if len(cfg.Model.Classes) != 2 {
		t.Fatalf("expected 2 classes, got %v", cfg.Model.Classes)
	}
	if cfg.Model.IntensityMax != 255 {
		t.Fatalf("default intensity max lost: %g", cfg.Model.IntensityMax)
	}
}

func TestDefaultOriginsIncludeDeployedFrontend(t *testing.T) {
	want := []string{"http://localhost:3000", "https://doodlerecogeniser-v1-9-frontend.vercel.app"}
	for _, origin := range want {
		if !slices.Contains(Default().AllowedOrigins, origin) {
			t.Fatalf("default origins %v missing %s", Default().AllowedOrigins, origin)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":            "7000",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		"MODEL_PATH":      "/models/x.onnx",
		"TOP_K":           "5",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.Port != "7000" {
		t.Fatalf("port override ignored: %s", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Model.Path != "/models/x.onnx" {
		t.Fatalf("model path override ignored: %s", cfg.Model.Path)
	}
	if cfg.Model.TopK != 5 {
		t.Fatalf("expected top k 5, got %d", cfg.Model.TopK)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero image size", func(c *Config) { c.Model.ImageSize = 0 }, false},
		{"zero intensity max", func(c *Config) { c.Model.IntensityMax = 0 }, false},
		{"no classes", func(c *Config) { c.Model.Classes = nil }, false},
		{"duplicate class", func(c *Config) { c.Model.Classes = []string{"a", "a"} }, false},
		{"bad interpolation", func(c *Config) { c.Model.Interpolation = "sinc" }, false},
		{"negative top k", func(c *Config) { c.Model.TopK = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
