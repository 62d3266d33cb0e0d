package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeKeepsDefaults(t *testing.T) {
	cfg := Default()
	doc := []byte(`
[app]
title = "cubes"
width = 1024

[render]
validation = false
`)
	if err := Decode(doc, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.App.Title != "cubes" || cfg.App.Width != 1024 {
		t.Fatalf("app section not applied: %+v", cfg.App)
	}
	if cfg.App.Height != 600 {
		t.Fatalf("height default lost: %d", cfg.App.Height)
	}
	if cfg.Render.Validation {
		t.Fatal("validation should be disabled")
	}
	if cfg.Assets.Workers != 2 {
		t.Fatalf("workers default lost: %d", cfg.Assets.Workers)
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"GLACIER_WIDTH":          "1280",
		"GLACIER_VALIDATION":     "false",
		"GLACIER_LOG_LEVEL":      "debug",
		"GLACIER_ASSETS_WORKERS": "4",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Width != 1280 || cfg.Render.Validation || cfg.Log.Level != "debug" || cfg.Assets.Workers != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "GLACIER_HEIGHT" {
			return "tall", true
		}
		return "", false
	})
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load(filepath.Join(dir, "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Width != 800 {
		t.Fatalf("expected defaults, got %+v", cfg.App)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.App.Width = 0
	if cfg.Validate() == nil {
		t.Fatal("zero width must be rejected")
	}
}
