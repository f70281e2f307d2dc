package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Storage.GeneratedBucket != "apple-candy-images" {
		t.Errorf("GeneratedBucket = %q", cfg.Storage.GeneratedBucket)
	}
	if cfg.Storage.PhotoBucket != "purikura-photos" {
		t.Errorf("PhotoBucket = %q", cfg.Storage.PhotoBucket)
	}
	if cfg.Booth.FingerCurl != 0.07 || cfg.Booth.ThumbCurl != 0.08 {
		t.Errorf("fist thresholds = %v/%v, want 0.07/0.08", cfg.Booth.FingerCurl, cfg.Booth.ThumbCurl)
	}
	if cfg.Booth.FrameInterval != time.Second/30 {
		t.Errorf("FrameInterval = %v", cfg.Booth.FrameInterval)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candybooth.yaml")
	content := `
server:
  addr: ":9000"
  base_url: "https://booth.example.com/"
storage:
  backend: s3
  endpoint: "http://minio:9000"
booth:
  fps: 10
  fist:
    finger_curl: 0.05
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.BaseURL != "https://booth.example.com" {
		t.Errorf("BaseURL should be trimmed, got %q", cfg.Server.BaseURL)
	}
	if cfg.Storage.Backend != BackendS3 {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Booth.FingerCurl != 0.05 {
		t.Errorf("FingerCurl = %v", cfg.Booth.FingerCurl)
	}
	if cfg.Booth.ThumbCurl != 0.08 {
		t.Errorf("ThumbCurl should keep default, got %v", cfg.Booth.ThumbCurl)
	}
	if cfg.Booth.FrameInterval != 100*time.Millisecond {
		t.Errorf("FrameInterval = %v", cfg.Booth.FrameInterval)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CANDYBOOTH_DATABASE_DRIVER", "pgx")
	t.Setenv("CANDYBOOTH_DATABASE_DSN", "postgres://localhost/candy")
	t.Setenv("CANDYBOOTH_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = BackendS3; c.Storage.PhotoBucket = "" }},
		{"zero thumb threshold", func(c *Config) { c.Booth.ThumbCurl = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
