package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Dashboard.HorizonDays != 14 {
		t.Errorf("horizon = %d, want 14", cfg.Dashboard.HorizonDays)
	}
	if cfg.Import.QueueSize != 100 {
		t.Errorf("queue size = %d, want 100", cfg.Import.QueueSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"9090\"\ndashboard:\n  horizon_days: 7\ndigest:\n  cron: \"0 8 * * *\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Dashboard.HorizonDays != 7 {
		t.Errorf("horizon = %d, want 7", cfg.Dashboard.HorizonDays)
	}
	if cfg.Digest.Cron != "0 8 * * *" {
		t.Errorf("digest cron = %q", cfg.Digest.Cron)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DASHBOARD_HORIZON_DAYS", "21")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env override 7070", cfg.Server.Port)
	}
	if cfg.Dashboard.HorizonDays != 21 {
		t.Errorf("horizon = %d, want env override 21", cfg.Dashboard.HorizonDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }, true},
		{"negative horizon", func(c *Config) { c.Dashboard.HorizonDays = -1 }, true},
		{"zero queue size", func(c *Config) { c.Import.QueueSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
