package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingFileWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	// the written file must load back to the same values
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(again, Default()) {
		t.Fatalf("written default differs: %+v", again)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
redirects:
  protocol: autodiscover
  tlds: [".de", ".com"]
  small_threshold: 3
pipeline:
  workers: 0
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redirects.Protocol != "autodiscover" || cfg.Redirects.SmallThreshold != 3 {
		t.Fatalf("overrides not applied: %+v", cfg.Redirects)
	}
	if !reflect.DeepEqual(cfg.Redirects.TLDs, []string{".de", ".com"}) {
		t.Fatalf("TLDs = %v", cfg.Redirects.TLDs)
	}
	if cfg.Redirects.OtherKey != "others" || cfg.Redirects.SmallReportThreshold != 2 {
		t.Fatalf("unset keys should keep defaults: %+v", cfg.Redirects)
	}
	if cfg.Pipeline.Workers != 1 {
		t.Fatalf("Workers = %d, want clamp to 1", cfg.Pipeline.Workers)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg.Redirects.Protocol != "autoconfig" {
		t.Fatalf("Load(\"\") = %+v, %v", cfg, err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("redirects: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown protocol", func(c *Config) { c.Redirects.Protocol = "imap" }},
		{"empty tld", func(c *Config) { c.Redirects.TLDs = []string{".com", " "} }},
		{"empty other key", func(c *Config) { c.Redirects.OtherKey = "" }},
		{"negative threshold", func(c *Config) { c.Redirects.SmallThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
