package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestBareInvocationTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	out := filepath.Join(dir, "out")

	if err := run(t, "--config", cfgFile, "--out-dir", out); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, path := range []string{cfgFile, out} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s should not be created, stat err = %v", path, err)
		}
	}
}

func TestSubcommandLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	out := filepath.Join(dir, "out")
	stats := filepath.Join(dir, "redirects_statistics_autoconfig.json")
	if err := os.WriteFile(stats, []byte(`{"p.net": ["a.com"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := run(t, "small-providers", "-i", stats, "--config", cfgFile, "--out-dir", out); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := os.Stat(cfgFile); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
}
