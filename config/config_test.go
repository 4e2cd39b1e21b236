package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
	if !cfg.Codec.Tokens || !cfg.Codec.Module {
		t.Fatal("codecs not enabled by default")
	}
	if cfg.GC.HeapLimit == 0 || cfg.GC.YoungBudget == 0 {
		t.Fatal("gc defaults missing")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fax-native.toml")
	data := `
log_level = "debug"

[codec]
module = false

[gc]
heap_limit = 1048576
tenure_threshold = 5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Codec.Module {
		t.Fatal("codec.module override not applied")
	}
	if !cfg.Codec.Tokens {
		t.Fatal("codec.tokens default lost")
	}
	rt := cfg.GC.Runtime()
	if rt.HeapLimit != 1048576 || rt.TenureThreshold != 5 {
		t.Fatalf("gc overrides not applied: %+v", rt)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load of a missing explicit file succeeded")
	}
}
