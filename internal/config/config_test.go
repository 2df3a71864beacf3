package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Profile == "" {
		t.Fatalf("expected default profile name")
	}
	if filepath.Base(cfg.DBPath) != "breaks.db" && cfg.DBPath != "miscope.db" {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if !cfg.Policies.SelectOnStopped || !cfg.Policies.SelectFollow {
		t.Fatalf("expected stop/follow selection on by default: %+v", cfg.Policies)
	}
	if cfg.Policies.KeepExecPoint || cfg.Policies.AsyncBreakBugs {
		t.Fatalf("expected exec point clearing and async bodies by default: %+v", cfg.Policies)
	}
}
