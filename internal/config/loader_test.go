package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ndaemon_url: http://localhost:11434\nregistry_path: /tmp/layers.json\nmax_tokens: 4096\nreserved_for_response: 256\nmax_attempts: 5\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DaemonURL != "http://localhost:11434" || cfg.RegistryPath != "/tmp/layers.json" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxTokens != 4096 || cfg.ReservedForResponse != 256 || cfg.MaxAttempts != 5 {
		t.Fatalf("unexpected budgets: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","daemon_url":"http://d:1","accept_score":85,"escalate_complexity":9}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.DaemonURL != "http://d:1" || cfg.AcceptScore != 85 || cfg.EscalateComplexity != 9 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ndaemon_url=\"http://x\"\nvram_budget_gb=24.0\ncall_timeout_sec=30\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.DaemonURL != "http://x" || cfg.VRAMBudgetGB != 24.0 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.CallTimeout() != 30*time.Second {
		t.Fatalf("expected 30s call timeout, got %v", cfg.CallTimeout())
	}
}

func TestLoadCatalogOverride(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "models:\n  - key: code\n    model: qwen2.5-coder:14b\n    size_gb: 9.0\n    locality: local\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Models) != 1 || string(cfg.Models[0].Key) != "code" || cfg.Models[0].Model != "qwen2.5-coder:14b" {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.ini", "addr=:1\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error on unsupported extension")
	}
	bad := writeTempFile(t, d, "bad.json", "{not json")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected error on malformed json")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Addr != DefaultAddr || cfg.DaemonURL != DefaultDaemonURL {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxAttempts != DefaultMaxAttempts || cfg.AcceptScore != DefaultAcceptScore {
		t.Fatalf("retry defaults not applied: %+v", cfg)
	}
	if cfg.CallTimeout() != DefaultCallTimeout || cfg.UnloadGrace() != DefaultUnloadGrace || cfg.ProbeTTL() != DefaultProbeTTL {
		t.Fatalf("duration defaults not applied")
	}

	// Explicit values survive.
	cfg2 := Config{Addr: ":1", MaxAttempts: 7}
	cfg2.ApplyDefaults()
	if cfg2.Addr != ":1" || cfg2.MaxAttempts != 7 {
		t.Fatalf("explicit values overwritten: %+v", cfg2)
	}
}
