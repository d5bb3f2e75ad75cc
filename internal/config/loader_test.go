package config

import (
	"os"
	"path/filepath"
	"testing"
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
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodels_dir: /tmp\ndefault_model: m1\nmax_new_tokens: 512\nsystem_prompt: be brief\nkeep_history: false\nreasoning: true\nlog_level: debug\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.DefaultModel != "m1" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxNewTokens != 512 || cfg.SystemPrompt != "be brief" || !cfg.Reasoning || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.KeepHistory == nil || *cfg.KeepHistory {
		t.Fatalf("keep_history not decoded: %v", cfg.KeepHistory)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","models_dir":"/m","default_model":"m2","server_bin":"/usr/bin/llama-server","port_min":9000,"port_max":9010}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.DefaultModel != "m2" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ServerBin != "/usr/bin/llama-server" || cfg.PortMin != 9000 || cfg.PortMax != 9010 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.KeepHistory != nil {
		t.Fatalf("keep_history should stay unset, got %v", *cfg.KeepHistory)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\ndefault_model=\"m3\"\nllama_ctx=4096\nllama_threads=8\ncors_enabled=true\ncors_origins=[\"https://a.example\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.DefaultModel != "m3" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.LlamaCtx != 4096 || cfg.LlamaThreads != 8 {
		t.Fatalf("unexpected llama cfg: %+v", cfg)
	}
	if !cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://a.example" {
		t.Fatalf("unexpected cors cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
