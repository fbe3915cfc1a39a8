package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Addr != nil || cfg.Client.Server != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
addr = ":8080"
history-limit = 25
rate = 2.5

[client]
server = "http://127.0.0.1:8080"
timeout = "3s"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %v", cfg.Server.Addr)
	}
	if cfg.Server.HistoryLimit == nil || *cfg.Server.HistoryLimit != 25 {
		t.Fatalf("unexpected history limit: %v", cfg.Server.HistoryLimit)
	}
	if cfg.Server.Burst != nil {
		t.Fatalf("unset keys must stay nil")
	}
	if cfg.Client.Timeout == nil || *cfg.Client.Timeout != "3s" {
		t.Fatalf("unexpected timeout: %v", cfg.Client.Timeout)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "server.port") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEncodeOmitsUnset(t *testing.T) {
	addr := ":9000"
	var buf bytes.Buffer
	if err := Encode(&buf, FileConfig{Server: ServerConfig{Addr: &addr}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `addr = ":9000"`) || strings.Contains(out, "burst") {
		t.Fatalf("unexpected encoding:\n%s", out)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "retest", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "retest", "history.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
