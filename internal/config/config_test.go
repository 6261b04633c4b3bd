// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Model != "deepseek-chat" {
		t.Errorf("Model = %q", cfg.API.Model)
	}
	if cfg.API.MaxTokens != 8000 {
		t.Errorf("MaxTokens = %d", cfg.API.MaxTokens)
	}
	if cfg.API.DSKey != "" {
		t.Errorf("DSKey = %q, want empty", cfg.API.DSKey)
	}
}

func TestLoadParsesFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
ds_key = "sk-test"
model = "deepseek-coder"

[chat]
history_count = 4
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.DSKey != "sk-test" {
		t.Errorf("DSKey = %q", cfg.API.DSKey)
	}
	if cfg.API.Model != "deepseek-coder" {
		t.Errorf("Model = %q", cfg.API.Model)
	}
	if cfg.Chat.HistoryCount != 4 {
		t.Errorf("HistoryCount = %d", cfg.Chat.HistoryCount)
	}
	// Unset fields fall back to defaults.
	if cfg.API.MaxTokens != 8000 {
		t.Errorf("MaxTokens = %d, want default", cfg.API.MaxTokens)
	}
}

func TestEnvOverridesFileCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nds_key = \"from-file\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvAPIKey, "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.DSKey != "from-env" {
		t.Errorf("DSKey = %q, want env override", cfg.API.DSKey)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.API.DSKey = "sk-roundtrip"
	cfg.Chat.HistoryCount = 7
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("config permissions = %o, want 0600", info.Mode().Perm())
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.API.DSKey != "sk-roundtrip" {
		t.Errorf("DSKey = %q", loaded.API.DSKey)
	}
	if loaded.Chat.HistoryCount != 7 {
		t.Errorf("HistoryCount = %d", loaded.Chat.HistoryCount)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nds_key = \"first\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := Watch(path, zap.NewNop(), func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[api]\nds_key = \"second\"\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.API.DSKey != "second" {
			t.Errorf("reloaded DSKey = %q, want %q", cfg.API.DSKey, "second")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
