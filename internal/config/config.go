// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists the TOML configuration file, including
// the DeepSeek API credential, file-collection defaults, and chat options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/deepchat/internal/util"
)

const (
	// DefaultConfigDirName is the per-user configuration directory.
	DefaultConfigDirName = ".deepchat"

	// ConfigFileName is the configuration file inside the config directory.
	ConfigFileName = "config.toml"

	// EnvAPIKey overrides the configured credential when set.
	EnvAPIKey = "DEEPSEEK_API_KEY"
)

// APIConfig holds settings for the completion API.
type APIConfig struct {
	// DSKey is the DeepSeek bearer credential.
	DSKey     string `toml:"ds_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// FilesConfig holds file-collection defaults.
type FilesConfig struct {
	// Types are extensions without a leading dot.
	Types []string `toml:"types"`
	// Exclude is a whitespace-separated mix of directory names and
	// dotted file names.
	Exclude string `toml:"exclude"`
}

// ChatConfig holds chat behavior settings.
type ChatConfig struct {
	// HistoryCount is how many trailing messages accompany each request.
	HistoryCount int `toml:"history_count"`
}

// Config is the full application configuration.
type Config struct {
	API   APIConfig   `toml:"api"`
	Files FilesConfig `toml:"files"`
	Chat  ChatConfig  `toml:"chat"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.deepseek.com/v1",
			Model:     "deepseek-chat",
			MaxTokens: 8000,
		},
		Files: FilesConfig{
			Types:   []string{"go", "ts", "js", "py", "rs", "java", "c", "h", "cpp"},
			Exclude: "vendor dist build .env",
		},
		Chat: ChatConfig{
			HistoryCount: 10,
		},
	}
}

// DefaultPath returns the default config file location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDirName, ConfigFileName), nil
}

// Load reads the configuration from path. A missing file yields defaults
// without error. The DEEPSEEK_API_KEY environment variable, when set,
// overrides the file's credential.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.API.DSKey = key
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = Default().API.BaseURL
	}
	if cfg.API.Model == "" {
		cfg.API.Model = Default().API.Model
	}
	if cfg.API.MaxTokens <= 0 {
		cfg.API.MaxTokens = Default().API.MaxTokens
	}
	if cfg.Chat.HistoryCount < 0 {
		cfg.Chat.HistoryCount = 0
	}

	return cfg, nil
}

// Save writes the configuration to path atomically. The file is written
// with owner-only permissions because it carries the credential.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return util.AtomicWriteFile(path, []byte(buf.String()), 0o600)
}
