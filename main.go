// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// deepchat is a terminal chat client for the DeepSeek API that can attach
// workspace source files as context. Conversations persist under the
// workspace's .deepseek directory as durable state plus markdown
// transcripts.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/deepchat/internal/config"
	"github.com/jeranaias/deepchat/internal/deepseek"
	"github.com/jeranaias/deepchat/internal/panel"
	"github.com/jeranaias/deepchat/internal/state"
	"github.com/jeranaias/deepchat/internal/store"
	"github.com/jeranaias/deepchat/internal/ui"
)

// dataDirName is the per-workspace directory for durable state and
// transcripts.
const dataDirName = ".deepseek"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deepchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	// The log goes to a file: stdout belongs to the TUI.
	log, err := newLogger(filepath.Join(filepath.Dir(cfgPath), "deepchat.log"))
	if err != nil {
		return err
	}
	defer log.Sync()

	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve workspace: %w", err)
	}
	dataDir := filepath.Join(workspace, dataDirName)

	st, err := state.Open(dataDir, log)
	if err != nil {
		return err
	}
	log.Info("workspace state ready", zap.String("path", st.Path()))
	convStore := store.New(dataDir, st, log)

	client := deepseek.NewClient(cfg.API.DSKey, log).
		WithBaseURL(cfg.API.BaseURL).
		WithModel(cfg.API.Model).
		WithMaxTokens(cfg.API.MaxTokens)

	app := ui.NewApp(cfg)
	session := panel.NewSession(workspace, convStore, client, app, app, log)
	app.SetSession(session)
	defer session.Close()

	// Credential changes take effect without a restart.
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err == nil {
		watcher, werr := config.Watch(cfgPath, log, func(c *config.Config) {
			client.SetAPIKey(c.API.DSKey)
		})
		if werr != nil {
			log.Warn("config watching disabled", zap.Error(werr))
		} else {
			defer watcher.Close()
		}
	}

	log.Info("deepchat starting",
		zap.String("workspace", workspace),
		zap.Bool("configured", client.IsConfigured()))

	return app.Run()
}

// newLogger builds a production logger writing to the given file.
func newLogger(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
