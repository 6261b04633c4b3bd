// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deepchat/internal/config"
	"github.com/jeranaias/deepchat/internal/panel"
)

// App owns the Bubble Tea program and is the core's window into the
// terminal: it implements both the event bridge and the confirmation
// prompt. Construct it first, wire the session in, then Run.
type App struct {
	model   *Model
	program *tea.Program

	mu          sync.Mutex
	armedDelete string
}

// NewApp creates the application shell.
func NewApp(cfg *config.Config) *App {
	app := &App{}
	app.model = newModel(app, cfg)
	app.program = tea.NewProgram(app.model, tea.WithAltScreen())
	return app
}

// SetSession attaches the core session. Must be called before Run.
func (a *App) SetSession(s *panel.Session) {
	a.model.session = s
}

// Run blocks until the user quits.
func (a *App) Run() error {
	_, err := a.program.Run()
	return err
}

// Emit implements panel.Bridge by injecting events into the render loop.
// Safe from any goroutine.
func (a *App) Emit(e panel.Event) {
	a.program.Send(eventMsg{event: e})
}

// armDelete records that the user answered yes to the delete modal for
// this conversation, so the next ConfirmDelete call passes.
func (a *App) armDelete(id string) {
	a.mu.Lock()
	a.armedDelete = id
	a.mu.Unlock()
}

// ConfirmDelete implements panel.Confirmer. The modal round-trip already
// happened in the view; this consumes the armed answer.
func (a *App) ConfirmDelete(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.armedDelete == id {
		a.armedDelete = ""
		return true
	}
	return false
}
