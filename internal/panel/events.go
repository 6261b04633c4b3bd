// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package panel is the core chat session controller: it accepts typed
// commands from the presentation layer, drives the conversation store and
// the streaming completion client, and emits typed events back.
package panel

import (
	"time"

	"github.com/jeranaias/deepchat/internal/deepseek"
	"github.com/jeranaias/deepchat/internal/model"
)

// =============================================================================
// COMMANDS (presentation -> core)
// =============================================================================

// Command is a request from the presentation layer. The set of commands is
// closed: every implementation lives in this package and Dispatch matches
// them exhaustively.
type Command interface {
	isCommand()
}

// InitCommand requests the initial full-state handshake after the
// presentation layer is ready to render.
type InitCommand struct{}

// NewConversationCommand starts a fresh conversation.
type NewConversationCommand struct{}

// SwitchConversationCommand activates an existing conversation.
type SwitchConversationCommand struct {
	ConversationID string
}

// DeleteConversationCommand deletes a conversation after user confirmation.
type DeleteConversationCommand struct {
	ConversationID string
}

// SelectFilesCommand replaces the selected-files working set by collecting
// matching workspace files.
type SelectFilesCommand struct {
	FileTypes []string // extensions without a leading dot
	Exclude   string   // whitespace-separated directory and file names
}

// EstimateTokensCommand requests a token estimate for a prospective prompt.
type EstimateTokensCommand struct {
	Text         string
	HistoryCount int
}

// SendRequestCommand submits a user prompt for a streaming completion.
type SendRequestCommand struct {
	Text         string
	HistoryCount int
}

func (InitCommand) isCommand()               {}
func (NewConversationCommand) isCommand()    {}
func (SwitchConversationCommand) isCommand() {}
func (DeleteConversationCommand) isCommand() {}
func (SelectFilesCommand) isCommand()        {}
func (EstimateTokensCommand) isCommand()     {}
func (SendRequestCommand) isCommand()        {}

// =============================================================================
// EVENTS (core -> presentation)
// =============================================================================

// Event is a display-ready notification for the presentation layer.
type Event interface {
	isEvent()
}

// StatusEvent updates the transient status line.
type StatusEvent struct {
	Text string
}

// FileListEvent reports the result of a file selection, paths sorted.
type FileListEvent struct {
	Files []string
}

// TokenEstimateEvent reports a token estimate as display text.
type TokenEstimateEvent struct {
	Estimate string
}

// MessageAddedEvent announces a new message so the UI can render a bubble.
// For assistant messages the content starts empty and grows via
// MessageUpdatedEvent.
type MessageAddedEvent struct {
	ID        string
	Role      model.Role
	Content   string
	Timestamp time.Time
}

// MessageUpdatedEvent carries the cumulative content of a streaming
// message, targeted in place by ID.
type MessageUpdatedEvent struct {
	ID        string
	Content   string
	Timestamp time.Time
}

// UsageEvent reports token metering after a completed request.
type UsageEvent struct {
	Usage deepseek.Usage
}

// ConversationEvent is a full-state resync: the active conversation plus
// the lightweight history summary.
type ConversationEvent struct {
	Conversation *model.Conversation
	History      []model.Summary
}

func (StatusEvent) isEvent()         {}
func (FileListEvent) isEvent()       {}
func (TokenEstimateEvent) isEvent()  {}
func (MessageAddedEvent) isEvent()   {}
func (MessageUpdatedEvent) isEvent() {}
func (UsageEvent) isEvent()          {}
func (ConversationEvent) isEvent()   {}

// Bridge delivers events to the presentation layer. Emit must be safe to
// call from any goroutine; streaming updates arrive off the dispatch path.
type Bridge interface {
	Emit(Event)
}

// Confirmer answers modal yes/no prompts. Deleting a conversation is gated
// on a true answer.
type Confirmer interface {
	ConfirmDelete(conversationID string) bool
}
