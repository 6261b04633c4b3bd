// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/deepchat/internal/collect"
	"github.com/jeranaias/deepchat/internal/deepseek"
	"github.com/jeranaias/deepchat/internal/model"
	"github.com/jeranaias/deepchat/internal/store"
)

// tokenRatio is the characters-to-tokens heuristic used for estimates.
// Intentionally approximate: a cheap proxy, not a tokenizer.
const tokenRatio = 0.3

// Status strings surfaced to the user. Exact text is part of the UI
// contract.
const (
	statusNoAPIKey          = "API key not configured"
	statusNoConversation    = "Conversation error"
	statusEmptyInput        = "Please enter your question"
	statusAborted           = "Request aborted"
	statusErrorPrefix       = "Error: "
	statusCollectFailPrefix = "Failed to collect files: "
)

// pendingRequest is the single in-flight streaming call. The cancel
// function is owned by exactly one request and never reused.
type pendingRequest struct {
	cancel context.CancelFunc
}

// Session is the core controller for one chat panel: it owns the
// selected-files working set and the pending request, and mediates between
// the presentation layer, the conversation store, and the completion
// client. Construct one per logical session.
type Session struct {
	mu      sync.Mutex
	log     *zap.Logger
	store   *store.Store
	client  *deepseek.Client
	bridge  Bridge
	confirm Confirmer

	workspace string
	selected  []collect.File
	pending   *pendingRequest
}

// NewSession creates a session over the given collaborators. workspace is
// the root directory for file collection.
func NewSession(workspace string, st *store.Store, client *deepseek.Client, bridge Bridge, confirm Confirmer, log *zap.Logger) *Session {
	return &Session{
		log:       log,
		store:     st,
		client:    client,
		bridge:    bridge,
		confirm:   confirm,
		workspace: workspace,
	}
}

// Dispatch executes one command. Commands are matched exhaustively; the
// closed Command type makes an unknown command unrepresentable.
func (s *Session) Dispatch(cmd Command) {
	switch c := cmd.(type) {
	case InitCommand:
		s.handleInit()
	case NewConversationCommand:
		s.handleNewConversation()
	case SwitchConversationCommand:
		s.handleSwitchConversation(c.ConversationID)
	case DeleteConversationCommand:
		s.handleDeleteConversation(c.ConversationID)
	case SelectFilesCommand:
		s.handleSelectFiles(c.FileTypes, c.Exclude)
	case EstimateTokensCommand:
		s.handleEstimateTokens(c.Text, c.HistoryCount)
	case SendRequestCommand:
		s.handleSendRequest(c.Text, c.HistoryCount)
	}
}

// Close cancels any in-flight request and flushes the active conversation.
func (s *Session) Close() {
	s.cancelPending()
	active := s.store.Active()
	s.store.PersistList()
	s.store.FlushTranscript(active)
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func (s *Session) handleInit() {
	s.emitConversation(s.store.Active())
}

func (s *Session) handleNewConversation() {
	s.cancelPending()
	conv := s.store.Create()
	s.emitConversation(conv)
}

func (s *Session) handleSwitchConversation(id string) {
	s.cancelPending()
	conv, err := s.store.SwitchTo(id)
	if err != nil {
		// Unknown ID: logged by the store, nothing to render.
		return
	}
	s.emitConversation(conv)
}

func (s *Session) handleDeleteConversation(id string) {
	if !s.confirm.ConfirmDelete(id) {
		return
	}

	if active := s.store.Active(); active != nil && active.ID == id {
		s.cancelPending()
	}
	if err := s.store.Delete(id); err != nil {
		return
	}
	s.emitConversation(s.store.Active())
}

func (s *Session) emitConversation(conv *model.Conversation) {
	s.bridge.Emit(ConversationEvent{
		Conversation: conv,
		History:      s.store.Summarize(),
	})
}

// =============================================================================
// FILE SELECTION & TOKEN ESTIMATE
// =============================================================================

func (s *Session) handleSelectFiles(fileTypes []string, exclude string) {
	files, err := collect.Collect(s.workspace, fileTypes, exclude)
	if err != nil {
		s.log.Error("file collection failed", zap.Error(err))
		s.bridge.Emit(StatusEvent{Text: statusCollectFailPrefix + err.Error()})
		return
	}

	s.mu.Lock()
	s.selected = files
	s.mu.Unlock()

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	s.log.Info("files selected", zap.Int("count", len(files)))
	s.bridge.Emit(FileListEvent{Files: paths})
}

func (s *Session) handleEstimateTokens(text string, historyCount int) {
	estimate := s.estimateTokens(text, historyCount)
	s.bridge.Emit(TokenEstimateEvent{
		Estimate: fmt.Sprintf("Estimated tokens: %d", estimate),
	})
}

// estimateTokens computes the character-count heuristic: prompt plus
// selected files, plus the trailing history slice when requested. Pure and
// deterministic for a fixed session state.
func (s *Session) estimateTokens(text string, historyCount int) int {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()

	total := len(text)
	for _, f := range selected {
		total += len(f.Content)
	}
	estimate := int(tokenRatio * float64(total))

	if historyCount > 0 {
		if conv := s.store.Active(); conv != nil {
			historyTotal := 0
			for _, msg := range s.store.History(conv, historyCount) {
				historyTotal += len(msg.Content)
			}
			estimate += int(tokenRatio * float64(historyTotal))
		}
	}
	return estimate
}

// =============================================================================
// REQUEST / STREAM CONTROL
// =============================================================================

func (s *Session) handleSendRequest(text string, historyCount int) {
	if !s.client.IsConfigured() {
		s.bridge.Emit(StatusEvent{Text: statusNoAPIKey})
		return
	}
	conv := s.store.Active()
	if conv == nil {
		s.bridge.Emit(StatusEvent{Text: statusNoConversation})
		return
	}
	if strings.TrimSpace(text) == "" {
		s.bridge.Emit(StatusEvent{Text: statusEmptyInput})
		return
	}

	// A second send supersedes any stream still in flight.
	s.cancelPending()

	// Snapshot the trailing history before this turn's message lands in
	// the conversation: the payload carries prior turns, not the new one.
	prior := s.store.History(conv, historyCount)

	userMsg := model.NewUserMessage(text)
	s.bridge.Emit(MessageAddedEvent{
		ID:        userMsg.ID,
		Role:      userMsg.Role,
		Content:   userMsg.Content,
		Timestamp: userMsg.Timestamp,
	})
	s.store.AddMessage(conv, userMsg)

	payload := s.buildPayload(text, prior)

	assistant := model.NewAssistantMessage()
	s.bridge.Emit(MessageAddedEvent{
		ID:        assistant.ID,
		Role:      assistant.Role,
		Content:   "",
		Timestamp: assistant.Timestamp,
	})
	s.store.AddMessage(conv, assistant)

	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingRequest{cancel: cancel}
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	s.log.Info("sending request",
		zap.String("conversationId", conv.ID),
		zap.Int("payloadMessages", len(payload)),
		zap.Int("historyCount", historyCount))

	go s.runStream(ctx, p, conv, assistant, text, payload)
}

// buildPayload assembles the outbound message sequence: the system
// instruction, the selected files as one user turn, the trailing history,
// and finally the new question.
func (s *Session) buildPayload(text string, prior []model.Message) []deepseek.ChatMessage {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()

	payload := []deepseek.ChatMessage{
		deepseek.NewSystemMessage(deepseek.SystemPrompt),
		deepseek.NewUserMessage("### Relevant Code Files:\n" + formatFiles(selected)),
	}
	for _, msg := range prior {
		if msg.Role == model.RoleAssistant {
			payload = append(payload, deepseek.NewAssistantMessage(msg.Content))
		} else {
			payload = append(payload, deepseek.NewUserMessage(msg.Content))
		}
	}
	return append(payload, deepseek.NewUserMessage(text))
}

// formatFiles renders each selected file as a heading plus a fenced block
// of its raw content.
func formatFiles(files []collect.File) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		sections = append(sections, fmt.Sprintf("### %s\n```\n%s\n```", f.Path, f.Content))
	}
	return strings.Join(sections, "\n\n")
}

// runStream consumes the completion stream off the dispatch path,
// reconciling deltas into the assistant message and finishing with the
// full-state flush. The finalize step runs on every exit so partial
// content reaches the transcript even after failure.
func (s *Session) runStream(ctx context.Context, p *pendingRequest, conv *model.Conversation, assistant *model.Message, question string, payload []deepseek.ChatMessage) {
	err := s.client.ChatStream(ctx, payload, func(chunk deepseek.StreamChunk) {
		if content := chunk.GetContent(); content != "" {
			cumulative := s.store.AppendToMessage(assistant, content)

			s.bridge.Emit(MessageUpdatedEvent{
				ID:        assistant.ID,
				Content:   cumulative,
				Timestamp: assistant.Timestamp,
			})
		}
		if chunk.Usage != nil {
			s.bridge.Emit(UsageEvent{Usage: *chunk.Usage})
		}
	})

	s.clearPending(p)
	s.finalize(conv, question)

	switch {
	case err == nil:
		s.log.Info("request complete",
			zap.String("conversationId", conv.ID),
			zap.Int("responseChars", len(assistant.Content)))
	case errors.Is(err, context.Canceled):
		s.log.Info("request aborted", zap.String("conversationId", conv.ID))
		s.bridge.Emit(StatusEvent{Text: statusAborted})
	default:
		s.log.Error("request failed",
			zap.String("conversationId", conv.ID),
			zap.Error(err))
		s.bridge.Emit(StatusEvent{Text: statusErrorPrefix + err.Error()})
	}
}

// finalize stamps and flushes the conversation through the store's single
// serialized step, then resyncs the presentation layer. Runs on success,
// failure, and cancellation alike: whatever content accumulated stays in
// the conversation.
func (s *Session) finalize(conv *model.Conversation, question string) {
	s.store.Finalize(conv, question)
	s.emitConversation(conv)
}

// cancelPending cancels the in-flight request, if any.
func (s *Session) cancelPending() {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		p.cancel()
	}
}

// clearPending drops the pending handle, but only if it still belongs to
// this request; a newer request may have replaced it already.
func (s *Session) clearPending(p *pendingRequest) {
	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
	}
	s.mu.Unlock()
	p.cancel() // release the context regardless
}
