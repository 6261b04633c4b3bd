// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the set of conversations, the active one, and their
// persistence: the durable list for session reload and the per-conversation
// markdown transcript.
package store

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/deepchat/internal/model"
	"github.com/jeranaias/deepchat/internal/state"
)

// conversationsKey is the durable-store key holding the conversation list.
const conversationsKey = "conversations"

// ErrConversationNotFound is returned when an ID does not match any
// conversation in the store.
var ErrConversationNotFound = errors.New("conversation not found")

// Store holds the ordered conversation list (most recently created first)
// and the active conversation. Exactly one conversation is active at any
// time; an empty conversation only survives persistence while it is active.
type Store struct {
	mu      sync.Mutex
	log     *zap.Logger
	state   *state.Store
	dataDir string

	conversations []*model.Conversation
	active        *model.Conversation
}

// New creates a store over the given workspace data directory, reloads any
// persisted conversations, and starts a fresh active conversation.
func New(dataDir string, st *state.Store, log *zap.Logger) *Store {
	s := &Store{
		log:     log,
		state:   st,
		dataDir: dataDir,
	}

	var persisted []*model.Conversation
	if err := st.Get(conversationsKey, &persisted); err != nil {
		if !errors.Is(err, state.ErrKeyNotFound) {
			log.Warn("failed to reload conversations", zap.Error(err))
		}
	} else {
		s.conversations = persisted
		log.Info("reloaded conversations", zap.Int("count", len(persisted)))
	}

	s.mu.Lock()
	s.create()
	s.mu.Unlock()

	return s
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Active returns the active conversation.
func (s *Store) Active() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Conversations returns the conversation list, most recently created first.
func (s *Store) Conversations() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Find returns the conversation with the given ID, or nil.
func (s *Store) Find(id string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

func (s *Store) find(id string) *model.Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Summarize produces the lightweight history view for the UI: id,
// timestamps, and preview per conversation, never full message bodies.
func (s *Store) Summarize() []model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summarize()
}

func (s *Store) summarize() []model.Summary {
	out := make([]model.Summary, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c.Summarize())
	}
	return out
}

// =============================================================================
// MUTATORS
// =============================================================================

// Create allocates a fresh conversation, makes it active, and persists the
// list. Abandoned empty conversations (zero messages, not active) are purged
// first.
func (s *Store) Create() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create()
}

func (s *Store) create() *model.Conversation {
	// GC abandoned empty sessions before allocating a new one.
	kept := s.conversations[:0]
	for _, c := range s.conversations {
		if !c.IsEmpty() || (s.active != nil && c.ID == s.active.ID) {
			kept = append(kept, c)
		}
	}
	s.conversations = kept

	conv := model.NewConversation()
	conv.FilePath = s.transcriptPath(conv.ID)

	s.conversations = append([]*model.Conversation{conv}, s.conversations...)
	s.active = conv
	s.persistList()

	s.log.Info("new conversation started", zap.String("id", conv.ID))
	return conv
}

// AddMessage appends a message to the conversation, serialized against
// persistence and other mutators.
func (s *Store) AddMessage(conv *model.Conversation, msg *model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.AddMessage(msg)
}

// AppendToMessage grows a streamed message by one delta and returns the
// accumulated content. Serialized under the store lock so a concurrent
// flush never marshals a half-written message.
func (s *Store) AppendToMessage(msg *model.Message, delta string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Append(delta)
	return msg.Content
}

// History returns copies of the conversation's trailing n messages,
// snapshotted under the store lock so callers can read them freely.
func (s *Store) History(conv *model.Conversation, n int) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := conv.LastMessages(n)
	out := make([]model.Message, len(last))
	for i, m := range last {
		out[i] = *m
	}
	return out
}

// Finalize stamps the conversation's metadata and flushes it durably as a
// single serialized step: touch, preview, the conversation list, and the
// transcript. Used at end of stream so the flush never interleaves with a
// mutation from another command.
func (s *Store) Finalize(conv *model.Conversation, previewSource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.Touch()
	conv.SetPreviewFromText(previewSource)
	s.persistList()
	s.flushTranscript(conv)
}

// SwitchTo makes the conversation with the given ID active. The current
// conversation is flushed to durable storage and to its transcript before
// the active pointer moves. An unknown ID is a logged no-op. Switching to
// the already-active conversation changes nothing.
//
// Cancelling any in-flight request is the caller's responsibility and must
// happen before this is invoked.
func (s *Store) SwitchTo(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.find(id)
	if target == nil {
		s.log.Warn("conversation not found", zap.String("requestedId", id))
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	if s.active != nil && target.ID == s.active.ID {
		return target, nil
	}

	// Flush before moving the pointer so the switch never writes stale
	// data over fresh data.
	s.persistList()
	s.flushTranscript(s.active)

	s.active = target
	target.Touch()

	s.log.Info("switched conversation",
		zap.String("id", id),
		zap.Int("messageCount", target.MessageCount()))
	return target, nil
}

// Delete removes a conversation: its transcript file best-effort, its list
// entry always. If the deleted conversation was active, a fresh one is
// created immediately so exactly one conversation stays active.
//
// Confirmation gating happens in the caller; once this runs the delete is
// irreversible.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(id)
	if conv == nil {
		s.log.Warn("conversation not found", zap.String("requestedId", id))
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	if conv.FilePath != "" {
		if err := os.Remove(conv.FilePath); err != nil && !os.IsNotExist(err) {
			// Non-fatal: the list removal proceeds regardless.
			s.log.Warn("failed to delete transcript file",
				zap.String("path", conv.FilePath),
				zap.Error(err))
		} else {
			s.log.Info("deleted transcript file", zap.String("path", conv.FilePath))
		}
	}

	kept := s.conversations[:0]
	for _, c := range s.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.conversations = kept

	if s.active != nil && s.active.ID == id {
		s.active = nil
		s.create()
		return nil
	}

	s.persistList()
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// PersistList writes the durable conversation list. Conversations with zero
// messages are skipped unless currently active.
func (s *Store) PersistList() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistList()
}

func (s *Store) persistList() {
	toSave := make([]*model.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		if !c.IsEmpty() || (s.active != nil && c.ID == s.active.ID) {
			toSave = append(toSave, c)
		}
	}

	if err := s.state.Set(conversationsKey, toSave); err != nil {
		s.log.Error("failed to persist conversations", zap.Error(err))
		return
	}
	s.log.Debug("saved conversations", zap.Int("count", len(toSave)))
}

// FlushTranscript rewrites the conversation's markdown transcript in full.
func (s *Store) FlushTranscript(conv *model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushTranscript(conv)
}

func (s *Store) flushTranscript(conv *model.Conversation) {
	if conv == nil || conv.FilePath == "" {
		return
	}
	if err := WriteTranscript(conv); err != nil {
		s.log.Warn("failed to save transcript",
			zap.String("path", conv.FilePath),
			zap.Error(err))
		return
	}
	s.log.Debug("saved transcript", zap.String("path", conv.FilePath))
}
