// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/deepchat/internal/util"
)

// PreviewLength is the number of characters kept when deriving a
// conversation preview from message text.
const PreviewLength = 50

// EmptyPreview is the placeholder preview for a conversation with no messages.
const EmptyPreview = "New conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an ordered sequence of user/assistant turns together
// with its persistence metadata. Messages are append-only during a session;
// insertion order is chronological order.
type Conversation struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastActive time.Time  `json:"lastActive"`
	Messages   []*Message `json:"messages"`

	// FilePath is the markdown transcript path, empty when no workspace
	// root was available at creation time.
	FilePath string `json:"filePath,omitempty"`

	// Preview is a cached display string derived from the conversation.
	Preview string `json:"preview,omitempty"`
}

// NewConversation creates a new conversation with a generated ID and
// current timestamps.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:         generateConversationID(),
		CreatedAt:  now,
		LastActive: now,
		Messages:   make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
}

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends an empty assistant message that
// will grow as the response streams in.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// GetMessageByID returns a message by its ID, or nil.
func (c *Conversation) GetMessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastMessages returns the trailing n messages, or all of them when the
// conversation is shorter. n <= 0 yields an empty slice.
func (c *Conversation) LastMessages(n int) []*Message {
	if n <= 0 {
		return nil
	}
	if n > len(c.Messages) {
		n = len(c.Messages)
	}
	return c.Messages[len(c.Messages)-n:]
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// METADATA
// =============================================================================

// Touch updates the last-active timestamp.
func (c *Conversation) Touch() {
	c.LastActive = time.Now()
}

// SetPreviewFromText caches a preview derived from the given text, truncated
// to PreviewLength characters.
func (c *Conversation) SetPreviewFromText(text string) {
	c.Preview = util.TruncateRunes(text, PreviewLength)
}

// DerivePreview returns the display preview for list views: the first
// message's leading characters, or the placeholder for an empty conversation.
func (c *Conversation) DerivePreview() string {
	if len(c.Messages) == 0 {
		return EmptyPreview
	}
	return c.Messages[0].Preview(PreviewLength)
}

// =============================================================================
// SUMMARY VIEW
// =============================================================================

// Summary is the lightweight history view that crosses the bridge to the
// UI: identity and preview only, never full message bodies.
type Summary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	Preview    string    `json:"preview"`
}

// Summarize returns the conversation's summary record.
func (c *Conversation) Summarize() Summary {
	return Summary{
		ID:         c.ID,
		CreatedAt:  c.CreatedAt,
		LastActive: c.LastActive,
		Preview:    c.DerivePreview(),
	}
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	return "conv-" + uuid.NewString()
}
