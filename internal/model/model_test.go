// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation()

	if conv.ID == "" {
		t.Error("Expected non-empty ID")
	}
	if !strings.HasPrefix(conv.ID, "conv-") {
		t.Errorf("ID should start with 'conv-', got %q", conv.ID)
	}
	if !conv.IsEmpty() {
		t.Error("New conversation should be empty")
	}
	if conv.CreatedAt.IsZero() || conv.LastActive.IsZero() {
		t.Error("Timestamps should be set")
	}
}

func TestConversation_AddMessages(t *testing.T) {
	conv := NewConversation()

	user := conv.AddUserMessage("Hello")
	assistant := conv.AddAssistantMessage()

	if conv.MessageCount() != 2 {
		t.Errorf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	if user.Role != RoleUser {
		t.Errorf("user role = %q, want %q", user.Role, RoleUser)
	}
	if assistant.Role != RoleAssistant {
		t.Errorf("assistant role = %q, want %q", assistant.Role, RoleAssistant)
	}
	if !assistant.IsEmpty() {
		t.Error("Assistant placeholder should start empty")
	}

	// Insertion order is chronological order.
	if conv.Messages[0] != user || conv.Messages[1] != assistant {
		t.Error("Messages should preserve insertion order")
	}
}

func TestMessage_AppendKeepsTimestamp(t *testing.T) {
	msg := NewAssistantMessage()
	created := msg.Timestamp

	time.Sleep(5 * time.Millisecond)
	msg.Append("partial ")
	msg.Append("response")

	if msg.Content != "partial response" {
		t.Errorf("Content = %q, want %q", msg.Content, "partial response")
	}
	if !msg.Timestamp.Equal(created) {
		t.Error("Timestamp must reflect creation, not last append")
	}
}

func TestConversation_LastMessages(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("one")
	conv.AddUserMessage("two")
	conv.AddUserMessage("three")

	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{-1, nil},
		{1, []string{"three"}},
		{2, []string{"two", "three"}},
		{5, []string{"one", "two", "three"}},
	}

	for _, tc := range tests {
		got := conv.LastMessages(tc.n)
		if len(got) != len(tc.want) {
			t.Errorf("LastMessages(%d) returned %d messages, want %d", tc.n, len(got), len(tc.want))
			continue
		}
		for i, msg := range got {
			if msg.Content != tc.want[i] {
				t.Errorf("LastMessages(%d)[%d] = %q, want %q", tc.n, i, msg.Content, tc.want[i])
			}
		}
	}
}

func TestConversation_DerivePreview(t *testing.T) {
	conv := NewConversation()
	if got := conv.DerivePreview(); got != EmptyPreview {
		t.Errorf("Empty conversation preview = %q, want %q", got, EmptyPreview)
	}

	long := strings.Repeat("x", 80)
	conv.AddUserMessage(long)

	got := conv.DerivePreview()
	if !strings.HasSuffix(got, "...") {
		t.Error("Truncated preview should end with '...'")
	}
	if len([]rune(got)) != PreviewLength+3 {
		t.Errorf("Preview length = %d runes, want %d", len([]rune(got)), PreviewLength+3)
	}
}

func TestConversation_DerivePreviewUnicode(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("こんにちは")

	if got := conv.DerivePreview(); got != "こんにちは" {
		t.Errorf("Short unicode preview = %q, want unchanged content", got)
	}
}

func TestConversation_Summarize(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("What is Go?")

	s := conv.Summarize()
	if s.ID != conv.ID {
		t.Errorf("Summary ID = %q, want %q", s.ID, conv.ID)
	}
	if s.Preview != "What is Go?" {
		t.Errorf("Summary preview = %q, want %q", s.Preview, "What is Go?")
	}
}

func TestRole_DisplayName(t *testing.T) {
	if got := RoleUser.DisplayName(); got != "User" {
		t.Errorf("RoleUser.DisplayName() = %q, want User", got)
	}
	if got := RoleAssistant.DisplayName(); got != "DeepSeek" {
		t.Errorf("RoleAssistant.DisplayName() = %q, want DeepSeek", got)
	}
}
