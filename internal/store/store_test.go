// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/deepchat/internal/model"
	"github.com/jeranaias/deepchat/internal/state"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := state.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	return New(dir, st, zap.NewNop()), dir
}

func TestNewStartsWithFreshActiveConversation(t *testing.T) {
	s, _ := newTestStore(t)

	active := s.Active()
	if active == nil {
		t.Fatal("expected an active conversation at startup")
	}
	if !active.IsEmpty() {
		t.Errorf("startup conversation has %d messages, want 0", active.MessageCount())
	}
	if len(s.Conversations()) != 1 {
		t.Errorf("conversation count = %d, want 1", len(s.Conversations()))
	}
}

func TestCreatePurgesAbandonedEmptyConversations(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.Active()
	second := s.Create()

	// First is now empty and not active: the next Create drops it.
	third := s.Create()

	for _, c := range s.Conversations() {
		if c.ID == first.ID {
			t.Errorf("abandoned empty conversation %s survived", first.ID)
		}
		if c.ID == second.ID {
			t.Errorf("abandoned empty conversation %s survived", second.ID)
		}
	}
	if s.Active().ID != third.ID {
		t.Errorf("active = %s, want %s", s.Active().ID, third.ID)
	}
}

func TestCreateKeepsNonEmptyConversations(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.Active()
	first.AddUserMessage("hello")

	s.Create()

	if s.Find(first.ID) == nil {
		t.Error("non-empty conversation was purged")
	}
	if len(s.Conversations()) != 2 {
		t.Errorf("conversation count = %d, want 2", len(s.Conversations()))
	}
}

func TestSwitchToUnknownIDIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.Active()

	_, err := s.SwitchTo("conv-does-not-exist")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
	if s.Active().ID != before.ID {
		t.Error("active conversation changed on unknown switch")
	}
}

func TestSwitchFlushesOutgoingConversation(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.Active()
	first.AddUserMessage("question")
	first.AddAssistantMessage().Append("answer")

	second := s.Create()
	if _, err := s.SwitchTo(first.ID); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}

	// Add content to first while active, then switch away: the transcript
	// must be flushed before the pointer moves.
	first.AddUserMessage("followup")
	if _, err := s.SwitchTo(second.ID); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}

	data, err := os.ReadFile(first.FilePath)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if !strings.Contains(string(data), "followup") {
		t.Error("transcript missing message added before switch")
	}
	if s.Active().ID != second.ID {
		t.Errorf("active = %s, want %s", s.Active().ID, second.ID)
	}
}

func TestSwitchToActiveConversationChangesNothing(t *testing.T) {
	s, _ := newTestStore(t)

	active := s.Active()
	active.AddUserMessage("hi")
	lastActive := active.LastActive

	time.Sleep(time.Millisecond)
	got, err := s.SwitchTo(active.ID)
	if err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	if got.ID != active.ID {
		t.Errorf("returned %s, want %s", got.ID, active.ID)
	}
	if !got.LastActive.Equal(lastActive) {
		t.Error("self-switch touched LastActive")
	}
}

func TestDeleteActiveCreatesReplacement(t *testing.T) {
	s, _ := newTestStore(t)

	victim := s.Active()
	victim.AddUserMessage("doomed")
	s.FlushTranscript(victim)

	if err := s.Delete(victim.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if s.Find(victim.ID) != nil {
		t.Error("deleted conversation still listed")
	}
	if _, err := os.Stat(victim.FilePath); !os.IsNotExist(err) {
		t.Error("transcript file still exists after delete")
	}
	active := s.Active()
	if active == nil || active.ID == victim.ID {
		t.Fatal("expected a fresh active conversation after deleting the active one")
	}
	if !active.IsEmpty() {
		t.Error("replacement conversation is not empty")
	}
}

func TestDeleteNonActiveKeepsActive(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.Active()
	first.AddUserMessage("keep me listed")
	second := s.Create()

	if err := s.Delete(first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Active().ID != second.ID {
		t.Error("active conversation changed when deleting a non-active one")
	}
}

func TestDeleteProceedsWhenTranscriptRemovalFails(t *testing.T) {
	s, _ := newTestStore(t)

	victim := s.Active()
	victim.AddUserMessage("doomed")

	// A non-empty directory at the transcript path makes os.Remove fail.
	if err := os.MkdirAll(filepath.Join(victim.FilePath, "child"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := s.Delete(victim.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Find(victim.ID) != nil {
		t.Error("conversation survived despite transcript removal failure")
	}
}

func TestDeleteUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Delete("conv-nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestConversationsSurviveReload(t *testing.T) {
	dir := t.TempDir()
	st, err := state.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	s := New(dir, st, zap.NewNop())

	conv := s.Active()
	conv.AddUserMessage("persist me")
	conv.SetPreviewFromText("persist me")
	s.PersistList()

	st2, err := state.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	s2 := New(dir, st2, zap.NewNop())

	reloaded := s2.Find(conv.ID)
	if reloaded == nil {
		t.Fatal("conversation not reloaded")
	}
	if reloaded.MessageCount() != 1 {
		t.Errorf("reloaded message count = %d, want 1", reloaded.MessageCount())
	}
	if reloaded.Preview != "persist me" {
		t.Errorf("reloaded preview = %q, want %q", reloaded.Preview, "persist me")
	}
	// The reloaded store still starts a fresh active conversation.
	if s2.Active().ID == conv.ID {
		t.Error("reload resumed the old conversation instead of starting fresh")
	}
}

func TestEmptyConversationsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	st, err := state.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	s := New(dir, st, zap.NewNop())

	empty := s.Active()
	s.PersistList() // empty but active: kept

	var saved []*model.Conversation
	if err := st.Get("conversations", &saved); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != empty.ID {
		t.Fatalf("active empty conversation not persisted: %v", saved)
	}

	// Once no longer active, it disappears from the persisted list.
	s.Create()
	if err := st.Get("conversations", &saved); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, c := range saved {
		if c.ID == empty.ID {
			t.Error("abandoned empty conversation persisted")
		}
	}
}

func TestSummarizeOmitsMessageBodies(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.Active()
	conv.AddUserMessage("what is a goroutine and how do I use one safely?")
	conv.SetPreviewFromText("what is a goroutine and how do I use one safely?")

	summaries := s.Summarize()
	if len(summaries) != 1 {
		t.Fatalf("summary count = %d, want 1", len(summaries))
	}
	got := summaries[0]
	if got.ID != conv.ID {
		t.Errorf("summary ID = %s, want %s", got.ID, conv.ID)
	}
	if got.Preview == "" {
		t.Error("summary preview is empty")
	}
}

func TestRenderTranscriptFormat(t *testing.T) {
	conv := model.NewConversation()
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

	user := model.NewUserMessage("How do I read a file?")
	user.Timestamp = ts
	conv.AddMessage(user)

	reply := model.NewAssistantMessage()
	reply.Append("Use os.ReadFile.")
	reply.Timestamp = ts.Add(2 * time.Second)
	conv.AddMessage(reply)

	got := RenderTranscript(conv)
	want := "## [2025-03-14 09:26:53] User\nHow do I read a file?\n" +
		"\n---\n\n" +
		"## [2025-03-14 09:26:55] DeepSeek\nUse os.ReadFile.\n"
	if got != want {
		t.Errorf("transcript mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteTranscriptCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	conv := model.NewConversation()
	conv.FilePath = filepath.Join(dir, ".deepseek", conv.ID+".md")
	conv.AddUserMessage("hello")

	if err := WriteTranscript(conv); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if _, err := os.Stat(conv.FilePath); err != nil {
		t.Errorf("transcript missing: %v", err)
	}
}

func TestFinalizeStampsAndFlushes(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.Active()
	s.AddMessage(conv, model.NewUserMessage("what is a goroutine?"))
	reply := model.NewAssistantMessage()
	s.AddMessage(conv, reply)
	s.AppendToMessage(reply, "a lightweight thread")

	before := conv.LastActive
	time.Sleep(5 * time.Millisecond)
	s.Finalize(conv, "what is a goroutine?")

	if !conv.LastActive.After(before) {
		t.Error("LastActive did not advance")
	}
	if !strings.HasPrefix(conv.Preview, "what is a goroutine?") {
		t.Errorf("preview = %q", conv.Preview)
	}
	data, err := os.ReadFile(conv.FilePath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "a lightweight thread") {
		t.Error("transcript missing streamed content")
	}
}

func TestStreamedAppendsSerializeAgainstPersistence(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.Active()
	s.AddMessage(conv, model.NewUserMessage("question"))
	reply := model.NewAssistantMessage()
	s.AddMessage(conv, reply)

	// One goroutine streams deltas while another flushes; the store lock
	// keeps the marshalled snapshots whole.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.AppendToMessage(reply, "x")
		}
		s.Finalize(conv, "question")
	}()
	for i := 0; i < 50; i++ {
		s.PersistList()
		s.FlushTranscript(conv)
		_ = s.History(conv, 5)
	}
	<-done

	if len(reply.Content) != 200 {
		t.Errorf("streamed %d chars, want 200", len(reply.Content))
	}
}

func TestHistorySnapshotsMessageContent(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.Active()
	reply := model.NewAssistantMessage()
	s.AddMessage(conv, reply)
	s.AppendToMessage(reply, "first")

	snap := s.History(conv, 5)
	s.AppendToMessage(reply, " second")

	if snap[0].Content != "first" {
		t.Errorf("snapshot content = %q, want %q", snap[0].Content, "first")
	}
}
