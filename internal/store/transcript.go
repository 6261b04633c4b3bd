// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/deepchat/internal/model"
	"github.com/jeranaias/deepchat/internal/util"
)

// transcriptTimeFormat is the timestamp rendered in transcript headings.
const transcriptTimeFormat = "2006-01-02 15:04:05"

// transcriptPath returns the markdown transcript location for a
// conversation ID. The file itself is created lazily on first write.
func (s *Store) transcriptPath(id string) string {
	return filepath.Join(s.dataDir, id+".md")
}

// RenderTranscript produces the markdown transcript for a conversation:
// one heading per message with a local timestamp and the speaker name,
// messages separated by a horizontal rule.
func RenderTranscript(conv *model.Conversation) string {
	sections := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		sections = append(sections, fmt.Sprintf("## [%s] %s\n%s\n",
			msg.Timestamp.Format(transcriptTimeFormat),
			msg.Role.DisplayName(),
			msg.Content))
	}
	return strings.Join(sections, "\n---\n\n")
}

// WriteTranscript atomically rewrites the conversation's transcript file,
// creating the parent directory if needed.
func WriteTranscript(conv *model.Conversation) error {
	if conv.FilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(conv.FilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return util.AtomicWriteFile(conv.FilePath, []byte(RenderTranscript(conv)), 0o644)
}
