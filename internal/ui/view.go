// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/deepchat/internal/model"
)

const timestampFormat = "15:04:05"

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	if m.showHistory {
		return m.historyView()
	}

	var b strings.Builder
	b.WriteString(m.titleView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputBorder.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

func (m *Model) titleView() string {
	title := "DeepChat"
	if m.attachedCount > 0 {
		title += fmt.Sprintf(" [%d files]", m.attachedCount)
	}
	return m.theme.HistoryTitle.Render(runewidth.Truncate(title, m.width, "..."))
}

func (m *Model) statusView() string {
	if m.confirmingID != "" {
		return m.theme.ConfirmPrompt.Render("Delete this conversation? (y/n)")
	}
	if m.streaming {
		return m.theme.Status.Render(m.spinner.View() + " thinking...")
	}
	if m.status == "" {
		return ""
	}
	style := m.theme.Status
	if m.statusIsError {
		style = m.theme.StatusError
	}
	return style.Render(runewidth.Truncate(m.status, m.width, "..."))
}

func (m *Model) helpView() string {
	help := "enter send · ctrl+n new · ctrl+h history · ctrl+f files · ctrl+t tokens · ctrl+d delete · ctrl+c quit"
	return m.theme.Timestamp.Render(runewidth.Truncate(help, m.width, "..."))
}

// refreshViewport re-renders the message list into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderMessage renders one bubble: label line, then content. Completed
// assistant messages get markdown rendering; everything still streaming is
// shown raw to avoid re-rendering half-open code fences.
func (m *Model) renderMessage(msg chatMessage) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	}
	header := label + " " + m.theme.Timestamp.Render(msg.Timestamp.Format(timestampFormat))

	content := msg.Content
	if msg.Role == model.RoleAssistant && !m.streaming && content != "" {
		if rendered, err := m.renderMarkdown(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}
	return header + "\n" + content
}

func (m *Model) renderMarkdown(content string) (string, error) {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

func (m *Model) historyView() string {
	var b strings.Builder
	b.WriteString(m.theme.HistoryTitle.Render("Conversations"))
	b.WriteString("\n\n")

	for i, s := range m.history {
		line := fmt.Sprintf("%s  %s", s.LastActive.Format("2006-01-02 15:04"), s.Preview)
		if s.ID == m.activeID {
			line += " (active)"
		}
		line = runewidth.Truncate(line, m.width-2, "...")

		style := m.theme.HistoryItem
		if i == m.historyCursor {
			style = m.theme.HistoryActive
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Timestamp.Render("enter switch · esc close"))
	return b.String()
}
