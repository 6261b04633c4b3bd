// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal chat view. It is the presentation
// layer behind the core's event bridge: commands go in, display events
// come out, and nothing in here touches conversation state directly.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deepchat/internal/config"
	"github.com/jeranaias/deepchat/internal/model"
	"github.com/jeranaias/deepchat/internal/panel"
)

// eventMsg wraps a core event for delivery through the Bubble Tea loop.
type eventMsg struct {
	event panel.Event
}

// chatMessage is the display copy of one message bubble.
type chatMessage struct {
	ID        string
	Role      model.Role
	Content   string
	Timestamp time.Time
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session *panel.Session
	app     *App
	cfg     *config.Config

	theme  *Theme
	keyMap KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Conversation display state
	messages  []chatMessage
	history   []model.Summary
	activeID  string
	streaming bool

	// Transient surfaces
	status        string
	statusIsError bool
	attachedCount int

	// History overlay
	showHistory   bool
	historyCursor int

	// Delete confirmation modal
	confirmingID string
}

// newModel creates the chat model. The session is attached by the App
// before the program runs.
func newModel(app *App, cfg *config.Config) *Model {
	input := textarea.New()
	input.Placeholder = "Ask DeepSeek..."
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		app:     app,
		cfg:     cfg,
		theme:   DefaultTheme(),
		keyMap:  DefaultKeyMap(),
		input:   input,
		spinner: sp,
	}
}

// Init requests the initial full-state handshake once the view is live.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.dispatch(panel.InitCommand{}),
	)
}

// dispatch runs one core command off the render loop.
func (m *Model) dispatch(cmd panel.Command) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		session.Dispatch(cmd)
		return nil
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		// Bound keys never reach the text input.
		if m.isBoundKey(msg) || m.showHistory || m.confirmingID != "" {
			return m, m.handleKey(msg)
		}

	case eventMsg:
		m.handleEvent(msg.event)

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.ready && !m.showHistory && m.confirmingID == "" {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h

	inputHeight := m.input.Height() + 2 // border
	chromeHeight := inputHeight + 3     // title, status, help
	vpHeight := h - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(w, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(w - 4)
	m.refreshViewport()
}

func (m *Model) isBoundKey(msg tea.KeyMsg) bool {
	return key.Matches(msg,
		m.keyMap.Send,
		m.keyMap.NewChat,
		m.keyMap.History,
		m.keyMap.DeleteChat,
		m.keyMap.SelectFiles,
		m.keyMap.EstimateTokens,
		m.keyMap.ScrollUp,
		m.keyMap.ScrollDown,
		m.keyMap.Quit,
	)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Delete confirmation modal swallows everything except its answer.
	if m.confirmingID != "" {
		switch msg.String() {
		case "y", "Y":
			id := m.confirmingID
			m.confirmingID = ""
			m.app.armDelete(id)
			return m.dispatch(panel.DeleteConversationCommand{ConversationID: id})
		default:
			m.confirmingID = ""
		}
		return nil
	}

	if m.showHistory {
		return m.handleHistoryKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keyMap.Send):
		text := m.input.Value()
		m.input.Reset()
		return m.dispatch(panel.SendRequestCommand{
			Text:         text,
			HistoryCount: m.cfg.Chat.HistoryCount,
		})

	case key.Matches(msg, m.keyMap.NewChat):
		return m.dispatch(panel.NewConversationCommand{})

	case key.Matches(msg, m.keyMap.History):
		m.showHistory = true
		m.historyCursor = 0
		return nil

	case key.Matches(msg, m.keyMap.DeleteChat):
		if m.activeID != "" {
			m.confirmingID = m.activeID
		}
		return nil

	case key.Matches(msg, m.keyMap.SelectFiles):
		return m.dispatch(panel.SelectFilesCommand{
			FileTypes: m.cfg.Files.Types,
			Exclude:   m.cfg.Files.Exclude,
		})

	case key.Matches(msg, m.keyMap.EstimateTokens):
		return m.dispatch(panel.EstimateTokensCommand{
			Text:         m.input.Value(),
			HistoryCount: m.cfg.Chat.HistoryCount,
		})

	case key.Matches(msg, m.keyMap.ScrollUp):
		m.viewport.HalfViewUp()
		return nil

	case key.Matches(msg, m.keyMap.ScrollDown):
		m.viewport.HalfViewDown()
		return nil
	}
	return nil
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+h", "q":
		m.showHistory = false
	case "up", "k":
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case "down", "j":
		if m.historyCursor < len(m.history)-1 {
			m.historyCursor++
		}
	case "enter":
		m.showHistory = false
		if m.historyCursor < len(m.history) {
			return m.dispatch(panel.SwitchConversationCommand{
				ConversationID: m.history[m.historyCursor].ID,
			})
		}
	case "ctrl+c":
		return tea.Quit
	}
	return nil
}

// =============================================================================
// CORE EVENT RECONCILIATION
// =============================================================================

func (m *Model) handleEvent(e panel.Event) {
	switch e := e.(type) {
	case panel.StatusEvent:
		m.status = e.Text
		m.statusIsError = len(e.Text) > 5 && e.Text[:5] == "Error"
		m.streaming = false

	case panel.FileListEvent:
		m.attachedCount = len(e.Files)
		m.status = fmt.Sprintf("%d files attached", len(e.Files))
		m.statusIsError = false

	case panel.TokenEstimateEvent:
		m.status = e.Estimate
		m.statusIsError = false

	case panel.MessageAddedEvent:
		m.messages = append(m.messages, chatMessage{
			ID:        e.ID,
			Role:      e.Role,
			Content:   e.Content,
			Timestamp: e.Timestamp,
		})
		if e.Role == model.RoleAssistant {
			m.streaming = true
			m.status = ""
		}
		m.refreshViewport()
		m.viewport.GotoBottom()

	case panel.MessageUpdatedEvent:
		for i := range m.messages {
			if m.messages[i].ID == e.ID {
				m.messages[i].Content = e.Content
				break
			}
		}
		m.refreshViewport()
		m.viewport.GotoBottom()

	case panel.UsageEvent:
		m.status = fmt.Sprintf("Tokens used: %d prompt + %d completion = %d",
			e.Usage.PromptTokens, e.Usage.CompletionTokens, e.Usage.TotalTokens)
		m.statusIsError = false

	case panel.ConversationEvent:
		m.streaming = false
		m.history = e.History
		if e.Conversation != nil {
			m.activeID = e.Conversation.ID
			m.messages = m.messages[:0]
			for _, msg := range e.Conversation.Messages {
				m.messages = append(m.messages, chatMessage{
					ID:        msg.ID,
					Role:      msg.Role,
					Content:   msg.Content,
					Timestamp: msg.Timestamp,
				})
			}
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
	}
}
