// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the lipgloss styles for the chat view.
type Theme struct {
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Status         lipgloss.Style
	StatusError    lipgloss.Style
	InputBorder    lipgloss.Style
	HistoryTitle   lipgloss.Style
	HistoryItem    lipgloss.Style
	HistoryActive  lipgloss.Style
	ConfirmPrompt  lipgloss.Style
}

// DefaultTheme returns the standard color scheme.
func DefaultTheme() *Theme {
	return &Theme{
		UserLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true),
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")),
		StatusError: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
		InputBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
		HistoryTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")).
			Bold(true),
		HistoryItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")),
		HistoryActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")),
		ConfirmPrompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true),
	}
}
