// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color palette for the watch display. All colors are
// ANSI 256 palette indices for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Event line parts.
	ChannelColor lipgloss.Color
	ActionColor  lipgloss.Color
	PrivateColor lipgloss.Color
	MentionColor lipgloss.Color
	ErrorColor   lipgloss.Color
	ResumeColor  lipgloss.Color

	// SenderColors is the palette sender IDs hash into, so every
	// participant keeps one stable color for the whole session.
	SenderColors [6]lipgloss.Color

	// Connection state badge.
	StateConnected    lipgloss.Color
	StateReconnecting lipgloss.Color
	StateClosed       lipgloss.Color
}

// SenderColor returns the stable palette color for a sender ID.
func (theme Theme) SenderColor(id string) lipgloss.Color {
	if id == "" {
		return theme.NormalText
	}
	hash := fnv.New32a()
	hash.Write([]byte(id))
	return theme.SenderColors[hash.Sum32()%uint32(len(theme.SenderColors))]
}

// defaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background.
var defaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	ChannelColor: lipgloss.Color("75"),  // blue
	ActionColor:  lipgloss.Color("141"), // light purple
	PrivateColor: lipgloss.Color("208"), // orange
	MentionColor: lipgloss.Color("220"), // yellow/amber
	ErrorColor:   lipgloss.Color("196"), // bright red
	ResumeColor:  lipgloss.Color("220"), // yellow/amber

	SenderColors: [6]lipgloss.Color{
		lipgloss.Color("114"), // green
		lipgloss.Color("75"),  // blue
		lipgloss.Color("176"), // pink
		lipgloss.Color("180"), // tan
		lipgloss.Color("80"),  // cyan
		lipgloss.Color("173"), // salmon
	},

	StateConnected:    lipgloss.Color("114"), // green
	StateReconnecting: lipgloss.Color("220"), // yellow/amber
	StateClosed:       lipgloss.Color("196"), // red
}
