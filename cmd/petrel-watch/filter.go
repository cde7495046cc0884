// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// filterModel narrows the event log with fzf-style fuzzy matching
// against the channel, sender, and text of each entry. The filter is
// live: every keystroke re-applies it to the whole log.
type filterModel struct {
	// Input is the current filter query text.
	Input string

	// Active is true while the filter bar has keyboard focus.
	Active bool

	// slab is the fzf scratch allocation, reused across matches.
	slab *util.Slab
}

func newFilterModel() filterModel {
	return filterModel{slab: util.MakeSlab(100*1024, 2048)}
}

// Matches reports whether an entry survives the current filter. An
// empty filter matches everything; otherwise the query must fuzzy-
// match at least one of the entry's channel, sender, or text.
func (filter *filterModel) Matches(entry logEntry) bool {
	if filter.Input == "" {
		return true
	}
	pattern, caseSensitive := filter.pattern()
	for _, field := range []string{entry.channel, entry.sender, entry.text} {
		if field == "" {
			continue
		}
		if fuzzyMatch(field, pattern, caseSensitive, filter.slab) {
			return true
		}
	}
	return false
}

// pattern returns the query as fzf pattern runes plus the smart-case
// sensitivity: an all-lowercase query matches case-insensitively, any
// uppercase character makes it exact-case. The algorithm expects the
// pattern pre-lowercased for insensitive matching.
func (filter *filterModel) pattern() ([]rune, bool) {
	pattern := []rune(filter.Input)
	for _, character := range pattern {
		if unicode.IsUpper(character) {
			return pattern, true
		}
	}
	for index, character := range pattern {
		pattern[index] = unicode.ToLower(character)
	}
	return pattern, false
}

// fuzzyMatch runs the fzf V2 matcher against one field.
func fuzzyMatch(text string, pattern []rune, caseSensitive bool, slab *util.Slab) bool {
	if len(pattern) == 0 {
		return true
	}
	chars := util.ToChars([]byte(text))
	result, _ := algo.FuzzyMatchV2(caseSensitive, true, true, &chars, pattern, false, slab)
	return result.Start >= 0
}

// HandleRune appends a character typed while the filter is active.
func (filter *filterModel) HandleRune(character rune) {
	filter.Input += string(character)
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (filter *filterModel) HandleBackspace() bool {
	if len(filter.Input) == 0 {
		return false
	}
	runes := []rune(filter.Input)
	filter.Input = string(runes[:len(runes)-1])
	return true
}

// Clear resets the filter input and deactivates it.
func (filter *filterModel) Clear() {
	filter.Input = ""
	filter.Active = false
}

// View renders the filter bar line: the live query with a cursor
// while focused, a dim reminder once focus returns to the send box.
// The caller hides the bar entirely when the filter is inactive and
// empty.
func (filter *filterModel) View(theme Theme, lip *lipgloss.Renderer) string {
	if filter.Active {
		cursor := lip.NewStyle().Foreground(theme.HeaderForeground).Bold(true).Render("▎")
		return lip.NewStyle().Foreground(theme.NormalText).Render(" / "+filter.Input) + cursor
	}
	return lip.NewStyle().Foreground(theme.FaintText).Render(" filter: " + filter.Input)
}
