// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"testing"
)

func TestBlockPlainTextPrefersExplicit(t *testing.T) {
	block := &Block{
		Kind:  BlockBold,
		Plain: "already rendered",
		Children: []*Block{
			{Kind: BlockText, Text: "ignored"},
		},
	}
	if got := block.PlainText(); got != "already rendered" {
		t.Errorf("PlainText() = %q, want explicit plain", got)
	}
}

func TestBlockPlainTextDerived(t *testing.T) {
	cases := []struct {
		name  string
		block *Block
		want  string
	}{
		{"nil", nil, ""},
		{"text leaf", &Block{Kind: BlockText, Text: "hello"}, "hello"},
		{"inline code", &Block{Kind: BlockInlineCode, Text: "x := 1"}, "x := 1"},
		{"fenced code", &Block{Kind: BlockFencedCode, Info: "go", Text: "package main"}, "package main"},
		{
			"nested styling",
			&Block{Kind: BlockBold, Children: []*Block{
				{Kind: BlockText, Text: "a "},
				{Kind: BlockItalics, Children: []*Block{
					{Kind: BlockText, Text: "b"},
				}},
			}},
			"a b",
		},
		{
			"list",
			&Block{Kind: BlockList, Children: []*Block{
				{Kind: BlockText, Text: "first"},
				{Kind: BlockText, Text: "second"},
			}},
			"- first\n- second",
		},
		{
			"container",
			&Block{Kind: BlockContainer, Children: []*Block{
				{Kind: BlockText, Text: "a"},
				{Kind: BlockText, Text: "b"},
			}},
			"ab",
		},
		{
			"timestamp",
			&Block{Kind: BlockTimestamp, Unix: 1767225600},
			"2026-01-01T00:00:00Z",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.block.PlainText(); got != tc.want {
				t.Errorf("PlainText() = %q, want %q", got, tc.want)
			}
		})
	}
}
