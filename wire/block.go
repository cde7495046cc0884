// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strings"
	"time"
)

// BlockKind names a node type in the rich-content tree.
type BlockKind string

const (
	// BlockText is a literal text run. Leaf node; Text holds the
	// content.
	BlockText BlockKind = "text"

	// BlockBold renders its children emphasized strongly.
	BlockBold BlockKind = "bold"

	// BlockItalics renders its children emphasized.
	BlockItalics BlockKind = "italics"

	// BlockUnderline renders its children underlined.
	BlockUnderline BlockKind = "underline"

	// BlockStrikethrough renders its children struck out.
	BlockStrikethrough BlockKind = "strikethrough"

	// BlockSpoiler hides its children until revealed.
	BlockSpoiler BlockKind = "spoiler"

	// BlockBlockquote renders its children as a quotation.
	BlockBlockquote BlockKind = "blockquote"

	// BlockInlineCode is a literal code span. Leaf node; Text holds
	// the content.
	BlockInlineCode BlockKind = "inline_code"

	// BlockFencedCode is a code block. Leaf node; Text holds the
	// content and Info the language hint.
	BlockFencedCode BlockKind = "fenced_code"

	// BlockLink wraps its children in a hyperlink to URL.
	BlockLink BlockKind = "link"

	// BlockHeading renders its children as a heading of the given
	// Level (1 is largest).
	BlockHeading BlockKind = "heading"

	// BlockList renders each child as one list item.
	BlockList BlockKind = "list"

	// BlockTimestamp is a point in time the receiving client renders
	// in the viewer's locale. Leaf node; Unix holds the time.
	BlockTimestamp BlockKind = "timestamp"

	// BlockContainer groups children with no styling of its own.
	BlockContainer BlockKind = "container"
)

// Block is one node of a rich-content tree. Backends that cannot
// render a kind fall back to Plain, so every block carries its own
// plain rendering.
type Block struct {
	// Kind selects the node type.
	Kind BlockKind `cbor:"kind"`

	// Plain is the plain-text fallback rendering of this node and
	// its children.
	Plain string `cbor:"plain,omitempty"`

	// Text is the literal content of text, inline_code, and
	// fenced_code leaves.
	Text string `cbor:"text,omitempty"`

	// Info is the language hint of a fenced_code leaf.
	Info string `cbor:"info,omitempty"`

	// URL is the target of a link node.
	URL string `cbor:"url,omitempty"`

	// Level is the heading level, 1 through 6.
	Level int `cbor:"level,omitempty"`

	// Unix is the timestamp value in Unix seconds.
	Unix int64 `cbor:"unix,omitempty"`

	// Children are the nested blocks of non-leaf kinds.
	Children []*Block `cbor:"children,omitempty"`
}

// PlainText returns the plain rendering of the block tree: the Plain
// field when the producer set one, otherwise a rendering derived from
// the tree. Safe on nil blocks.
func (b *Block) PlainText() string {
	if b == nil {
		return ""
	}
	if b.Plain != "" {
		return b.Plain
	}
	return b.derivePlain()
}

func (b *Block) derivePlain() string {
	switch b.Kind {
	case BlockText, BlockInlineCode, BlockFencedCode:
		return b.Text
	case BlockTimestamp:
		return time.Unix(b.Unix, 0).UTC().Format(time.RFC3339)
	case BlockList:
		var builder strings.Builder
		for i, child := range b.Children {
			if i > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString("- ")
			builder.WriteString(child.PlainText())
		}
		return builder.String()
	default:
		var builder strings.Builder
		for _, child := range b.Children {
			builder.WriteString(child.PlainText())
		}
		return builder.String()
	}
}
