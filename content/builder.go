// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"slices"
	"time"

	"github.com/petrel-chat/petrel/wire"
)

// Builder assembles a block tree. Methods append one block each and
// return the receiver for chaining. The zero value is not usable; call
// [New].
type Builder struct {
	children []*wire.Block
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// Text returns a builder holding a single text run. It is the idiom
// for passing plain strings to methods that take nested content:
//
//	content.New().Bold(content.Text("important"))
func Text(text string) *Builder {
	return New().Text(text)
}

// FromBlock converts a block back into a builder. Containers unwrap
// into their children so appending continues the same sequence; any
// other block becomes the single child. A nil block yields an empty
// builder.
func FromBlock(block *wire.Block) *Builder {
	if block == nil {
		return New()
	}
	if block.Kind == wire.BlockContainer {
		return &Builder{children: slices.Clone(block.Children)}
	}
	return &Builder{children: []*wire.Block{block}}
}

// Block flattens the builder into a single block: nil when the builder
// is empty, the lone child directly, or a container wrapping several
// children. Plain is left empty; [wire.Block.PlainText] derives a
// rendering, and senders that want an explicit fallback set Plain on
// the returned root.
func (b *Builder) Block() *wire.Block {
	switch len(b.children) {
	case 0:
		return nil
	case 1:
		return b.children[0]
	}
	return &wire.Block{Kind: wire.BlockContainer, Children: b.children}
}

// Append adds another builder's blocks to the end of the sequence.
func (b *Builder) Append(other *Builder) *Builder {
	b.children = append(b.children, other.nodes()...)
	return b
}

// Prepend adds another builder's blocks to the beginning of the
// sequence.
func (b *Builder) Prepend(other *Builder) *Builder {
	b.children = append(slices.Clone(other.nodes()), b.children...)
	return b
}

// Text appends a text run.
func (b *Builder) Text(text string) *Builder {
	b.children = append(b.children, &wire.Block{Kind: wire.BlockText, Text: text})
	return b
}

// Bold appends a bold block wrapping the given content.
func (b *Builder) Bold(content *Builder) *Builder {
	return b.wrap(wire.BlockBold, content)
}

// Italic appends an italics block wrapping the given content.
func (b *Builder) Italic(content *Builder) *Builder {
	return b.wrap(wire.BlockItalics, content)
}

// Underline appends an underline block wrapping the given content.
func (b *Builder) Underline(content *Builder) *Builder {
	return b.wrap(wire.BlockUnderline, content)
}

// Strikethrough appends a strikethrough block wrapping the given
// content.
func (b *Builder) Strikethrough(content *Builder) *Builder {
	return b.wrap(wire.BlockStrikethrough, content)
}

// Spoiler appends a spoiler block wrapping the given content.
func (b *Builder) Spoiler(content *Builder) *Builder {
	return b.wrap(wire.BlockSpoiler, content)
}

// Blockquote appends a blockquote wrapping the given content.
func (b *Builder) Blockquote(content *Builder) *Builder {
	return b.wrap(wire.BlockBlockquote, content)
}

// InlineCode appends an inline code span.
func (b *Builder) InlineCode(text string) *Builder {
	b.children = append(b.children, &wire.Block{Kind: wire.BlockInlineCode, Text: text})
	return b
}

// FencedCode appends a code block. info is the language hint and may
// be empty.
func (b *Builder) FencedCode(info, text string) *Builder {
	b.children = append(b.children, &wire.Block{Kind: wire.BlockFencedCode, Info: info, Text: text})
	return b
}

// Link appends a link to url wrapping the given content.
func (b *Builder) Link(url string, content *Builder) *Builder {
	b.children = append(b.children, &wire.Block{
		Kind:     wire.BlockLink,
		URL:      url,
		Children: content.nodes(),
	})
	return b
}

// Heading appends a heading of the given level (1 is largest)
// wrapping the given content.
func (b *Builder) Heading(level int, content *Builder) *Builder {
	b.children = append(b.children, &wire.Block{
		Kind:     wire.BlockHeading,
		Level:    level,
		Children: content.nodes(),
	})
	return b
}

// List appends a list block. Each item builder flattens into one list
// item; empty items are skipped.
func (b *Builder) List(items ...*Builder) *Builder {
	list := &wire.Block{Kind: wire.BlockList}
	for _, item := range items {
		if node := item.Block(); node != nil {
			list.Children = append(list.Children, node)
		}
	}
	b.children = append(b.children, list)
	return b
}

// Timestamp appends a timestamp block the receiving client renders in
// the viewer's locale.
func (b *Builder) Timestamp(t time.Time) *Builder {
	b.children = append(b.children, &wire.Block{Kind: wire.BlockTimestamp, Unix: t.Unix()})
	return b
}

// Container appends a container block. Each child builder flattens
// into one child; empty builders are skipped.
func (b *Builder) Container(blocks ...*Builder) *Builder {
	container := &wire.Block{Kind: wire.BlockContainer}
	for _, block := range blocks {
		if node := block.Block(); node != nil {
			container.Children = append(container.Children, node)
		}
	}
	b.children = append(b.children, container)
	return b
}

func (b *Builder) wrap(kind wire.BlockKind, content *Builder) *Builder {
	b.children = append(b.children, &wire.Block{Kind: kind, Children: content.nodes()})
	return b
}

// nodes returns the accumulated children, tolerating a nil builder so
// wrapping methods accept optional content.
func (b *Builder) nodes() []*wire.Block {
	if b == nil {
		return nil
	}
	return b.children
}

// appendText extends the trailing text run instead of adding a new
// one, so adjacent fragments from markdown conversion collapse into a
// single block.
func (b *Builder) appendText(text string) {
	if text == "" {
		return
	}
	if n := len(b.children); n > 0 && b.children[n-1].Kind == wire.BlockText {
		b.children[n-1].Text += text
		return
	}
	b.Text(text)
}
