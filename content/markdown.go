// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/petrel-chat/petrel/wire"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration (extensions, options) never changes and the goldmark
// Parser is safe to share — actual parsing creates per-call state via
// Parse(reader).
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func markdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
			),
		)
	})
	return markdownParserInstance
}

// FromMarkdown converts markdown input into a block tree. CommonMark
// plus the GitHub extensions are understood: tables, strikethrough,
// autolinks, and task lists. Soft line breaks within a paragraph
// become spaces so hard-wrapped source reflows on the receiving side.
//
// The markdown source itself is kept as the Plain fallback of the
// returned root, since markdown is already a readable plain rendering.
// Returns nil for empty or whitespace-only input.
func FromMarkdown(input string) *wire.Block {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	source := []byte(input)
	document := markdownParser().Parser().Parse(text.NewReader(source))

	converter := &markdownConverter{source: source}
	root := converter.convertBlocks(document).Block()
	if root == nil {
		return nil
	}
	if root.Plain == "" {
		root.Plain = trimmed
	}
	return root
}

// markdownConverter turns a goldmark AST into builder calls. Block
// containers recurse through convertBlocks, inline runs through
// convertInlines; each produces a Builder whose flattened form becomes
// one node of the parent.
type markdownConverter struct {
	source []byte
}

func (c *markdownConverter) convertBlocks(node ast.Node) *Builder {
	builder := New()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		c.appendBlock(builder, child)
	}
	return builder
}

func (c *markdownConverter) appendBlock(builder *Builder, node ast.Node) {
	switch typed := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if paragraph := c.convertInlines(node).Block(); paragraph != nil {
			builder.children = append(builder.children, paragraph)
		}

	case *ast.Heading:
		builder.Heading(typed.Level, c.convertInlines(typed))

	case *ast.FencedCodeBlock:
		builder.FencedCode(string(typed.Language(c.source)), c.blockLines(typed))

	case *ast.CodeBlock:
		builder.FencedCode("", c.blockLines(typed))

	case *ast.Blockquote:
		builder.Blockquote(c.convertBlocks(typed))

	case *ast.List:
		var items []*Builder
		for item := typed.FirstChild(); item != nil; item = item.NextSibling() {
			items = append(items, c.convertBlocks(item))
		}
		builder.List(items...)

	case *ast.ThematicBreak:
		// No block kind for a rule; purely decorative, dropped.

	case *ast.HTMLBlock:
		if stripped := strings.TrimSpace(stripHTMLTags(c.blockLines(typed))); stripped != "" {
			builder.Text(stripped)
		}

	case *extast.Table:
		c.appendTable(builder, typed)

	case *extast.DefinitionList:
		for child := typed.FirstChild(); child != nil; child = child.NextSibling() {
			c.appendBlock(builder, child)
		}

	case *extast.DefinitionTerm:
		builder.Bold(c.convertInlines(typed))

	case *extast.DefinitionDescription:
		for child := typed.FirstChild(); child != nil; child = child.NextSibling() {
			c.appendBlock(builder, child)
		}

	default:
		// Unknown block containers are transparent: convert their
		// children in place rather than dropping content.
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			c.appendBlock(builder, child)
		}
	}
}

func (c *markdownConverter) convertInlines(node ast.Node) *Builder {
	builder := New()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		c.appendInline(builder, child)
	}
	return builder
}

func (c *markdownConverter) appendInline(builder *Builder, node ast.Node) {
	switch typed := node.(type) {
	case *ast.Text:
		builder.appendText(string(typed.Segment.Value(c.source)))
		if typed.SoftLineBreak() {
			// Soft breaks become spaces so hard-wrapped source text
			// reflows at whatever width the receiver renders.
			builder.appendText(" ")
		}
		if typed.HardLineBreak() {
			builder.appendText("\n")
		}

	case *ast.String:
		builder.appendText(string(typed.Value))

	case *ast.Emphasis:
		if typed.Level >= 2 {
			builder.Bold(c.convertInlines(typed))
		} else {
			builder.Italic(c.convertInlines(typed))
		}

	case *extast.Strikethrough:
		builder.Strikethrough(c.convertInlines(typed))

	case *ast.CodeSpan:
		builder.InlineCode(c.codeSpanText(typed))

	case *ast.Link:
		builder.Link(string(typed.Destination), c.convertInlines(typed))

	case *ast.AutoLink:
		url := string(typed.URL(c.source))
		builder.Link(url, Text(url))

	case *ast.Image:
		// No image kind; degrade to a link labeled with the alt text.
		label := c.convertInlines(typed).Block().PlainText()
		if label == "" {
			label = string(typed.Destination)
		}
		builder.Link(string(typed.Destination), Text(label))

	case *ast.RawHTML:
		var html strings.Builder
		for index := 0; index < typed.Segments.Len(); index++ {
			segment := typed.Segments.At(index)
			html.Write(segment.Value(c.source))
		}
		builder.appendText(stripHTMLTags(html.String()))

	case *extast.TaskCheckBox:
		if typed.IsChecked {
			builder.appendText("[x] ")
		} else {
			builder.appendText("[ ] ")
		}

	default:
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			c.appendInline(builder, child)
		}
	}
}

// appendTable flattens a GFM table into one text block, one line per
// row with cells joined by " | ". The block tree has no table kind and
// chat backends could not render one anyway.
func (c *markdownConverter) appendTable(builder *Builder, table *extast.Table) {
	var rows []string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case extast.KindTableHeader, extast.KindTableRow:
			rows = append(rows, strings.Join(c.collectTableRow(child), " | "))
		}
	}
	if len(rows) > 0 {
		builder.Text(strings.Join(rows, "\n"))
	}
}

// collectTableRow extracts the plain content of each cell in a row.
func (c *markdownConverter) collectTableRow(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if cell.Kind() == extast.KindTableCell {
			cells = append(cells, c.convertInlines(cell).Block().PlainText())
		}
	}
	return cells
}

// blockLines joins the raw source lines of a block node, used for code
// and HTML blocks whose content is not parsed further.
func (c *markdownConverter) blockLines(node ast.Node) string {
	var content strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		content.Write(segment.Value(c.source))
	}
	return content.String()
}

func (c *markdownConverter) codeSpanText(node ast.Node) string {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			segment := textNode.Segment
			code.Write(segment.Value(c.source))
		} else if strNode, ok := child.(*ast.String); ok {
			code.Write(strNode.Value)
		}
	}
	return code.String()
}

// stripHTMLTags removes HTML tags from a string, returning only the
// text content.
func stripHTMLTags(html string) string {
	var result strings.Builder
	inTag := false
	for _, character := range html {
		if character == '<' {
			inTag = true
			continue
		}
		if character == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(character)
		}
	}
	return result.String()
}
