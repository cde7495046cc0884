// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/wire"
)

// renderer turns log entries into styled terminal lines. Entries
// render lazily from their wire form so a resize or filter change can
// re-render the whole log at the current width.
type renderer struct {
	theme Theme
	width int
	lip   *lipgloss.Renderer
}

func newRenderer(theme Theme, width int, profile termenv.Profile) *renderer {
	// Force the profile rather than auto-detecting: this output goes
	// to the bubbletea alt screen, so detection (which sees no TTY
	// under tests) must not strip the colors. SetColorProfile is
	// required because the renderer otherwise re-detects from the
	// environment.
	lip := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(profile))
	lip.SetColorProfile(profile)
	return &renderer{theme: theme, width: width, lip: lip}
}

// colorProfile maps the output.color setting to a terminal profile.
// Everything renders through the same pipeline; "never" degrades the
// colors to plain text instead of switching pipelines.
func colorProfile(mode string) termenv.Profile {
	if mode == "never" {
		return termenv.Ascii
	}
	return termenv.ANSI256
}

// style creates a lipgloss style on the forced color profile.
func (r *renderer) style() lipgloss.Style {
	return r.lip.NewStyle()
}

// Line renders one log entry, possibly spanning several display
// lines. Returns "" for entries with nothing to show.
func (r *renderer) Line(entry logEntry) string {
	if entry.event.Resumed() {
		return r.resumeLine(entry.event.Generation)
	}
	payload := entry.event.Payload
	if payload == nil {
		return ""
	}

	stamp := r.stamp(entry.at)
	switch payload.Type {
	case wire.EventMessage:
		m := payload.Message
		prefix := stamp + " " + r.channelTag(m.ChannelID) + " " + r.senderTag(m.Sender) + " "
		return r.compose(prefix, r.messageBody(m.Text, m.Root))

	case wire.EventPrivateMessage:
		m := payload.PrivateMessage
		prefix := stamp + " " + r.privateTag() + " " + r.senderTag(m.Sender) + " "
		return r.compose(prefix, r.messageBody(m.Text, m.Root))

	case wire.EventAction:
		a := payload.Action
		prefix := stamp + " " + r.channelTag(a.ChannelID) + " "
		return r.compose(prefix, r.actionBody(a.Sender, a.Text))

	case wire.EventPrivateAction:
		a := payload.PrivateAction
		prefix := stamp + " " + r.privateTag() + " "
		return r.compose(prefix, r.actionBody(a.Sender, a.Text))

	case wire.EventCommand:
		c := payload.Command
		body := r.style().Bold(true).Foreground(r.theme.NormalText).Render("!" + c.Command)
		if c.Arg != "" {
			body += " " + r.style().Foreground(r.theme.NormalText).Render(c.Arg)
		}
		prefix := stamp + " " + r.channelTag(c.ChannelID) + " " + r.senderTag(c.Sender) + " "
		return r.compose(prefix, body)

	case wire.EventMention:
		m := payload.Mention
		marker := r.style().Foreground(r.theme.MentionColor).Render("(mention)")
		prefix := stamp + " " + r.channelTag(m.ChannelID) + " " + r.senderTag(m.Sender) + " " + marker + " "
		return r.compose(prefix, r.messageBody(m.Text, nil))

	case wire.EventParticipantJoined:
		p := payload.ParticipantJoined
		body := r.style().Foreground(r.theme.FaintText).Render("* " + cli.SenderName(p.User) + " joined")
		return r.compose(stamp+" "+r.channelTag(p.ChannelID)+" ", body)

	case wire.EventParticipantLeft:
		p := payload.ParticipantLeft
		body := r.style().Foreground(r.theme.FaintText).Render("* " + cli.SenderName(p.User) + " left")
		return r.compose(stamp+" "+r.channelTag(p.ChannelID)+" ", body)

	case wire.EventStreamError:
		e := payload.StreamError
		text := "stream error: " + string(e.Code)
		if e.Message != "" {
			text += ": " + e.Message
		}
		return r.compose(stamp+" ", r.style().Foreground(r.theme.ErrorColor).Render(text))

	default:
		body := r.style().Foreground(r.theme.FaintText).Render(fmt.Sprintf("(unknown event type %q)", string(payload.Type)))
		return r.compose(stamp+" ", body)
	}
}

// resumeLine renders the synthetic reconnection marker.
func (r *renderer) resumeLine(generation uint64) string {
	text := fmt.Sprintf("── stream resumed (generation %d) ──", generation)
	return r.style().Foreground(r.theme.ResumeColor).Render(text)
}

func (r *renderer) stamp(at time.Time) string {
	return r.style().Foreground(r.theme.FaintText).Render(at.Format("15:04:05"))
}

func (r *renderer) channelTag(id string) string {
	return r.style().Foreground(r.theme.ChannelColor).Render("[" + id + "]")
}

func (r *renderer) privateTag() string {
	return r.style().Foreground(r.theme.PrivateColor).Render("[private]")
}

func (r *renderer) senderTag(user wire.User) string {
	return r.style().Foreground(r.theme.SenderColor(user.ID)).Render("<" + cli.SenderName(user) + ">")
}

func (r *renderer) actionBody(sender wire.User, text string) string {
	return r.style().Foreground(r.theme.ActionColor).Italic(true).Render("* " + cli.SenderName(sender) + " " + text)
}

// messageBody renders message content: the block tree when the sender
// attached one, the plain text otherwise.
func (r *renderer) messageBody(text string, root *wire.Block) string {
	if root != nil {
		if rendered := r.renderBlocks(root); rendered != "" {
			return rendered
		}
	}
	return r.style().Foreground(r.theme.NormalText).Render(text)
}

// compose joins a line prefix with a body, word-wrapping the body to
// the remaining width and indenting continuation lines under the body
// start.
func (r *renderer) compose(prefix, body string) string {
	indentWidth := ansi.StringWidth(prefix)
	bodyWidth := r.width - indentWidth
	if bodyWidth < 20 {
		bodyWidth = 20
	}
	wrapped := ansi.Wrap(body, bodyWidth, " ,.;-+|")

	lines := strings.Split(wrapped, "\n")
	indent := strings.Repeat(" ", indentWidth)
	for index := 1; index < len(lines); index++ {
		lines[index] = indent + lines[index]
	}
	return prefix + strings.Join(lines, "\n")
}

// blockState carries the inline styling accumulated from enclosing
// blocks during the tree walk.
type blockState struct {
	bold      bool
	italic    bool
	underline bool
	strike    bool
}

// renderBlocks renders a rich-content tree as styled terminal text.
// Block-level nodes (code fences, quotes, headings, lists) separate
// onto their own lines; everything else flows inline.
func (r *renderer) renderBlocks(root *wire.Block) string {
	var out strings.Builder
	r.walkBlock(&out, root, blockState{})

	// Adjacent block-level nodes each emit their own separators;
	// collapse the leftovers so the log never shows runs of blank
	// lines inside one message.
	text := out.String()
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.Trim(text, "\n")
}

func (r *renderer) walkBlock(out *strings.Builder, block *wire.Block, state blockState) {
	if block == nil {
		return
	}

	switch block.Kind {
	case wire.BlockText:
		out.WriteString(r.inlineText(block.Text, state))

	case wire.BlockBold:
		state.bold = true
		r.walkChildren(out, block, state)

	case wire.BlockItalics:
		state.italic = true
		r.walkChildren(out, block, state)

	case wire.BlockUnderline:
		state.underline = true
		r.walkChildren(out, block, state)

	case wire.BlockStrikethrough:
		state.strike = true
		r.walkChildren(out, block, state)

	case wire.BlockSpoiler:
		// Reverse video so the content reads as redacted until the
		// viewer selects it.
		var hidden strings.Builder
		r.walkChildren(&hidden, block, state)
		out.WriteString(r.style().Reverse(true).Render(ansi.Strip(hidden.String())))

	case wire.BlockBlockquote:
		var quoted strings.Builder
		r.walkChildren(&quoted, block, state)
		marker := r.style().Foreground(r.theme.BorderColor).Render("│ ")
		out.WriteString("\n")
		for _, line := range strings.Split(strings.Trim(quoted.String(), "\n"), "\n") {
			out.WriteString(marker + line + "\n")
		}

	case wire.BlockInlineCode:
		out.WriteString(r.style().Foreground(r.theme.FaintText).Render(block.Text))

	case wire.BlockFencedCode:
		out.WriteString("\n" + r.highlightCode(block.Text, block.Info) + "\n")

	case wire.BlockLink:
		var label strings.Builder
		r.walkChildren(&label, block, state)
		out.WriteString(label.String())
		if block.URL != "" {
			out.WriteString(" " + r.style().Foreground(r.theme.FaintText).Render("("+block.URL+")"))
		}

	case wire.BlockHeading:
		var heading strings.Builder
		r.walkChildren(&heading, block, state)
		style := r.style().Bold(true).Foreground(r.theme.NormalText)
		if block.Level <= 2 {
			style = style.Foreground(r.theme.HeaderForeground)
		}
		out.WriteString("\n" + style.Render(ansi.Strip(heading.String())) + "\n")

	case wire.BlockList:
		out.WriteString("\n")
		for _, child := range block.Children {
			var item strings.Builder
			r.walkBlock(&item, child, state)
			out.WriteString("- " + strings.Trim(item.String(), "\n") + "\n")
		}

	case wire.BlockTimestamp:
		stamp := time.Unix(block.Unix, 0).Local().Format("2006-01-02 15:04")
		out.WriteString(r.style().Foreground(r.theme.FaintText).Render(stamp))

	case wire.BlockContainer:
		r.walkChildren(out, block, state)

	default:
		// Unknown kinds render their plain fallback. Remote content
		// must never break the display.
		out.WriteString(r.inlineText(block.PlainText(), state))
	}
}

func (r *renderer) walkChildren(out *strings.Builder, block *wire.Block, state blockState) {
	if len(block.Children) == 0 && block.Text != "" {
		// A styling node without children carries its content in Text.
		out.WriteString(r.inlineText(block.Text, state))
		return
	}
	for _, child := range block.Children {
		r.walkBlock(out, child, state)
	}
}

func (r *renderer) inlineText(text string, state blockState) string {
	if text == "" {
		return ""
	}
	style := r.style().Foreground(r.theme.NormalText)
	if state.bold {
		style = style.Bold(true)
	}
	if state.italic {
		style = style.Italic(true)
	}
	if state.underline {
		style = style.Underline(true)
	}
	if state.strike {
		style = style.Strikethrough(true)
	}
	return style.Render(text)
}

// highlightCode syntax-highlights a code fence with Chroma. Falls
// back to faint plain text when no language hint is present or
// highlighting fails. Chroma writes escape codes directly, so it is
// skipped entirely under the Ascii profile.
func (r *renderer) highlightCode(code, language string) string {
	code = strings.TrimRight(code, "\n")
	if language == "" || r.lip.ColorProfile() == termenv.Ascii {
		return r.style().Foreground(r.theme.FaintText).Render(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return r.style().Foreground(r.theme.FaintText).Render(code)
	}
	return strings.TrimRight(buffer.String(), "\n")
}
