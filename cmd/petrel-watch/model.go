// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/petrel-chat/petrel/chat"
	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/wire"
)

// streamSession is the slice of the chat session the display
// consumes. *chat.Session implements it; tests substitute a fake.
type streamSession interface {
	Events() <-chan chat.Event
	State() chat.State
	Hello() wire.HelloBody
	Err() error
	SendMessage(ctx context.Context, channelID, text string, options *chat.MessageOptions) (chat.MessageHandle, error)
	SendPrivateMessage(ctx context.Context, userID, text string, options *chat.MessageOptions) (chat.MessageHandle, error)
	PerformAction(ctx context.Context, channelID, text string) error
}

// maxLogEntries bounds the in-memory log. Older entries fall off the
// top once the session has run long enough.
const maxLogEntries = 2000

// statusLinger is how long a transient status line (send receipt,
// send failure) stays visible before the help line returns.
const statusLinger = 5 * time.Second

// chromeRows is the fixed rows around the log viewport: header,
// status line, input line.
const chromeRows = 3

// logEntry is one row of the event log: the stream event plus the
// flattened fields the filter matches against.
type logEntry struct {
	at      time.Time
	event   chat.Event
	channel string
	sender  string
	text    string
}

// newLogEntry flattens a stream event for filtering.
func newLogEntry(at time.Time, event chat.Event) logEntry {
	entry := logEntry{at: at, event: event, channel: event.ChannelID()}
	payload := event.Payload
	if payload == nil {
		return entry
	}

	line := cli.NewEventLine(at, event.Seq, payload)
	entry.sender = strings.TrimSpace(line.SenderName + " " + line.Sender)
	entry.text = line.Text
	if line.Command != "" {
		entry.text = "!" + line.Command
		if line.Arg != "" {
			entry.text += " " + line.Arg
		}
	}
	if line.Code != "" {
		entry.text = strings.TrimSpace(line.Code + " " + line.Message)
	}
	return entry
}

// keyMap defines the bindings handled outside plain text entry.
type keyMap struct {
	Quit       key.Binding
	Filter     key.Binding
	Send       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Filter:     key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "filter")),
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		ScrollUp:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "scroll down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	}
}

// model is the bubbletea model for the watch display: a scrolling
// event log with a filter bar and a send box.
type model struct {
	session streamSession
	theme   Theme
	keys    keyMap

	input  textinput.Model
	log    viewport.Model
	filter filterModel
	render *renderer

	entries []logEntry

	// channel is the current send target, switched with /channel.
	channel string

	width  int
	height int
	ready  bool

	// follow keeps the viewport pinned to the newest entry. Scrolling
	// up releases it; scrolling back to the bottom re-engages it.
	follow bool

	closed   bool
	closeErr error

	status   string
	statusAt time.Time

	// now supplies entry timestamps, replaceable in tests.
	now func() time.Time
}

func newModel(session streamSession, channel string, theme Theme, profile termenv.Profile) model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "message (/channel <id> to switch, /quit to exit)"
	input.Focus()

	return model{
		session: session,
		theme:   theme,
		keys:    defaultKeyMap(),
		input:   input,
		filter:  newFilterModel(),
		render:  newRenderer(theme, 80, profile),
		channel: channel,
		follow:  true,
		now:     time.Now,
	}
}

// streamEventMsg delivers one event from the session stream.
type streamEventMsg struct {
	at    time.Time
	event chat.Event
}

// streamClosedMsg reports that the event channel closed: the session
// was closed or died.
type streamClosedMsg struct{}

// sendResultMsg reports the outcome of one send command.
type sendResultMsg struct {
	at     time.Time
	label  string
	handle chat.MessageHandle
	err    error
}

type statusTickMsg time.Time

// waitForEvent blocks on the event channel and delivers the next
// event as a message. Update re-arms it after every delivery, so
// exactly one receive is outstanding at a time.
func waitForEvent(events <-chan chat.Event, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{at: now(), event: event}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.session.Events(), m.now),
		statusTick(),
		textinput.Blink,
	)
}

func (m model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		return m.resize(message), nil

	case tea.KeyMsg:
		return m.handleKey(message)

	case tea.MouseMsg:
		switch message.Button {
		case tea.MouseButtonWheelUp:
			m.log.LineUp(3)
			m.follow = m.log.AtBottom()
		case tea.MouseButtonWheelDown:
			m.log.LineDown(3)
			m.follow = m.log.AtBottom()
		}
		return m, nil

	case streamEventMsg:
		m.appendEntry(newLogEntry(message.at, message.event))
		return m, waitForEvent(m.session.Events(), m.now)

	case streamClosedMsg:
		m.closed = true
		m.closeErr = m.session.Err()
		return m, nil

	case sendResultMsg:
		switch {
		case message.err != nil:
			m.status = "send failed: " + message.err.Error()
		case message.handle != "":
			m.status = fmt.Sprintf("sent %s (%s)", message.label, message.handle)
		default:
			m.status = "sent " + message.label
		}
		m.statusAt = message.at
		return m, nil

	case statusTickMsg:
		if m.status != "" && time.Time(message).Sub(m.statusAt) > statusLinger {
			m.status = ""
		}
		return m, statusTick()
	}

	return m, nil
}

func (m model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.filter.Active {
		return m.handleFilterKey(message)
	}

	switch {
	case key.Matches(message, m.keys.Filter):
		m.filter.Active = true
		return m, nil

	case key.Matches(message, m.keys.Send):
		return m.submitInput()

	case key.Matches(message, m.keys.ScrollUp):
		m.log.LineUp(1)
		m.follow = m.log.AtBottom()
		return m, nil

	case key.Matches(message, m.keys.ScrollDown):
		m.log.LineDown(1)
		m.follow = m.log.AtBottom()
		return m, nil

	case key.Matches(message, m.keys.PageUp):
		m.log.ViewUp()
		m.follow = m.log.AtBottom()
		return m, nil

	case key.Matches(message, m.keys.PageDown):
		m.log.ViewDown()
		m.follow = m.log.AtBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(message)
	return m, cmd
}

func (m model) handleFilterKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		m.filter.Clear()
		m.refreshLog()

	case tea.KeyEnter:
		// Keep the narrowed view, hand focus back to the send box.
		m.filter.Active = false

	case tea.KeyBackspace:
		if m.filter.HandleBackspace() {
			m.refreshLog()
		}

	case tea.KeyRunes, tea.KeySpace:
		for _, character := range message.Runes {
			m.filter.HandleRune(character)
		}
		m.refreshLog()
	}
	return m, nil
}

func (m model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	m.input.Reset()

	command, err := parseInput(value, m.channel)
	if err != nil {
		m.status = err.Error()
		m.statusAt = m.now()
		return m, nil
	}

	switch command.kind {
	case inputQuit:
		return m, tea.Quit
	case inputSwitchChannel:
		m.channel = command.target
		m.status = "sending to " + command.target
		m.statusAt = m.now()
		return m, nil
	}

	return m, sendCommand(m.session, command, m.now)
}

// sendCommand performs one send against the session off the UI
// goroutine. The session's own call timeout bounds it.
func sendCommand(session streamSession, command parsedInput, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		result := sendResultMsg{}
		switch command.kind {
		case inputMessage:
			result.label = "to " + command.target
			result.handle, result.err = session.SendMessage(ctx, command.target, command.text, nil)
		case inputAction:
			result.label = "action to " + command.target
			result.err = session.PerformAction(ctx, command.target, command.text)
		case inputPrivate:
			result.label = "privately to " + command.target
			result.handle, result.err = session.SendPrivateMessage(ctx, command.target, command.text, nil)
		}
		result.at = now()
		return result
	}
}

func (m *model) appendEntry(entry logEntry) {
	m.entries = append(m.entries, entry)
	if len(m.entries) > maxLogEntries {
		m.entries = m.entries[len(m.entries)-maxLogEntries:]
	}
	m.refreshLog()
}

// refreshLog re-renders the filtered log into the viewport. Follow
// mode pins the view to the newest entry; otherwise the scroll
// position survives the refresh.
func (m *model) refreshLog() {
	if !m.ready {
		return
	}
	var lines []string
	for _, entry := range m.entries {
		if !m.filter.Matches(entry) {
			continue
		}
		if line := m.render.Line(entry); line != "" {
			lines = append(lines, line)
		}
	}
	m.log.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.log.GotoBottom()
	}
}

func (m model) resize(message tea.WindowSizeMsg) model {
	m.width = message.Width
	m.height = message.Height
	m.render.width = message.Width
	m.input.Width = message.Width - ansi.StringWidth(m.input.Prompt) - 1

	logHeight := message.Height - chromeRows
	if logHeight < 1 {
		logHeight = 1
	}
	m.log.Width = message.Width
	m.log.Height = logHeight
	m.ready = true
	m.refreshLog()
	return m
}

func (m model) View() string {
	if !m.ready {
		return "starting petrel-watch..."
	}
	return strings.Join([]string{
		m.headerView(),
		m.log.View(),
		m.statusView(),
		m.input.View(),
	}, "\n")
}

func (m model) headerView() string {
	faint := m.render.style().Foreground(m.theme.FaintText)

	left := " " + m.render.style().Bold(true).Foreground(m.theme.HeaderForeground).Render("petrel-watch")
	if hello := m.session.Hello(); hello.ServerVersion != "" {
		left += "  " + faint.Render(hello.ServerVersion+" · "+hello.SessionID)
	}

	target := "no channel"
	if m.channel != "" {
		target = m.channel
	}
	right := faint.Render(target) + "  " + m.stateBadge() + " "

	gap := m.width - ansi.StringWidth(left) - ansi.StringWidth(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m model) stateBadge() string {
	state := m.session.State()
	color := m.theme.StateClosed
	switch state {
	case chat.StateConnected:
		color = m.theme.StateConnected
	case chat.StateReconnecting:
		color = m.theme.StateReconnecting
	}
	return m.render.style().Foreground(color).Render("● " + state.String())
}

// statusView renders the line between the log and the send box: the
// filter bar while filtering, the close reason once the stream ends,
// a transient send receipt, or the help line.
func (m model) statusView() string {
	var line string
	switch {
	case m.filter.Active || m.filter.Input != "":
		line = m.filter.View(m.theme, m.render.lip)
	case m.closed:
		text := " stream closed"
		if m.closeErr != nil {
			text = " stream closed: " + m.closeErr.Error()
		}
		line = m.render.style().Foreground(m.theme.ErrorColor).Render(text)
	case m.status != "":
		line = m.render.style().Foreground(m.theme.FaintText).Render(" " + m.status)
	default:
		line = m.render.style().Foreground(m.theme.HelpText).Render(" ctrl+f filter · ↑/↓ scroll · /channel /me /msg /quit · ctrl+c quit")
	}
	return ansi.Truncate(line, m.width, "…")
}
