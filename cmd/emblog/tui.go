package main

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"go.jacobcolvin.com/emblog/log"
)

// maxViewerLines bounds the records kept for scrollback.
const maxViewerLines = 1000

var titleStyle = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)

// recordMsg carries one rendered record from the publisher.
type recordMsg []byte

// closedMsg signals that the subscription channel was closed.
type closedMsg struct{}

// viewer is the bubbletea model showing the most recent records.
type viewer struct {
	sub    *log.Subscription
	title  string
	lines  []string
	width  int
	height int
}

func newViewer(sub *log.Subscription, addr string) *viewer {
	return &viewer{
		sub:   sub,
		title: fmt.Sprintf("emblog listen %s  (q to quit)", addr),
	}
}

// waitForRecord returns a command that blocks until the next record.
func (m *viewer) waitForRecord() tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-m.sub.C()
		if !ok {
			return closedMsg{}
		}

		return recordMsg(rec)
	}
}

// Init starts listening for records.
func (m *viewer) Init() tea.Cmd {
	return m.waitForRecord()
}

// Update handles records, resize, and quit keys.
func (m *viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case recordMsg:
		m.lines = append(m.lines, strings.TrimRight(string(msg), "\r\n"))
		if len(m.lines) > maxViewerLines {
			m.lines = m.lines[len(m.lines)-maxViewerLines:]
		}

		return m, m.waitForRecord()

	case closedMsg:
		return m, nil
	}

	return m, nil
}

// View renders the title bar and as many recent records as fit.
func (m *viewer) View() tea.View {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteByte('\n')

	lines := m.lines
	if rows := m.height - 1; rows > 0 && len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}

	b.WriteString(strings.Join(lines, "\n"))

	v := tea.NewView(b.String())
	v.AltScreen = true

	return v
}

func runViewer(ctx context.Context, sub *log.Subscription, addr string) error {
	p := tea.NewProgram(newViewer(sub, addr))

	stop := context.AfterFunc(ctx, p.Quit)
	defer stop()

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}

	return nil
}
