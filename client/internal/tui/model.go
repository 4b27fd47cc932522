package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chatrelay/chatrelay/client/internal/chat"
	"github.com/chatrelay/chatrelay/pkg/event"
)

const (
	sidebarWidth = 20
	maxLines     = 1000
)

type styles struct {
	self    lipgloss.Style
	other   lipgloss.Style
	system  lipgloss.Style
	sidebar lipgloss.Style
	title   lipgloss.Style
	status  lipgloss.Style
	offline lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		self:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		other:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true),
		system:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true),
		sidebar: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#374151")).Padding(0, 1),
		title:   lipgloss.NewStyle().Bold(true).Underline(true),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		offline: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}
}

type noticeMsg chat.Notice

type closedMsg struct{}

type sendResultMsg struct{ err error }

// Model is the bubbletea model for an interactive chat.
type Model struct {
	conv     Conversation
	username string

	users  []string
	lines  []string
	status chat.Notice

	vp     viewport.Model
	input  textinput.Model
	ready  bool
	styles styles
}

// New creates a Model for conv. username is used to highlight the user's own
// messages.
func New(conv Conversation, username string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message and press Enter"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	return Model{
		conv:     conv,
		username: username,
		status:   chat.Notice{State: chat.StateConnecting},
		vp:       viewport.New(0, 0),
		input:    ti,
		styles:   defaultStyles(),
	}
}

// Init starts the cursor blink and the notice listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForNotice(m.conv.Notices()))
}

func waitForNotice(ch <-chan chat.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return noticeMsg(n)
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{err: m.conv.Send(text)}
	}
}

// Update handles input, window resizes, and notices from the session.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.send(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}

	case noticeMsg:
		m.apply(chat.Notice(msg))
		return m, waitForNotice(m.conv.Notices())

	case closedMsg:
		return m, tea.Quit

	case sendResultMsg:
		if msg.err != nil {
			m.appendLine(m.styles.system.Render("* send failed: " + msg.err.Error()))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply(n chat.Notice) {
	switch ev := n.Event.(type) {
	case event.SendMessage:
		name := m.styles.other.Render(ev.Username)
		if ev.Username == m.username {
			name = m.styles.self.Render(ev.Username)
		}
		m.appendLine(name + ": " + ev.Message)
	case event.UpdateUsers:
		m.users = append([]string(nil), ev.Usernames...)
	case nil:
		m.status = n
		if n.State != chat.StateConnecting {
			m.appendLine(m.styles.system.Render(formatState(n)))
		}
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.vp.SetContent(strings.Join(m.lines, "\n"))
	m.vp.GotoBottom()
}

func (m *Model) layout(width, height int) {
	// Status line and input take one row each; the sidebar border takes two
	// columns plus padding.
	vpWidth := width - sidebarWidth - 4
	if vpWidth < 10 {
		vpWidth = 10
	}
	vpHeight := height - 2
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.vp.Width = vpWidth
	m.vp.Height = vpHeight
	m.input.Width = width - len(m.input.Prompt) - 1
	m.ready = true
	m.vp.SetContent(strings.Join(m.lines, "\n"))
	m.vp.GotoBottom()
}

// View renders the transcript, sidebar, status line and input.
func (m Model) View() string {
	if !m.ready {
		return "connecting...\n"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.title.Render("Online"))
	for _, u := range m.users {
		sb.WriteString("\n")
		if u == m.username {
			sb.WriteString(m.styles.self.Render(u))
		} else {
			sb.WriteString(u)
		}
	}
	sidebar := m.styles.sidebar.Width(sidebarWidth).Height(m.vp.Height - 2).Render(sb.String())

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.vp.View(), sidebar)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine(), m.input.View())
}

func (m Model) statusLine() string {
	text := m.status.State.String() + " as " + m.username
	if m.status.State == chat.StateConnected {
		return m.styles.status.Render("● " + text)
	}
	return m.styles.offline.Render("○ " + text)
}

// Users returns the most recent user list.
func (m Model) Users() []string {
	return m.users
}

// Lines returns the transcript as rendered lines.
func (m Model) Lines() []string {
	return m.lines
}
