package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Muistio/Henry-agent/internal/domain"
	"github.com/Muistio/Henry-agent/internal/persona"
	"github.com/Muistio/Henry-agent/internal/service"
)

// AgentPort is the TUI-facing subset of the agent service.
type AgentPort interface {
	Ask(ctx context.Context, question string) (service.Reply, error)
	IngestFiles(ctx context.Context, paths []string) (int, error)
	ResetConversation()
	EmbeddingsUnavailable() bool
}

type replyMsg struct {
	reply service.Reply
	err   error
}

type ingestMsg struct {
	path  string
	added int
	err   error
}

type turn struct {
	role domain.Role
	text string
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	ctx        context.Context
	agent      AgentPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []turn
	summary    string
	status     string
	busy       bool
	ready      bool
}

// New creates a chat model. ctx bounds every agent call.
func New(ctx context.Context, agent AgentPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the role, /add <file> or /clear"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, agent: agent, input: ti, viewport: vp, summary: summary, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and agent events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	case replyMsg:
		m.busy = false
		if msg.err != nil {
			// The agent keeps no history for a failed turn.
			if n := len(m.transcript); n > 0 && m.transcript[n-1].role == domain.RoleUser {
				m.transcript = m.transcript[:n-1]
			}
			m.status = "Error: " + msg.err.Error()
			m.refresh()
			return m, nil
		}
		m.transcript = append(m.transcript, turn{role: domain.RoleAssistant, text: msg.reply.Text})
		m.status = m.replyStatus(msg.reply)
		m.refresh()
		return m, nil
	case ingestMsg:
		m.busy = false
		switch {
		case msg.err != nil && msg.added == 0:
			m.status = "Error: " + msg.err.Error()
		case msg.err != nil:
			m.status = fmt.Sprintf("Indexed %d file(s) from %s with errors: %v", msg.added, msg.path, msg.err)
		default:
			m.status = fmt.Sprintf("Indexed %s.", msg.path)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	var icmd tea.Cmd
	m.input, icmd = m.input.Update(msg)
	return m, tea.Batch(cmd, icmd)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return m, nil
	}
	m.input.Reset()

	switch {
	case text == "/clear":
		m.agent.ResetConversation()
		m.transcript = nil
		m.status = "Conversation cleared."
		m.refresh()
		return m, nil
	case text == "/add" || strings.HasPrefix(text, "/add "):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/add"))
		if path == "" {
			m.status = "Usage: /add <path>"
			return m, nil
		}
		m.busy = true
		m.status = "Indexing " + path + "..."
		return m, m.ingest(path)
	}

	m.transcript = append(m.transcript, turn{role: domain.RoleUser, text: text})
	m.busy = true
	m.status = "Thinking..."
	m.refresh()
	return m, m.ask(text)
}

func (m Model) ask(question string) tea.Cmd {
	ctx, agent := m.ctx, m.agent
	return func() tea.Msg {
		reply, err := agent.Ask(ctx, question)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) ingest(path string) tea.Cmd {
	ctx, agent := m.ctx, m.agent
	return func() tea.Msg {
		n, err := agent.IngestFiles(ctx, []string{path})
		return ingestMsg{path: path, added: n, err: err}
	}
}

func (m Model) replyStatus(r service.Reply) string {
	var parts []string
	if r.Fallback {
		parts = append(parts, "Local demo mode: chat model unavailable.")
	}
	if m.agent.EmbeddingsUnavailable() {
		parts = append(parts, "Embeddings unavailable, using keyword search.")
	}
	if len(r.Sources) > 0 {
		parts = append(parts, "Sources: "+strings.Join(r.Sources, ", "))
	}
	if len(parts) == 0 {
		return "Ready."
	}
	return strings.Join(parts, " ")
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the header, the conversation, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(persona.AppName)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	statusStyle := okStyle
	if m.busy {
		statusStyle = busyStyle
	} else if strings.HasPrefix(m.status, "Error") || strings.Contains(m.status, "unavailable") {
		statusStyle = warnStyle
	}
	return header + "\n" + summary + "\n" + history + "\n" + input + "\n" + statusStyle.Render(m.status)
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "Ask anything about the role or the candidate."
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width-2))
	blocks := make([]string, len(m.transcript))
	for i, t := range m.transcript {
		label := assistantLabel
		if t.role == domain.RoleUser {
			label = userLabel
		}
		blocks[i] = label + "\n" + wrap.Render(t.text)
	}
	return strings.Join(blocks, "\n\n")
}

var (
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	busyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userLabel       = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true).Render("You")
	assistantLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true).Render("Advisor")
)
