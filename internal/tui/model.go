// Package tui 终端里的数字分身对话界面
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"digital-twin-go/internal/types"
)

// AskPort 界面需要的问答能力
type AskPort interface {
	Ask(ctx context.Context, sessionID, requestID, question string) types.AnswerResult
}

// answerMsg 一次问答完成
type answerMsg struct {
	question string
	result   types.AnswerResult
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx       context.Context
	service   AskPort
	sessionID string
	title     string

	input    textinput.Model
	viewport viewport.Model
	lines    []string
	status   string
	ready    bool
	waiting  bool
}

// New 创建对话界面，title 一般是分身的名字
func New(ctx context.Context, service AskPort, sessionID, title string) Model {
	ti := textinput.New()
	ti.Prompt = "You: "
	ti.Placeholder = "Ask me about my skills, projects, education, or goals"
	ti.Focus()
	ti.CharLimit = 500

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return Model{
		ctx:       ctx,
		service:   service,
		sessionID: sessionID,
		title:     title,
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "Type a question and press Enter. Type exit or quit to leave.",
	}
}

// Init 光标闪烁
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header + status + input + spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case answerMsg:
		m.waiting = false
		m.lines = append(m.lines, renderAnswer(m.title, msg.result))
		m.status = statusFor(msg.result)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if IsExit(q) {
				return m, tea.Quit
			}
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.waiting = true
			m.status = "Thinking..."
			m.lines = append(m.lines, youStyle.Render("You: ")+q)
			m.refresh()
			return m, m.ask(q)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask 在 tea 的命令协程里调用问答服务，避免阻塞界面
func (m Model) ask(question string) tea.Cmd {
	ctx, svc, sid := m.ctx, m.service, m.sessionID
	return func() tea.Msg {
		res := svc.Ask(ctx, sid, uuid.NewString(), question)
		return answerMsg{question: question, result: res}
	}
}

func (m *Model) refresh() {
	if len(m.lines) == 0 {
		m.viewport.SetContent(hintStyle.Render("No messages yet."))
		return
	}
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(width).Render(strings.Join(m.lines, "\n\n")))
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title + " · Digital Twin")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

// IsExit exit / quit 结束对话，不区分大小写
func IsExit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exit", "quit":
		return true
	}
	return false
}

func renderAnswer(title string, res types.AnswerResult) string {
	name := "Twin"
	if title != "" {
		name = title
	}
	var b strings.Builder
	b.WriteString(twinStyle.Render(name+": ") + res.Answer)
	if len(res.Sources) > 0 {
		parts := make([]string, 0, len(res.Sources))
		for _, s := range res.Sources {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", s.Title, s.Score))
		}
		b.WriteString("\n" + hintStyle.Render("sources: "+strings.Join(parts, ", ")))
	}
	return b.String()
}

func statusFor(res types.AnswerResult) string {
	if res.OK() {
		return fmt.Sprintf("Answered from %d source(s).", len(res.Sources))
	}
	return "Outcome: " + string(res.Outcome)
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	youStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	twinStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
