package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rpg-stage/stagectl/internal/api"
	"github.com/rpg-stage/stagectl/internal/state"
)

// ---------- messages from completed state operations ----------

type agentLoadedMsg struct{ err error }
type convsLoadedMsg struct{ err error }
type messagesLoadedMsg struct{ err error }
type convCreatedMsg struct{ err error }
type sendDoneMsg struct{ err error }

const (
	statusBarHeight = 1
	inputHeight     = 1
	headerHeight    = 2
	sidebarWidth    = 26
)

// Model is the bubbletea model for the chat screen. All data lives in the
// ConversationView; the model only renders it and translates key events
// into view operations.
type Model struct {
	view *state.ConversationView

	viewport  viewport.Model
	textinput textinput.Model
	spinner   spinner.Model
	width     int
	height    int

	loadErr string // page-level failure, shown as a modal
	sendErr string // send failure, shown inline above the input

	quitting bool
}

// NewModel creates the initial chat model for view.
func NewModel(view *state.ConversationView) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "输入消息..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 24)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		view:      view,
		viewport:  vp,
		textinput: ti,
		spinner:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.loadAgent(),
		m.loadConversations(),
	)
}

// ---------- commands ----------

func (m Model) loadAgent() tea.Cmd {
	view := m.view
	return func() tea.Msg { return agentLoadedMsg{err: view.LoadAgent(context.Background())} }
}

func (m Model) loadConversations() tea.Cmd {
	view := m.view
	return func() tea.Msg { return convsLoadedMsg{err: view.LoadConversations(context.Background())} }
}

func (m Model) loadMessages() tea.Cmd {
	view := m.view
	return func() tea.Msg { return messagesLoadedMsg{err: view.LoadMessages(context.Background())} }
}

func (m Model) createConversation() tea.Cmd {
	view := m.view
	return func() tea.Msg {
		_, err := view.CreateConversation(context.Background())
		return convCreatedMsg{err: err}
	}
}

func (m Model) send() tea.Cmd {
	view := m.view
	return func() tea.Msg { return sendDoneMsg{err: view.Send(context.Background())} }
}

// ---------- update ----------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - statusBarHeight - inputHeight - headerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.viewport.Width = m.chatWidth()
		m.viewport.Height = vpHeight
		m.textinput.Width = m.width - 4
		m.refreshViewport()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		if !m.view.Sending() {
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			cmds = append(cmds, cmd)
		}

	case agentLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
		}
		m.refreshViewport()

	case convsLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
		} else if m.view.Selected() != "" {
			cmds = append(cmds, m.loadMessages())
		}
		m.refreshViewport()

	case messagesLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
		}
		m.refreshViewport()
		m.viewport.GotoBottom()

	case convCreatedMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
		} else {
			cmds = append(cmds, m.loadMessages())
		}
		m.refreshViewport()

	case sendDoneMsg:
		if msg.err != nil {
			// Dedicated failure surface: the rolled-back input is put
			// back into the text field so the user can retry.
			m.sendErr = msg.err.Error()
			m.textinput.SetValue(m.view.Input())
			m.textinput.CursorEnd()
		}
		m.textinput.Focus()
		m.refreshViewport()
		m.viewport.GotoBottom()
		cmds = append(cmds, textinput.Blink)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes control keys. Returns handled=false for plain
// typing, which flows into the text input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return tea.Quit, true

	case "esc":
		if m.loadErr != "" {
			m.loadErr = ""
			return nil, true
		}
		if m.sendErr != "" {
			m.sendErr = ""
			return nil, true
		}
		m.quitting = true
		return tea.Quit, true

	case "enter":
		if m.loadErr != "" {
			m.loadErr = ""
			return nil, true
		}
		if m.view.Sending() {
			return nil, true // send control disabled while one is pending
		}
		text := strings.TrimSpace(m.textinput.Value())
		if text == "" || m.view.Selected() == "" {
			return nil, true
		}
		m.sendErr = ""
		m.view.SetInput(text)
		m.textinput.SetValue("")
		return m.send(), true

	case "ctrl+n":
		if m.view.Sending() {
			return nil, true
		}
		return m.createConversation(), true

	case "ctrl+r":
		return tea.Batch(m.loadAgent(), m.loadConversations(), m.loadMessages()), true

	case "tab", "shift+tab":
		if m.view.Sending() {
			return nil, true
		}
		if id := m.neighborConversation(msg.String() == "tab"); id != "" {
			m.view.Select(id)
			return m.loadMessages(), true
		}
		return nil, true
	}
	return nil, false
}

// neighborConversation returns the id next to the current selection in
// server order, wrapping around.
func (m *Model) neighborConversation(forward bool) string {
	convs := m.view.Conversations()
	if len(convs) == 0 {
		return ""
	}
	idx := 0
	for i, c := range convs {
		if c.ID == m.view.Selected() {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(convs)
	} else {
		idx = (idx - 1 + len(convs)) % len(convs)
	}
	return convs[idx].ID
}

// ---------- view ----------

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())
	bar := m.renderStatusBar()
	input := m.renderInputArea()

	if m.loadErr != "" {
		return m.renderModal()
	}
	return header + "\n" + body + "\n" + bar + "\n" + input
}

func (m Model) chatWidth() int {
	w := m.width - sidebarWidth
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) renderHeader() string {
	agent := m.view.Agent()
	name := agent.Name
	if name == "" {
		name = m.view.AgentID()
	}
	mood := fmt.Sprintf("情绪: %s (基线 %s)  好感度: %g (基线 %g)",
		orDash(m.view.DisplayEmotion()), orDash(agent.Emotion),
		m.view.DisplayFavorability(), agent.Favorability)
	return headerStyle.Render(name) + "\n" + moodStyle.Render(mood)
}

func (m Model) renderSidebar() string {
	convs := m.view.Conversations()
	selected := m.view.Selected()

	var lines []string
	lines = append(lines, hintStyle.Render("对话列表"))
	for _, c := range convs {
		title := "新对话"
		if c.Title != nil && *c.Title != "" {
			title = *c.Title
		}
		title = truncate(title, sidebarWidth-4)
		if c.ID == selected {
			lines = append(lines, convSelectedStyle.Render("▸ "+title))
		} else {
			lines = append(lines, convItemStyle.Render("  "+title))
		}
	}
	if len(convs) == 0 {
		lines = append(lines, convItemStyle.Render("  (无)"))
	}

	height := m.viewport.Height
	return sidebarStyle.Width(sidebarWidth - 1).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusBar() string {
	status := " tab 切换对话 • ctrl+n 新建 • ctrl+r 刷新 • esc 退出"
	if m.view.Sending() {
		status = " " + m.spinner.View() + " 发送中..."
	}
	return statusBarStyle.Width(max(m.width, 1)).Render(status)
}

func (m Model) renderInputArea() string {
	if m.sendErr != "" {
		banner := sendErrStyle.Render("发送失败: "+truncate(m.sendErr, m.width-16)) +
			hintStyle.Render("  (esc 关闭)")
		return banner + "\n" + m.textinput.View()
	}
	if m.view.Selected() == "" {
		return hintStyle.Render("请选择或创建一个对话 (ctrl+n)")
	}
	return m.textinput.View()
}

func (m Model) renderModal() string {
	box := modalStyle.Render(
		modalTitleStyle.Render("加载失败") + "\n\n" +
			wrap(m.loadErr, 50) + "\n\n" +
			hintStyle.Render("esc 关闭"))
	return lipgloss.Place(max(m.width, 1), max(m.height, 1), lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "))
}

// refreshViewport re-renders the message sequence into the viewport.
func (m *Model) refreshViewport() {
	agent := m.view.Agent()
	width := m.chatWidth() - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for _, msg := range m.view.Messages() {
		b.WriteString(renderMessage(msg, agent.Name, width))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func renderMessage(msg api.Message, agentName string, width int) string {
	switch msg.Role {
	case api.RoleUser:
		return userStyle.Render("你") + "\n" +
			lipgloss.NewStyle().Width(width).Render(msg.Content)
	default:
		name := msg.Name
		if name == "" {
			name = agentName
		}
		if name == "" {
			name = "assistant"
		}
		head := assistantNameStyle.Render(name)
		if msg.Emotion != "" {
			head += " " + emotionTagStyle.Render("["+msg.Emotion+"]")
		}
		return head + "\n" +
			assistantTextStyle.Width(width).Render(msg.Content)
	}
}

// ---------- helpers ----------

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
