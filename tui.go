package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vitae-sh/vitae/storage"
)

const (
	inputHeight  = 3
	statusHeight = 1
	toastTimeout = 4 * time.Second
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	toastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// local TUI messages
type toastMsg struct{ text string }
type clearToastMsg struct{}
type hydrateFailedMsg struct{ err error }
type resumeLoadedMsg struct{ doc []byte }
type resumeLoadFailedMsg struct{ err error }
type promptHistoryLoadedMsg struct{ prompts []string }
type applyFailedMsg struct{ err error }

// TUIModel is the main terminal UI model
type TUIModel struct {
	conversation *Conversation
	chat         *ChatComponent
	input        textarea.Model
	spinner      spinner.Model
	config       *Config
	history      *storage.HistoryStore
	profile      string

	// prompt recall state, navigated with up/down on an empty input
	prompts   []string
	promptIdx int
	draft     string
	browsing  bool

	width    int
	height   int
	ready    bool
	toast    string
	quitting bool
}

// NewTUIModel creates the main TUI model. history may be nil when local
// storage is disabled.
func NewTUIModel(cfg *Config, conv *Conversation, history *storage.HistoryStore, profile string) *TUIModel {
	ta := textarea.New()
	ta.Placeholder = "Describe a change to your resume..."
	ta.Focus()
	ta.SetHeight(inputHeight - 2)
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &TUIModel{
		conversation: conv,
		input:        ta,
		spinner:      sp,
		config:       cfg,
		history:      history,
		profile:      profile,
		promptIdx:    -1,
	}
}

// Init initializes the TUI
func (m *TUIModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.hydrateCmd(),
		m.loadResumeCmd(),
		m.loadPromptHistoryCmd(),
	)
}

// Update handles messages
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatHeight := msg.Height - inputHeight - statusHeight
		if m.chat == nil {
			m.chat = NewChatComponent(msg.Width, chatHeight, m.config.UI.MarkdownEnabled)
		} else {
			m.chat.SetSize(msg.Width, chatHeight)
		}
		m.input.SetWidth(msg.Width - 2)
		m.ready = true
		m.chat.Render(m.conversation.Turns())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case streamStartMsg, turnUpdatedMsg:
		m.repaint()
		return m, nil

	case streamCompleteMsg:
		m.repaint()
		return m, nil

	case streamInterruptedMsg:
		m.repaint()
		return m, m.showToast("stopped")

	case streamErrorMsg:
		m.repaint()
		return m, nil

	case proposalResolvedMsg:
		m.repaint()
		return m, nil

	case historyHydratedMsg:
		m.repaint()
		if msg.turns > 0 {
			return m, m.showToast("restored earlier conversation")
		}
		return m, nil

	case hydrateFailedMsg:
		slog.Warn("failed to load conversation history", "error", msg.err)
		return m, m.showToast("could not load earlier conversation")

	case resumeLoadedMsg:
		m.conversation.SetDocumentContext(msg.doc, jobContextFromConfig(m.config))
		return m, nil

	case resumeLoadFailedMsg:
		slog.Warn("failed to load resume document", "error", msg.err)
		return m, m.showToast("could not load your resume, commands may lack context")

	case promptHistoryLoadedMsg:
		m.prompts = msg.prompts
		return m, nil

	case applyFailedMsg:
		m.repaint()
		return m, m.showToast("apply failed: " + msg.err.Error())

	case toastMsg:
		m.toast = msg.text
		return m, tea.Tick(toastTimeout, func(time.Time) tea.Msg { return clearToastMsg{} })

	case clearToastMsg:
		m.toast = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.chat != nil {
		cmds = append(cmds, m.chat.Update(msg))
	}
	return m, tea.Batch(cmds...)
}

// handleKey dispatches key presses
func (m *TUIModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.conversation.Streaming() {
			m.conversation.CancelStream()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.conversation.Streaming() {
			m.conversation.CancelStream()
			return m, nil
		}

	case "enter":
		return m.submitPrompt()

	case "ctrl+a":
		if t := m.conversation.ActionableTurn(); t != nil {
			return m, m.applyCmd(t.ID)
		}
		return m, nil

	case "ctrl+x":
		if t := m.conversation.ActionableTurn(); t != nil {
			m.conversation.DismissProposal(t.ID)
			m.repaint()
		}
		return m, nil

	case "ctrl+e":
		return m, m.exportCmd()

	case "up":
		if m.browsing || m.input.Value() == "" {
			m.recallPrompt(-1)
			return m, nil
		}

	case "down":
		if m.browsing {
			m.recallPrompt(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitPrompt sends the input as a command, if one can be sent now.
func (m *TUIModel) submitPrompt() (tea.Model, tea.Cmd) {
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return m, nil
	}

	if err := m.conversation.Submit(context.Background(), prompt); err != nil {
		return m, m.showToast("finish or stop the current command first")
	}

	m.input.Reset()
	m.browsing = false
	m.promptIdx = -1
	m.prompts = append(m.prompts, prompt)
	m.repaint()

	if m.history != nil {
		go func() {
			if err := m.history.AppendPrompt(m.profile, prompt); err != nil {
				slog.Warn("failed to record prompt history", "error", err)
			}
		}()
	}
	return m, nil
}

// recallPrompt walks the prompt history. dir is -1 for older, 1 for newer.
func (m *TUIModel) recallPrompt(dir int) {
	if len(m.prompts) == 0 {
		return
	}

	if !m.browsing {
		m.draft = m.input.Value()
		m.browsing = true
		m.promptIdx = len(m.prompts)
	}

	m.promptIdx += dir
	if m.promptIdx < 0 {
		m.promptIdx = 0
	}
	if m.promptIdx >= len(m.prompts) {
		// walked past the newest entry, restore the draft
		m.input.SetValue(m.draft)
		m.input.CursorEnd()
		m.browsing = false
		m.promptIdx = -1
		return
	}

	m.input.SetValue(m.prompts[m.promptIdx])
	m.input.CursorEnd()
}

// View renders the TUI
func (m *TUIModel) View() string {
	if m.quitting {
		return "bye!\n"
	}
	if !m.ready || m.chat == nil {
		return "starting up..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.chat.Viewport.View(),
		m.statusLine(),
		m.input.View(),
	)
}

// statusLine renders the single-row status bar
func (m *TUIModel) statusLine() string {
	if m.toast != "" {
		return toastStyle.Render(" " + m.toast)
	}
	if m.conversation.Streaming() {
		return m.spinner.View() + statusStyle.Render(" thinking... esc to stop")
	}

	help := " enter send · ↑ recall · ctrl+e export · ctrl+c quit"
	if m.conversation.ActionableTurn() != nil {
		help = " ctrl+a apply · ctrl+x dismiss ·" + help
	}
	return statusStyle.Render(help)
}

func (m *TUIModel) repaint() {
	if m.chat != nil {
		m.chat.Render(m.conversation.Turns())
	}
}

func (m *TUIModel) showToast(text string) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text} }
}

func (m *TUIModel) hydrateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.conversation.Hydrate(ctx); err != nil {
			return hydrateFailedMsg{err: err}
		}
		return nil
	}
}

func (m *TUIModel) loadResumeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		doc, err := m.conversation.client.FetchResume(ctx)
		if err != nil {
			return resumeLoadFailedMsg{err: err}
		}
		return resumeLoadedMsg{doc: doc}
	}
}

func (m *TUIModel) loadPromptHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		if m.history == nil {
			return nil
		}
		entries, err := m.history.LoadPrompts(m.profile, m.config.History.MaxEntries)
		if err != nil {
			slog.Warn("failed to load prompt history", "error", err)
			return nil
		}
		prompts := make([]string, 0, len(entries))
		for _, e := range entries {
			prompts = append(prompts, e.Content)
		}
		return promptHistoryLoadedMsg{prompts: prompts}
	}
}

func (m *TUIModel) applyCmd(turnID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.conversation.ApplyProposal(ctx, turnID); err != nil {
			return applyFailedMsg{err: err}
		}
		return nil
	}
}

func (m *TUIModel) exportCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := ExportTranscript(m.conversation.Turns())
		if err != nil {
			return toastMsg{text: "export failed: " + err.Error()}
		}
		return toastMsg{text: "transcript saved to " + path}
	}
}
