// ABOUTME: Top-level Bubble Tea AppModel that composes sidebar, feed, plots, prompt, and status bar.
// ABOUTME: Routes keys and session notifications; all run state lives in the console.Session it renders.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/runs"
)

const promptHeight = 3

// AppOption configures an AppModel.
type AppOption func(*AppModel)

// WithMarkdown sets the renderer used for agent text.
func WithMarkdown(md MarkdownRenderer) AppOption {
	return func(m *AppModel) { m.feed = NewFeedPanelModel(md) }
}

// WithOpener replaces the browser launcher (tests use a recorder).
func WithOpener(open URLOpener) AppOption {
	return func(m *AppModel) {
		if open != nil {
			m.open = open
		}
	}
}

// WithInitialFilter selects the starting view.
func WithInitialFilter(c runs.Category) AppOption {
	return func(m *AppModel) {
		if c != runs.CategoryNone {
			m.sidebar.Select(c)
		}
	}
}

// AppModel is the console's root model.
type AppModel struct {
	session *console.Session
	ctx     context.Context

	sidebar   SidebarModel
	feed      FeedPanelModel
	plots     PlotsPanelModel
	prompt    textarea.Model
	spinner   spinner.Model
	statusBar StatusBarModel

	open       URLOpener
	snap       console.Snapshot
	submitting bool
	width      int
	height     int
}

// NewAppModel creates the console for session. ctx bounds run creation requests.
func NewAppModel(ctx context.Context, session *console.Session, opts ...AppOption) AppModel {
	if ctx == nil {
		ctx = context.Background()
	}
	ta := textarea.New()
	ta.Placeholder = "Enter your task or question..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.SetHeight(promptHeight)
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = RunningStyle

	m := AppModel{
		session:   session,
		ctx:       ctx,
		sidebar:   NewSidebarModel(),
		feed:      NewFeedPanelModel(PlainRenderer{}),
		plots:     NewPlotsPanelModel(),
		prompt:    ta,
		spinner:   sp,
		statusBar: NewStatusBarModel(),
		open:      OpenInBrowser,
		snap:      console.Snapshot{Selected: -1},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		WaitForChangeCmd(m.session.Changed()),
	)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case SessionChangedMsg:
		m.refresh()
		return m, WaitForChangeCmd(m.session.Changed())

	case SubmitResultMsg:
		return m.handleSubmitResult(msg)

	case OpenResultMsg:
		if msg.Err != nil {
			m.statusBar.SetNotice(ErrorStyle.Render(msg.Err.Error()))
		} else {
			m.statusBar.SetNotice("opened " + msg.URL)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.sidebar.Active() != runs.CategoryPlots {
			return m, m.feed.Scroll(msg)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// handleKeyMsg processes app-level bindings before handing keys to the prompt.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		m.sidebar.Cycle(1)
		m.applyFilter()
		return m, nil
	case "shift+tab":
		m.sidebar.Cycle(-1)
		m.applyFilter()
		return m, nil
	case "alt+1", "alt+2", "alt+3", "alt+4":
		idx := int(msg.String()[len("alt+")] - '1')
		m.sidebar.Select(runs.Categories()[idx])
		m.applyFilter()
		return m, nil
	case "pgup", "pgdown":
		return m, m.feed.Scroll(msg)
	case "ctrl+g":
		m.feed.JumpToBottom()
		return m, nil
	case "ctrl+e":
		m.feed.ToggleExpanded()
		return m, nil
	case "ctrl+n":
		m.session.NextPlot()
		m.refresh()
		return m, nil
	case "ctrl+p":
		m.session.PrevPlot()
		m.refresh()
		return m, nil
	case "ctrl+o":
		if url := m.plots.SelectedURL(); url != "" {
			return m, OpenCmd(m.open, url)
		}
		return m, nil
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// submit sends the prompt unless it is blank or a submission is pending.
func (m AppModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.prompt.Value())
	if text == "" || m.submitting || m.snap.Loading {
		return m, nil
	}
	m.submitting = true
	m.statusBar.SetNotice("")
	m.prompt.Blur()
	return m, SubmitCmd(m.ctx, m.session, text)
}

func (m AppModel) handleSubmitResult(msg SubmitResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	cmd := m.prompt.Focus()
	switch {
	case msg.Err == nil:
		m.prompt.Reset()
		m.feed.JumpToBottom()
	case errors.Is(msg.Err, console.ErrEmptyPrompt), errors.Is(msg.Err, console.ErrBusy):
	default:
		m.statusBar.SetNotice(ErrorStyle.Render(fmt.Sprintf("run not started: %v", msg.Err)))
	}
	m.refresh()
	return m, cmd
}

// refresh pulls new events into the session and re-renders from a snapshot.
func (m *AppModel) refresh() {
	m.session.Pump()
	m.snap = m.session.Snapshot()
	m.statusBar.Update(m.snap)
	m.plots.SetSnapshot(m.snap)
	m.applyFilter()
}

func (m *AppModel) applyFilter() {
	if m.sidebar.Active() == runs.CategoryPlots {
		return
	}
	m.feed.SetItems(m.snap.View(m.sidebar.Active()))
}

// layout distributes the window between the panels.
func (m *AppModel) layout() {
	mainWidth := m.width - SidebarWidth
	if mainWidth < 10 {
		mainWidth = 10
	}
	// prompt (with border) + running line + status bar
	feedHeight := m.height - (promptHeight + 2) - 1 - 1
	if feedHeight < 1 {
		feedHeight = 1
	}
	m.sidebar.SetHeight(m.height - 1)
	m.feed.SetSize(mainWidth, feedHeight)
	m.plots.SetSize(mainWidth, feedHeight)
	m.prompt.SetWidth(mainWidth - 2)
	m.statusBar.SetWidth(m.width)
}

// Filter returns the active view (used by tests and the CLI).
func (m AppModel) Filter() runs.Category { return m.sidebar.Active() }

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < SidebarWidth+20 || m.height < 12 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: %dx12.", m.width, m.height, SidebarWidth+20)
	}

	var main string
	if m.sidebar.Active() == runs.CategoryPlots {
		main = m.plots.View()
	} else {
		main = m.feed.View()
	}
	feedHeight := m.height - (promptHeight + 2) - 2
	main = lipgloss.NewStyle().Height(feedHeight).MaxHeight(feedHeight).Render(main)

	running := ""
	if m.snap.Running {
		running = m.spinner.View() + RunningStyle.Render(" Running…")
	} else if m.snap.Loading || m.submitting {
		running = m.spinner.View() + MutedStyle.Render(" Starting run…")
	}

	promptStyle := PromptStyle
	if m.submitting {
		promptStyle = PromptBusyStyle
	}
	prompt := promptStyle.Render(m.prompt.View())

	right := lipgloss.JoinVertical(lipgloss.Left, main, running, prompt)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), right)
	return body + "\n" + m.statusBar.View()
}
