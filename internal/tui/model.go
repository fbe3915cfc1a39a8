// Package tui provides the Bubble Tea regex tester interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/workflow"
)

const (
	tabCheck = iota
	tabHistory
)

const (
	inputPattern = iota
	inputTestString
)

// DefaultRequestTimeout bounds each recorder call made by the UI.
const DefaultRequestTimeout = 15 * time.Second

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	plainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#C89A3A"))
	altMatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#E0B85C"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	matchedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	noMatchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type checkDoneMsg struct {
	Result model.CheckResult
	Err    error
}

type historyMsg struct {
	Entries []model.HistoryEntry
	Err     error
}

type copiedMsg struct {
	What string
	Err  error
}

// Model implements the Bubble Tea regex tester UI.
type Model struct {
	rec      workflow.Recorder
	eval     *match.Evaluator
	wf       *workflow.Machine
	timeout  time.Duration
	now      func() time.Time
	copyText func(string) error

	tabs      []string
	activeTab int

	inputs  []textinput.Model
	focus   int
	preview viewport.Model
	history table.Model
	notice  string

	width  int
	height int
}

// Option customizes a Model.
type Option func(*Model)

// WithTimeout bounds each recorder call.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewModel constructs the UI around a recorder and a local evaluator used for previews.
func NewModel(rec workflow.Recorder, eval *match.Evaluator, opts ...Option) *Model {
	m := &Model{
		rec:      rec,
		eval:     eval,
		wf:       workflow.New(eval),
		timeout:  DefaultRequestTimeout,
		now:      time.Now,
		copyText: clipboard.WriteAll,
		tabs:     []string{"Check", "History"},
		preview:  viewport.New(0, 0),
		history:  newHistoryTable(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.inputs = []textinput.Model{
		newInput("Pattern:     ", `e.g. \d+`),
		newInput("Test string: ", "text to match against"),
	}
	m.inputs[inputPattern].Focus()
	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.historyCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case checkDoneMsg:
		if m.wf.Resolve(msg.Result, msg.Err) {
			return m, m.historyCmd()
		}
		return m, nil
	case historyMsg:
		m.wf.ApplyHistory(msg.Entries, msg.Err)
		m.refreshHistoryTable()
		return m, nil
	case copiedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Copy failed: %v", msg.Err)
		} else {
			m.notice = msg.What + " copied"
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m.updateInputs(msg)
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+n":
		m.moveTab(1)
		return m, nil
	case "ctrl+p":
		m.moveTab(-1)
		return m, nil
	}
	if m.activeTab == tabHistory {
		switch msg.String() {
		case "left", "right", "esc":
			m.moveTab(1)
			return m, nil
		case "r":
			return m, m.historyCmd()
		case "c", "ctrl+y":
			if pattern := m.selectedPattern(); pattern != "" {
				return m, m.copyCmd("Pattern", pattern)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab":
		m.setFocus((m.focus + 1) % len(m.inputs))
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		return m, nil
	case "enter":
		return m, m.submit()
	case "ctrl+l":
		m.clear()
		return m, nil
	case "ctrl+y":
		return m, m.copyCmd("Test string", m.wf.State().TestString)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}
	m.notice = ""
	return m.updateInputs(msg)
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	m.wf.SetPattern(m.inputs[inputPattern].Value())
	m.wf.SetTestString(m.inputs[inputTestString].Value())
	m.renderPreview()
	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	req, err := m.wf.Submit()
	if err != nil {
		return nil
	}
	rec, timeout := m.rec, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := rec.Check(ctx, req)
		return checkDoneMsg{Result: res, Err: err}
	}
}

func (m *Model) historyCmd() tea.Cmd {
	rec, timeout := m.rec, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		entries, err := rec.History(ctx)
		return historyMsg{Entries: entries, Err: err}
	}
}

func (m *Model) copyCmd(what, text string) tea.Cmd {
	if text == "" {
		return nil
	}
	copyFn := m.copyText
	return func() tea.Msg {
		return copiedMsg{What: what, Err: copyFn(text)}
	}
}

func (m *Model) clear() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.wf.Clear()
	m.notice = ""
	m.setFocus(inputPattern)
	m.renderPreview()
}

func (m *Model) setFocus(idx int) {
	m.focus = idx
	for i := range m.inputs {
		if i == idx {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabHistory {
		m.history.Focus()
		m.setFocus(-1)
	} else {
		m.history.Blur()
		m.setFocus(m.checkFocus())
	}
}

// checkFocus returns the input to focus when returning to the check tab.
func (m *Model) checkFocus() int {
	if m.wf.State().Pattern != "" && m.wf.State().TestString == "" {
		return inputTestString
	}
	return inputPattern
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	for i := range m.inputs {
		promptWidth := lipgloss.Width(m.inputs[i].Prompt)
		m.inputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.preview.Width = m.width
	m.preview.Height = maxInt(1, bodyHeight-len(m.inputs)-3)
	m.history.SetHeight(maxInt(2, bodyHeight-1))
	m.refreshHistoryTable()
	m.renderPreview()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = maxInt(1, lipgloss.Height(activeNavStyle.Render("X")))
	footerHeight = 2
	bodyHeight = maxInt(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) renderPreview() {
	runes := buildStyledRunes(m.wf.State().Preview)
	m.preview.SetContent(wrapStyledRunes(runes, m.preview.Width))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	var body string
	if m.activeTab == tabHistory {
		body = m.renderHistory()
	} else {
		body = m.renderCheck()
	}
	body = fitLines(body, m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderCheck() string {
	lines := make([]string, 0, len(m.inputs)+4)
	for _, input := range m.inputs {
		lines = append(lines, input.View())
	}
	lines = append(lines, "", headerStyle.Render(m.previewTitle()), m.preview.View(), m.renderStatus())
	return strings.Join(lines, "\n")
}

func (m *Model) previewTitle() string {
	st := m.wf.State()
	if st.Pattern == "" || st.TestString == "" {
		return "Preview"
	}
	if _, err := m.eval.Compile(st.Pattern); err != nil {
		return "Preview (invalid pattern)"
	}
	n := match.MatchCount(st.Preview)
	if n == 1 {
		return "Preview (1 match)"
	}
	return fmt.Sprintf("Preview (%d matches)", n)
}

func (m *Model) renderStatus() string {
	st := m.wf.State()
	switch st.Phase {
	case workflow.PhaseSubmitting:
		return pendingStyle.Render("Checking…")
	case workflow.PhaseSuccess:
		if st.Result != nil && st.Result.Matched {
			return matchedStyle.Render("Matched")
		}
		return noMatchStyle.Render("Not matched")
	case workflow.PhaseFailed:
		return errorStyle.Render(truncateLine(workflow.Describe(st.Err), m.width))
	default:
		return ""
	}
}

func (m *Model) renderHistory() string {
	st := m.wf.State()
	var b strings.Builder
	if st.HistoryErr != nil {
		b.WriteString(errorStyle.Render(truncateLine("Failed to load history: "+workflow.Describe(st.HistoryErr), m.width)))
		b.WriteByte('\n')
	}
	switch {
	case !st.HistoryLoaded:
		if st.HistoryErr == nil {
			b.WriteString(pendingStyle.Render("Loading history…"))
		}
	case len(st.History) == 0:
		b.WriteString(pendingStyle.Render("No history yet"))
	default:
		b.WriteString(m.history.View())
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	help := "enter: check  tab: next field  ctrl+l: clear  ctrl+y: copy  ctrl+n/ctrl+p: tabs  ctrl+c: quit"
	if m.activeTab == tabHistory {
		help = "up/down: scroll  c: copy pattern  r: reload  left/right: tabs  ctrl+c: quit"
	}
	segments := []string{}
	if summary := m.renderHistorySummary(); summary != "" {
		segments = append(segments, summary)
	}
	if m.notice != "" {
		segments = append(segments, m.notice)
	}
	first := truncateLine(strings.Join(segments, "  "), m.width)
	return footerStyle.Render(first) + "\n" + headerStyle.Render(truncateLine(help, m.width))
}
