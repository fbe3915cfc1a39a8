package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/retest/internal/client"
	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/workflow"
)

type fakeRecorder struct {
	checks  int
	err     error
	entries []model.HistoryEntry
}

func (f *fakeRecorder) Check(_ context.Context, req model.CheckRequest) (model.CheckResult, error) {
	f.checks++
	if f.err != nil {
		return model.CheckResult{}, f.err
	}
	f.entries = append([]model.HistoryEntry{{
		ID:         int64(f.checks),
		Pattern:    req.Pattern,
		TestString: req.TestString,
		Matched:    true,
		Timestamp:  time.Date(2024, 5, 1, 11, 58, 0, 0, time.UTC),
	}}, f.entries...)
	return model.CheckResult{Matched: true, Pattern: req.Pattern, TestString: req.TestString}, nil
}

func (f *fakeRecorder) History(context.Context) ([]model.HistoryEntry, error) {
	return append([]model.HistoryEntry{}, f.entries...), nil
}

func newTestModel(rec workflow.Recorder) *Model {
	m := NewModel(rec, match.NewEvaluator(match.DialectRE2))
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	return m
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(m *Model, key tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: key})
	return cmd
}

func TestTypingUpdatesPreview(t *testing.T) {
	m := newTestModel(&fakeRecorder{})
	typeText(m, `\d+`)
	press(m, tea.KeyTab)
	typeText(m, "a1b22")

	st := m.wf.State()
	if st.Pattern != `\d+` || st.TestString != "a1b22" {
		t.Fatalf("unexpected inputs: %q %q", st.Pattern, st.TestString)
	}
	if match.MatchCount(st.Preview) != 2 {
		t.Fatalf("expected 2 highlighted matches, got %+v", st.Preview)
	}
	if got := m.previewTitle(); got != "Preview (2 matches)" {
		t.Fatalf("unexpected preview title %q", got)
	}
}

func TestSubmitMissingInputSendsNothing(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestModel(rec)
	typeText(m, "a")
	if cmd := press(m, tea.KeyEnter); cmd != nil {
		t.Fatalf("expected no command for missing input")
	}
	if !strings.Contains(m.renderStatus(), workflow.ErrMissingInput.Error()) {
		t.Fatalf("expected missing input message, got %q", m.renderStatus())
	}
	if rec.checks != 0 {
		t.Fatalf("expected no recorder call")
	}
}

func TestSubmitSuccessRefreshesHistory(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestModel(rec)
	typeText(m, "a")
	press(m, tea.KeyTab)
	typeText(m, "abc")

	cmd := press(m, tea.KeyEnter)
	if cmd == nil {
		t.Fatalf("expected check command")
	}
	if !strings.Contains(m.renderStatus(), "Checking") {
		t.Fatalf("expected submitting status, got %q", m.renderStatus())
	}
	_, cmd = m.Update(cmd())
	if cmd == nil {
		t.Fatalf("expected history refresh after success")
	}
	if !strings.Contains(m.renderStatus(), "Matched") {
		t.Fatalf("expected matched status, got %q", m.renderStatus())
	}
	m.Update(cmd())

	st := m.wf.State()
	if len(st.History) != 1 || st.History[0].Pattern != "a" {
		t.Fatalf("unexpected history: %+v", st.History)
	}
	if got := m.renderHistorySummary(); got != "Last 1 check · 1 matched · 100% match rate" {
		t.Fatalf("unexpected summary %q", got)
	}
	if rows := m.history.Rows(); len(rows) != 1 || rows[0][0] != "2 minutes ago" {
		t.Fatalf("unexpected history rows: %+v", rows)
	}
}

func TestSubmitFailureShowsMessage(t *testing.T) {
	rec := &fakeRecorder{err: &client.TransportError{Op: "check", StatusCode: 503, Message: "maintenance window"}}
	m := newTestModel(rec)
	typeText(m, "a")
	press(m, tea.KeyTab)
	typeText(m, "a")

	cmd := press(m, tea.KeyEnter)
	if _, next := m.Update(cmd()); next != nil {
		t.Fatalf("failed check must not refresh history")
	}
	if !strings.Contains(m.renderStatus(), "maintenance window") {
		t.Fatalf("expected service message, got %q", m.renderStatus())
	}
	if m.wf.State().Result != nil {
		t.Fatalf("no result should be displayed after failure")
	}
}

func TestClearResetsInputs(t *testing.T) {
	m := newTestModel(&fakeRecorder{})
	typeText(m, "a")
	press(m, tea.KeyTab)
	typeText(m, "abc")
	press(m, tea.KeyCtrlL)

	st := m.wf.State()
	if st.Pattern != "" || st.TestString != "" {
		t.Fatalf("expected cleared inputs")
	}
	if m.inputs[inputPattern].Value() != "" || m.focus != inputPattern {
		t.Fatalf("expected empty pattern input with focus")
	}
}

func TestCopyTestString(t *testing.T) {
	m := newTestModel(&fakeRecorder{})
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}
	press(m, tea.KeyTab)
	typeText(m, "hello")
	cmd := press(m, tea.KeyCtrlY)
	if cmd == nil {
		t.Fatalf("expected copy command")
	}
	m.Update(cmd())
	if copied != "hello" || m.notice != "Test string copied" {
		t.Fatalf("unexpected copy state: %q %q", copied, m.notice)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m.Update(press(m, tea.KeyCtrlY)())
	if !strings.Contains(m.notice, "no clipboard") {
		t.Fatalf("expected copy failure notice, got %q", m.notice)
	}
}

func TestHistoryTabStates(t *testing.T) {
	m := newTestModel(&fakeRecorder{})
	press(m, tea.KeyCtrlN)
	if m.activeTab != tabHistory {
		t.Fatalf("expected history tab")
	}
	if !strings.Contains(m.renderHistory(), "Loading history") {
		t.Fatalf("expected loading state, got %q", m.renderHistory())
	}
	m.Update(m.historyCmd()())
	if !strings.Contains(m.renderHistory(), "No history yet") {
		t.Fatalf("expected empty state, got %q", m.renderHistory())
	}
	if view := m.View(); !strings.Contains(view, "History") {
		t.Fatalf("expected tabs in view")
	}
	press(m, tea.KeyRight)
	if m.activeTab != tabCheck {
		t.Fatalf("expected check tab after right")
	}
}

func TestHistoryCopiesSelectedPattern(t *testing.T) {
	m := newTestModel(&fakeRecorder{})
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}
	m.Update(historyMsg{Entries: []model.HistoryEntry{
		{ID: 2, Pattern: `\d+`, TestString: "42", Matched: true, Timestamp: time.Date(2024, 5, 1, 11, 59, 0, 0, time.UTC)},
		{ID: 1, Pattern: "foo", TestString: "bar", Timestamp: time.Date(2024, 5, 1, 11, 58, 0, 0, time.UTC)},
	}})
	press(m, tea.KeyCtrlN)
	press(m, tea.KeyDown)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if cmd == nil {
		t.Fatalf("expected copy command")
	}
	m.Update(cmd())
	if copied != "foo" || m.notice != "Pattern copied" {
		t.Fatalf("unexpected copy state: %q %q", copied, m.notice)
	}

	press(m, tea.KeyUp)
	m.Update(press(m, tea.KeyCtrlY)())
	if copied != `\d+` {
		t.Fatalf("expected first row pattern, got %q", copied)
	}
}

func TestHistoryLoadFailureHidesEmptyState(t *testing.T) {
	m := newTestModel(&fakeRecorder{})
	press(m, tea.KeyCtrlN)
	m.Update(historyMsg{Err: &client.TransportError{Op: "history", Err: errors.New("connection refused")}})

	out := m.renderHistory()
	if !strings.Contains(out, "Failed to load history") {
		t.Fatalf("expected load error, got %q", out)
	}
	if strings.Contains(out, "No history yet") || strings.Contains(out, "Loading history") {
		t.Fatalf("empty state must not show before a successful load, got %q", out)
	}
}
