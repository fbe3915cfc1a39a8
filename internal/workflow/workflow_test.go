package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/retest/internal/client"
	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
)

type fakeRecorder struct {
	checks     []model.CheckRequest
	historyN   int
	checkErr   error
	historyErr error
	entries    []model.HistoryEntry
}

func (f *fakeRecorder) Check(_ context.Context, req model.CheckRequest) (model.CheckResult, error) {
	f.checks = append(f.checks, req)
	if f.checkErr != nil {
		return model.CheckResult{}, f.checkErr
	}
	f.entries = append([]model.HistoryEntry{{
		ID:         int64(len(f.entries) + 1),
		Pattern:    req.Pattern,
		TestString: req.TestString,
		Matched:    true,
		Timestamp:  time.Unix(int64(len(f.entries)), 0),
	}}, f.entries...)
	return model.CheckResult{Matched: true, Pattern: req.Pattern, TestString: req.TestString}, nil
}

func (f *fakeRecorder) History(context.Context) ([]model.HistoryEntry, error) {
	f.historyN++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return append([]model.HistoryEntry(nil), f.entries...), nil
}

func newMachine() *Machine {
	return New(match.NewEvaluator(match.DialectRE2))
}

func TestSubmitMissingInputMakesNoCall(t *testing.T) {
	cases := []struct {
		pattern string
		text    string
	}{
		{"", "abc"},
		{`\d`, ""},
		{"", ""},
	}
	for _, tc := range cases {
		m := newMachine()
		rec := &fakeRecorder{}
		m.SetPattern(tc.pattern)
		m.SetTestString(tc.text)
		err := m.Check(context.Background(), rec)
		if !errors.Is(err, ErrMissingInput) {
			t.Fatalf("expected ErrMissingInput, got %v", err)
		}
		if len(rec.checks) != 0 || rec.historyN != 0 {
			t.Fatalf("no network call expected, got %d checks %d history", len(rec.checks), rec.historyN)
		}
		if m.State().Phase != PhaseFailed {
			t.Fatalf("expected failed phase, got %s", m.State().Phase)
		}
	}
}

func TestCheckSuccessRefreshesHistory(t *testing.T) {
	m := newMachine()
	rec := &fakeRecorder{}
	m.SetPattern(`\d+`)
	m.SetTestString("order 42 of 7")

	if err := m.Check(context.Background(), rec); err != nil {
		t.Fatalf("check: %v", err)
	}
	st := m.State()
	if st.Phase != PhaseSuccess || st.Result == nil || !st.Result.Matched {
		t.Fatalf("unexpected state: %+v", st)
	}
	if rec.historyN != 1 || len(st.History) != 1 || !st.HistoryLoaded {
		t.Fatalf("expected history refresh, got %d calls, %d entries", rec.historyN, len(st.History))
	}
	if st.Pattern != `\d+` || st.TestString != "order 42 of 7" {
		t.Fatalf("inputs must remain after success")
	}
}

func TestCheckFailureKeepsStaleHistory(t *testing.T) {
	m := newMachine()
	rec := &fakeRecorder{}
	m.SetPattern("a")
	m.SetTestString("a")
	if err := m.Check(context.Background(), rec); err != nil {
		t.Fatalf("check: %v", err)
	}

	rec.checkErr = &client.TransportError{Op: "check", Err: errors.New("connection refused")}
	err := m.Check(context.Background(), rec)
	if err == nil {
		t.Fatalf("expected error")
	}
	st := m.State()
	if st.Phase != PhaseFailed || st.Result != nil {
		t.Fatalf("no result should be displayed after failure: %+v", st)
	}
	if len(st.History) != 1 || rec.historyN != 1 {
		t.Fatalf("history should be left stale, got %d entries after %d fetches", len(st.History), rec.historyN)
	}
	if Describe(st.Err) != "Error testing regex: could not reach the server" {
		t.Fatalf("unexpected message: %q", Describe(st.Err))
	}
}

func TestHistoryErrorKeepsPreviousList(t *testing.T) {
	m := newMachine()
	m.ApplyHistory([]model.HistoryEntry{{ID: 1}}, nil)
	m.ApplyHistory(nil, errors.New("boom"))
	st := m.State()
	if len(st.History) != 1 || st.HistoryErr == nil {
		t.Fatalf("expected stale history with error, got %+v", st)
	}
}

func TestEmptyHistoryIsLoadedState(t *testing.T) {
	m := newMachine()
	if err := m.RefreshHistory(context.Background(), &fakeRecorder{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	st := m.State()
	if !st.HistoryLoaded || st.HistoryErr != nil || st.History == nil || len(st.History) != 0 {
		t.Fatalf("expected loaded empty history, got %+v", st)
	}
}

func TestLastResolveWins(t *testing.T) {
	m := newMachine()
	m.SetPattern("a")
	m.SetTestString("a")
	if _, err := m.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	m.Resolve(model.CheckResult{Matched: true, Pattern: "a", TestString: "a"}, nil)
	m.Resolve(model.CheckResult{Matched: false, Pattern: "a", TestString: "a"}, nil)
	if st := m.State(); st.Result == nil || st.Result.Matched {
		t.Fatalf("expected last response to win, got %+v", st.Result)
	}
}

func TestPreviewRecomputedAndListenersNotified(t *testing.T) {
	m := newMachine()
	var seen []State
	m.Subscribe(func(s State) {
		seen = append(seen, s)
	})
	m.SetTestString("order 42 of 7")
	m.SetPattern(`\d+`)
	m.SetPattern(`\d+`)

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	preview := m.State().Preview
	if match.MatchCount(preview) != 2 || match.Join(preview) != "order 42 of 7" {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	m.SetPattern("(unclosed")
	preview = m.State().Preview
	if len(preview) != 1 || preview[0].Match {
		t.Fatalf("invalid pattern must render untouched text: %+v", preview)
	}
}

func TestClear(t *testing.T) {
	m := newMachine()
	m.ApplyHistory([]model.HistoryEntry{{ID: 1}}, nil)
	m.SetPattern("a")
	m.SetTestString("a")
	m.Resolve(model.CheckResult{Matched: true}, nil)
	m.Clear()
	st := m.State()
	if st.Pattern != "" || st.TestString != "" || st.Result != nil || st.Phase != PhaseIdle {
		t.Fatalf("expected cleared state, got %+v", st)
	}
	if len(st.History) != 1 {
		t.Fatalf("clear must keep history")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(&match.InvalidPatternError{Pattern: "(", Reason: "missing )"}); got != "Invalid regex: missing )" {
		t.Fatalf("unexpected message: %q", got)
	}
	svcErr := &client.TransportError{Op: "check", StatusCode: 500, Message: "internal error"}
	if got := Describe(svcErr); got != "internal error" {
		t.Fatalf("expected verbatim service message, got %q", got)
	}
	if got := Describe(ErrMissingInput); got != ErrMissingInput.Error() {
		t.Fatalf("unexpected message: %q", got)
	}
	if Describe(nil) != "" {
		t.Fatalf("expected empty message for nil")
	}
}
