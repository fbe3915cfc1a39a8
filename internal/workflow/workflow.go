// Package workflow holds the client-side check state: inputs, the live
// preview derived from them, the check lifecycle and the history view.
package workflow

import (
	"context"
	"errors"

	"github.com/verte-zerg/retest/internal/client"
	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
)

// ErrMissingInput is returned by Submit when the pattern or test string is empty.
var ErrMissingInput = errors.New("please enter both a pattern and a test string")

// Phase is the check lifecycle state.
type Phase int

// Check lifecycle phases.
const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Recorder is the remote history recorder.
type Recorder interface {
	Check(ctx context.Context, req model.CheckRequest) (model.CheckResult, error)
	History(ctx context.Context) ([]model.HistoryEntry, error)
}

// State is a snapshot of the application state.
type State struct {
	Pattern    string
	TestString string

	// Preview is derived from Pattern and TestString on every change.
	Preview []model.Segment

	Phase  Phase
	Result *model.CheckResult
	Err    error

	History       []model.HistoryEntry
	HistoryLoaded bool
	HistoryErr    error
}

// Inputs returns the current inputs as a request.
func (s State) Inputs() model.CheckRequest {
	return model.CheckRequest{Pattern: s.Pattern, TestString: s.TestString}
}

// Listener observes state changes.
type Listener func(State)

// Machine is the single state container. It is not safe for concurrent use;
// callers mutate it from one execution context.
type Machine struct {
	eval      *match.Evaluator
	state     State
	listeners []Listener
}

// New returns a Machine in the idle phase.
func New(eval *match.Evaluator) *Machine {
	return &Machine{eval: eval}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	return m.state
}

// Subscribe registers a listener called after every change.
func (m *Machine) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Machine) notify() {
	for _, l := range m.listeners {
		l(m.state)
	}
}

// Preview derives highlight segments from the inputs. It is pure.
func Preview(eval *match.Evaluator, pattern, text string) []model.Segment {
	return eval.Highlight(pattern, text)
}

// SetPattern updates the pattern and recomputes the preview.
func (m *Machine) SetPattern(pattern string) {
	if pattern == m.state.Pattern {
		return
	}
	m.state.Pattern = pattern
	m.state.Preview = Preview(m.eval, m.state.Pattern, m.state.TestString)
	m.notify()
}

// SetTestString updates the test string and recomputes the preview.
func (m *Machine) SetTestString(text string) {
	if text == m.state.TestString {
		return
	}
	m.state.TestString = text
	m.state.Preview = Preview(m.eval, m.state.Pattern, m.state.TestString)
	m.notify()
}

// Clear resets the inputs and the displayed result. History is kept.
func (m *Machine) Clear() {
	m.state.Pattern = ""
	m.state.TestString = ""
	m.state.Preview = nil
	m.state.Result = nil
	m.state.Err = nil
	m.state.Phase = PhaseIdle
	m.notify()
}

// Submit validates the inputs and enters the submitting phase. When either
// input is empty it returns ErrMissingInput and no request must be sent.
func (m *Machine) Submit() (model.CheckRequest, error) {
	if m.state.Pattern == "" || m.state.TestString == "" {
		m.state.Err = ErrMissingInput
		m.state.Phase = PhaseFailed
		m.state.Result = nil
		m.notify()
		return model.CheckRequest{}, ErrMissingInput
	}
	m.state.Phase = PhaseSubmitting
	m.state.Err = nil
	m.notify()
	return m.state.Inputs(), nil
}

// Resolve applies the outcome of a submitted check. It reports whether the
// history should be refreshed. The latest call wins.
func (m *Machine) Resolve(res model.CheckResult, err error) bool {
	if err != nil {
		m.state.Phase = PhaseFailed
		m.state.Err = err
		m.state.Result = nil
		m.notify()
		return false
	}
	m.state.Phase = PhaseSuccess
	m.state.Err = nil
	m.state.Result = &res
	m.notify()
	return true
}

// ApplyHistory replaces the history view. On error the previous list is kept.
func (m *Machine) ApplyHistory(entries []model.HistoryEntry, err error) {
	if err != nil {
		m.state.HistoryErr = err
		m.notify()
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	m.state.History = entries
	m.state.HistoryLoaded = true
	m.state.HistoryErr = nil
	m.notify()
}

// Check runs the full check flow synchronously: submit, call the recorder,
// resolve, and refresh history on success.
func (m *Machine) Check(ctx context.Context, rec Recorder) error {
	req, err := m.Submit()
	if err != nil {
		return err
	}
	res, err := rec.Check(ctx, req)
	if !m.Resolve(res, err) {
		return err
	}
	if herr := m.RefreshHistory(ctx, rec); herr != nil {
		// The check itself succeeded; the stale history is reported via State.HistoryErr.
		_ = herr
	}
	return nil
}

// RefreshHistory fetches and applies the full history list.
func (m *Machine) RefreshHistory(ctx context.Context, rec Recorder) error {
	entries, err := rec.History(ctx)
	m.ApplyHistory(entries, err)
	return err
}

// Describe returns the user-facing message for err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var invalid *match.InvalidPatternError
	var te *client.TransportError
	switch {
	case errors.Is(err, ErrMissingInput):
		return err.Error()
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.As(err, &te):
		if te.StatusCode != 0 && te.Message != "" {
			return te.Message
		}
		return "Error testing regex: could not reach the server"
	default:
		return "Error testing regex"
	}
}
