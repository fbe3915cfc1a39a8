// Package recorder implements the history recorder: authoritative checks
// that are appended to an append-only history.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
)

// DefaultHistoryLimit caps the entries returned by History.
const DefaultHistoryLimit = 10

// ErrMissingInput is returned when the pattern or test string is empty.
var ErrMissingInput = errors.New("pattern and test_string are required")

// HistoryStore persists history entries.
type HistoryStore interface {
	Append(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error)
	List(ctx context.Context, limit int) ([]model.HistoryEntry, error)
}

// Service evaluates checks and records them.
type Service struct {
	eval  *match.Evaluator
	store HistoryStore
	limit int
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithHistoryLimit sets the maximum number of entries History returns.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(eval *match.Evaluator, store HistoryStore, opts ...Option) *Service {
	s := &Service{
		eval:  eval,
		store: store,
		limit: DefaultHistoryLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HistoryLimit returns the configured history cap.
func (s *Service) HistoryLimit() int {
	return s.limit
}

// Check evaluates req and appends the outcome to history.
func (s *Service) Check(ctx context.Context, req model.CheckRequest) (model.CheckResult, error) {
	if req.Pattern == "" || req.TestString == "" {
		return model.CheckResult{}, ErrMissingInput
	}
	matched, err := s.eval.Verdict(req.Pattern, req.TestString)
	if err != nil {
		return model.CheckResult{}, err
	}
	_, err = s.store.Append(ctx, model.HistoryEntry{
		Pattern:    req.Pattern,
		TestString: req.TestString,
		Matched:    matched,
		Timestamp:  s.now().UTC(),
	})
	if err != nil {
		return model.CheckResult{}, fmt.Errorf("failed to record check: %w", err)
	}
	return model.CheckResult{
		Matched:    matched,
		Pattern:    req.Pattern,
		TestString: req.TestString,
	}, nil
}

// History returns recorded checks newest first. A limit outside (0, HistoryLimit]
// is clamped to HistoryLimit.
func (s *Service) History(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	entries, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

// Filter returns the items the pattern matches at their start. Filters are not recorded.
func (s *Service) Filter(_ context.Context, req model.FilterRequest) (model.FilterResult, error) {
	if req.Pattern == "" {
		return model.FilterResult{}, ErrMissingInput
	}
	matched, err := s.eval.Filter(req.Pattern, req.Items)
	if err != nil {
		return model.FilterResult{}, err
	}
	return model.FilterResult{Matched: matched}, nil
}
