package match

import (
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/verte-zerg/retest/internal/model"
)

const (
	compiledTTL     = 10 * time.Minute
	compiledCleanup = 20 * time.Minute
)

// Evaluator compiles patterns in one dialect and caches the compiled form.
type Evaluator struct {
	dialect  Dialect
	timeout  time.Duration
	compiled *cache.Cache
}

// EvaluatorOption customizes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithMatchTimeout bounds each backtracking match. RE2 patterns run in linear
// time and ignore it.
func WithMatchTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEvaluator returns an Evaluator for dialect. An empty dialect selects DefaultDialect.
func NewEvaluator(dialect Dialect, opts ...EvaluatorOption) *Evaluator {
	if dialect == "" {
		dialect = DefaultDialect
	}
	e := &Evaluator{
		dialect:  dialect,
		compiled: cache.New(compiledTTL, compiledCleanup),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dialect returns the evaluator's dialect.
func (e *Evaluator) Dialect() Dialect {
	return e.dialect
}

// Compile returns the compiled pattern, reusing a cached one when available.
func (e *Evaluator) Compile(pattern string) (*Pattern, error) {
	if cached, ok := e.compiled.Get(pattern); ok {
		return cached.(*Pattern), nil
	}
	p, err := compile(pattern, e.dialect, e.timeout)
	if err != nil {
		return nil, err
	}
	e.compiled.Set(pattern, p, cache.DefaultExpiration)
	return p, nil
}

// Verdict reports whether pattern matches anywhere in text. An invalid pattern
// returns an *InvalidPatternError.
func (e *Evaluator) Verdict(pattern, text string) (bool, error) {
	p, err := e.Compile(pattern)
	if err != nil {
		return false, err
	}
	return p.MatchString(text)
}

// Spans collects all match spans of pattern in text.
func (e *Evaluator) Spans(pattern, text string) ([]model.MatchSpan, error) {
	p, err := e.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return slices.Collect(p.Spans(text)), nil
}

// Highlight splits text into matched and unmatched segments. It never fails:
// an empty or invalid pattern yields text as a single unmatched segment.
func (e *Evaluator) Highlight(pattern, text string) []model.Segment {
	if pattern == "" {
		return plain(text)
	}
	p, err := e.Compile(pattern)
	if err != nil {
		return plain(text)
	}
	return Segments(text, slices.Collect(p.Spans(text)))
}

// Filter returns the items the pattern matches at their start, in input order.
func (e *Evaluator) Filter(pattern string, items []string) ([]string, error) {
	p, err := e.Compile(pattern)
	if err != nil {
		return nil, err
	}
	matched := make([]string, 0, len(items))
	for _, item := range items {
		ok, err := p.MatchPrefix(item)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func plain(text string) []model.Segment {
	if text == "" {
		return nil
	}
	return []model.Segment{{Text: text}}
}
