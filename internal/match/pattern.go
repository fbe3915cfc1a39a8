// Package match evaluates regular expressions for verdicts and highlighting.
package match

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/verte-zerg/retest/internal/model"
)

// Dialect selects the engine a pattern is compiled with.
type Dialect string

// Supported dialects.
const (
	// DialectRE2 uses Go's regexp package (RE2 syntax, linear time).
	DialectRE2 Dialect = "re2"
	// DialectPCRE uses a backtracking engine with lookaround and backreferences.
	DialectPCRE Dialect = "pcre"
	// DialectECMAScript uses the backtracking engine in ECMAScript mode.
	DialectECMAScript Dialect = "ecmascript"
)

// DefaultDialect is used when none is configured.
const DefaultDialect = DialectRE2

// Dialects lists the accepted dialect names.
func Dialects() []Dialect {
	return []Dialect{DialectRE2, DialectPCRE, DialectECMAScript}
}

// ParseDialect normalizes a dialect name. Empty input selects DefaultDialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultDialect, nil
	case "re2", "go":
		return DialectRE2, nil
	case "pcre", "perl":
		return DialectPCRE, nil
	case "ecmascript", "js", "javascript":
		return DialectECMAScript, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (available: re2, pcre, ecmascript)", name)
	}
}

// Pattern is a compiled regular expression. It is safe for concurrent use.
type Pattern struct {
	source  string
	dialect Dialect
	re      *regexp.Regexp
	bt      *regexp2.Regexp
	timeout time.Duration
}

// Compile compiles pattern in the given dialect.
func Compile(pattern string, dialect Dialect) (*Pattern, error) {
	return compile(pattern, dialect, 0)
}

// compile applies timeout to backtracking dialects; zero means no limit.
func compile(pattern string, dialect Dialect, timeout time.Duration) (*Pattern, error) {
	p := &Pattern{source: pattern, dialect: dialect}
	switch dialect {
	case DialectRE2, "":
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &InvalidPatternError{Pattern: pattern, Reason: err.Error()}
		}
		p.dialect = DialectRE2
		p.re = re
	case DialectPCRE, DialectECMAScript:
		opts := regexp2.None
		if dialect == DialectECMAScript {
			opts = regexp2.ECMAScript
		}
		re, err := regexp2.Compile(pattern, opts)
		if err != nil {
			return nil, &InvalidPatternError{Pattern: pattern, Reason: err.Error()}
		}
		if timeout > 0 {
			re.MatchTimeout = timeout
			p.timeout = timeout
		}
		p.bt = re
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
	return p, nil
}

// String returns the source pattern.
func (p *Pattern) String() string {
	return p.source
}

// Dialect returns the dialect the pattern was compiled with.
func (p *Pattern) Dialect() Dialect {
	return p.dialect
}

// MatchString reports whether the pattern matches anywhere in text.
func (p *Pattern) MatchString(text string) (bool, error) {
	if p.re != nil {
		return p.re.MatchString(text), nil
	}
	ok, err := p.bt.MatchString(text)
	if err != nil {
		return false, p.timeoutError()
	}
	return ok, nil
}

// MatchPrefix reports whether the leftmost match starts at offset 0.
func (p *Pattern) MatchPrefix(text string) (bool, error) {
	if p.re != nil {
		loc := p.re.FindStringIndex(text)
		return loc != nil && loc[0] == 0, nil
	}
	m, err := p.bt.FindStringMatch(text)
	if err != nil {
		return false, p.timeoutError()
	}
	return m != nil && m.Index == 0, nil
}

// timeoutError wraps ErrMatchTimeout; the backtracking engine fails only on timeout.
func (p *Pattern) timeoutError() error {
	return fmt.Errorf("%w after %s", ErrMatchTimeout, p.timeout)
}

// Spans returns the non-overlapping matches of the pattern in text, in
// ascending order. Each range over the sequence searches text again.
//
// After a zero-width match the search resumes one code point further, so a
// pattern such as `x*` yields one empty span per position and terminates.
// A backtracking match that times out ends the sequence.
func (p *Pattern) Spans(text string) iter.Seq[model.MatchSpan] {
	return func(yield func(model.MatchSpan) bool) {
		if p.re != nil {
			// The RE2 engine never repeats an empty match at the same offset and
			// drops empty matches abutting a previous match.
			for _, loc := range p.re.FindAllStringIndex(text, -1) {
				if !yield(model.MatchSpan{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}) {
					return
				}
			}
			return
		}
		p.backtrackSpans(text, yield)
	}
}

func (p *Pattern) backtrackSpans(text string, yield func(model.MatchSpan) bool) {
	runes := []rune(text)
	offsets := runeOffsets(text, len(runes))
	cursor := 0
	for cursor <= len(runes) {
		m, err := p.bt.FindRunesMatchStartingAt(runes, cursor)
		if err != nil || m == nil {
			return
		}
		start, end := m.Index, m.Index+m.Length
		span := model.MatchSpan{
			Start: offsets[start],
			End:   offsets[end],
			Text:  text[offsets[start]:offsets[end]],
		}
		if !yield(span) {
			return
		}
		if end > start {
			cursor = end
		} else {
			cursor = end + 1
		}
	}
}

// runeOffsets maps rune indexes to byte offsets; the final element is len(text).
func runeOffsets(text string, runeCount int) []int {
	offsets := make([]int, 0, runeCount+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
