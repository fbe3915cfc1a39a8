// Package model defines shared data structures.
package model

import "time"

// CheckRequest is a pattern and test string submitted for an authoritative check.
type CheckRequest struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	TestString string `json:"test_string" yaml:"test_string"`
}

// CheckResult is the recorder's verdict for a single request.
type CheckResult struct {
	Matched    bool   `json:"matched" yaml:"matched"`
	Pattern    string `json:"pattern" yaml:"pattern"`
	TestString string `json:"test_string" yaml:"test_string"`
}

// HistoryEntry is one recorded check. Entries are never mutated after creation.
type HistoryEntry struct {
	ID         int64     `json:"id" yaml:"id"`
	Pattern    string    `json:"pattern" yaml:"pattern"`
	TestString string    `json:"test_string" yaml:"test_string"`
	Matched    bool      `json:"matched" yaml:"matched"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// MatchSpan is a matched substring. Start and End are byte offsets into the text.
type MatchSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Segment is a rendering unit: either an unmatched gap or a matched span.
type Segment struct {
	Text  string
	Match bool
}

// FilterRequest asks which items a pattern matches at their start.
type FilterRequest struct {
	Pattern string   `json:"pattern"`
	Items   []string `json:"items"`
}

// FilterResult lists the matched items in input order.
type FilterResult struct {
	Matched []string `json:"matched"`
}

// ErrorResponse is the JSON payload returned with non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeMissingInput   = "missing_input"
	CodeInvalidPattern = "invalid_pattern"
	CodeMatchTimeout   = "match_timeout"
	CodeBadRequest     = "bad_request"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal"
)

// ServerConfig defines recorder service settings.
type ServerConfig struct {
	Addr         string
	DBPath       string
	HistoryLimit int
	Rate         float64
	Burst        int
	CORSOrigin   string
	Dialect      string
	MatchTimeout time.Duration
}

// ClientConfig defines settings for the interactive and CLI clients.
type ClientConfig struct {
	ServerURL string
	Dialect   string
	Timeout   time.Duration
}

// HistorySummary aggregates history entries for reporting.
type HistorySummary struct {
	Total       int
	Matched     int
	MatchRate   float64
	TopPatterns []PatternCount
	Newest      time.Time
}

// PatternCount counts how often a pattern was checked.
type PatternCount struct {
	Pattern string
	Count   int
	Matched int
}
