package match

import "errors"

var (
	// ErrInvalidPattern matches every *InvalidPatternError via errors.Is.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrMatchTimeout is returned when a backtracking match exceeds its time budget.
	ErrMatchTimeout = errors.New("Regex evaluation timed out")
)

// InvalidPatternError reports a pattern that failed to compile.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return "Invalid regex: " + e.Reason
}

// Is reports whether target is ErrInvalidPattern.
func (e *InvalidPatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}
