package match

import (
	"strings"

	"github.com/verte-zerg/retest/internal/model"
)

// Segments interleaves the gaps between spans with the spans themselves.
// Spans must be ordered and non-overlapping. Empty gaps and zero-width spans
// produce no segment.
func Segments(text string, spans []model.MatchSpan) []model.Segment {
	out := make([]model.Segment, 0, 2*len(spans)+1)
	last := 0
	for _, span := range spans {
		if span.Start > last {
			out = append(out, model.Segment{Text: text[last:span.Start]})
		}
		if span.End > span.Start {
			out = append(out, model.Segment{Text: text[span.Start:span.End], Match: true})
		}
		last = span.End
	}
	if last < len(text) {
		out = append(out, model.Segment{Text: text[last:]})
	}
	return out
}

// Join concatenates segment texts.
func Join(segments []model.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// MatchCount counts matched segments.
func MatchCount(segments []model.Segment) int {
	n := 0
	for _, seg := range segments {
		if seg.Match {
			n++
		}
	}
	return n
}
