package stats

import (
	"sort"

	"github.com/verte-zerg/retest/internal/model"
)

// Summarize aggregates history entries. Top patterns are ordered by check
// count, then by pattern.
func Summarize(entries []model.HistoryEntry, top int) model.HistorySummary {
	summary := model.HistorySummary{Total: len(entries)}
	counts := make(map[string]*model.PatternCount)
	for _, e := range entries {
		if e.Matched {
			summary.Matched++
		}
		if e.Timestamp.After(summary.Newest) {
			summary.Newest = e.Timestamp
		}
		pc, ok := counts[e.Pattern]
		if !ok {
			pc = &model.PatternCount{Pattern: e.Pattern}
			counts[e.Pattern] = pc
		}
		pc.Count++
		if e.Matched {
			pc.Matched++
		}
	}
	if summary.Total > 0 {
		summary.MatchRate = float64(summary.Matched) / float64(summary.Total) * 100
	}
	if top <= 0 || len(counts) == 0 {
		return summary
	}

	items := make([]model.PatternCount, 0, len(counts))
	for _, pc := range counts {
		items = append(items, *pc)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Pattern < items[j].Pattern
		}
		return items[i].Count > items[j].Count
	})
	if top > len(items) {
		top = len(items)
	}
	summary.TopPatterns = items[:top]
	return summary
}
