package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/stats"
)

const (
	whenColWidth   = 16
	resultColWidth = 9
	minTextCol     = 10
)

func historyColumns(width int) []table.Column {
	rest := width - whenColWidth - resultColWidth - 6
	if rest < 2*minTextCol {
		rest = 2 * minTextCol
	}
	patternWidth := rest / 3
	return []table.Column{
		{Title: "When", Width: whenColWidth},
		{Title: "Result", Width: resultColWidth},
		{Title: "Pattern", Width: patternWidth},
		{Title: "Test string", Width: rest - patternWidth},
	}
}

func historyRows(entries []model.HistoryEntry, columns []table.Column, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		result := "no match"
		if e.Matched {
			result = "match"
		}
		rows = append(rows, table.Row{
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			result,
			stats.Truncate(e.Pattern, columns[2].Width),
			stats.Truncate(e.TestString, columns[3].Width),
		})
	}
	return rows
}

func newHistoryTable() table.Model {
	t := table.New(
		table.WithColumns(historyColumns(0)),
		table.WithHeight(1),
	)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) refreshHistoryTable() {
	columns := historyColumns(m.width)
	m.history.SetColumns(columns)
	m.history.SetRows(historyRows(m.wf.State().History, columns, m.now()))
	m.history.SetWidth(maxInt(1, m.width))
}

func (m *Model) renderHistorySummary() string {
	st := m.wf.State()
	if !st.HistoryLoaded {
		return ""
	}
	summary := stats.Summarize(st.History, 0)
	noun := "checks"
	if summary.Total == 1 {
		noun = "check"
	}
	return fmt.Sprintf("Last %d %s · %d matched · %.0f%% match rate", summary.Total, noun, summary.Matched, summary.MatchRate)
}

// selectedPattern returns the pattern of the highlighted history row.
func (m *Model) selectedPattern() string {
	history := m.wf.State().History
	idx := m.history.Cursor()
	if idx < 0 || idx >= len(history) {
		return ""
	}
	return history[idx].Pattern
}
