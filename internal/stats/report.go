package stats

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/verte-zerg/retest/internal/model"
)

const (
	terminalWidthBackup = 100
	minTextWidth        = 12
)

var (
	matchedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	unmatchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// TableOptions controls history table rendering.
type TableOptions struct {
	// Width is the total width available. Zero uses the terminal width.
	Width int
	// Now anchors relative timestamps. Zero uses the current time.
	Now time.Time
	// ForceColor colors verdicts even when w is not a terminal.
	ForceColor bool
}

// WriteHistoryTable renders entries as an aligned table, newest first as given.
func WriteHistoryTable(w io.Writer, entries []model.HistoryEntry, opts TableOptions) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No checks recorded yet.")
		return err
	}
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	useColor := shouldUseColor(w, opts.ForceColor)

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			verdictLabel(e.Matched),
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			e.Pattern,
			e.TestString,
		})
	}
	headers := []string{"ID", "Result", "When", "Pattern", "Test string"}
	fitTextColumns(rows, headers, width)

	lines := formatTable(headers, rows, map[int]bool{0: true})
	for i, line := range lines {
		if useColor && i > 0 {
			line = colorVerdict(line, entries[i-1].Matched)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary renders aggregate counts and the most checked patterns.
func WriteSummary(w io.Writer, summary model.HistorySummary, now time.Time) error {
	if now.IsZero() {
		now = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Checks: %s  Matched: %s  Match rate: %.1f%%\n",
		humanize.Comma(int64(summary.Total)), humanize.Comma(int64(summary.Matched)), summary.MatchRate)
	if !summary.Newest.IsZero() {
		fmt.Fprintf(&b, "Last check: %s\n", humanize.RelTime(summary.Newest, now, "ago", "from now"))
	}
	if len(summary.TopPatterns) > 0 {
		rows := make([][]string, 0, len(summary.TopPatterns))
		for _, pc := range summary.TopPatterns {
			rows = append(rows, []string{
				strconv.Itoa(pc.Count),
				strconv.Itoa(pc.Matched),
				Truncate(pc.Pattern, 60),
			})
		}
		b.WriteByte('\n')
		for _, line := range formatTable([]string{"Checks", "Matched", "Pattern"}, rows, map[int]bool{0: true, 1: true}) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func verdictLabel(matched bool) string {
	if matched {
		return "match"
	}
	return "no match"
}

func colorVerdict(line string, matched bool) string {
	label := verdictLabel(matched)
	style := unmatchedStyle
	if matched {
		style = matchedStyle
	}
	return strings.Replace(line, label, style.Render(label), 1)
}

// fitTextColumns truncates the pattern and test string columns so a row fits width.
func fitTextColumns(rows [][]string, headers []string, width int) {
	fixed := 0
	for col := 0; col < 3; col++ {
		colWidth := displayWidth(headers[col])
		for _, row := range rows {
			if w := displayWidth(row[col]); w > colWidth {
				colWidth = w
			}
		}
		fixed += colWidth + 2
	}
	remaining := width - fixed - 2
	if remaining < 2*minTextWidth {
		remaining = 2 * minTextWidth
	}
	patternWidth := remaining / 3
	textWidth := remaining - patternWidth
	for _, row := range rows {
		row[3] = Truncate(row[3], patternWidth)
		row[4] = Truncate(row[4], textWidth)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
