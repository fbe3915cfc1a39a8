package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
)

var (
	highlightJSON bool
	filterRemote  bool
)

var highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#C89A3A"))

func newHighlightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "highlight PATTERN [TEXT]",
		Short: "Preview matches locally; reads TEXT from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runHighlightCmd,
	}
	cmd.Flags().BoolVar(&highlightJSON, "json", false, "print match spans as JSON")
	return cmd
}

func runHighlightCmd(cmd *cobra.Command, args []string) error {
	dialect, err := match.ParseDialect(clientDialect)
	if err != nil {
		return err
	}
	eval := match.NewEvaluator(dialect)
	text := ""
	if len(args) == 2 {
		text = args[1]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSuffix(string(data), "\n")
	}

	out := cmd.OutOrStdout()
	if highlightJSON {
		spans, err := eval.Spans(args[0], text)
		if err != nil {
			return err
		}
		if spans == nil {
			spans = []model.MatchSpan{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(spans)
	}
	if _, err := eval.Compile(args[0]); err != nil {
		return err
	}
	segments := eval.Highlight(args[0], text)
	if _, err := fmt.Fprintln(out, renderSegments(segments, isTerminal(out))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logErrf("%d match(es)\n", match.MatchCount(segments))
	return nil
}

// renderSegments styles matches on terminals and brackets them otherwise.
func renderSegments(segments []model.Segment, color bool) string {
	var b strings.Builder
	for _, seg := range segments {
		switch {
		case !seg.Match:
			b.WriteString(seg.Text)
		case color:
			b.WriteString(highlightStyle.Render(seg.Text))
		default:
			b.WriteString("[" + seg.Text + "]")
		}
	}
	return b.String()
}

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter PATTERN",
		Short: "Print stdin lines that the pattern matches at their start",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilterCmd,
	}
	cmd.Flags().BoolVar(&filterRemote, "remote", false, "evaluate on the recorder service instead of locally")
	return cmd
}

func runFilterCmd(cmd *cobra.Command, args []string) error {
	items, err := readLines(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var matched []string
	if filterRemote {
		cfg, err := loadClientConfig(cmd)
		if err != nil {
			return err
		}
		c, _, err := newClient(cfg)
		if err != nil {
			return err
		}
		res, err := c.Filter(cmd.Context(), model.FilterRequest{Pattern: args[0], Items: items})
		if err != nil {
			return err
		}
		matched = res.Matched
	} else {
		dialect, err := match.ParseDialect(clientDialect)
		if err != nil {
			return err
		}
		matched, err = match.NewEvaluator(dialect).Filter(args[0], items)
		if err != nil {
			return err
		}
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, item := range matched {
		if _, err := fmt.Fprintln(w, item); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return w.Flush()
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return lines, nil
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
