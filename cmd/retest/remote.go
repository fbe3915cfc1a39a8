package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/stats"
	"github.com/verte-zerg/retest/internal/workflow"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	historyFormat  string
	historyLimit   int
	historySummary bool
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATTERN TEXT",
		Short: "Check a pattern against a test string and record it",
		Args:  cobra.ExactArgs(2),
		RunE:  runCheckCmd,
	}
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return err
	}
	c, eval, err := newClient(cfg)
	if err != nil {
		return err
	}

	wf := workflow.New(eval)
	wf.SetPattern(args[0])
	wf.SetTestString(args[1])
	if err := wf.Check(cmd.Context(), c); err != nil {
		return errors.New(workflow.Describe(err))
	}
	return writeCheckResult(cmd.OutOrStdout(), wf.State())
}

func writeCheckResult(w io.Writer, st workflow.State) error {
	verdict := "Not matched"
	if st.Result != nil && st.Result.Matched {
		verdict = "Matched"
	}
	if _, err := fmt.Fprintln(w, verdict); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if st.HistoryErr != nil {
		logErrf("failed to refresh history: %s\n", workflow.Describe(st.HistoryErr))
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded checks, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyFormat, "format", formatTable, "output format (table, json, yaml)")
	cmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum entries (0 uses the server default)")
	cmd.Flags().BoolVar(&historySummary, "summary", false, "print aggregate counts after the table")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return err
	}
	c, _, err := newClient(cfg)
	if err != nil {
		return err
	}
	entries, err := c.HistoryLimit(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %s", workflow.Describe(err))
	}
	return writeHistory(cmd.OutOrStdout(), entries, historyFormat, historySummary)
}

func writeHistory(w io.Writer, entries []model.HistoryEntry, format string, summary bool) error {
	switch format {
	case formatTable:
		if err := stats.WriteHistoryTable(w, entries, stats.TableOptions{}); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if summary && len(entries) > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return stats.WriteSummary(w, stats.Summarize(entries, 5), time.Time{})
		}
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown --format %q (expected table, json or yaml)", format)
	}
}
