// Package main provides the CLI entrypoint for retest.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/retest/internal/client"
	"github.com/verte-zerg/retest/internal/config"
	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/tui"
)

const (
	defaultServerURL = "http://127.0.0.1:5000"
	defaultTimeout   = client.DefaultTimeout
)

var (
	clientServer  string
	clientDialect string
	clientTimeout time.Duration
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "retest",
		Short:         "Regex tester with a shared check history",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTUICmd,
	}

	rootCmd.PersistentFlags().StringVar(&clientServer, "server", defaultServerURL, "history recorder base URL")
	rootCmd.PersistentFlags().StringVar(&clientDialect, "dialect", string(match.DefaultDialect), "regex dialect for local previews (re2, pcre, ecmascript)")
	rootCmd.PersistentFlags().DurationVar(&clientTimeout, "timeout", defaultTimeout, "per-request timeout")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newHighlightCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return err
	}
	c, eval, err := newClient(cfg)
	if err != nil {
		return err
	}
	program := tea.NewProgram(tui.NewModel(c, eval, tui.WithTimeout(cfg.Timeout)), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// loadClientConfig merges the [client] section of the config file under the flags.
func loadClientConfig(cmd *cobra.Command) (model.ClientConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	applyStringConfig(flags, "server", &clientServer, fileCfg.Client.Server)
	applyStringConfig(flags, "dialect", &clientDialect, fileCfg.Client.Dialect)
	if err := applyDurationConfig(flags, "timeout", &clientTimeout, fileCfg.Client.Timeout); err != nil {
		return model.ClientConfig{}, err
	}
	if clientTimeout <= 0 {
		return model.ClientConfig{}, fmt.Errorf("--timeout must be > 0")
	}
	return model.ClientConfig{
		ServerURL: clientServer,
		Dialect:   clientDialect,
		Timeout:   clientTimeout,
	}, nil
}

func newClient(cfg model.ClientConfig) (*client.Client, *match.Evaluator, error) {
	dialect, err := match.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.New(cfg.ServerURL, client.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, nil, err
	}
	return c, match.NewEvaluator(dialect), nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
