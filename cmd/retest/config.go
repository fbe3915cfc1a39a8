package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/verte-zerg/retest/internal/config"
	"github.com/verte-zerg/retest/internal/recorder"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logErrln("Created", path)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		logErrf("warning: %v\n", err)
	}
	return nil
}

func applyStringConfig(flags *pflag.FlagSet, name string, target, value *string) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(flags *pflag.FlagSet, name string, target, value *int) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(flags *pflag.FlagSet, name string, target, value *float64) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(flags *pflag.FlagSet, name string, target *time.Duration, value *string) error {
	if value == nil || flags.Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = d
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# retest configuration
# Uncomment a value to enable it. CLI flags override config values.

[server]
# addr = %q             # Listen address
# db = ""                  # SQLite path or postgres:// DSN (default %q)
# history-limit = %d       # Entries returned by /api/history
# rate = %d                 # Checks per second, 0 disables limiting
# burst = %d               # Check burst size
# cors-origin = "*"        # Access-Control-Allow-Origin, empty disables CORS
# dialect = "re2"          # re2, pcre or ecmascript
# match-timeout = %q      # Time budget per pcre/ecmascript match, "0s" disables

[client]
# server = %q
# dialect = "re2"          # Dialect for local previews
# timeout = %q            # Per-request timeout
`,
		defaultAddr,
		config.DefaultDBPath(),
		recorder.DefaultHistoryLimit,
		defaultRate,
		defaultBurst,
		defaultMatchTimeout.String(),
		defaultServerURL,
		defaultTimeout.String(),
	)
}
