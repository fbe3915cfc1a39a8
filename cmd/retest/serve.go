package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/retest/internal/config"
	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/recorder"
	"github.com/verte-zerg/retest/internal/server"
	"github.com/verte-zerg/retest/internal/store"
)

const (
	defaultAddr  = ":5000"
	defaultRate  = 0
	defaultBurst = 10

	defaultMatchTimeout = time.Second
)

var (
	serveAddr         string
	serveDB           string
	serveHistoryLimit int
	serveRate         float64
	serveBurst        int
	serveCORSOrigin   string
	serveDialect      string
	serveMatchTimeout time.Duration
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the history recorder HTTP service",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "db", "", "SQLite path or postgres:// DSN (default: XDG data dir)")
	cmd.Flags().IntVar(&serveHistoryLimit, "history-limit", recorder.DefaultHistoryLimit, "maximum entries returned by /api/history")
	cmd.Flags().Float64Var(&serveRate, "rate", defaultRate, "sustained checks per second (0 disables limiting)")
	cmd.Flags().IntVar(&serveBurst, "burst", defaultBurst, "check burst size")
	cmd.Flags().StringVar(&serveCORSOrigin, "cors-origin", "*", "Access-Control-Allow-Origin value (empty disables CORS)")
	// Shadows the root --dialect: the server evaluates checks in its own dialect.
	cmd.Flags().StringVar(&serveDialect, "dialect", string(match.DefaultDialect), "regex dialect for checks (re2, pcre, ecmascript)")
	cmd.Flags().DurationVar(&serveMatchTimeout, "match-timeout", defaultMatchTimeout, "time budget per pcre/ecmascript match (0 disables)")
	return cmd
}

func loadServerConfig(cmd *cobra.Command) (model.ServerConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.ServerConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	applyStringConfig(flags, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(flags, "db", &serveDB, fileCfg.Server.DB)
	applyIntConfig(flags, "history-limit", &serveHistoryLimit, fileCfg.Server.HistoryLimit)
	applyFloatConfig(flags, "rate", &serveRate, fileCfg.Server.Rate)
	applyIntConfig(flags, "burst", &serveBurst, fileCfg.Server.Burst)
	applyStringConfig(flags, "cors-origin", &serveCORSOrigin, fileCfg.Server.CORSOrigin)
	applyStringConfig(flags, "dialect", &serveDialect, fileCfg.Server.Dialect)
	if err := applyDurationConfig(flags, "match-timeout", &serveMatchTimeout, fileCfg.Server.MatchTimeout); err != nil {
		return model.ServerConfig{}, err
	}

	cfg := model.ServerConfig{
		Addr:         serveAddr,
		DBPath:       serveDB,
		HistoryLimit: serveHistoryLimit,
		Rate:         serveRate,
		Burst:        serveBurst,
		CORSOrigin:   serveCORSOrigin,
		Dialect:      serveDialect,
		MatchTimeout: serveMatchTimeout,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = config.DefaultDBPath()
	}
	return cfg, validateServerConfig(cfg)
}

func validateServerConfig(cfg model.ServerConfig) error {
	if cfg.Addr == "" {
		return fmt.Errorf("--addr must not be empty")
	}
	if cfg.HistoryLimit <= 0 {
		return fmt.Errorf("--history-limit must be > 0")
	}
	if cfg.Rate < 0 {
		return fmt.Errorf("--rate must be >= 0")
	}
	if cfg.Burst < 0 {
		return fmt.Errorf("--burst must be >= 0")
	}
	if cfg.MatchTimeout < 0 {
		return fmt.Errorf("--match-timeout must be >= 0")
	}
	if _, err := match.ParseDialect(cfg.Dialect); err != nil {
		return err
	}
	return nil
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServerConfig(cmd)
	if err != nil {
		return err
	}
	dialect, err := match.ParseDialect(cfg.Dialect)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	eval := match.NewEvaluator(dialect, match.WithMatchTimeout(cfg.MatchTimeout))
	svc := recorder.New(eval, st, recorder.WithHistoryLimit(cfg.HistoryLimit))
	srv := server.New(svc, logger, server.Options{
		CORSOrigin: cfg.CORSOrigin,
		Rate:       cfg.Rate,
		Burst:      cfg.Burst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting recorder", "addr", cfg.Addr, "dialect", dialect, "history_limit", cfg.HistoryLimit)
	if err := srv.Run(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("recorder stopped")
	return nil
}
