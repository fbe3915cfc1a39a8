// Package server exposes the history recorder over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/retest/internal/recorder"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
	statusText      = "Regex API is running! Use POST /api/check"
)

// Options configures the HTTP surface.
type Options struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS headers.
	CORSOrigin string
	// Rate is the sustained number of checks per second; zero disables limiting.
	Rate float64
	// Burst is the token bucket size for checks.
	Burst int
}

// Server serves the recorder API.
type Server struct {
	svc     *recorder.Service
	log     *slog.Logger
	opts    Options
	limiter *rate.Limiter
}

// New constructs a Server. A nil logger discards logs.
func New(svc *recorder.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{svc: svc, log: logger, opts: opts}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("POST /api/check", s.rateLimited(http.HandlerFunc(s.handleCheck)))
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/filter", s.handleFilter)
	return s.withRequestID(s.withAccessLog(s.withCORS(mux)))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.log.Info("listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
