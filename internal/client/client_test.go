package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/recorder"
	"github.com/verte-zerg/retest/internal/server"
	"github.com/verte-zerg/retest/internal/store"
)

func newRecorderServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	svc := recorder.New(match.NewEvaluator(match.DialectRE2), st)
	ts := httptest.NewServer(server.New(svc, nil, server.Options{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestCheckAndHistoryRoundTrip(t *testing.T) {
	ts := newRecorderServer(t)
	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	entries, err := c.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty history, got %#v", entries)
	}

	res, err := c.Check(ctx, model.CheckRequest{Pattern: `\d+`, TestString: "order 42 of 7"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected match")
	}

	entries, err = c.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Pattern != `\d+` {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestCheckInvalidPattern(t *testing.T) {
	ts := newRecorderServer(t)
	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Check(context.Background(), model.CheckRequest{Pattern: "(unclosed", TestString: "abc"})
	var invalid *match.InvalidPatternError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPatternError, got %T %v", err, err)
	}
	if invalid.Pattern != "(unclosed" || invalid.Reason == "" {
		t.Fatalf("unexpected invalid pattern error: %+v", invalid)
	}
}

func TestServiceErrorSurfacedVerbatim(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance window"}`))
	}))
	defer ts.Close()

	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Check(context.Background(), model.CheckRequest{Pattern: "a", TestString: "a"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if te.StatusCode != http.StatusServiceUnavailable || err.Error() != "maintenance window" {
		t.Fatalf("unexpected error: %+v", te)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.History(context.Background())
	if err == nil || err.Error() != "upstream exploded" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(url)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.History(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
	if te.StatusCode != 0 || te.Err == nil {
		t.Fatalf("expected network error, got %+v", te)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5000", "://"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestFilter(t *testing.T) {
	ts := newRecorderServer(t)
	c, err := New(ts.URL + "/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res, err := c.Filter(context.Background(), model.FilterRequest{Pattern: `a`, Items: []string{"abc", "bca"}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(res.Matched) != 1 || res.Matched[0] != "abc" {
		t.Fatalf("unexpected filter result: %+v", res)
	}
}
