package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
	"github.com/verte-zerg/retest/internal/recorder"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, model.ErrorResponse{Error: msg, Code: errCode})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(statusText))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req model.CheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Check(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log.Debug("check recorded",
		slog.String("request_id", requestID(r.Context())),
		slog.Bool("matched", res.Matched),
	)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, model.CodeBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}
	entries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req model.FilterRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Filter(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if res.Matched == nil {
		res.Matched = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *match.InvalidPatternError
	switch {
	case errors.Is(err, recorder.ErrMissingInput):
		writeError(w, http.StatusBadRequest, model.CodeMissingInput, err.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, model.CodeInvalidPattern, invalid.Error())
	case errors.Is(err, match.ErrMatchTimeout):
		writeError(w, http.StatusBadRequest, model.CodeMatchTimeout, err.Error())
	default:
		s.log.Error("request failed",
			slog.String("request_id", requestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "internal error")
	}
}
