package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/KaramelBytes/shopseg-cli/internal/dataset"
	"github.com/KaramelBytes/shopseg-cli/internal/features"
	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/KaramelBytes/shopseg-cli/internal/segment"
	"github.com/KaramelBytes/shopseg-cli/internal/store"
)

var errHistoryDisabled = errors.New("run history is disabled")

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// segment runs the pipeline on a CSV request body.
func (s *Server) segment(w http.ResponseWriter, r *http.Request) {
	opts := s.cfg.Pipeline
	q := r.URL.Query()
	if v := q.Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid k: %s", v))
			return
		}
		opts.Segment.K = k
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid seed: %s", v))
			return
		}
		opts.Segment.Seed = seed
	}
	delim := ','
	switch q.Get("delimiter") {
	case "", ",":
	case "tab", "\t":
		delim = '\t'
	case ";":
		delim = ';'
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported delimiter: %s", q.Get("delimiter")))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := q.Get("name")
	if name == "" {
		name = "upload"
	}
	tbl, err := dataset.ParseCSV(bytes.NewReader(body), name, delim)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rep, err := pipeline.RunTable(r.Context(), tbl, opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if s.runs != nil {
		if err := s.runs.Save(r.Context(), rep); err != nil {
			s.log.Error("save run", zap.String("id", rep.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		limit = n
	}
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	rep, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// statusFor maps pipeline failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, features.ErrMissingFeatures),
		errors.Is(err, features.ErrEmptyTable),
		errors.Is(err, segment.ErrTooManyClusters),
		errors.Is(err, segment.ErrEmptyMatrix),
		errors.Is(err, segment.ErrNonFinite),
		errors.Is(err, segment.ErrRaggedMatrix):
		return http.StatusUnprocessableEntity
	case errors.Is(err, segment.ErrInvalidK):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
