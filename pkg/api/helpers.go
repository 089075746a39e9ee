package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/detail"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	s.respondJSON(w, status, response)
}

// respondServiceError maps service errors to statuses. Anything unexpected
// is logged in full and reported generically.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var numErr *strconv.NumError
	switch {
	case errors.Is(err, ErrPcapNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, capture.ErrNoConversations):
		s.respondError(w, http.StatusUnprocessableEntity, "no traffic data")
	case errors.Is(err, traffic.ErrUnknownCategory), errors.Is(err, detail.ErrUnknownColumn), errors.As(err, &numErr):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case r.Context().Err() != nil:
		s.respondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.Error(operation+" failed", logging.Error(err), logging.Path(r.URL.Path))
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", operation))
	}
}

// floatParam reads a non-negative float query parameter. Missing means 0.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

// intParam reads an integer query parameter with a default.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

// categoryParam reads an optional category. Missing means no selection.
func categoryParam(r *http.Request, name string) (traffic.Category, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return traffic.None, nil
	}
	return traffic.ParseCategory(raw)
}

// columnParam reads an optional column name.
func columnParam(r *http.Request, name string) (detail.Column, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", nil
	}
	return detail.ParseColumn(raw)
}

// viewportParams reads width and height, both optional.
func viewportParams(r *http.Request) (width, height float64, err error) {
	if width, err = floatParam(r, "width"); err != nil {
		return 0, 0, err
	}
	if height, err = floatParam(r, "height"); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}
