package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gigledger/internal/core"
)

const (
	dateLayout  = "2006-01-02"
	maxBodySize = 1 << 20 // 1 MiB
)

// userID reads the caller identity from the X-User-ID header, falling back to
// the user_id query parameter. Authentication is handled upstream.
func userID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if raw == "" {
		return 0, errors.New("missing user id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

func parseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return d, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error     string  `json:"error"`
	Succeeded []int64 `json:"succeeded,omitempty"`
	Failed    []int64 `json:"failed,omitempty"`
	Created   []int64 `json:"created,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Partial group failures
// keep a 207-style body so callers can see which members landed.
func writeError(w http.ResponseWriter, err error) {
	var partial *core.PartialUpdateError
	if errors.As(err, &partial) {
		resp := errorResponse{Error: partial.Error(), Succeeded: partial.Succeeded}
		for _, f := range partial.Failed {
			resp.Failed = append(resp.Failed, f.GigID)
		}
		writeJSON(w, http.StatusMultiStatus, resp)
		return
	}

	var recreate *core.RecreateError
	if errors.As(err, &recreate) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   recreate.Error(),
			Created: recreate.Created,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, core.ErrEmptyEventName),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrTaxPercentage),
		errors.Is(err, core.ErrInvalidDateRange):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}
