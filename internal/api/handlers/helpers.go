package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// Pagination bounds for list endpoints.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListResponse is the paginated envelope for list endpoints.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorBody wraps every error response.
type ErrorBody struct {
	Error APIError `json:"error"`
}

// APIError is a machine-readable code plus a message for people.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: APIError{Code: code, Message: message}})
}

// writeInternal logs a database failure and answers 500 without leaking the
// underlying error text.
func writeInternal(w http.ResponseWriter, op string, err error, args ...any) {
	slog.Error(op, append(args, "error", err)...)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Report database error")
}

// parsePagination reads limit (1..maxLimit, default defaultLimit) and
// offset (>= 0). Malformed values are rejected rather than ignored.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultLimit
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
