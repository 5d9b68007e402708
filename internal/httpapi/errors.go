package httpapi

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"chatd/internal/generate"
	"chatd/internal/manager"
	"chatd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case manager.IsInvalidRequest(err):
		return http.StatusBadRequest
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

// chunkStatus maps an error chunk to the status the same failure gets from
// POST /chat. Busy-model failures are counted as backpressure.
func chunkStatus(c generate.Chunk) int {
	if c.Err == nil {
		return http.StatusInternalServerError
	}
	status := statusFor(c.Err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("model_busy")
	}
	return status
}

// writeServiceError writes err with its mapped status and returns the status.
func writeServiceError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("model_busy")
	}
	writeJSONError(w, status, err.Error())
	return status
}
