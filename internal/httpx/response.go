// Package httpx holds the JSON envelope every HTTP endpoint answers with,
// the error-to-status mapping, and the request logging middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Envelope is the response body shape shared by all services.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Success    bool   `json:"success"`
}

// JSON writes an envelope with the given status.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		StatusCode: status,
		Message:    message,
		Data:       data,
		Success:    status >= 200 && status < 300,
	})
}

// Fail writes an error envelope with an explicit status and message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, message, nil)
}

// Error maps err to a status and writes it. Messages of internal errors are
// replaced by a generic one.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	Fail(w, status, MessageFor(err))
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{common.ErrValidation, http.StatusBadRequest},
	{common.ErrUnauthorized, http.StatusUnauthorized},
	{common.ErrForbidden, http.StatusForbidden},
	{common.ErrNotFound, http.StatusNotFound},
	{common.ErrConflict, http.StatusConflict},
}

// StatusFor returns the HTTP status for err; unknown errors are 500.
func StatusFor(err error) int {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// MessageFor returns the client-facing text for err. For "sentinel: reason"
// errors that is the reason.
func MessageFor(err error) string {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			msg := err.Error()
			if reason, ok := strings.CutPrefix(msg, s.err.Error()+": "); ok {
				return reason
			}
			return msg
		}
	}
	return "internal server error"
}

// DecodeJSON reads a JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", common.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body", common.ErrValidation)
	}
	return nil
}
