package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/mailbox"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorBody{Error: msg})
}

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, mailbox.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mailbox.ErrAttachmentTooLarge), errors.Is(err, mailbox.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, mailbox.ErrInvalidUserID):
		return http.StatusForbidden
	case mailbox.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, mailbox.ErrAttachmentStoreNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, mailbox.ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "user_id", UserID(r.Context()), "error", err)
		msg = http.StatusText(status)
	}
	writeMessage(w, status, msg)
}
