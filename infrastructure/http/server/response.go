package server

import (
	"chat-api/domain"
	"chat-api/errors"
	"encoding/json"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeRecords always renders a JSON array, never null.
func writeRecords(w http.ResponseWriter, records []domain.ChatRecord) {
	if records == nil {
		records = []domain.ChatRecord{}
	}
	writeJSON(w, http.StatusCreated, records)
}

// writeError reports a failed operation. In legacy mode every failure is a
// 400 carrying the plain text summary, otherwise the status follows the error kind.
func (s *ChatServer) writeError(w http.ResponseWriter, r *http.Request, err error, summary string) {
	status := errors.MapToHTTPStatus(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.log.Log(r.Context(), level, summary, "path", r.URL.Path, "status", status, "error", err)

	if s.legacyStatus {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(summary))
		return
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = summary
	}
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
