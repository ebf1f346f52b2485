package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Strob0t/bbwebhook/internal/domain/webhook"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes the {"status":"error","error":...} shape Bitbucket sees
// for every rejected delivery.
func writeError(w http.ResponseWriter, status int, message string) {
	writeResult(w, webhook.Failure(message, status))
}

func writeResult(w http.ResponseWriter, res webhook.OutboundResult) {
	writeJSON(w, res.HTTPStatus, res.Payload)
}
