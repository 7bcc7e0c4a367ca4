package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// fallbackErrorBody is written when a response cannot be encoded.
var fallbackErrorBody = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// writeJSONResponse encodes response before touching headers so an encoding failure
// can still become a clean 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		body = fallbackErrorBody
		statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", err)
	}
}

// writeError writes err's message in the error envelope.
func writeError(w http.ResponseWriter, statusCode int, err error) {
	writeJSONResponse(w, statusCode, models.Error(err.Error()))
}
