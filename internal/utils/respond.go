package utils

import (
	"encoding/json"
	"net/http"
)

// Respond writes the standard {"response": ...} envelope every endpoint uses.
func Respond(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"response": message})
}

// RespondData is Respond for structured payloads.
func RespondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"response": data})
}

// RespondExtra writes the envelope plus extra top-level keys (e.g. a login
// redirect path next to the message).
func RespondExtra(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := map[string]any{"response": message}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
