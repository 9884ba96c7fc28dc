package transport

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error shape returned by every handler.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusBody acknowledges a webhook delivery.
type StatusBody struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Error: message})
}
