package utils

import (
	"encoding/json"
	"net/http"
)

// M is a shorthand for ad hoc JSON objects
type M map[string]interface{}

// RespondWithError sends {"error": msg} with the given status code
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"error": msg})
}

// RespondWithJSON sends data encoded as JSON
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
