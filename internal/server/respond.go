package server

import (
	"encoding/json"
	"net/http"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// writeJSON writes data with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Get(logging.CategoryAPI).Error("Failed to encode JSON response: %v", err)
	}
}

// writeError writes a standard error body. message must never carry
// internal error text.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: status})
}

func writeInternalError(w http.ResponseWriter, op string, err error) {
	logging.Get(logging.CategoryAPI).Error("%s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}
