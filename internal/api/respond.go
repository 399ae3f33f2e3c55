// ABOUTME: JSON request decoding and response helpers for the API handlers
// ABOUTME: Error bodies are {"error": "..."} with fixed, non-revealing messages

package api

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps request bodies; auth payloads are tiny.
const maxBodyBytes = 64 << 10

// Fixed client-facing error messages.
const (
	msgInvalidRequest     = "invalid request"
	msgInvalidCredentials = "invalid email or password"
	msgEmailTaken         = "email already registered"
	msgFederatedRejected  = "could not verify federated identity"
	msgInternal           = "internal server error"
)

// messageResponse is the body of login and logout responses.
type messageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body into v. Unknown fields are ignored so the
// frontend can send extra form state.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
