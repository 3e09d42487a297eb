package response

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps every successful body. RequestID mirrors the error payload
// so clients can quote it either way.
type Envelope struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status, defaulting the content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	writeData(w, r, http.StatusOK, data)
}

func Created(w http.ResponseWriter, r *http.Request, data any) {
	writeData(w, r, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	WriteJSON(w, status, Envelope{Data: data, RequestID: RequestIDFromContext(r)})
}
