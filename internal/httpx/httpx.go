package httpx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// APIError is the body of every error response: {"error": "<area>.<code>"}.
type APIError struct {
	Error string `json:"error"`
}

// WriteJSON encodes v before touching w, so an unencodable value becomes a
// clean 500 instead of a truncated body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("json_encode_failed", "type", fmt.Sprintf("%T", v), "err", err)
		code = http.StatusInternalServerError
		b = []byte(`{"error":"generic.unknown_error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write(append(b, '\n'))
}

func WriteError(w http.ResponseWriter, code int, errCode string) {
	WriteJSON(w, code, APIError{Error: errCode})
}

