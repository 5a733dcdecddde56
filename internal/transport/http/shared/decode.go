package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"shiftrota/internal/transport/http/api"
)

// DecodeJSON reads the request body into dst, answering 400 (or 413 for an
// oversized body) itself when that fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return false
	}
	return true
}
