package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"remotestorage/internal/config"
)

// ParseJSON decodes JSON from the request body into dest, for the admin
// API's small username/password/description/scope request bodies. The body
// is capped at config.MaxAdminRequestBytes — this is never used to read a
// remoteStorage document upload, which the storage handler streams and
// size-limits itself.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxAdminRequestBytes)

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
