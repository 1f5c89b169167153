// Package response writes the JSON bodies shared by handlers and middleware.
// Failures use the {"success":false,"error":...} shape clients key on.
package response

import (
	"encoding/json"
	"net/http"
)

type failure struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Fail writes {"success":false,"error":message}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, failure{Error: message})
}

// ValidationFailed writes a 422 carrying the first message as "error" and
// the full field map under "errors".
func ValidationFailed(w http.ResponseWriter, errs map[string]string) {
	JSON(w, http.StatusUnprocessableEntity, failure{Error: firstMessage(errs), Errors: errs})
}

// firstMessage picks the message of the alphabetically first field so the
// summary is stable.
func firstMessage(errs map[string]string) string {
	var key string
	for k := range errs {
		if key == "" || k < key {
			key = k
		}
	}
	if key == "" {
		return "Validation failed"
	}
	return errs[key]
}
