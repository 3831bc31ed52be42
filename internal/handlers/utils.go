package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tubeshelf/internal/logging"
	"tubeshelf/internal/process"
)

// writeJSON encodes v as JSON with the given status code.
// Encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONMessage writes a {"message": ...} body, the shape used by the
// video endpoints.
func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeJSONError writes an {"error": ...} body, the shape used by the
// download endpoint.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// errorDetails extracts what a client can act on from a failure: the
// tool's stderr when it exited non-zero, the error text otherwise.
func errorDetails(err error) string {
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) && exitErr.Stderr != "" {
		return exitErr.Stderr
	}
	return err.Error()
}
