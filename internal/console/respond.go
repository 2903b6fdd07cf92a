package console

import (
	"encoding/json"
	"net/http"

	"github.com/atelierpos/atelier/internal/commerce"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeMessage writes a JSON error response with an explicit status.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    http.StatusText(status),
			"code":    status,
		},
	})
}

// writeError maps a classified error onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch commerce.KindOf(err) {
	case commerce.KindValidation, commerce.KindTerminal:
		status = http.StatusUnprocessableEntity
	case commerce.KindConflict:
		status = http.StatusConflict
	case commerce.KindNotFound:
		status = http.StatusNotFound
	case commerce.KindTransient:
		status = http.StatusBadGateway
	}
	writeMessage(w, status, err.Error())
}
