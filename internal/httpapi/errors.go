package httpapi

import (
	"encoding/json"
	"net/http"

	"assistantd/internal/coordinator"
	"assistantd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForErr maps the coordinator's error taxonomy to HTTP statuses.
func statusForErr(err error) int {
	switch {
	case coordinator.IsAlreadyInProgress(err):
		return http.StatusConflict
	case coordinator.IsBridgeUnavailable(err):
		return http.StatusServiceUnavailable
	case coordinator.IsRemoteFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
