package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/kapu/herobuilds-api-go/pkg/errors"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeError maps typed application errors to their status and a client-safe message.
// Untyped errors are reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := apperrors.StatusCode(err)
	resp := errorResponse{Error: http.StatusText(status)}
	if app, ok := apperrors.AsAppError(err); ok {
		resp.Error = app.Message
		resp.Code = app.Code
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, resp, status)
}
