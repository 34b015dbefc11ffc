package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"nara.app/nara-gateway/internal/core"
)

// readJSON decodes a JSON request body with a size limit. It writes the
// error response itself and reports false when decoding fails.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body", nil)
		}
		return v, false
	}
	return v, true
}

func isJSONContent(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// writeServiceError answers with the status and message carried by a
// service error. The cause of internal and invalid-request failures is sent
// as details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := core.AsError(err)
	status := svcErr.HTTPStatus()

	switch svcErr.Kind {
	case core.KindInternal:
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
	case core.KindUpstream:
		slog.WarnContext(r.Context(), "upstream failure",
			"path", r.URL.Path,
			"status", status,
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
	}

	details := svcErr.Details
	if details == nil && svcErr.Err != nil && (svcErr.Kind == core.KindInvalidRequest || svcErr.Kind == core.KindInternal) {
		details = svcErr.Err.Error()
	}
	writeError(w, status, svcErr.Message, details)
}
