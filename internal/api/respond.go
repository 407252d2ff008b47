package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/convocore/convocore/internal/errors"
)

// errorResponse is the wire shape of every error the API returns.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusForCode maps the error taxonomy to HTTP statuses. CONFLICT never
// appears here: create races are recovered inside the resolvers.
func statusForCode(code string) int {
	switch code {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeIdentityConflict:
		return http.StatusConflict
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.Code(err)
	status := statusForCode(code)

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", "code", code, "error", err)
	} else {
		s.logger.DebugContext(r.Context(), "Request rejected", "code", code, "error", err)
	}

	s.respondJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// decodeJSON parses a request body into dst and runs struct validation.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return apperrors.NewValidationError("invalid request", err)
	}
	return nil
}
