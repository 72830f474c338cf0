package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
)

// WriteJSON encodes data as the response body. Encoding failures after the
// header is written can only be logged.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// ErrorResponse is the body of every non-2xx response. The controller reads
// code; the dashboard also reads details.reason.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeValidation:        http.StatusBadRequest,
	apperrors.ErrCodeInvalidInput:      http.StatusBadRequest,
	apperrors.ErrCodeMissingRequired:   http.StatusBadRequest,
	apperrors.ErrCodeUnauthorized:      http.StatusUnauthorized,
	apperrors.ErrCodeForbidden:         http.StatusForbidden,
	apperrors.ErrCodeAlreadyExists:     http.StatusConflict,
	apperrors.ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	apperrors.ErrCodeInternal:          http.StatusInternalServerError,
	apperrors.ErrCodeDatabase:          http.StatusInternalServerError,
	apperrors.ErrCodeNoRowsAffected:    http.StatusInternalServerError,
}

// StatusFromCode maps an error code to its HTTP status. Unknown codes are
// server errors.
func StatusFromCode(code apperrors.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorResponse. Errors that are not AppErrors
// are logged and reported as INTERNAL_ERROR without their text.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
