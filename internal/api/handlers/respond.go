package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/doctorconsole/internal/application/services"
	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
	"github.com/zatekoja/doctorconsole/pkg/validation"
)

const maxJSONBody = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithServiceError maps domain and infrastructure errors to HTTP statuses
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	respondWithError(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, entities.ErrMissingRequiredField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, services.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrDraftNotFound), errors.Is(err, entities.ErrPrescriptionNotFound):
		return http.StatusNotFound
	case services.IsPrecondition(err), errors.Is(err, entities.ErrAlreadySeeded):
		return http.StatusConflict
	}

	// Backend rejections during advance, upload or submit are gateway failures
	if errors.Is(err, services.ErrAdvanceFailed) ||
		errors.Is(err, services.ErrSnapshotRefreshFailed) ||
		errors.Is(err, services.ErrUploadFailed) ||
		errors.Is(err, services.ErrSubmitFailed) {
		return http.StatusBadGateway
	}

	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnauthorized, apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	case apperrors.ErrorTypeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body into dst and validates it. An empty body
// leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	return validation.Struct(dst)
}
