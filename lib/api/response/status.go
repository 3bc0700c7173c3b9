package response

import (
	"errors"
	"net/http"

	"tgmon/entity"
)

// StatusOf maps domain sentinel errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrDeprecated):
		return http.StatusGone
	case errors.Is(err, entity.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, entity.ErrArtifactInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
