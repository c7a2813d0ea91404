package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/services"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

// abortServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400, bad credentials 401, permission 403, missing 404,
// duplicate grant 409, unreachable store 503.
func abortServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		if len(validationErr.Messages) > 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": validationErr.Messages})
			return
		}
		abort(c, newBadRequestError(validationErr.Error()))
		return
	}

	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		abort(c, newAPIError(http.StatusForbidden, err.Error()))
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrPrincipalNotFound):
		abort(c, newAPIError(http.StatusNotFound, err.Error()))
	case errors.Is(err, services.ErrCollaboratorExists),
		errors.Is(err, services.ErrEmailTaken):
		abort(c, newAPIError(http.StatusConflict, err.Error()))
	case errors.Is(err, services.ErrPasswordMismatch):
		abort(c, newAPIError(http.StatusUnauthorized, err.Error()))
	case errors.Is(err, services.ErrStorageUnavailable):
		abort(c, newAPIError(http.StatusServiceUnavailable, err.Error()))
	default:
		abort(c, newAPIError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
	}
}
