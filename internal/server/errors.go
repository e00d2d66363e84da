package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrNotFound = apperr.New(apperr.ErrNotFound, "route_not_found", "route not found")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(last.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for ErrorHandlingMiddleware and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		c.Abort()
	}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

type kindMapping struct {
	status  int
	errType string
}

var kindMappings = map[error]kindMapping{
	apperr.ErrValidation:   {http.StatusBadRequest, "validation_error"},
	apperr.ErrNotFound:     {http.StatusNotFound, "not_found"},
	apperr.ErrConflict:     {http.StatusConflict, "conflict"},
	apperr.ErrInvalidState: {http.StatusUnprocessableEntity, "invalid_state"},
	apperr.ErrStorage:      {http.StatusServiceUnavailable, "storage_failure"},
}

var internalError = errorPayload{
	Type:    "internal_error",
	Code:    "internal_error",
	Message: "internal server error",
}

// mapError turns the error taxonomy into a status and a payload a terminal can
// show as is.
func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil && len(vErr.Errors) > 0 {
		first := vErr.Errors[0]
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    first.Code,
			Message: first.Message,
			Errors:  vErr.Errors,
		}
	}

	mapping, ok := kindMappings[apperr.KindOf(err)]
	if !ok {
		return http.StatusInternalServerError, internalError
	}
	code, message := apperr.Describe(err)
	return mapping.status, errorPayload{Type: mapping.errType, Code: code, Message: message}
}

// classifyErrorForLog feeds the request logger the same type and code the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}
