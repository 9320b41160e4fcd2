package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	apperrors.CodeInvalidInput:        http.StatusBadRequest,
	apperrors.CodeInvalidToken:        http.StatusUnauthorized,
	apperrors.CodeLocationNotFound:    http.StatusNotFound,
	apperrors.CodeSessionNotFound:     http.StatusNotFound,
	apperrors.CodeConflict:            http.StatusConflict,
	apperrors.CodeWeatherUnavailable:  http.StatusBadGateway,
	apperrors.CodeTransportFailure:    http.StatusBadGateway,
	apperrors.CodeGenerationFailed:    http.StatusBadGateway,
	apperrors.CodeVisualizationFailed: http.StatusBadGateway,
	apperrors.CodeConfiguration:       http.StatusServiceUnavailable,
	apperrors.CodeSessionStore:        http.StatusInternalServerError,
}

// fromDomainError maps an AppError code to its HTTP status, keeping the code
// and user facing message.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
