package response

import (
	"net/http"

	"posbackend/internal/apperr"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Code       string      `json:"code,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindInsufficientStock:      http.StatusUnprocessableEntity,
	apperr.KindInvalidStateTransition: http.StatusConflict,
	apperr.KindNotFound:               http.StatusNotFound,
	apperr.KindForbidden:              http.StatusForbidden,
	apperr.KindValidation:             http.StatusBadRequest,
	apperr.KindConflict:               http.StatusConflict,
	apperr.KindInternal:               http.StatusInternalServerError,
}

// StatusFor maps an application error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError builds an error response from a service error.
// Unclassified errors never leak their cause to the client.
func FromError(err error) (int, Response) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	resp := Error(status, apperr.Message(err))
	resp.Code = string(kind)
	return status, resp
}
