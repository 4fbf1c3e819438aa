// Package apperr implements a uniform machine-code error shape for every REST failure,
// and a single Gin responder that maps error codes to HTTP statuses.
package apperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Code is one of the machine-readable REST error codes.
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeNotAuthenticated     Code = "NOT_AUTHENTICATED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeClipNotFound         Code = "CLIP_NOT_FOUND"
	CodeClipNotInQueue       Code = "CLIP_NOT_IN_QUEUE"
	CodeClipNotInHistory     Code = "CLIP_NOT_IN_HISTORY"
	CodePendingClipNotFound  Code = "PENDING_CLIP_NOT_FOUND"
	CodeRejectedClipNotFound Code = "REJECTED_CLIP_NOT_FOUND"
	CodeClipNotRejected      Code = "CLIP_NOT_REJECTED"
	CodeInvalidSettings      Code = "INVALID_SETTINGS"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeDomainNotAllowed     Code = "DOMAIN_NOT_ALLOWED"
	CodeInternal             Code = "INTERNAL_SERVER_ERROR"
)

var statusByCode = map[Code]int{
	CodeInvalidInput:         http.StatusBadRequest,
	CodeNotAuthenticated:     http.StatusUnauthorized,
	CodeForbidden:            http.StatusForbidden,
	CodeClipNotFound:         http.StatusNotFound,
	CodeClipNotInQueue:       http.StatusNotFound,
	CodeClipNotInHistory:     http.StatusNotFound,
	CodePendingClipNotFound:  http.StatusNotFound,
	CodeRejectedClipNotFound: http.StatusNotFound,
	CodeClipNotRejected:      http.StatusConflict,
	CodeInvalidSettings:      http.StatusBadRequest,
	CodeRateLimited:          http.StatusTooManyRequests,
	CodeDomainNotAllowed:     http.StatusBadRequest,
	CodeInternal:             http.StatusInternalServerError,
}

// FieldIssue is one entry of a validation failure's `details` array.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the uniform application error carried from service/command code up to the
// REST responder. It never leaks a stack trace.
type Error struct {
	Code    Code         `json:"code"`
	Message string       `json:"message"`
	Details []FieldIssue `json:"details,omitempty"`
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails attaches field-level validation issues.
func (e *Error) WithDetails(details ...FieldIssue) *Error {
	e.Details = details
	return e
}

// Invalid is a convenience constructor for INVALID_INPUT with field details.
func Invalid(message string, details ...FieldIssue) *Error {
	return New(CodeInvalidInput, message).WithDetails(details...)
}

func (e *Error) httpStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Respond writes the uniform error envelope: {success:false, error:{code, message, details}}.
// It never leaks stack traces; internal errors are logged by the recovery/error middleware
// before this is called, not re-surfaced to the client.
func Respond(c *gin.Context, err error) {
	appErr, ok := err.(*Error)
	if !ok {
		appErr = New(CodeInternal, "internal server error")
	}
	c.JSON(appErr.httpStatus(), gin.H{
		"success": false,
		"error":   appErr,
	})
}

// Success writes {success:true, state: ...} for a mutation.
func Success(c *gin.Context, state interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
	})
}
