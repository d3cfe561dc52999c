package errors

import (
	"errors"
	"net/http"
)

// Conflict codes carried by ErrorWithStatusCode.Code
const (
	CodeAlreadyMember           = "already_member"
	CodeDuplicateVote           = "duplicate_vote"
	CodeAlreadyResolved         = "already_resolved"
	CodeCodeGenerationExhausted = "code_generation_exhausted"
	CodeJoinCodeTaken           = "join_code_taken"
	CodeInvalidOption           = "invalid_option"
	CodeTransient               = "transient"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Code       string
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func Validation(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusBadRequest}
}

func InvalidOption(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusBadRequest, Code: CodeInvalidOption}
}

func NotFound(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusNotFound}
}

func Forbidden(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusForbidden}
}

func Conflict(code, message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusConflict, Code: code}
}

// Transient marks store connectivity/availability failures. Safe to retry.
func Transient(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusServiceUnavailable, Code: CodeTransient}
}

func statusOf(err error) (*ErrorWithStatusCode, bool) {
	var e *ErrorWithStatusCode
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	e, ok := statusOf(err)
	return ok && e.StatusCode == http.StatusNotFound
}

func IsValidation(err error) bool {
	e, ok := statusOf(err)
	return ok && e.StatusCode == http.StatusBadRequest
}

func IsTransient(err error) bool {
	return HasCode(err, CodeTransient)
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	e, ok := statusOf(err)
	return ok && e.Code == code
}
