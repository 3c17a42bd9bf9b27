package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess            Code = 0
	CodeInternal           Code = 1
	CodeUsage              Code = 2
	CodeConfig             Code = 3
	CodeInvalidAmount      Code = 10
	CodeUnknownToken       Code = 11
	CodeNetworkUnavailable Code = 12
	CodeHTTP               Code = 13
	CodeMalformedResponse  Code = 14
	CodeSignerUnavailable  Code = 15
	CodePollTimeout        Code = 16
	CodeBlocked            Code = 17
)

// HTTPCause classifies a non-2xx pricing service response.
type HTTPCause string

const (
	CauseNone                 HTTPCause = ""
	CauseBadRequest           HTTPCause = "bad_request"
	CauseUnauthorized         HTTPCause = "unauthorized"
	CauseNotFound             HTTPCause = "not_found"
	CauseRateLimited          HTTPCause = "rate_limited"
	CauseServiceInternalError HTTPCause = "service_internal_error"
	CauseUnknownHTTP          HTTPCause = "unknown_http"
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPCause derives the response classification from the recorded status.
func (e *Error) HTTPCause() HTTPCause {
	if e == nil || e.Code != CodeHTTP {
		return CauseNone
	}
	return ClassifyStatus(e.HTTPStatus)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// HTTP builds a CodeHTTP error for the given response status.
func HTTP(status int, message string) *Error {
	return &Error{Code: CodeHTTP, Message: message, HTTPStatus: status}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of a typed error, CodeInternal for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// HTTPCauseOf returns the HTTP classification of err, or CauseNone.
func HTTPCauseOf(err error) HTTPCause {
	if e, ok := As(err); ok {
		return e.HTTPCause()
	}
	return CauseNone
}

func ClassifyStatus(status int) HTTPCause {
	switch status {
	case http.StatusBadRequest:
		return CauseBadRequest
	case http.StatusUnauthorized:
		return CauseUnauthorized
	case http.StatusNotFound:
		return CauseNotFound
	case http.StatusTooManyRequests:
		return CauseRateLimited
	case http.StatusInternalServerError:
		return CauseServiceInternalError
	default:
		return CauseUnknownHTTP
	}
}

// StatusMessage is the generic text used when the service body carries no message.
func StatusMessage(status int) string {
	switch ClassifyStatus(status) {
	case CauseBadRequest:
		return "bad request to pricing service (400), please check parameters"
	case CauseUnauthorized:
		return "unauthorized (401), invalid or missing API key"
	case CauseNotFound:
		return "endpoint or resource not found (404)"
	case CauseRateLimited:
		return "rate limited (429), please retry later"
	case CauseServiceInternalError:
		return "pricing service internal error (500), try again later"
	default:
		return fmt.Sprintf("HTTP error %d", status)
	}
}

func ExitCode(err error) int {
	return int(CodeOf(err))
}
