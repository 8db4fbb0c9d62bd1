package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeValidationError     ErrorCode = "VALIDATION_ERROR"
	CodeUnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	CodeMalformedHeader     ErrorCode = "MALFORMED_HEADER"
	CodeCacheError          ErrorCode = "CACHE_ERROR"
	CodeInternal            ErrorCode = "INTERNAL_ERROR"
)

const (
	CtxPath     = "path"
	CtxLanguage = "language"
	CtxFunction = "function"
	CtxLine     = "line"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error carries a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
