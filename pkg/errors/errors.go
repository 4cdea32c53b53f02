// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed errors for adminqa.
//
// Every failure that reaches a user surface (web page, CLI, MCP tool) carries an
// ErrorCode so the surface can decide between an inline warning and an error
// message without string matching.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies adminqa errors for rendering and monitoring.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid (empty question, bad data file).
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeUnauthorized indicates the reasoning service credential is missing.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeEmptyScope indicates the selected role can see no rows.
	CodeEmptyScope ErrorCode = "EMPTY_SCOPE"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeLLMError indicates the external reasoning service failed.
	CodeLLMError ErrorCode = "LLM_ERROR"
)

// Error is a typed error with context for logging and rendering.
// It can be unwrapped with errors.As().
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the message a user should see, without the code prefix.
func (e *Error) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Err     string                 `json:"error,omitempty"`
		Context map[string]interface{} `json:"context,omitempty"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
		Context: e.Context,
	}
	if e.Err != nil {
		out.Err = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsValidation reports whether the error is a user input problem that the
// caller can fix and retry immediately.
func (e *Error) IsValidation() bool {
	switch e.Code {
	case CodeUnauthorized, CodeInvalidInput, CodeEmptyScope:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeEmptyScope:
		return http.StatusUnprocessableEntity
	case CodeLLMError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As converts err to an *Error.
// Errors that are not typed are wrapped as internal errors.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return New(CodeInternal, "unexpected error", err)
}

// CodeOf returns the code of err, or an empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return As(err).Code
}
