// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jllopis/adminqa/pkg/errors"
	"github.com/jllopis/adminqa/pkg/query"
)

// CLIError wraps a typed error with a hint for the operator.
type CLIError struct {
	Err  *errors.Error
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(e *errors.Error, hint string) *CLIError {
	return &CLIError{Err: e, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	msg := e.Err.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

func (e *CLIError) Unwrap() error { return e.Err }

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	e := errors.New(errors.CodeInvalidInput, reason, nil).WithContext("argument", arg)
	return NewCLIError(e, "run 'adminqa help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	e := errors.New(errors.CodeInvalidInput, "configuration error", err)
	hint := "check your configuration values and ADMINQA_ environment variables"
	if configPath != "" {
		e = e.WithContext("config_path", configPath)
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(e, hint)
}

// hintFor returns the operator hint for a typed error.
func hintFor(e *errors.Error) string {
	switch e.Code {
	case errors.CodeNotFound:
		return "make sure the data file exists or set data.path"
	case errors.CodeLLMError:
		return query.MsgAgentHint
	case errors.CodeInvalidInput:
		if _, ok := e.Context["path"]; ok {
			return "the data file needs grade, region and name columns with integer grades"
		}
	}
	return ""
}

// printError writes err for the operator, as JSON when asJSON is set.
func printError(w io.Writer, err error, asJSON bool) {
	var cliErr *CLIError
	if !stderrors.As(err, &cliErr) || cliErr.Err == nil {
		typed := errors.As(err)
		cliErr = NewCLIError(typed, hintFor(typed))
	}
	if asJSON {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    cliErr.Err.Code,
				"message": cliErr.Err.Detail(),
				"hint":    cliErr.Hint,
			},
		})
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", cliErr.Err.Code, cliErr.Err.Detail())
	if cliErr.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", cliErr.Hint)
	}
}
