package main

import (
	"errors"
	"fmt"
)

const (
	// ExitSuccess means every selected test passed.
	ExitSuccess = 0
	// ExitFailure means at least one test failed.
	ExitFailure = 1
	// ExitCommandError means the run could not start: bad flags, bad configuration, or a
	// proxy that never became healthy.
	ExitCommandError = 2
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps an error returned by a command to a process exit code. Errors that are
// not an ExitError come from cobra itself (unknown flags, wrong argument counts).
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
