package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/PracticalParticle/secureops/internal/workflow"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Workflow refusal (unauthorized, timelock active, verify failed, ...)
	ExitCommandError = 2 // Command error (bad profile, unreachable endpoint, ...)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *RespErr  `json:"error,omitempty"`
}

// RespErr carries the error half of a Response.
type RespErr struct {
	Code    string `json:"code"` // workflow error code, or "COMMAND_ERROR"
	Message string `json:"message"`
}

// Success emits data in the configured format. In text mode data is
// printed with its String or default formatting.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail emits err in the configured format and converts it into an
// ExitError so main exits with the right code. Workflow refusals keep
// their code string; everything else is a command error.
func (f *OutputFormatter) Fail(err error) error {
	code := "COMMAND_ERROR"
	exit := ExitCommandError
	if wc := workflow.CodeOf(err); wc != "" {
		code = string(wc)
		exit = ExitFailure
	}

	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &RespErr{Code: code, Message: err.Error()},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %v\n", code, err)
	}
	return WrapExitError(exit, code, err)
}
