package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/puresh/internal/compiler"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Script rejected by validation or verification, or scenarios failed
	ExitCommandError = 2 // Command error (bad paths, malformed documents, store failures)
)

// Command-level error codes. Pipeline rejections report their own E1xx or
// V2xx code instead.
const (
	ErrCodeGeneric     = "C001" // Generic/unknown error
	ErrCodeNotFound    = "C002" // Path not found
	ErrCodeDecode      = "C003" // Malformed tree document
	ErrCodeConfig      = "C004" // Bad config file or flag
	ErrCodeWriteFailed = "C005" // File write error
	ErrCodeStore       = "C006" // Cache or history store error
	ErrCodePipeline    = "C007" // Purify, build, optimize or emit failure
)

// ExitError carries the exit code a command should terminate with.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// GetExitCode extracts the exit code from an error: 0 for nil, the
// carried code for an ExitError, ExitFailure for a pipeline rejection and
// ExitCommandError for anything else.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if compiler.IsRejection(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics and warnings (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "C002", "E101", "V201", ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// PipelineDetails is the CLIError detail for a stopped pipeline.
type PipelineDetails struct {
	Kind  compiler.ErrorKind `json:"kind"`
	Codes []string           `json:"codes,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", details)
	}
	return nil
}

// CommandError reports a command-level failure and returns the matching
// exit error.
func (f *OutputFormatter) CommandError(code, message string, err error) error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, msg, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), err)
}

// PipelineError reports an error from the transpiler. Rejections exit
// with ExitFailure under the first reported code; other stage failures
// exit with ExitCommandError.
func (f *OutputFormatter) PipelineError(err error) error {
	kind, codes := compiler.Classify(err)
	code := ErrCodePipeline
	if len(codes) > 0 {
		code = codes[0]
	}
	_ = f.Error(code, err.Error(), PipelineDetails{Kind: kind, Codes: codes})

	exit := ExitCommandError
	if compiler.IsRejection(err) {
		exit = ExitFailure
	}
	return WrapExitError(exit, fmt.Sprintf("%s failed", kind), err)
}

// VerboseLog outputs a message only if verbose mode is enabled. It goes
// to ErrWriter so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
