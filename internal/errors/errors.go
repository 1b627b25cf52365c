// Package errors provides structured error types for hdrkit operations.
package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindParse represents malformed probe output, metadata JSON or
	// mastering-display strings.
	KindParse ErrorKind = iota
	// KindValidation represents out-of-range metadata values.
	KindValidation
	// KindTool represents external tool failures.
	KindTool
	// KindIO represents I/O errors.
	KindIO
	// KindPath represents path-related errors.
	KindPath
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindNoFilesFound represents no suitable video files found.
	KindNoFilesFound
	// KindCancelled represents user-cancelled operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "Parse error"
	case KindValidation:
		return "Validation error"
	case KindTool:
		return "Tool error"
	case KindIO:
		return "I/O error"
	case KindPath:
		return "Path error"
	case KindConfig:
		return "Configuration error"
	case KindNoFilesFound:
		return "No files found"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// ToolErrorKind distinguishes the ways an external tool invocation can fail.
type ToolErrorKind int

const (
	// ToolNotFound means the executable could not be located.
	ToolNotFound ToolErrorKind = iota
	// ToolStart means the process failed to start.
	ToolStart
	// ToolTimeout means the invocation exceeded its deadline.
	ToolTimeout
	// ToolFailed means the process exited with a non-zero status.
	ToolFailed
	// ToolNoDynamicMetadata is the benign "source carries no dynamic
	// metadata" outcome of an HDR10+ extraction.
	ToolNoDynamicMetadata
	// ToolMissingOutput means the process succeeded but its output file
	// is missing.
	ToolMissingOutput
)

func (k ToolErrorKind) String() string {
	switch k {
	case ToolNotFound:
		return "not found"
	case ToolStart:
		return "start failed"
	case ToolTimeout:
		return "timed out"
	case ToolFailed:
		return "failed"
	case ToolNoDynamicMetadata:
		return "no dynamic metadata"
	case ToolMissingOutput:
		return "missing output"
	default:
		return "unknown"
	}
}

// ToolError represents an error from executing an external tool.
type ToolError struct {
	Tool       string
	Kind       ToolErrorKind
	ExitCode   int
	Stdout     string
	Stderr     string
	Output     string
	Underlying error
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case ToolNotFound:
		return fmt.Sprintf("%s not found: %v", e.Tool, e.Underlying)
	case ToolStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Tool, e.Underlying)
	case ToolTimeout:
		return fmt.Sprintf("%s timed out: %v", e.Tool, e.Underlying)
	case ToolFailed:
		if e.Stderr != "" {
			return fmt.Sprintf("%s failed with exit code %d: %s", e.Tool, e.ExitCode, e.Stderr)
		}
		return fmt.Sprintf("%s failed with exit code %d", e.Tool, e.ExitCode)
	case ToolNoDynamicMetadata:
		return fmt.Sprintf("%s found no dynamic metadata", e.Tool)
	case ToolMissingOutput:
		return fmt.Sprintf("%s did not create %s", e.Tool, e.Output)
	default:
		return fmt.Sprintf("%s error: %v", e.Tool, e.Underlying)
	}
}

func (e *ToolError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for hdrkit operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewParseError creates a new parse error.
func NewParseError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindParse, Message: message, Underlying: underlying}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) *CoreError {
	return &CoreError{Kind: KindValidation, Message: message}
}

// NewValidationErrorf creates a new validation error with a formatted message.
func NewValidationErrorf(format string, args ...any) *CoreError {
	return &CoreError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewPathError creates a new path-related error.
func NewPathError(message string) *CoreError {
	return &CoreError{Kind: KindPath, Message: message}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewNoFilesFoundError creates an error for when no video files are found.
func NewNoFilesFoundError(dir string) *CoreError {
	return &CoreError{Kind: KindNoFilesFound, Message: fmt.Sprintf("no suitable video files found in %s", dir)}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// NewToolError wraps a ToolError into a CoreError.
func NewToolError(toolErr *ToolError) *CoreError {
	return &CoreError{Kind: KindTool, Message: toolErr.Error(), Underlying: toolErr}
}

// NewToolFailedError creates an error for a tool that returned a non-zero
// exit status.
func NewToolFailedError(tool string, exitCode int, stderr string) *CoreError {
	return NewToolError(&ToolError{Tool: tool, Kind: ToolFailed, ExitCode: exitCode, Stderr: stderr})
}

// NewNoDynamicMetadataError creates the benign no-dynamic-metadata error.
func NewNoDynamicMetadataError(tool string) *CoreError {
	return NewToolError(&ToolError{Tool: tool, Kind: ToolNoDynamicMetadata, ExitCode: 1})
}

// NewMissingOutputError creates an error for a tool that exited cleanly
// without producing its output file.
func NewMissingOutputError(tool, output string) *CoreError {
	return NewToolError(&ToolError{Tool: tool, Kind: ToolMissingOutput, Output: output})
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// ToolKind returns the tool error kind carried by err, if any.
func ToolKind(err error) (ToolErrorKind, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Kind, true
	}
	return 0, false
}

// IsNoDynamicMetadata checks if the error is the benign no-metadata outcome.
func IsNoDynamicMetadata(err error) bool {
	kind, ok := ToolKind(err)
	return ok && kind == ToolNoDynamicMetadata
}

// IsToolTimeout checks if the error is a tool timeout.
func IsToolTimeout(err error) bool {
	kind, ok := ToolKind(err)
	return ok && kind == ToolTimeout
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsNoFilesFound checks if the error is a no-files-found error.
func IsNoFilesFound(err error) bool {
	return IsKind(err, KindNoFilesFound)
}

// WrapExecError converts an error returned by exec.Cmd.Run into a tool error.
// ctxErr is the invocation context's error, used to tell timeouts apart from
// ordinary failures.
func WrapExecError(tool string, err error, ctxErr error, stdout, stderr string) *CoreError {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return NewToolError(&ToolError{Tool: tool, Kind: ToolTimeout, Stdout: stdout, Stderr: stderr, Underlying: ctxErr})
	}
	if errors.Is(ctxErr, context.Canceled) {
		return &CoreError{Kind: KindCancelled, Message: fmt.Sprintf("%s cancelled", tool), Underlying: ctxErr}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewToolError(&ToolError{
			Tool:       tool,
			Kind:       ToolFailed,
			ExitCode:   exitErr.ExitCode(),
			Stdout:     stdout,
			Stderr:     stderr,
			Underlying: err,
		})
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return NewToolError(&ToolError{Tool: tool, Kind: ToolNotFound, Underlying: err})
	}
	return NewToolError(&ToolError{Tool: tool, Kind: ToolStart, Underlying: err})
}
