package errors

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindParse, "Parse error"},
		{KindValidation, "Validation error"},
		{KindTool, "Tool error"},
		{KindIO, "I/O error"},
		{KindPath, "Path error"},
		{KindConfig, "Configuration error"},
		{KindNoFilesFound, "No files found"},
		{KindCancelled, "Operation cancelled"},
		{ErrorKind(99), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCoreErrorError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &CoreError{
		Kind:       KindIO,
		Message:    "test message",
		Underlying: underlying,
	}

	got := err.Error()
	expected := "I/O error: test message: underlying error"
	if got != expected {
		t.Errorf("CoreError.Error() = %v, want %v", got, expected)
	}

	err2 := &CoreError{
		Kind:    KindValidation,
		Message: "max_fall exceeds max_cll",
	}

	got2 := err2.Error()
	expected2 := "Validation error: max_fall exceeds max_cll"
	if got2 != expected2 {
		t.Errorf("CoreError.Error() = %v, want %v", got2, expected2)
	}
}

func TestCoreErrorUnwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &CoreError{
		Kind:       KindIO,
		Message:    "test",
		Underlying: underlying,
	}

	if err.Unwrap() != underlying {
		t.Error("Unwrap() should return underlying error")
	}
}

func TestCoreErrorIs(t *testing.T) {
	err1 := &CoreError{Kind: KindParse, Message: "test1"}
	err2 := &CoreError{Kind: KindParse, Message: "test2"}
	err3 := &CoreError{Kind: KindConfig, Message: "test3"}

	if !err1.Is(err2) {
		t.Error("Same kind errors should match")
	}

	if err1.Is(err3) {
		t.Error("Different kind errors should not match")
	}

	wrapped := fmt.Errorf("analysis: %w", err1)
	if !errors.Is(wrapped, &CoreError{Kind: KindParse}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestToolError(t *testing.T) {
	tests := []struct {
		name string
		err  *ToolError
		want string
	}{
		{
			name: "start",
			err:  &ToolError{Tool: "dovi_tool", Kind: ToolStart, Underlying: errors.New("permission denied")},
			want: "failed to execute dovi_tool: permission denied",
		},
		{
			name: "timeout",
			err:  &ToolError{Tool: "hdr10plus_tool", Kind: ToolTimeout, Underlying: context.DeadlineExceeded},
			want: "hdr10plus_tool timed out: context deadline exceeded",
		},
		{
			name: "failed with stderr",
			err:  &ToolError{Tool: "mkvmerge", Kind: ToolFailed, ExitCode: 2, Stderr: "bad track"},
			want: "mkvmerge failed with exit code 2: bad track",
		},
		{
			name: "failed without stderr",
			err:  &ToolError{Tool: "mkvmerge", Kind: ToolFailed, ExitCode: 2},
			want: "mkvmerge failed with exit code 2",
		},
		{
			name: "no dynamic metadata",
			err:  &ToolError{Tool: "hdr10plus_tool", Kind: ToolNoDynamicMetadata, ExitCode: 1},
			want: "hdr10plus_tool found no dynamic metadata",
		},
		{
			name: "missing output",
			err:  &ToolError{Tool: "dovi_tool", Kind: ToolMissingOutput, Output: "/tmp/x.bin"},
			want: "dovi_tool did not create /tmp/x.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolKindHelpers(t *testing.T) {
	noMeta := NewNoDynamicMetadataError("hdr10plus_tool")
	if !IsKind(noMeta, KindTool) {
		t.Error("no-metadata error should be a tool error")
	}
	if !IsNoDynamicMetadata(noMeta) {
		t.Error("IsNoDynamicMetadata should be true")
	}
	if IsToolTimeout(noMeta) {
		t.Error("IsToolTimeout should be false")
	}

	failed := NewToolFailedError("dovi_tool", 3, "boom")
	if IsNoDynamicMetadata(failed) {
		t.Error("failed tool error must not look like no-metadata")
	}
	kind, ok := ToolKind(fmt.Errorf("wrap: %w", failed))
	if !ok || kind != ToolFailed {
		t.Errorf("ToolKind() = %v, %v; want ToolFailed, true", kind, ok)
	}

	if _, ok := ToolKind(errors.New("plain")); ok {
		t.Error("ToolKind should not match plain errors")
	}
}

func TestWrapExecError(t *testing.T) {
	t.Run("deadline", func(t *testing.T) {
		err := WrapExecError("dovi_tool", errors.New("signal: killed"), context.DeadlineExceeded, "", "")
		if !IsToolTimeout(err) {
			t.Errorf("expected timeout, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		err := WrapExecError("dovi_tool", errors.New("signal: killed"), context.Canceled, "", "")
		if !IsCancelled(err) {
			t.Errorf("expected cancellation, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		execErr := &exec.Error{Name: "dovi_tool", Err: exec.ErrNotFound}
		err := WrapExecError("dovi_tool", execErr, nil, "", "")
		kind, ok := ToolKind(err)
		if !ok || kind != ToolNotFound {
			t.Errorf("ToolKind() = %v, %v; want ToolNotFound", kind, ok)
		}
	})

	t.Run("start", func(t *testing.T) {
		err := WrapExecError("dovi_tool", errors.New("fork failed"), nil, "", "")
		kind, _ := ToolKind(err)
		if kind != ToolStart {
			t.Errorf("ToolKind() = %v, want ToolStart", kind)
		}
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		kind ErrorKind
	}{
		{"NewParseError", NewParseError("bad json", errors.New("eof")), KindParse},
		{"NewValidationError", NewValidationError("bad range"), KindValidation},
		{"NewValidationErrorf", NewValidationErrorf("max_cll %d", 20000), KindValidation},
		{"NewIOError", NewIOError("disk full", errors.New("no space")), KindIO},
		{"NewPathError", NewPathError("invalid path"), KindPath},
		{"NewConfigError", NewConfigError("bad profile"), KindConfig},
		{"NewNoFilesFoundError", NewNoFilesFoundError("/test/dir"), KindNoFilesFound},
		{"NewCancelledError", NewCancelledError(), KindCancelled},
		{"NewToolFailedError", NewToolFailedError("mkvmerge", 2, ""), KindTool},
		{"NewMissingOutputError", NewMissingOutputError("dovi_tool", "/x"), KindTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Expected %v, got %v", tt.kind, tt.err.Kind)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := NewConfigError("test")

	if !IsKind(err, KindConfig) {
		t.Error("IsKind should return true for matching kind")
	}

	if IsKind(err, KindIO) {
		t.Error("IsKind should return false for non-matching kind")
	}

	if IsKind(errors.New("plain error"), KindConfig) {
		t.Error("IsKind should return false for non-CoreError")
	}
}

func TestIsNoFilesFound(t *testing.T) {
	if !IsNoFilesFound(NewNoFilesFoundError("/test")) {
		t.Error("IsNoFilesFound should return true for no-files-found error")
	}
	if IsNoFilesFound(NewConfigError("test")) {
		t.Error("IsNoFilesFound should return false for other errors")
	}
}
