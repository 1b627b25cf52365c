// Package tools wraps the external programs used to extract and inject
// HDR metadata: dovi_tool, hdr10plus_tool, mkvmerge and ffmpeg.
package tools

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// DefaultTimeout bounds a tool call when the Invocation sets none.
const DefaultTimeout = 300 * time.Second

// waitDelay is how long Run waits for the output pipes to close after the
// process has been killed.
const waitDelay = 5 * time.Second

// Invocation describes one external tool call.
type Invocation struct {
	// Name is the tool name used in errors, logs and metrics.
	Name    string
	Path    string
	Args    []string
	Timeout time.Duration
	// ExpectOutput, when set, must exist after a successful run.
	ExpectOutput string
}

// Output is the captured result of a successful call.
type Output struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes tool invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// Observer receives one observation per finished invocation. outcome is
// "ok" or the tool error kind.
type Observer interface {
	ObserveTool(tool, outcome string, elapsed time.Duration)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	observer Observer
}

// NewExecRunner creates an ExecRunner. observer may be nil.
func NewExecRunner(observer Observer) *ExecRunner {
	return &ExecRunner{observer: observer}
}

// Run executes inv, enforcing its timeout and output expectation.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Output, error) {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Debug("running tool", "tool", inv.Name, "cmd", inv.Path+" "+strings.Join(inv.Args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}

	var err error
	switch {
	case runErr != nil:
		err = hkerrors.WrapExecError(inv.Name, runErr, ctx.Err(), out.Stdout, out.Stderr)
	case inv.ExpectOutput != "" && !util.FileExists(inv.ExpectOutput):
		err = hkerrors.NewMissingOutputError(inv.Name, inv.ExpectOutput)
	}

	r.observe(inv.Name, err, out.Duration)
	if err != nil {
		return out, err
	}
	return out, nil
}

func (r *ExecRunner) observe(tool string, err error, elapsed time.Duration) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveTool(tool, Outcome(err), elapsed)
}

// Outcome classifies err into a short label for metrics and the journal.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if hkerrors.IsCancelled(err) {
		return "cancelled"
	}
	kind, ok := hkerrors.ToolKind(err)
	if !ok {
		return "error"
	}
	return strings.ReplaceAll(kind.String(), " ", "_")
}

// probe runs path with helpArg and reports whether the call succeeded and
// stdout contains every expected string. Failures are logged, never
// returned.
func probe(ctx context.Context, r Runner, name, path, helpArg string, timeout time.Duration, expected ...string) bool {
	out, err := r.Run(ctx, Invocation{Name: name, Path: path, Args: []string{helpArg}, Timeout: timeout})
	if err != nil {
		logging.Debug("tool availability check failed", "tool", name, "path", path, "error", err)
		return false
	}
	for _, want := range expected {
		if !strings.Contains(out.Stdout, want) {
			logging.Debug("tool is missing an expected subcommand", "tool", name, "path", path, "expected", want)
			return false
		}
	}
	return true
}

// probeTimeout bounds availability checks.
const probeTimeout = 15 * time.Second

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
