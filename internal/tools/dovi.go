package tools

import (
	"context"
	"time"

	"github.com/five82/hdrkit/internal/logging"
)

const doviToolName = "dovi_tool"

// DoviTool wraps dovi_tool.
type DoviTool struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewDoviTool creates a DoviTool. An empty path means "dovi_tool" from PATH.
func NewDoviTool(runner Runner, path string, timeout time.Duration) *DoviTool {
	if path == "" {
		path = doviToolName
	}
	return &DoviTool{runner: runner, path: path, timeout: timeout}
}

// Available reports whether the binary runs and supports both RPU
// subcommands.
func (d *DoviTool) Available(ctx context.Context) bool {
	return probe(ctx, d.runner, doviToolName, d.path, "--help", probeTimeout, "extract-rpu", "inject-rpu")
}

// Version returns the first line of --version output.
func (d *DoviTool) Version(ctx context.Context) (string, error) {
	out, err := d.runner.Run(ctx, Invocation{Name: doviToolName, Path: d.path, Args: []string{"--version"}, Timeout: probeTimeout})
	if err != nil {
		return "", err
	}
	return firstLine(out.Stdout), nil
}

// ExtractRPU writes the RPU of input to rpuOut.
func (d *DoviTool) ExtractRPU(ctx context.Context, input, rpuOut string) error {
	logging.Info("extracting Dolby Vision RPU", "input", input, "output", rpuOut)
	_, err := d.runner.Run(ctx, Invocation{
		Name:         doviToolName,
		Path:         d.path,
		Args:         []string{"extract-rpu", input, "-o", rpuOut},
		Timeout:      d.timeout,
		ExpectOutput: rpuOut,
	})
	return err
}

// InjectRPU merges rpu into the Annex-B stream hevcIn, writing out.
func (d *DoviTool) InjectRPU(ctx context.Context, hevcIn, rpu, out string) error {
	logging.Info("injecting Dolby Vision RPU", "input", hevcIn, "rpu", rpu, "output", out)
	_, err := d.runner.Run(ctx, Invocation{
		Name:         doviToolName,
		Path:         d.path,
		Args:         []string{"inject-rpu", "-i", hevcIn, "--rpu-in", rpu, "-o", out},
		Timeout:      d.timeout,
		ExpectOutput: out,
	})
	return err
}

// Convert rewrites the Dolby Vision profile of input. Conversion reads the
// whole stream, so it gets twice the normal timeout.
func (d *DoviTool) Convert(ctx context.Context, input, out, targetProfile string) error {
	logging.Info("converting Dolby Vision profile", "input", input, "output", out, "target", targetProfile)
	_, err := d.runner.Run(ctx, Invocation{
		Name:         doviToolName,
		Path:         d.path,
		Args:         []string{"convert", input, "-o", out, "--profile", targetProfile},
		Timeout:      2 * d.timeout,
		ExpectOutput: out,
	})
	return err
}
