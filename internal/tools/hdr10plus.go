package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
)

const hdr10PlusToolName = "hdr10plus_tool"

// HDR10PlusTool wraps hdr10plus_tool.
type HDR10PlusTool struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewHDR10PlusTool creates an HDR10PlusTool. An empty path means
// "hdr10plus_tool" from PATH.
func NewHDR10PlusTool(runner Runner, path string, timeout time.Duration) *HDR10PlusTool {
	if path == "" {
		path = hdr10PlusToolName
	}
	return &HDR10PlusTool{runner: runner, path: path, timeout: timeout}
}

// Available reports whether the binary runs and offers extract.
func (h *HDR10PlusTool) Available(ctx context.Context) bool {
	return probe(ctx, h.runner, hdr10PlusToolName, h.path, "--help", probeTimeout, "extract")
}

// Version returns the first line of --version output.
func (h *HDR10PlusTool) Version(ctx context.Context) (string, error) {
	out, err := h.runner.Run(ctx, Invocation{Name: hdr10PlusToolName, Path: h.path, Args: []string{"--version"}, Timeout: probeTimeout})
	if err != nil {
		return "", err
	}
	return firstLine(out.Stdout), nil
}

// Extract writes the dynamic metadata of input to jsonOut. When the source
// has no HDR10+ metadata the tool exits 1 without a message; that case is
// returned as a ToolNoDynamicMetadata error.
func (h *HDR10PlusTool) Extract(ctx context.Context, input, jsonOut string) error {
	logging.Info("extracting HDR10+ metadata", "input", input, "output", jsonOut)
	_, err := h.runner.Run(ctx, Invocation{
		Name:         hdr10PlusToolName,
		Path:         h.path,
		Args:         []string{"extract", input, "-o", jsonOut},
		Timeout:      h.timeout,
		ExpectOutput: jsonOut,
	})
	if isNoMetadataExit(err) {
		return hkerrors.NewNoDynamicMetadataError(hdr10PlusToolName)
	}
	return err
}

func isNoMetadataExit(err error) bool {
	var toolErr *hkerrors.ToolError
	if !errors.As(err, &toolErr) {
		return false
	}
	return toolErr.Kind == hkerrors.ToolFailed && toolErr.ExitCode == 1 && strings.TrimSpace(toolErr.Stderr) == ""
}

// Inject writes input with the metadata of jsonPath to out.
func (h *HDR10PlusTool) Inject(ctx context.Context, input, jsonPath, out string) error {
	logging.Info("injecting HDR10+ metadata", "input", input, "json", jsonPath, "output", out)
	_, err := h.runner.Run(ctx, Invocation{
		Name:         hdr10PlusToolName,
		Path:         h.path,
		Args:         []string{"inject", "-i", input, "-j", jsonPath, "-o", out},
		Timeout:      h.timeout,
		ExpectOutput: out,
	})
	return err
}

// Remove writes input without HDR10+ metadata to out.
func (h *HDR10PlusTool) Remove(ctx context.Context, input, out string) error {
	logging.Info("removing HDR10+ metadata", "input", input, "output", out)
	_, err := h.runner.Run(ctx, Invocation{
		Name:         hdr10PlusToolName,
		Path:         h.path,
		Args:         []string{"remove", "-i", input, "-o", out},
		Timeout:      h.timeout,
		ExpectOutput: out,
	})
	return err
}

// Plot renders the brightness curve of jsonPath to image.
func (h *HDR10PlusTool) Plot(ctx context.Context, jsonPath, image string) error {
	logging.Debug("plotting HDR10+ metadata", "json", jsonPath, "output", image)
	_, err := h.runner.Run(ctx, Invocation{
		Name:         hdr10PlusToolName,
		Path:         h.path,
		Args:         []string{"plot", jsonPath, "-o", image},
		Timeout:      h.timeout,
		ExpectOutput: image,
	})
	return err
}
