package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/hdrkit/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal. Events
// from concurrent files are serialized; the progress bar follows whichever
// encode started last.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	progress   *progressbar.ProgressBar
	maxPercent float32
	lastStage  string
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	greenBold  *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	faint      *color.Color
}

// NewTerminalReporter creates a new terminal reporter writing to stdout.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriter(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriter creates a terminal reporter with custom
// writers. The progress bar is only drawn on errOut.
func NewTerminalReporterWithWriter(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:       out,
		errOut:    errOut,
		verbose:   verbose,
		cyan:      color.New(color.FgCyan, color.Bold),
		green:     color.New(color.FgGreen),
		greenBold: color.New(color.FgGreen, color.Bold),
		yellow:    color.New(color.FgYellow, color.Bold),
		red:       color.New(color.FgRed, color.Bold),
		magenta:   color.New(color.FgMagenta),
		bold:      color.New(color.Bold),
		faint:     color.New(color.Faint),
	}
}

// finishProgress must be called with r.mu held.
func (r *TerminalReporter) finishProgress() {
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

func (r *TerminalReporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *TerminalReporter) heading(title string) {
	r.printf("\n")
	_, _ = r.cyan.Fprintln(r.out, title)
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	r.printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) yesNo(ok bool) string {
	if ok {
		return r.green.Sprint("yes")
	}
	return r.faint.Sprint("no")
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "Cores:", fmt.Sprintf("%d", summary.Cores))
	if len(summary.Tools) == 0 {
		return
	}

	var parts []string
	for _, t := range summary.Tools {
		mark := r.green.Sprint("✓")
		if !t.Available {
			mark = r.red.Sprint("✗")
		}
		parts = append(parts, t.Name+" "+mark)
	}
	r.printLabel(10, "Tools:", strings.Join(parts, "  "))
}

func (r *TerminalReporter) Initialization(summary InitializationSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("VIDEO")
	r.printLabel(10, "File:", summary.InputFile)
	r.printLabel(10, "Output:", summary.OutputFile)
	r.printLabel(10, "Duration:", summary.Duration)
	r.printLabel(10, "Resolution:", summary.Resolution)
	r.printLabel(10, "Dynamic:", summary.DynamicRange)
	if summary.AudioStreams > 0 {
		r.printLabel(10, "Audio:", fmt.Sprintf("%d streams (copied)", summary.AudioStreams))
	}
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastStage != update.Stage {
		r.heading(strings.ToUpper(update.Stage))
		r.lastStage = update.Stage
	}
	r.printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) AnalysisComplete(summary AnalysisSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("ANALYSIS")
	const w = 14
	r.printLabel(w, "Approach:", r.bold.Sprint(summary.Approach))
	r.printLabel(w, "HDR format:", fmt.Sprintf("%s (confidence %.2f)", summary.HDRFormat, summary.Confidence))
	if summary.DolbyVision != "" {
		dv := "Profile " + summary.DolbyVision
		if summary.TargetProfile != "" && summary.TargetProfile != summary.DolbyVision {
			dv += " -> " + summary.TargetProfile
		}
		r.printLabel(w, "Dolby Vision:", dv)
	}
	r.printLabel(w, "HDR10+:", r.yesNo(summary.HDR10Plus))
	r.printLabel(w, "Adjustments:", fmt.Sprintf("CRF %+.1f, bitrate x%.2f, VBV %s",
		summary.CRFAdjustment, summary.BitrateMultiplier, r.yesNo(summary.RequiresVBV)))
}

func (r *TerminalReporter) EncodingConfig(summary EncodingConfigSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("ENCODING")
	const w = 13
	r.printLabel(w, "Encoder:", summary.Encoder)
	r.printLabel(w, "Preset:", summary.Preset)
	r.printLabel(w, "Quality:", summary.Quality)
	r.printLabel(w, "Pixel format:", summary.PixelFormat)
	if summary.X265Params != "" && r.verbose {
		r.printLabel(w, "x265 params:", summary.X265Params)
	}
}

func (r *TerminalReporter) EncodingStarted(totalFrames uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishProgress()
	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Encoding [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) EncodingProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := min(max(progress.Percent, 0), 100)
	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	desc := fmt.Sprintf("speed %.1fx, fps %.1f, eta %s",
		progress.Speed, progress.FPS, util.FormatDuration(progress.ETA.Seconds()))
	r.progress.Describe(desc)
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishProgress()
	r.heading("VALIDATION")

	if summary.Passed {
		r.printf("  %s\n", r.greenBold.Sprint("All checks passed"))
	} else {
		r.printf("  %s\n", r.red.Sprint("Validation failed"))
	}

	maxLen := 0
	for _, step := range summary.Steps {
		maxLen = max(maxLen, len(step.Name))
	}

	for _, step := range summary.Steps {
		status := r.green.Sprint("✓")
		if !step.Passed {
			status = r.red.Sprint("✗")
		}
		paddedName := fmt.Sprintf("%-*s", maxLen, step.Name)
		r.printf("  - %s: %s (%s)\n", paddedName, status, step.Details)
	}
}

func (r *TerminalReporter) EncodingComplete(summary EncodingOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishProgress()
	reduction := util.CalculateSizeReduction(summary.OriginalSize, summary.EncodedSize)

	r.heading("RESULTS")
	r.printf("  %s %s\n", r.bold.Sprint("Output:"), r.bold.Sprint(summary.OutputFile))
	r.printf("  %s %s -> %s\n",
		r.bold.Sprint("Size:"),
		util.FormatBytes(summary.OriginalSize),
		util.FormatBytes(summary.EncodedSize))
	r.printf("  %s %s\n", r.bold.Sprint("Reduction:"), r.bold.Sprintf("%.1f%%", reduction))
	r.printLabel(9, "Video:", summary.VideoStream)
	r.printLabel(9, "Metadata:", summary.Metadata)
	r.printf("  %s %s (avg speed %.1fx)\n",
		r.bold.Sprint("Time:"),
		util.FormatDuration(summary.TotalTime.Seconds()),
		summary.AverageSpeed)
	r.printf("  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(summary.OutputPath))
}

func (r *TerminalReporter) Warning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("\n")
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishProgress()
	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("\n%s %s\n", r.greenBold.Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("BATCH")
	r.printf("  Processing %d files -> %s (%d workers)\n", info.TotalFiles, r.bold.Sprint(info.OutputDir), info.Workers)
	for i, name := range info.FileList {
		r.printf("  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(context FileProgressContext) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("\nFile %s of %d: %s\n",
		r.bold.Sprint(context.CurrentFile),
		context.TotalFiles,
		context.Filename)
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reduction := util.CalculateSizeReduction(summary.TotalOriginalSize, summary.TotalEncodedSize)

	r.heading("BATCH SUMMARY")
	r.printf("  %s\n", r.bold.Sprintf("%d of %d succeeded", summary.SuccessfulCount, summary.TotalFiles))
	r.printf("  Metadata: %s injected, %s fallback\n",
		r.green.Sprint(summary.InjectedCount),
		r.yellow.Sprint(summary.FallbackCount))
	r.printf("  Validation: %s passed, %s failed\n",
		r.green.Sprint(summary.ValidationPassedCount),
		r.red.Sprint(summary.ValidationFailedCount))
	r.printf("  Size: %s -> %s (%.1f%% reduction)\n",
		util.FormatBytes(summary.TotalOriginalSize), util.FormatBytes(summary.TotalEncodedSize), reduction)
	r.printf("  Time: %s\n", util.FormatDuration(summary.TotalDuration.Seconds()))

	for _, result := range summary.FileResults {
		r.printf("  - %s (%.1f%% reduction, %s)\n", result.Filename, result.Reduction, result.Outcome)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("  %s\n", r.faint.Sprint(message))
}
