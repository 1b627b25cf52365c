package main

import (
	"time"

	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/reporter"
)

// runLogReporter copies the events worth keeping after the terminal is gone
// into the run log file.
type runLogReporter struct {
	reporter.NullReporter
	log *logging.RunLog
}

func (r runLogReporter) EncodingComplete(s reporter.EncodingOutcome) {
	r.log.Info("Encoded %s -> %s (%s) in %s", s.InputFile, s.OutputPath, s.Metadata, s.TotalTime.Round(time.Second))
}

func (r runLogReporter) ValidationComplete(s reporter.ValidationSummary) {
	if s.Passed {
		r.log.Info("Validation passed")
		return
	}
	for _, step := range s.Steps {
		if !step.Passed {
			r.log.Warn("Validation failed: %s: %s", step.Name, step.Details)
		}
	}
}

func (r runLogReporter) Warning(message string) {
	r.log.Warn("%s", message)
}

func (r runLogReporter) Error(err reporter.ReporterError) {
	r.log.Error("%s: %s", err.Title, err.Message)
}

func (r runLogReporter) BatchComplete(s reporter.BatchSummary) {
	r.log.Info("Batch complete: %d/%d succeeded, %d injected, %d fallback",
		s.SuccessfulCount, s.TotalFiles, s.InjectedCount, s.FallbackCount)
}

func (r runLogReporter) Verbose(message string) {
	r.log.Debug("%s", message)
}
