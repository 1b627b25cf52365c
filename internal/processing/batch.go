package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/reporter"
	"github.com/five82/hdrkit/internal/util"
	"github.com/five82/hdrkit/internal/worker"
	"github.com/five82/hdrkit/internal/workflow"
)

// BatchResult contains the results of a batch, in input order.
type BatchResult struct {
	Files   []*FileResult
	Summary reporter.BatchSummary
}

// Failed returns the files that ended with an error.
func (b *BatchResult) Failed() []*FileResult {
	var out []*FileResult
	for _, f := range b.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Report converts the batch into its JSON report form.
func (b *BatchResult) Report(version string) reporter.Report {
	r := reporter.Report{Version: version}
	for _, f := range b.Files {
		r.Files = append(r.Files, f.Report())
	}
	summary := b.Summary
	r.Summary = &summary
	return r
}

// ProcessBatch encodes every input into outputDir using a bounded pool of
// workers. A single input may carry an explicit output file name through
// override. Individual failures do not stop the batch; the returned error
// is only set when ctx was cancelled.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []string, outputDir, override string) (*BatchResult, error) {
	workers := p.cfg.Workers
	if workers > len(inputs) {
		workers = len(inputs)
	}

	sysInfo := util.GetSystemInfo()
	avail := p.workflow.Availability()
	p.rep.Hardware(reporter.HardwareSummary{
		Hostname: sysInfo.Hostname,
		Cores:    util.LogicalCores(),
		Tools: []reporter.ToolStatus{
			{Name: "dovi_tool", Available: avail.DoviTool},
			{Name: "hdr10plus_tool", Available: avail.HDR10PlusTool},
			{Name: "mkvmerge", Available: avail.MKVMerge},
			{Name: "ffmpeg", Available: avail.FFmpeg},
		},
	})

	if len(inputs) > 1 {
		var names []string
		for _, f := range inputs {
			names = append(names, util.GetFilename(f))
		}
		p.rep.BatchStarted(reporter.BatchStartInfo{
			TotalFiles: len(inputs),
			FileList:   names,
			OutputDir:  outputDir,
			Workers:    workers,
		})
	}

	start := time.Now()
	files := make([]*FileResult, len(inputs))
	var mu sync.Mutex
	started := 0

	pool := worker.NewPool(workers)
	_, err := pool.Run(ctx, inputs, func(ctx context.Context, i int, input string) error {
		if len(inputs) > 1 {
			mu.Lock()
			started++
			n := started
			mu.Unlock()
			p.rep.FileProgress(reporter.FileProgressContext{
				CurrentFile: n,
				TotalFiles:  len(inputs),
				Filename:    util.GetFilename(input),
			})
		}

		name := ""
		if len(inputs) == 1 {
			name = override
		}
		output := util.ResolveOutputPath(input, outputDir, name)
		res, err := p.Process(ctx, input, output)
		files[i] = res
		return err
	})

	for i, f := range files {
		if f == nil {
			// Never started because the batch was cancelled.
			files[i] = &FileResult{Input: inputs[i], Err: hkerrors.NewCancelledError()}
		}
	}

	result := &BatchResult{Files: files, Summary: summarize(files, time.Since(start))}
	if err != nil {
		p.rep.Warning(fmt.Sprintf("Encoding cancelled: %v", err))
		return result, hkerrors.NewCancelledError()
	}

	switch {
	case result.Summary.SuccessfulCount == 0:
		p.rep.Warning("No files were successfully encoded")
	case len(inputs) == 1:
		p.rep.OperationComplete(fmt.Sprintf("Successfully encoded %s", util.GetFilename(inputs[0])))
	default:
		p.rep.BatchComplete(result.Summary)
	}
	logging.Info("batch finished",
		"files", len(inputs),
		"succeeded", result.Summary.SuccessfulCount,
		"elapsed", result.Summary.TotalDuration)
	return result, nil
}

func summarize(files []*FileResult, elapsed time.Duration) reporter.BatchSummary {
	s := reporter.BatchSummary{TotalFiles: len(files), TotalDuration: elapsed}
	for _, f := range files {
		if !f.Succeeded() {
			continue
		}
		s.SuccessfulCount++
		s.TotalOriginalSize += f.InputBytes
		s.TotalEncodedSize += f.OutputBytes
		switch f.Outcome {
		case workflow.OutcomeInjected:
			s.InjectedCount++
		case workflow.OutcomeFallback:
			s.FallbackCount++
		}
		if f.Validation != nil {
			if f.Validation.IsValid() {
				s.ValidationPassedCount++
			} else {
				s.ValidationFailedCount++
			}
		}
		s.FileResults = append(s.FileResults, reporter.FileResult{
			Filename:  util.GetFilename(f.Input),
			Reduction: util.CalculateSizeReduction(f.InputBytes, f.OutputBytes),
			Outcome:   f.Outcome.String(),
		})
	}
	return s
}
