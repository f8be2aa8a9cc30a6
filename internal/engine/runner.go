/*
PURPOSE:
  High-level runner that orchestrates a batch pass over a workbook.
  Loops through question rows and writes each answer back.

REQUIREMENTS:
  User-specified:
  - Process rows from the start row to the last populated question row.
  - Skip rows that already carry an answer when asked to.
  - Summarize processed / skipped / failed counts.

  Implementation-discovered:
  - Rows with a blank question are ignored and never counted.
  - The rate-limit wait separates consecutive rows that make a network
    call, whatever the retry count; skipped rows incur none and nothing
    waits after the last call.
  - A row interrupted by cancellation is left unwritten so a resumed run
    with skip-completed retries it.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine (Processor), internal/sheet, internal/output

ERROR HANDLING:
  - Logs row failures but continues (resilience).
  - Only workbook open/read/write/save errors abort the run.

IMPLEMENTATION RULES:
  - Strictly sequential: one row is fully resolved before the next starts.
  - A row's answer and latency cells are written together.

USAGE:
  summary, err := engine.Run(ctx, cfg)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/processor.go
  - internal/sheet/workbook.go

MAINTENANCE:
  - Update iteration logic if parallelism is introduced.
*/

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daryltucker/sheet-runner/internal/config"
	"github.com/daryltucker/sheet-runner/internal/model"
	"github.com/daryltucker/sheet-runner/internal/output"
	"github.com/daryltucker/sheet-runner/internal/sheet"
)

// Sheet is the spreadsheet collaborator seen by the runner.
type Sheet interface {
	// LastRow is the last row whose question cell is populated.
	LastRow() (int, error)
	Row(index int) (model.Row, error)
	// WriteRow sets the answer and latency cells of row.Index.
	WriteRow(row model.Row) error
}

// Recorder receives one record per resolved row.
type Recorder interface {
	Write(rec model.RowRecord) error
}

// Runner drives a batch pass.
type Runner struct {
	Sheet           Sheet
	Processor       *Processor
	StartRow        int
	RequestInterval time.Duration
	Sleep           Sleeper
	Recorder        Recorder
	RunID           string
	now             func() time.Time
}

// NewRunner creates a Runner with a fresh run id.
func NewRunner(s Sheet, p *Processor, startRow int, interval time.Duration) *Runner {
	return &Runner{
		Sheet:           s,
		Processor:       p,
		StartRow:        startRow,
		RequestInterval: interval,
		Sleep:           time.Sleep,
		RunID:           uuid.NewString(),
		now:             time.Now,
	}
}

// Run processes every row from StartRow through the last populated row.
func (r *Runner) Run(ctx context.Context) (model.RunSummary, error) {
	var summary model.RunSummary

	last, err := r.Sheet.LastRow()
	if err != nil {
		return summary, err
	}
	start := r.StartRow
	if start < 1 {
		start = 1
	}
	output.Logger.Info("Starting batch", "run_id", r.RunID, "start_row", start, "last_row", last)

	called := false
	for idx := start; idx <= last; idx++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		row, err := r.Sheet.Row(idx)
		if err != nil {
			return summary, err
		}
		row.Question = strings.TrimSpace(row.Question)
		if row.Question == "" {
			output.Logger.Debug("Ignoring row without question", "row", idx)
			continue
		}

		if !r.Processor.Skips(row) {
			// Pace consecutive API calls.
			if called && r.RequestInterval > 0 {
				r.sleep(r.RequestInterval)
				if err := ctx.Err(); err != nil {
					return summary, err
				}
			}
			called = true
		}

		res := r.Processor.Process(ctx, row)
		if res.Outcome == model.Failed && ctx.Err() != nil {
			// Interrupted rows stay unanswered so a resumed run picks them up.
			output.Logger.Warn("Row interrupted", "row", idx)
			return summary, ctx.Err()
		}
		summary.Add(res.Outcome)

		switch res.Outcome {
		case model.Skipped:
			output.Logger.Info("Row skipped", "row", idx)
		case model.Processed:
			output.Logger.Info("Row processed", "row", idx, "attempts", res.Result.Attempts, "latency_s", res.Row.Latency, "chars", len([]rune(res.Row.Answer)))
		case model.Failed:
			output.Logger.Error("Row failed", "row", idx, "attempts", res.Result.Attempts, "error", res.Result.Err)
		}

		if res.Called {
			if err := r.Sheet.WriteRow(res.Row); err != nil {
				return summary, fmt.Errorf("failed to write row %d: %w", idx, err)
			}
		}
		r.record(res)
	}

	output.Logger.Info("Batch complete", "run_id", r.RunID, "processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

func (r *Runner) record(res RowResult) {
	if r.Recorder == nil {
		return
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	rec := model.RowRecord{
		RunID:     r.RunID,
		Row:       res.Row.Index,
		Question:  res.Row.Question,
		Answer:    res.Row.Answer,
		Latency:   res.Row.Latency,
		Outcome:   res.Outcome,
		Attempts:  res.Result.Attempts,
		Timestamp: now(),
	}
	if res.Result.Err != nil {
		rec.Error = res.Result.Err.Error()
	}
	if err := r.Recorder.Write(rec); err != nil {
		output.Logger.Error("Failed to write row record", "row", rec.Row, "error", err)
	}
}

func (r *Runner) sleep(d time.Duration) {
	if r.Sleep == nil {
		time.Sleep(d)
		return
	}
	r.Sleep(d)
}

// Run executes a full batch described by cfg: open the workbook, process
// the rows, save the result. cfg must be normalized and validated.
func Run(ctx context.Context, cfg *config.Config) (model.RunSummary, error) {
	cols, err := cfg.Columns()
	if err != nil {
		return model.RunSummary{}, err
	}
	book, err := sheet.Open(cfg.Input, cfg.Sheet, cols)
	if err != nil {
		return model.RunSummary{}, err
	}
	defer book.Close()
	if err := sheet.CheckWritable(cfg.Output); err != nil {
		return model.RunSummary{}, err
	}

	runner := NewRunner(book, NewProcessor(cfg), cfg.StartRow, cfg.RequestInterval)
	if cfg.ReportDir != "" {
		report, err := output.OpenReport(cfg.ReportDir)
		if err != nil {
			return model.RunSummary{}, err
		}
		defer report.Close()
		runner.Recorder = report
	}

	output.Logger.Info("Processing workbook", "input", cfg.Input, "sheet", book.Name(), "columns", cols.String())
	summary, runErr := runner.Run(ctx)

	if err := book.SaveAs(cfg.Output); err != nil {
		return summary, err
	}
	output.Logger.Info("Workbook saved", "output", cfg.Output)
	return summary, runErr
}

// NewClientFromConfig builds the streaming client for the configured auth mode.
func NewClientFromConfig(cfg *config.Config) *Client {
	var opts []ClientOption
	if cfg.Auth == config.AuthAKSK {
		opts = append(opts, WithSigner(NewSigner(cfg.AccessKey, cfg.SecretKey, cfg.Region, cfg.Service)))
	}
	return NewClient(cfg.Endpoint, opts...)
}

// NewProcessor wires client, invoker and row settings from cfg.
func NewProcessor(cfg *config.Config) *Processor {
	return &Processor{
		Invoker: NewInvoker(NewClientFromConfig(cfg), cfg.MaxRetries, cfg.RetryWait),
		Settings: RowSettings{
			BotID:         cfg.BotID,
			APIKey:        cfg.APIKey,
			Temperature:   cfg.Temperature,
			Timeout:       cfg.Timeout,
			SkipCompleted: cfg.SkipCompleted,
		},
	}
}
