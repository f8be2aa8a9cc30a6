/*
PURPOSE:
  Resolves a single spreadsheet row into an answer or an error marker.

REQUIREMENTS:
  User-specified:
  - Skip rows that already have an answer when skip-completed is on.
  - Failures become "[ERROR] <reason>" with an empty latency.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Calls: internal/engine/retry.go

ERROR HANDLING:
  - No errors returned; outcome carries the result.

IMPLEMENTATION RULES:
  - Never mutate the input row.

USAGE:
    res := p.Process(ctx, row)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - None.
*/

package engine

import (
	"context"
	"time"

	"github.com/daryltucker/sheet-runner/internal/model"
)

// RowSettings is the shared, immutable per-run input of every row call.
type RowSettings struct {
	BotID         string
	APIKey        string
	Temperature   *float64
	Timeout       time.Duration
	SkipCompleted bool
}

// Processor resolves a single row.
type Processor struct {
	Invoker  *Invoker
	Settings RowSettings
}

// RowResult is the outcome of processing one row together with the
// completion result when a call was made.
type RowResult struct {
	Row     model.Row
	Outcome model.Outcome
	Result  model.CompletionResult
	Called  bool
}

// Skips reports whether row is already answered and left alone.
func (p *Processor) Skips(row model.Row) bool {
	return p.Settings.SkipCompleted && row.Answer != ""
}

// Process returns the updated row and its outcome. The input row is not
// modified; answer and latency are set together on the returned copy.
func (p *Processor) Process(ctx context.Context, row model.Row) RowResult {
	if p.Skips(row) {
		return RowResult{Row: row, Outcome: model.Skipped}
	}

	res := p.Invoker.Invoke(ctx, model.CompletionRequest{
		BotID:       p.Settings.BotID,
		APIKey:      p.Settings.APIKey,
		Question:    row.Question,
		Temperature: p.Settings.Temperature,
		Timeout:     p.Settings.Timeout,
	})

	updated := row
	if res.Failed() {
		updated.Answer = model.ErrorMarker + res.Err.Error()
		updated.Latency = ""
		return RowResult{Row: updated, Outcome: model.Failed, Result: res, Called: true}
	}
	updated.Answer = res.Answer
	updated.Latency = res.LatencyCell()
	return RowResult{Row: updated, Outcome: model.Processed, Result: res, Called: true}
}
