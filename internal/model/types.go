/*
PURPOSE:
  Defines the core data structures used throughout Sheet Runner.
  These models represent spreadsheet rows, completion calls and run outcomes.

REQUIREMENTS:
  User-specified:
  - Record the answer and first-fragment latency for each question row.
  - Count processed, skipped and failed rows.

  Implementation-discovered:
  - Latency can be absent on success (empty stream); it is not zero.
  - Need JSON tags for the JSON Lines row report.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/sheet, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Duration for latency, convert to seconds only at the cell boundary.

USAGE:
  res := model.CompletionResult{Answer: "Hello", Latency: 350 * time.Millisecond, HasLatency: true}

SELF-HEALING INSTRUCTIONS:
  - If new report columns are needed, add a field to RowRecord and update CSV/JSON writers.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new per-row metrics.
*/

package model

import (
	"fmt"
	"math"
	"time"
)

// ErrorMarker prefixes the answer cell of a row that failed on every attempt.
const ErrorMarker = "[ERROR] "

// Row is a single question row of the sheet. Index is 1-based.
type Row struct {
	Index    int
	Question string
	Answer   string
	Latency  string // seconds with three decimals, empty when absent
}

// CompletionRequest is built fresh for every attempt.
type CompletionRequest struct {
	BotID       string
	APIKey      string
	Question    string
	Temperature *float64
	Timeout     time.Duration
}

// CompletionResult is either a success (Err == nil) or a failure.
type CompletionResult struct {
	Answer     string
	Latency    time.Duration
	HasLatency bool
	Attempts   int
	Err        error
}

// Failed reports whether the result is a failure.
func (r CompletionResult) Failed() bool {
	return r.Err != nil
}

// LatencyCell renders the first-fragment latency rounded to milliseconds,
// or "" when no content fragment was received.
func (r CompletionResult) LatencyCell() string {
	if !r.HasLatency {
		return ""
	}
	return FormatSeconds(r.Latency)
}

// FormatSeconds renders d in seconds with exactly three decimals.
func FormatSeconds(d time.Duration) string {
	secs := math.Round(d.Seconds()*1000) / 1000
	return fmt.Sprintf("%.3f", secs)
}

// Outcome is the per-row result of a batch pass.
type Outcome string

const (
	Processed Outcome = "processed"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

// RunSummary accumulates outcome counts for one run.
type RunSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Add increments the counter matching o.
func (s *RunSummary) Add(o Outcome) {
	switch o {
	case Processed:
		s.Processed++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
	}
}

// Total is the number of rows that reached an outcome.
func (s RunSummary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

// RowRecord is one line of the optional row report.
type RowRecord struct {
	RunID     string    `json:"run_id"`
	Row       int       `json:"row"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer,omitempty"`
	Latency   string    `json:"latency_s,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
