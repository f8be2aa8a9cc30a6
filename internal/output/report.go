/*
PURPOSE:
  Optional per-row report next to the workbook.

REQUIREMENTS:
  Implementation-discovered:
  - One CSV and one JSON Lines file per run directory.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine/runner.go (Recorder)

ERROR HANDLING:
  - Open failures abort the run; write errors are returned to the caller.

IMPLEMENTATION RULES:
  - Both writers receive every record.

USAGE:
    r, err := OpenReport(dir)
  defer r.Close()

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - None.
*/

package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daryltucker/sheet-runner/internal/model"
)

// Report file names inside the report directory.
const (
	ReportCSV  = "rows.csv"
	ReportJSON = "rows.jsonl"
)

// Report fans a row record out to the CSV and JSON Lines writers.
type Report struct {
	csv  *CSVWriter
	json *JSONWriter
}

// OpenReport creates dir if needed and opens both report files in it.
func OpenReport(dir string) (*Report, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	csvPath := filepath.Join(dir, ReportCSV)
	cw, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}
	jsonPath := filepath.Join(dir, ReportJSON)
	jw, err := NewJSONWriter(jsonPath)
	if err != nil {
		cw.Close()
		return nil, fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}
	return &Report{csv: cw, json: jw}, nil
}

// Write records r in both files.
func (r *Report) Write(rec model.RowRecord) error {
	return errors.Join(r.csv.Write(rec), r.json.Write(rec))
}

// Close closes both files.
func (r *Report) Close() error {
	return errors.Join(r.csv.Close(), r.json.Close())
}
