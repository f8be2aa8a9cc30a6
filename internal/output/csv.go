/*
PURPOSE:
  Writes per-row outcomes of a batch run to a CSV report.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Keep a record of every row outcome next to the saved workbook.

  Implementation-discovered:
  - The workbook is only saved at the end of a run; the report survives a crash mid-run.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.RowRecord

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).

USAGE:
  w, err := output.NewCSVWriter("rows.csv")
  w.Write(record)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when RowRecord changes.
*/

package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/sheet-runner/internal/model"
)

// CSVHeader is the first line of every CSV report.
var CSVHeader = []string{
	"run_id", "row", "timestamp", "outcome", "attempts", "latency_s",
	"question", "answer", "error",
}

// CSVWriter handles writing row records to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single record to the CSV file.
func (cw *CSVWriter) Write(r model.RowRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.RunID,
		strconv.Itoa(r.Row),
		r.Timestamp.Format(time.RFC3339),
		string(r.Outcome),
		strconv.Itoa(r.Attempts),
		r.Latency,
		r.Question,
		r.Answer,
		r.Error,
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
