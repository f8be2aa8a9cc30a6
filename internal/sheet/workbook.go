/*
PURPOSE:
  Spreadsheet collaborator: reads question rows from an .xlsx sheet and
  writes answers and latencies back, then persists the workbook.

REQUIREMENTS:
  User-specified:
  - Read a named sheet (or the active one) by row and column.
  - Locate the last populated row in the question column.
  - Save to an output path when the run completes.

  Implementation-discovered:
  - The output file may be locked by a spreadsheet application; detect
    that before any row is processed.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Dependencies: github.com/xuri/excelize/v2

ERROR HANDLING:
  - Open/save/lock failures wrap ErrFatalIO and abort the run.

IMPLEMENTATION RULES:
  - Answer and latency cells are written by one call.
  - Latency cells are numeric with three decimals.

USAGE:
  wb, err := sheet.Open("questions.xlsx", "", cols)
  defer wb.Close()

SELF-HEALING INSTRUCTIONS:
  - If excelize changes GetSheetIndex semantics, update resolveSheet.

RELATED FILES:
  - internal/engine/runner.go
  - internal/config/columns.go

MAINTENANCE:
  - Update when other workbook formats are needed.
*/

package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/sheet-runner/internal/config"
	"github.com/daryltucker/sheet-runner/internal/model"
)

// ErrFatalIO marks workbook errors that abort the whole run.
var ErrFatalIO = errors.New("fatal workbook I/O error")

// Workbook binds one sheet of an excelize file to the configured columns.
type Workbook struct {
	file         *excelize.File
	name         string
	cols         config.Columns
	latencyStyle int
}

// latencyNumFmt shows latencies with exactly three decimals.
const latencyNumFmt = "0.000"

// Open loads path and selects sheetName, or the active sheet when empty.
func Open(path, sheetName string, cols config.Columns) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: input file %s: %v", ErrFatalIO, path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrFatalIO, path, err)
	}
	name, err := resolveSheet(f, sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	numFmt := latencyNumFmt
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: latency style: %v", ErrFatalIO, err)
	}
	return &Workbook{file: f, name: name, cols: cols, latencyStyle: style}, nil
}

func resolveSheet(f *excelize.File, sheetName string) (string, error) {
	if sheetName == "" {
		return f.GetSheetName(f.GetActiveSheetIndex()), nil
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return "", fmt.Errorf("%w: sheet %q: %v", ErrFatalIO, sheetName, err)
	}
	if idx < 0 {
		return "", fmt.Errorf("%w: sheet %q not found (have %s)", ErrFatalIO, sheetName, strings.Join(f.GetSheetList(), ", "))
	}
	return sheetName, nil
}

// Name is the selected sheet name.
func (w *Workbook) Name() string {
	return w.name
}

// LastRow is the last row whose question cell is non-blank, 0 if none.
func (w *Workbook) LastRow() (int, error) {
	rows, err := w.file.GetRows(w.name)
	if err != nil {
		return 0, fmt.Errorf("%w: read sheet %q: %v", ErrFatalIO, w.name, err)
	}
	q := w.cols.Question - 1
	for i := len(rows) - 1; i >= 0; i-- {
		if q < len(rows[i]) && strings.TrimSpace(rows[i][q]) != "" {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Row reads the question, answer and latency cells of row index.
func (w *Workbook) Row(index int) (model.Row, error) {
	row := model.Row{Index: index}
	var err error
	if row.Question, err = w.cell(w.cols.Question, index); err != nil {
		return row, err
	}
	if row.Answer, err = w.cell(w.cols.Answer, index); err != nil {
		return row, err
	}
	if row.Latency, err = w.cell(w.cols.Latency, index); err != nil {
		return row, err
	}
	return row, nil
}

func (w *Workbook) cell(col, row int) (string, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return w.file.GetCellValue(w.name, name)
}

// WriteRow sets the answer and latency cells of row.Index. An empty
// latency clears the cell.
func (w *Workbook) WriteRow(row model.Row) error {
	answerCell, err := excelize.CoordinatesToCellName(w.cols.Answer, row.Index)
	if err != nil {
		return err
	}
	latencyCell, err := excelize.CoordinatesToCellName(w.cols.Latency, row.Index)
	if err != nil {
		return err
	}
	var latency float64
	if row.Latency != "" {
		if latency, err = strconv.ParseFloat(row.Latency, 64); err != nil {
			return fmt.Errorf("row %d: invalid latency %q: %w", row.Index, row.Latency, err)
		}
	}

	if err := w.file.SetCellStr(w.name, answerCell, row.Answer); err != nil {
		return err
	}
	if row.Latency == "" {
		return w.file.SetCellValue(w.name, latencyCell, nil)
	}
	if err := w.file.SetCellFloat(w.name, latencyCell, latency, 3, 64); err != nil {
		return err
	}
	return w.file.SetCellStyle(w.name, latencyCell, latencyCell, w.latencyStyle)
}

// SaveAs writes the workbook to path, creating its directory.
func (w *Workbook) SaveAs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create output directory: %v", ErrFatalIO, err)
	}
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrFatalIO, path, err)
	}
	return nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// CheckWritable fails when path exists but cannot be opened for writing,
// e.g. because another program holds a lock on it.
func CheckWritable(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create output directory: %v", ErrFatalIO, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: output %s is not writable (open elsewhere?): %v", ErrFatalIO, path, err)
	}
	return f.Close()
}
