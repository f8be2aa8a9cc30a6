package sheet

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/sheet-runner/internal/config"
	"github.com/daryltucker/sheet-runner/internal/model"
)

var testColumns = config.Columns{Question: 1, Answer: 2, Latency: 3}

// writeWorkbook saves a workbook whose first sheet holds cells.
func writeWorkbook(t *testing.T, cells map[string]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range cells {
		require.NoError(t, f.SetCellStr("Sheet1", cell, v))
	}
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellStr("Other", "A1", "elsewhere"))
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"), "", testColumns)
	assert.ErrorIs(t, err, ErrFatalIO)

	notXLSX := filepath.Join(t.TempDir(), "plain.xlsx")
	require.NoError(t, os.WriteFile(notXLSX, []byte("not a workbook"), 0o644))
	_, err = Open(notXLSX, "", testColumns)
	assert.ErrorIs(t, err, ErrFatalIO)

	path := writeWorkbook(t, map[string]string{"A1": "Question"})
	_, err = Open(path, "Nope", testColumns)
	assert.ErrorIs(t, err, ErrFatalIO)
	assert.ErrorContains(t, err, "not found")
}

func TestWorkbook_ReadRows(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		"A1": "Question", "B1": "Answer", "C1": "Latency",
		"A2": "What is Go?",
		"A3": "Why?", "B3": "Because",
		"A5": "Last one",
		"B7": "answer without question",
	})
	wb, err := Open(path, "", testColumns)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, "Sheet1", wb.Name())

	last, err := wb.LastRow()
	require.NoError(t, err)
	assert.Equal(t, 5, last)

	row, err := wb.Row(3)
	require.NoError(t, err)
	assert.Equal(t, model.Row{Index: 3, Question: "Why?", Answer: "Because"}, row)

	empty, err := wb.Row(4)
	require.NoError(t, err)
	assert.Equal(t, model.Row{Index: 4}, empty)
}

func TestWorkbook_NamedSheetAndEmpty(t *testing.T) {
	path := writeWorkbook(t, nil)
	wb, err := Open(path, "Sheet1", testColumns)
	require.NoError(t, err)
	defer wb.Close()
	last, err := wb.LastRow()
	require.NoError(t, err)
	assert.Equal(t, 0, last)

	other, err := Open(path, "Other", testColumns)
	require.NoError(t, err)
	defer other.Close()
	last, err = other.LastRow()
	require.NoError(t, err)
	assert.Equal(t, 1, last)
}

func TestWorkbook_WriteRowAndSave(t *testing.T) {
	path := writeWorkbook(t, map[string]string{"A2": "Q1", "A3": "Q2", "C3": "9.999"})
	wb, err := Open(path, "", testColumns)
	require.NoError(t, err)

	require.NoError(t, wb.WriteRow(model.Row{Index: 2, Question: "Q1", Answer: "Hello", Latency: "0.350"}))
	require.NoError(t, wb.WriteRow(model.Row{Index: 3, Question: "Q2", Answer: "[ERROR] HTTP 429"}))
	assert.Error(t, wb.WriteRow(model.Row{Index: 4, Answer: "x", Latency: "fast"}))

	out := filepath.Join(t.TempDir(), "out", "questions_processed.xlsx")
	require.NoError(t, CheckWritable(out))
	require.NoError(t, wb.SaveAs(out))
	require.NoError(t, wb.Close())

	saved, err := Open(out, "", testColumns)
	require.NoError(t, err)
	defer saved.Close()

	row2, err := saved.Row(2)
	require.NoError(t, err)
	assert.Equal(t, "Hello", row2.Answer)
	assert.Equal(t, "0.350", row2.Latency, "latency is displayed with three decimals")
	raw, err := saved.file.GetCellValue(saved.name, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	latency, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, latency, 1e-9, "stored as a number")

	row3, err := saved.Row(3)
	require.NoError(t, err)
	assert.Equal(t, "[ERROR] HTTP 429", row3.Answer)
	assert.Equal(t, "", row3.Latency)

	row4, err := saved.Row(4)
	require.NoError(t, err)
	assert.Equal(t, "", row4.Answer, "invalid latency must leave the row untouched")
}

func TestCheckWritable_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exists.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.NoError(t, CheckWritable(path))
}
