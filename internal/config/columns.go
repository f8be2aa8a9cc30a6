/*
PURPOSE:
  Converts spreadsheet column letters to indices.

REQUIREMENTS:
  User-specified:
  - Answer and latency default to the columns right of the question.

  Implementation-discovered:
  - Distinct columns are required or answers overwrite questions.

ARCHITECTURE INTEGRATION:
  - Used by: internal/config/config.go, internal/sheet

ERROR HANDLING:
  - Invalid letters and duplicates return errors.

IMPLEMENTATION RULES:
  - Pure; no workbook access.

USAGE:
    cols, err := ResolveColumns("A", "", "")

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/sheet/workbook.go

MAINTENANCE:
  - None.
*/

package config

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Columns holds resolved 1-based column indices.
type Columns struct {
	Question int
	Answer   int
	Latency  int
}

// ResolveColumns converts column letters to indices. An empty answer column
// defaults to the one right of the question column, an empty latency column
// to the one right of the answer column.
func ResolveColumns(question, answer, latency string) (Columns, error) {
	var cols Columns
	var err error
	if cols.Question, err = columnIndex("question", question); err != nil {
		return Columns{}, err
	}
	cols.Answer = cols.Question + 1
	if strings.TrimSpace(answer) != "" {
		if cols.Answer, err = columnIndex("answer", answer); err != nil {
			return Columns{}, err
		}
	}
	cols.Latency = cols.Answer + 1
	if strings.TrimSpace(latency) != "" {
		if cols.Latency, err = columnIndex("latency", latency); err != nil {
			return Columns{}, err
		}
	}
	if cols.Answer == cols.Question || cols.Latency == cols.Question || cols.Latency == cols.Answer {
		return Columns{}, fmt.Errorf("question, answer and latency columns must differ (%s)", cols)
	}
	return cols, nil
}

func columnIndex(role, letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("%s column is required", role)
	}
	n, err := excelize.ColumnNameToNumber(letters)
	if err != nil {
		return 0, fmt.Errorf("invalid %s column %q: %w", role, letters, err)
	}
	return n, nil
}

// String renders the columns back as letters.
func (c Columns) String() string {
	return fmt.Sprintf("question=%s answer=%s latency=%s", letterOf(c.Question), letterOf(c.Answer), letterOf(c.Latency))
}

func letterOf(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return fmt.Sprintf("#%d", n)
	}
	return name
}
