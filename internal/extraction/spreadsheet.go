package extraction

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// spreadsheetColumns maps recognized header names to bank fields.
var spreadsheetColumns = map[string]string{
	"question": "question",
	"stem":     "question",
	"a":        "A",
	"option a": "A",
	"b":        "B",
	"option b": "B",
	"c":        "C",
	"option c": "C",
	"d":        "D",
	"option d": "D",
	"answer":   "answer",
	"correct":  "answer",
}

// extractSpreadsheet renders every sheet as text. Sheets whose header row
// names a question column and option columns are rendered in numbered
// question-bank form so the bank parser recognizes them.
func extractSpreadsheet(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	number := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		if columns, ok := bankColumns(rows[0]); ok {
			for _, row := range rows[1:] {
				if writeBankRow(&sb, columns, row, number+1) {
					number++
				}
			}
			continue
		}

		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}

func bankColumns(header []string) (map[string]int, bool) {
	columns := make(map[string]int)
	for i, cell := range header {
		if field, ok := spreadsheetColumns[strings.ToLower(strings.TrimSpace(cell))]; ok {
			columns[field] = i
		}
	}
	for _, field := range []string{"question", "A", "B", "C", "D"} {
		if _, ok := columns[field]; !ok {
			return nil, false
		}
	}
	return columns, true
}

func writeBankRow(sb *strings.Builder, columns map[string]int, row []string, number int) bool {
	cell := func(field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	stem := cell("question")
	if stem == "" {
		return false
	}

	fmt.Fprintf(sb, "%d. %s\n", number, stem)
	for _, label := range []string{"A", "B", "C", "D"} {
		fmt.Fprintf(sb, "%s) %s\n", label, cell(label))
	}
	if answer := cell("answer"); answer != "" {
		fmt.Fprintf(sb, "Answer: %s\n", strings.ToUpper(answer))
	}
	sb.WriteString("\n")
	return true
}
