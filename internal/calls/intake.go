package calls

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Intake carries recipients either typed in or uploaded as a spreadsheet. Exactly one must be set.
type Intake struct {
	Manual []Recipient

	Spreadsheet     io.Reader
	SpreadsheetName string
}

// NormalizeNumber trims raw and, when it lacks a leading '+', strips leading
// zeros and prepends one. A result with no digits is returned as "".
func NormalizeNumber(raw string) string {
	n := strings.TrimSpace(raw)
	if n == "" {
		return ""
	}
	if !strings.HasPrefix(n, "+") {
		n = "+" + strings.TrimLeft(n, "0")
	}
	if !strings.ContainsAny(n[1:], "0123456789") {
		return ""
	}
	return n
}

// ParseRecipients resolves an intake to normalized recipients, dropping blank numbers.
func ParseRecipients(in Intake) ([]Recipient, error) {
	hasManual := len(in.Manual) > 0
	hasSheet := in.Spreadsheet != nil
	switch {
	case hasManual && hasSheet:
		return nil, ErrAmbiguousInput
	case !hasManual && !hasSheet:
		return nil, ErrNoRecipients
	}

	raw := in.Manual
	if hasSheet {
		if in.SpreadsheetName != "" && !isWorkbook(in.SpreadsheetName) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, in.SpreadsheetName)
		}
		rows, err := ParseSpreadsheet(in.Spreadsheet)
		if err != nil {
			return nil, err
		}
		raw = rows
	}

	out := make([]Recipient, 0, len(raw))
	for _, r := range raw {
		num := NormalizeNumber(r.Number)
		if num == "" {
			continue
		}
		out = append(out, Recipient{Name: strings.TrimSpace(r.Name), Number: num})
	}
	if len(out) == 0 {
		return nil, ErrNoValidRecipients
	}
	return out, nil
}

func isWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ParseSpreadsheet reads the first sheet of an .xlsx workbook. The header row
// must contain "name" and "number" (any case, any order). Numbers are returned raw.
func ParseSpreadsheet(r io.Reader) ([]Recipient, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInvalidFormat
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrInvalidFormat)
	}

	nameCol, numberCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameCol = i
		case "number":
			numberCol = i
		}
	}
	if nameCol < 0 || numberCol < 0 {
		return nil, fmt.Errorf("%w: missing name or number column", ErrInvalidFormat)
	}

	out := make([]Recipient, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, Recipient{Name: cell(row, nameCol), Number: cell(row, numberCol)})
	}
	return out, nil
}

// cell tolerates short rows; excelize trims trailing empty cells.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
