// Package workbook reads calculator inputs from spreadsheet entry sheets laid out as
// two columns: field name and value.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/fuelprice/internal/rollup"
)

// ErrSheetNotFound is returned when the requested sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

const headerField = "field"

// ReadFile reads inputs from the named sheet of an xlsx file. An empty sheet name
// selects the first sheet.
func ReadFile(path, sheet string) (rollup.Inputs, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return read(f, sheet)
}

// Read reads inputs from an xlsx stream.
func Read(r io.Reader, sheet string) (rollup.Inputs, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return read(f, sheet)
}

func read(f *excelize.File, sheet string) (rollup.Inputs, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	raw := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		field := strings.TrimSpace(row[0])
		if field == "" || strings.HasPrefix(field, "#") || strings.EqualFold(field, headerField) {
			continue
		}
		value := ""
		if len(row) > 1 {
			value = row[1]
		}
		raw[field] = value
	}

	// Unparseable cells read as zero, like any other entry form.
	return rollup.ParseInputs(raw), nil
}

// WriteTemplate writes a blank entry sheet listing fields, one per row, with a zero value.
func WriteTemplate(w io.Writer, sheet string, fields []string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = "Inputs"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{headerField, "value"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, field := range fields {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{field, 0}); err != nil {
			return fmt.Errorf("writing field %s: %w", field, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
