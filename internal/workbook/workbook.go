// Package workbook reads and writes multi-sheet .xlsx files of transaction tables.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned when a workbook is written without any table.
var ErrNoSheets = errors.New("workbook has no sheets")

// Table is one sheet: a header row followed by data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// NewTable creates an empty table with the canonical record header.
func NewTable(name string) *Table {
	return &Table{Name: name, Header: append([]string(nil), models.Columns...)}
}

// AppendRecords adds one row per record.
func (t *Table) AppendRecords(records []models.Record) {
	for _, rec := range records {
		t.Rows = append(t.Rows, rec.Values())
	}
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the index of the named column, appending an empty column when missing.
func (t *Table) EnsureColumn(name string) int {
	if idx := t.Column(name); idx >= 0 {
		return idx
	}

	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

// Cell returns the value at row and col, or nil when the row is shorter.
func (t *Table) Cell(row, col int) any {
	if col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// Text returns the cell rendered as a trimmed string; nil renders as "".
func (t *Table) Text(row, col int) string {
	v := t.Cell(row, col)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// SetCell stores v, growing the row as needed.
func (t *Table) SetCell(row, col int, v any) {
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], nil)
	}
	t.Rows[row][col] = v
}

// Display formats applied to known columns on write.
var columnFormats = map[string]string{
	models.ColDealAmount:     "#,##0",
	models.ColDeposit:        "#,##0",
	models.ColMonthlyRent:    "#,##0",
	models.ColPreDeposit:     "#,##0",
	models.ColPreMonthlyRent: "#,##0",
	models.ColExclusiveArea:  "#,##0.00",
	models.ColLandArea:       "#,##0.00",
	models.ColContractDate:   "yy-mm-dd",
}

// Write saves the tables as sheets of a new workbook at path, in the given order.
// The parent directory is created when missing.
func Write(path string, tables []*Table) error {
	if len(tables) == 0 {
		return ErrNoSheets
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), table.Name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", table.Name, err)
			}
		} else if _, err := f.NewSheet(table.Name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", table.Name, err)
		}

		if err := writeTable(f, table); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}

func writeTable(f *excelize.File, table *Table) error {
	header := make([]any, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(table.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", table.Name, err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}

		values := make([]any, len(row))
		for j, v := range row {
			values[j] = Typed(v)
		}
		if err := f.SetSheetRow(table.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, table.Name, err)
		}
	}

	return applyFormats(f, table)
}

func applyFormats(f *excelize.File, table *Table) error {
	for idx, name := range table.Header {
		format, ok := columnFormats[name]
		if !ok {
			continue
		}

		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			return fmt.Errorf("failed to create style for %q: %w", name, err)
		}

		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", idx+1, err)
		}
		if err := f.SetColStyle(table.Name, col, style); err != nil {
			return fmt.Errorf("failed to style column %q: %w", name, err)
		}
	}

	return nil
}

// Typed turns numeric text into int64 or float64 so read-modify-write passes keep cell types.
// Text with a leading zero stays text.
func Typed(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil && !hasLeadingZero(s) {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !hasLeadingZero(s) && strings.Contains(s, ".") {
		return f
	}

	return s
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// Read loads every sheet of the workbook in sheet order. Cells are returned as raw strings,
// with empty cells as nil.
func Read(path string) ([]*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var tables []*Table
	for _, name := range f.GetSheetList() {
		table, err := readTable(f, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	return tables, nil
}

// ReadFirst loads only the first sheet.
func ReadFirst(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readTable(f, f.GetSheetName(0))
}

func readTable(f *excelize.File, name string) (*Table, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	table := &Table{Name: name}
	if len(rows) == 0 {
		return table, nil
	}

	for _, h := range rows[0] {
		table.Header = append(table.Header, strings.TrimSpace(h))
	}

	for _, row := range rows[1:] {
		values := make([]any, len(table.Header))
		for j, cell := range row {
			if j >= len(values) {
				break
			}
			if cell != "" {
				values[j] = cell
			}
		}
		table.Rows = append(table.Rows, values)
	}

	return table, nil
}
