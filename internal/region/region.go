// Package region loads the catalog of regions to query from a CSV or XLSX file.
package region

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/UnknownOlympus/realty-atlas/internal/workbook"
)

const (
	nameColumn = "region_name"
	codeColumn = "LAWD_CD"
	codeLength = 5
	bom        = "\ufeff"
)

// ErrMissingColumns is returned when the catalog header lacks region_name or LAWD_CD.
var ErrMissingColumns = errors.New("region catalog requires region_name and LAWD_CD columns")

// Fallback is used when no catalog can be read.
var Fallback = []models.Region{
	{Name: "서울특별시_강남구", Code: "11680"},
	{Name: "경기도_성남시_분당구", Code: "41135"},
}

// Load returns the regions listed in the catalog at path in file order. A missing or unreadable
// catalog is logged and replaced by Fallback, so Load never returns an empty list.
func Load(path string, log *slog.Logger) []models.Region {
	regions, err := Read(path, log)
	if err != nil {
		log.Warn("Region catalog unavailable, using fallback regions", "path", path, "error", err)
		return fallback()
	}
	if len(regions) == 0 {
		log.Warn("Region catalog is empty, using fallback regions", "path", path)
		return fallback()
	}

	log.Info("Loaded region catalog", "path", path, "regions", len(regions))
	return regions
}

func fallback() []models.Region {
	return append([]models.Region(nil), Fallback...)
}

// Read parses the catalog without falling back. Rows with an empty name or a code longer
// than five characters are skipped. A repeated name keeps its first position and last code.
func Read(path string, log *slog.Logger) ([]models.Region, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrMissingColumns
	}

	nameIdx, codeIdx := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(strings.TrimPrefix(h, bom)) {
		case nameColumn:
			nameIdx = i
		case codeColumn:
			codeIdx = i
		}
	}
	if nameIdx < 0 || codeIdx < 0 {
		return nil, ErrMissingColumns
	}

	var regions []models.Region
	index := map[string]int{}
	for lineNo, row := range rows[1:] {
		name, code := field(row, nameIdx), field(row, codeIdx)
		code = padCode(code)
		if name == "" || code == "" || len(code) > codeLength {
			log.Warn("Skipping invalid region row", "path", path, "row", lineNo+2, "name", name, "code", code)
			continue
		}

		if i, ok := index[name]; ok {
			regions[i].Code = code
			continue
		}
		index[name] = len(regions)
		regions = append(regions, models.Region{Name: name, Code: code})
	}

	return regions, nil
}

func readRows(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readCSV(path)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open region catalog: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse region catalog: %w", err)
		}
		rows = append(rows, record)
	}

	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	table, err := workbook.ReadFirst(path)
	if err != nil {
		return nil, err
	}
	if len(table.Header) == 0 {
		return nil, nil
	}

	rows := [][]string{table.Header}
	for i := range table.Rows {
		row := make([]string, len(table.Header))
		for j := range row {
			row[j] = table.Text(i, j)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// padCode left-pads numeric codes that lost their leading zeros, e.g. in spreadsheets.
func padCode(code string) string {
	code = strings.TrimSuffix(code, ".0")
	if code == "" || len(code) >= codeLength {
		return code
	}
	return strings.Repeat("0", codeLength-len(code)) + code
}
