package service

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/UnknownOlympus/realty-atlas/internal/cache"
	"github.com/UnknownOlympus/realty-atlas/internal/geocoding"
	"github.com/UnknownOlympus/realty-atlas/internal/manifest"
	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/UnknownOlympus/realty-atlas/internal/spatial"
	"github.com/UnknownOlympus/realty-atlas/internal/workbook"
	"github.com/xuri/excelize/v2"
)

const (
	// ColLat and ColLng are the coordinate columns added by the geocode pass.
	ColLat = "lat"
	ColLng = "lng"

	geocodedDir    = "geocoded"
	geojsonDir     = "geojson"
	geocodedSuffix = "_geocoded.xlsx"
	lockFilePrefix = "~$"
)

// Fallback address columns, joined in this order when a row has no composed address.
var addressParts = []string{models.ColDistrict, models.ColDong, models.ColRoadName, models.ColLotNumber}

// Columns normalized to digit-only integers before geocoding.
var geocodeMoneyColumns = []string{models.ColDealAmount, models.ColDeposit, models.ColMonthlyRent}

// Columns copied into every feature's properties.
var featureColumns = []string{
	models.ColDistrict, models.ColDong, models.ColName, models.ColRoadName, models.ColLotNumber,
	models.ColAddress, models.ColContractYearMonth, models.ColContractDate, models.ColFloor,
	models.ColBuildingDong, models.ColExclusiveArea, models.ColLandArea, models.ColDealAmount,
	models.ColDeposit, models.ColMonthlyRent, models.ColBuildYear, models.ColContractTerm,
	models.ColContractType, models.ColPreDeposit, models.ColPreMonthlyRent, models.ColYear,
	models.ColMonth, models.ColDay,
}

// StoreFunc returns the cache store used for files in dir.
type StoreFunc func(dir string) cache.Store

// FileStores keeps one JSON cache file per directory.
func FileStores(dir string) cache.Store {
	return cache.ForDir(dir)
}

// GeocodeOptions tune the geocode pass.
type GeocodeOptions struct {
	Cooldown       time.Duration
	AutosaveEvery  int
	NormalizeSeoul bool
	Workers        int
	Sheets         []string // only these sheets when non-empty
	ConsumerDir    string   // manifest path base, "" for the default
}

// GeocodeResult describes one processed workbook.
type GeocodeResult struct {
	Input    string
	Workbook string
	GeoJSON  string
	Features int
	Skipped  bool
}

// FileGeocoder adds coordinates to collected workbooks and exports them as GeoJSON.
type FileGeocoder struct {
	log          *slog.Logger
	provider     geocoding.Provider
	providerName string
	metrics      *metrics.Metrics
	stores       StoreFunc
	opts         GeocodeOptions
}

// NewFileGeocoder creates a FileGeocoder. A nil stores selects FileStores.
func NewFileGeocoder(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	appMetrics *metrics.Metrics,
	stores StoreFunc,
	opts GeocodeOptions,
) *FileGeocoder {
	if stores == nil {
		stores = FileStores
	}

	return &FileGeocoder{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      appMetrics,
		stores:       stores,
		opts:         opts,
	}
}

// ProcessFile geocodes one workbook using the cache of the workbook's directory.
func (fg *FileGeocoder) ProcessFile(ctx context.Context, path string) (GeocodeResult, error) {
	if _, err := os.Stat(path); err != nil {
		return GeocodeResult{Input: path}, fmt.Errorf("failed to stat workbook: %w", err)
	}

	gs := fg.service(ctx, filepath.Dir(path))
	result, err := fg.processFile(ctx, gs, path)
	if flushErr := gs.Cache().Flush(ctx); flushErr != nil && err == nil {
		err = flushErr
	}

	return result, err
}

// ProcessDir geocodes every workbook in dir, sorted by file name, sharing the directory's cache.
// Lock files and geocoded outputs are ignored.
func (fg *FileGeocoder) ProcessDir(ctx context.Context, dir string, recursive bool) ([]GeocodeResult, error) {
	files, err := findWorkbooks(dir, recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		fg.log.WarnContext(ctx, "No workbooks found", "dir", dir)
		return nil, nil
	}

	gs := fg.service(ctx, dir)
	fg.log.InfoContext(ctx, "Checking workbooks", "dir", dir, "files", len(files))

	var results []GeocodeResult
	for _, file := range files {
		result, err := fg.processFile(ctx, gs, file)
		if err != nil {
			if flushErr := gs.Cache().Flush(ctx); flushErr != nil {
				fg.log.ErrorContext(ctx, "Failed to save address cache", "error", flushErr)
			}
			return results, err
		}
		results = append(results, result)
	}

	return results, gs.Cache().Flush(ctx)
}

func (fg *FileGeocoder) service(ctx context.Context, dir string) *GeocodingService {
	addrCache := cache.New(fg.stores(dir), fg.opts.AutosaveEvery, fg.log, fg.metrics)
	addrCache.Load(ctx)

	return NewGeocodingService(
		fg.log, addrCache, fg.provider, fg.providerName, fg.metrics,
		fg.opts.Workers, fg.opts.Cooldown, fg.opts.NormalizeSeoul,
	)
}

func (fg *FileGeocoder) processFile(ctx context.Context, gs *GeocodingService, path string) (GeocodeResult, error) {
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result := GeocodeResult{
		Input:    path,
		Workbook: filepath.Join(dir, geocodedDir, stem+geocodedSuffix),
		GeoJSON:  filepath.Join(dir, geojsonDir, stem+".geojson"),
	}

	if _, err := os.Stat(result.Workbook); err == nil {
		fg.log.InfoContext(ctx, "Skipping already geocoded workbook", "file", path, "output", result.Workbook)
		result.Skipped = true
		return result, nil
	}

	tables, err := workbook.Read(path)
	if err != nil {
		return result, err
	}
	if len(fg.opts.Sheets) > 0 {
		tables = slices.DeleteFunc(tables, func(t *workbook.Table) bool {
			return !slices.Contains(fg.opts.Sheets, t.Name)
		})
	}
	if len(tables) == 0 {
		fg.log.WarnContext(ctx, "No sheets to geocode", "file", path)
		return result, nil
	}

	fg.log.InfoContext(ctx, "Processing workbook", "file", path, "sheets", len(tables))

	collection := spatial.NewCollection()
	for _, table := range tables {
		if err := fg.processTable(ctx, gs, table, collection); err != nil {
			return result, err
		}
	}

	if err := workbook.Write(result.Workbook, tables); err != nil {
		return result, err
	}
	if err := collection.Write(result.GeoJSON); err != nil {
		return result, err
	}
	result.Features = collection.Len()
	fg.log.InfoContext(ctx, "Geocoded workbook saved",
		"workbook", result.Workbook, "geojson", result.GeoJSON, "points", result.Features)

	if err := gs.Cache().Flush(ctx); err != nil {
		fg.log.ErrorContext(ctx, "Failed to save address cache", "error", err)
	}

	root := filepath.Dir(filepath.Clean(dir))
	if _, err := manifest.Write(root, fg.opts.ConsumerDir, fg.log); err != nil {
		return result, fmt.Errorf("failed to update manifest: %w", err)
	}

	return result, nil
}

func (fg *FileGeocoder) processTable(
	ctx context.Context,
	gs *GeocodingService,
	table *workbook.Table,
	collection *spatial.Collection,
) error {
	fg.log.DebugContext(ctx, "Processing sheet", "sheet", table.Name, "rows", len(table.Rows))

	latCol := table.EnsureColumn(ColLat)
	lngCol := table.EnsureColumn(ColLng)

	for _, name := range geocodeMoneyColumns {
		col := table.Column(name)
		if col < 0 {
			continue
		}
		for row := range table.Rows {
			table.SetCell(row, col, digitsOnly(table.Cell(row, col)))
		}
	}

	var pending []int
	var addrs []string
	seen := map[string]bool{}
	for row := range table.Rows {
		if hasCoordinates(table, row, latCol, lngCol) {
			continue
		}
		pending = append(pending, row)

		addr := rowAddress(table, row)
		if addr != "" && !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}

	if err := gs.ResolveAll(ctx, addrs); err != nil {
		return err
	}

	for _, row := range pending {
		addr := rowAddress(table, row)
		if addr == "" {
			continue
		}
		point, _ := gs.Cache().Get(addr)
		if lat, lng, ok := nonZero(point); ok {
			table.SetCell(row, latCol, lat)
			table.SetCell(row, lngCol, lng)
		}
	}

	housing, deal := models.SplitLabel(table.Name)
	for row := range table.Rows {
		lat, latOK := number(table.Cell(row, latCol))
		lng, lngOK := number(table.Cell(row, lngCol))
		if !latOK || !lngOK {
			continue
		}
		collection.Add(lat, lng, featureProperties(table, row, housing, deal))
	}

	return nil
}

func featureProperties(table *workbook.Table, row int, housing, deal string) map[string]any {
	props := map[string]any{
		"시트":   table.Name,
		"주택유형": housing,
		"거래유형": nil,
	}
	if deal != "" {
		props["거래유형"] = deal
	}

	for _, name := range featureColumns {
		value := table.Cell(row, table.Column(name))
		if name == models.ColContractDate {
			props[name] = dateText(value)
			continue
		}
		props[name] = workbook.Typed(value)
	}

	return props
}

// rowAddress returns the composed address column, or the join of the address parts.
func rowAddress(table *workbook.Table, row int) string {
	if addr := strings.TrimSpace(table.Text(row, table.Column(models.ColAddress))); addr != "" {
		return addr
	}

	var parts []string
	for _, name := range addressParts {
		if part := strings.TrimSpace(table.Text(row, table.Column(name))); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, " ")
}

func hasCoordinates(table *workbook.Table, row, latCol, lngCol int) bool {
	return table.Cell(row, latCol) != nil && table.Cell(row, lngCol) != nil
}

func nonZero(point models.Point) (float64, float64, bool) {
	if !point.Resolved() || *point.Lat == 0 || *point.Lng == 0 {
		return 0, 0, false
	}
	return *point.Lat, *point.Lng, true
}

// digitsOnly keeps the digits of a money cell, returning nil when none remain.
func digitsOnly(v any) any {
	if v == nil {
		return nil
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, fmt.Sprint(v))

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}

	return n
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// dateText renders a contract date cell as YYYY-MM-DD. Spreadsheet serials are converted,
// other text is kept as is.
func dateText(v any) any {
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		return d.Format(time.DateOnly)
	case string:
		serial, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return d
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return d
		}
		return t.Format(time.DateOnly)
	default:
		return v
	}
}

// findWorkbooks lists the .xlsx files of dir sorted by file name, skipping lock files and
// geocoded outputs.
func findWorkbooks(dir string, recursive bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if strings.EqualFold(filepath.Ext(name), ".xlsx") &&
			!strings.HasPrefix(name, lockFilePrefix) &&
			!strings.HasSuffix(name, geocodedSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})

	return files, nil
}
