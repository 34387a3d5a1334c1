package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/UnknownOlympus/realty-atlas/internal/normalize"
	"github.com/UnknownOlympus/realty-atlas/internal/rtms"
	"github.com/UnknownOlympus/realty-atlas/internal/workbook"
)

// Fetcher returns every raw item of one endpoint for a region code and YYYYMM month.
type Fetcher interface {
	FetchAll(ctx context.Context, endpoint rtms.Endpoint, lawdCode, yearMonth string) ([]models.RawItem, error)
}

// Collector turns transaction API responses into one workbook per month.
type Collector struct {
	log          *slog.Logger
	fetcher      Fetcher
	metrics      *metrics.Metrics
	dataDir      string
	skipExisting bool
	now          func() time.Time
}

// NewCollector creates a Collector writing under dataDir.
func NewCollector(
	log *slog.Logger,
	fetcher Fetcher,
	appMetrics *metrics.Metrics,
	dataDir string,
	skipExisting bool,
) *Collector {
	return &Collector{
		log:          log,
		fetcher:      fetcher,
		metrics:      appMetrics,
		dataDir:      dataDir,
		skipExisting: skipExisting,
		now:          time.Now,
	}
}

// Collect writes <data>/<YYYY>/실거래_<YYYYMM>_v<yymmddHHMM>.xlsx for every month and returns the
// written paths. A failing region, month and endpoint combination is logged and skipped.
func (c *Collector) Collect(ctx context.Context, months []string, regions []models.Region) ([]string, error) {
	var written []string

	for _, month := range months {
		if c.skipExisting {
			existing, err := c.existing(month)
			if err != nil {
				return written, err
			}
			if existing != "" {
				c.log.InfoContext(ctx, "Skipping month with an existing workbook", "month", month, "path", existing)
				continue
			}
		}

		path, err := c.collectMonth(ctx, month, regions)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

func (c *Collector) collectMonth(ctx context.Context, month string, regions []models.Region) (string, error) {
	tables := make([]*workbook.Table, len(rtms.Endpoints))
	for i, endpoint := range rtms.Endpoints {
		tables[i] = workbook.NewTable(endpoint.Variant.Label())
	}

	c.log.InfoContext(ctx, "Collecting month", "month", month, "regions", len(regions))

	for _, reg := range regions {
		for i, endpoint := range rtms.Endpoints {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			items, err := c.fetcher.FetchAll(ctx, endpoint, reg.Code, month)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				c.log.ErrorContext(ctx, "Failed to fetch transactions, skipping",
					"month", month,
					"region", reg.Name,
					"lawd_cd", reg.Code,
					"endpoint", endpoint.Variant,
					"error", err,
				)
				continue
			}

			records, err := normalize.Normalize(endpoint.Variant, reg, items)
			if err != nil {
				return "", fmt.Errorf("failed to normalize %s: %w", endpoint.Variant, err)
			}
			c.metrics.RecordsNormalized.WithLabelValues(string(endpoint.Variant)).Add(float64(len(records)))
			tables[i].AppendRecords(records)

			c.log.DebugContext(ctx, "Collected transactions",
				"month", month, "region", reg.Name, "endpoint", endpoint.Variant, "records", len(records))
		}
	}

	path := c.outputPath(month)
	if err := workbook.Write(path, tables); err != nil {
		return "", fmt.Errorf("failed to write workbook for %s: %w", month, err)
	}

	rows := 0
	for _, table := range tables {
		rows += len(table.Rows)
	}
	c.log.InfoContext(ctx, "Workbook saved", "month", month, "path", path, "rows", rows)

	return path, nil
}

func (c *Collector) outputPath(month string) string {
	version := c.now().Format("0601021504")
	return filepath.Join(c.dataDir, month[:4], fmt.Sprintf("실거래_%s_v%s.xlsx", month, version))
}

// existing returns a workbook already collected for month, or "".
func (c *Collector) existing(month string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(c.dataDir, month[:4], "실거래_"+month+"_*.xlsx"))
	if err != nil {
		return "", fmt.Errorf("failed to scan for existing workbooks: %w", err)
	}
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			return match, nil
		}
	}

	return "", nil
}
