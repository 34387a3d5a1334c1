package main

import (
	"fmt"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/period"
	"github.com/UnknownOlympus/realty-atlas/internal/region"
	"github.com/UnknownOlympus/realty-atlas/internal/resilience"
	"github.com/UnknownOlympus/realty-atlas/internal/rtms"
	"github.com/UnknownOlympus/realty-atlas/internal/service"
	"github.com/spf13/cobra"
)

var fetchFlags struct {
	months       []string
	back         int
	count        int
	prev         bool
	regions      string
	skipExisting bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect monthly transaction workbooks from the RTMS API",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return cfg.RequireServiceKey()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		months, err := period.Resolve(time.Now(), period.Selection{
			Months: fetchFlags.months,
			Back:   fetchFlags.back,
			Count:  fetchFlags.count,
			Ranged: flags.Changed("back") || flags.Changed("count"),
			Prev:   fetchFlags.prev,
		}, cfg.Months)
		if err != nil {
			return err
		}

		regionsFile := cfg.RegionsFile
		if fetchFlags.regions != "" {
			regionsFile = fetchFlags.regions
		}
		regions := region.Load(regionsFile, log)

		client := rtms.NewClient(rtms.Config{
			BaseURL:    cfg.RTMS.BaseURL,
			ServiceKey: cfg.RTMS.ServiceKey,
			PageSize:   cfg.RTMS.PageSize,
			Timeout:    cfg.RTMS.Timeout,
			Policy: resilience.Policy{
				MaxAttempts:    cfg.RTMS.MaxAttempts,
				InitialBackoff: cfg.RTMS.InitialBackoff,
				MaxBackoff:     cfg.RTMS.MaxBackoff,
				Multiplier:     resilience.DefaultPolicy().Multiplier,
			},
		}, log, appMetrics)

		collector := service.NewCollector(log, client, appMetrics, cfg.DataDir, fetchFlags.skipExisting)

		log.InfoContext(ctx, "Collecting transactions", "months", months, "regions", len(regions))
		written, err := collector.Collect(ctx, months, regions)
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		if err != nil {
			return fmt.Errorf("failed to collect transactions: %w", err)
		}

		return nil
	},
}

func init() {
	flags := fetchCmd.Flags()
	flags.StringArrayVarP(&fetchFlags.months, "month", "m", nil, "month to collect as YYYYMM, repeatable")
	flags.IntVar(&fetchFlags.back, "back", 0, "start this many months before the current one")
	flags.IntVar(&fetchFlags.count, "count", 1, "number of consecutive months from the start")
	flags.BoolVar(&fetchFlags.prev, "prev", false, "collect only the previous month")
	flags.StringVar(&fetchFlags.regions, "regions", "", "region catalog (CSV or XLSX), overrides regions_file")
	flags.BoolVar(&fetchFlags.skipExisting, "skip-existing", false, "skip months that already have a workbook")
}
