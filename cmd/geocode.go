package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/realty-atlas/internal/cache"
	"github.com/UnknownOlympus/realty-atlas/internal/config"
	"github.com/UnknownOlympus/realty-atlas/internal/geocoding"
	"github.com/UnknownOlympus/realty-atlas/internal/repository"
	"github.com/UnknownOlympus/realty-atlas/internal/service"
	"github.com/spf13/cobra"
)

var errNoInput = errors.New("either --dir or --file is required")

var geocodeFlags struct {
	dir       string
	file      string
	recursive bool
	sheets    []string
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Add coordinates to collected workbooks and export GeoJSON",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if geocodeFlags.dir == "" && geocodeFlags.file == "" {
			return errNoInput
		}
		return cfg.RequireProviderKey()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:      geocoding.ProviderType(cfg.Provider.Type),
			APIKey:    cfg.Provider.APIKey,
			RateLimit: cfg.Provider.RateLimit,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("failed to create geocoding provider: %w", err)
		}
		log.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Provider.Type)

		stores, closeStores, err := cacheStores(ctx)
		if err != nil {
			return err
		}
		defer closeStores()

		sheets := cfg.Geocode.Sheets
		if len(geocodeFlags.sheets) > 0 {
			sheets = geocodeFlags.sheets
		}

		geocoder := service.NewFileGeocoder(log, provider, cfg.Provider.Type, appMetrics, stores, service.GeocodeOptions{
			Cooldown:       cfg.Geocode.Cooldown,
			AutosaveEvery:  cfg.Geocode.AutosaveEvery,
			NormalizeSeoul: cfg.Geocode.NormalizeSeoul,
			Workers:        cfg.Geocode.Workers,
			Sheets:         sheets,
			ConsumerDir:    cfg.ConsumerDir,
		})

		var results []service.GeocodeResult
		if geocodeFlags.file != "" {
			var res service.GeocodeResult
			res, err = geocoder.ProcessFile(ctx, geocodeFlags.file)
			results = append(results, res)
		} else {
			results, err = geocoder.ProcessDir(ctx, geocodeFlags.dir, geocodeFlags.recursive)
		}

		for _, res := range results {
			if res.Skipped || res.GeoJSON == "" {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", res.Workbook, res.GeoJSON, res.Features)
		}
		if err != nil {
			return fmt.Errorf("failed to geocode: %w", err)
		}

		return nil
	},
}

// cacheStores selects where address caches live. The postgres driver shares one table
// between all directories.
func cacheStores(ctx context.Context) (service.StoreFunc, func(), error) {
	if cfg.Cache.Driver != config.CacheDriverPostgres {
		return service.FileStores, func() {}, nil
	}

	pool, err := repository.NewDatabase(ctx,
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	repo := repository.NewRepository(pool, log)
	if err = repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return func(string) cache.Store { return repo }, pool.Close, nil
}

func init() {
	flags := geocodeCmd.Flags()
	flags.StringVarP(&geocodeFlags.dir, "dir", "d", "", "directory of collected workbooks")
	flags.StringVarP(&geocodeFlags.file, "file", "f", "", "single workbook to geocode")
	flags.BoolVar(&geocodeFlags.recursive, "recursive", false, "also process subdirectories of --dir")
	flags.StringSliceVar(&geocodeFlags.sheets, "sheets", nil, "only geocode these sheets")
	geocodeCmd.MarkFlagsMutuallyExclusive("dir", "file")
}
