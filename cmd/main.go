package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/realty-atlas/internal/config"
	"github.com/UnknownOlympus/realty-atlas/internal/logger"
	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dataDir string

	cfg        *config.Config
	log        *slog.Logger
	reg        *prometheus.Registry
	appMetrics *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:           "realty-atlas",
	Short:         "Collects real estate transactions and turns them into map data",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.MustLoad(cfgFile)
		if dataDir != "" {
			cfg.DataDir = dataDir
		}

		log = logger.Setup(cfg.Env, os.Stdout)

		// Create a separate registry for the application metrics.
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		appMetrics = metrics.NewMetrics(reg)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data root, overrides data_dir")

	rootCmd.AddCommand(fetchCmd, geocodeCmd, manifestCmd, serveCmd)
}

// main is the entry point of the application.
func main() {
	// The context is canceled when an interrupt signal is received, which stops the running command.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
