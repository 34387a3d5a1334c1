package main

import (
	"fmt"
	"path/filepath"

	"github.com/UnknownOlympus/realty-atlas/internal/manifest"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Rebuild manifest.json for the data root",
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries, err := manifest.Write(cfg.DataDir, cfg.ConsumerDir, log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", filepath.Join(cfg.DataDir, manifest.FileName), len(entries))
		return nil
	},
}
