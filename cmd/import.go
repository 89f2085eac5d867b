package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapworks/censusmap/internal/census"
	"github.com/mapworks/censusmap/internal/model"
)

var importKeyPolicy string

var importCmd = &cobra.Command{
	Use:   "import <datapack-file>",
	Short: "Load an attribute datapack into the local store",
	Long:  "Parses a census CSV or XLSX datapack and upserts the attribute records into the SQLite store, one row per measure.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw := cfg.Pipeline.KeyPolicy
		if importKeyPolicy != "" {
			raw = importKeyPolicy
		}
		policy, err := model.ParseKeyPolicy(raw)
		if err != nil {
			return err
		}

		records, err := census.Load(args[0], censusSchema(), policy)
		if err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.ImportAttributes(ctx, records)
		if err != nil {
			return eris.Wrap(err, "import attributes")
		}

		zap.L().Info("datapack imported",
			zap.String("file", args[0]),
			zap.Int("records", len(records)),
			zap.Int64("measure_rows", n),
		)
		fmt.Printf("Imported %d records (%d measure rows) from %s\n", len(records), n, args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importKeyPolicy, "key-policy", "", "region code conversion policy: fail or skip")
	rootCmd.AddCommand(importCmd)
}
