package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapworks/censusmap/internal/postgis"
)

var (
	exportFlags joinFlags
	exportTable string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the joined table to PostGIS",
	Long:  "Runs the join pipeline and bulk-loads the result into a PostGIS geometry table via the COPY protocol.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Postgres.DatabaseURL == "" {
			return eris.New("no database: set postgres.database_url")
		}

		res, _, err := exportFlags.execute(ctx)
		if err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "connect postgres")
		}
		defer pool.Close()

		table := cfg.Postgres.Table
		if exportTable != "" {
			table = exportTable
		}

		n, err := postgis.Export(ctx, pool, res.Regions, postgis.Options{
			Table:     table,
			BatchSize: cfg.Postgres.BatchSize,
		})
		if err != nil {
			return err
		}

		zap.L().Info("postgis export complete",
			zap.String("table", table),
			zap.Int64("rows", n),
		)
		fmt.Printf("Exported %d rows to %s\n", n, table)
		return nil
	},
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportTable, "table", "", "target table name (default: configured postgres.table)")
	rootCmd.AddCommand(exportCmd)
}
