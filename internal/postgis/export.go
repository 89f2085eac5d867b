// Package postgis pushes a joined region table into a PostGIS table so the
// result can be served to SQL and tile consumers.
package postgis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/mapworks/censusmap/internal/db"
	"github.com/mapworks/censusmap/internal/model"
)

// Options configures the export target.
type Options struct {
	Table     string // target table name
	BatchSize int    // COPY batch size (default 5000)
}

// exportColumns lists the target table columns in COPY order.
var exportColumns = []string{
	"region_code", "region_name", "parent_region", "census_year", "measures", "geom",
}

// Export creates the target table if needed, truncates it, and COPYs the
// joined rows in. Geometry travels as EWKB, so the stored SRID matches the
// pipeline's CRS tag. Returns the number of rows loaded.
func Export(ctx context.Context, pool db.Pool, regions []model.Region, opts Options) (int64, error) {
	if opts.Table == "" {
		opts.Table = "joined_regions"
	}

	log := zap.L().With(
		zap.String("component", "postgis.export"),
		zap.String("table", opts.Table),
	)

	srid := 4326
	if len(regions) > 0 && regions[0].Geometry != nil {
		srid = regions[0].Geometry.SRID()
	}

	if err := ensureTable(ctx, pool, opts.Table, srid); err != nil {
		return 0, err
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", pgx.Identifier{opts.Table}.Sanitize())); err != nil {
		return 0, eris.Wrapf(err, "postgis: truncate %s", opts.Table)
	}

	rows := make([][]any, 0, len(regions))
	for _, r := range regions {
		if r.Geometry == nil {
			return 0, eris.Errorf("postgis: region %d has no geometry", r.RegionCode)
		}

		wkb, err := ewkb.Marshal(r.Geometry, ewkb.NDR)
		if err != nil {
			return 0, eris.Wrapf(err, "postgis: encode region %d", r.RegionCode)
		}

		var year any
		var measures any
		if r.Attributes != nil {
			year = r.Attributes.Year
			data, err := json.Marshal(r.Attributes.Measures)
			if err != nil {
				return 0, eris.Wrapf(err, "postgis: encode measures for region %d", r.RegionCode)
			}
			measures = string(data)
		}

		rows = append(rows, []any{r.RegionCode, r.RegionName, r.ParentRegion, year, measures, wkb})
	}

	loaded, err := db.CopyFromBatched(ctx, pool, opts.Table, exportColumns, rows, opts.BatchSize)
	if err != nil {
		return loaded, eris.Wrapf(err, "postgis: load %s", opts.Table)
	}

	log.Info("joined table exported", zap.Int64("rows", loaded), zap.Int("srid", srid))
	return loaded, nil
}

// ensureTable creates the export table and its spatial index.
func ensureTable(ctx context.Context, pool db.Pool, table string, srid int) error {
	ident := pgx.Identifier{table}.Sanitize()

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			region_code   BIGINT PRIMARY KEY,
			region_name   TEXT NOT NULL,
			parent_region TEXT NOT NULL DEFAULT '',
			census_year   INT,
			measures      JSONB,
			geom          geometry(MultiPolygon, %d) NOT NULL
		)`, ident, srid)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "postgis: create table %s", table)
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING gist (geom)",
		pgx.Identifier{"idx_" + table + "_geom"}.Sanitize(), ident,
	)
	if _, err := pool.Exec(ctx, idx); err != nil {
		return eris.Wrapf(err, "postgis: create spatial index on %s", table)
	}

	return nil
}
