package store

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mapworks/censusmap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS attributes (
	region_code INTEGER NOT NULL,
	region_name TEXT NOT NULL,
	year        INTEGER NOT NULL,
	measure     TEXT NOT NULL,
	value       REAL NOT NULL,
	PRIMARY KEY (region_code, year, measure)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id            TEXT PRIMARY KEY,
	year          INTEGER NOT NULL,
	parent_region TEXT NOT NULL,
	geometry_rows INTEGER NOT NULL,
	matched_rows  INTEGER NOT NULL,
	skipped_codes INTEGER NOT NULL,
	target_srid   INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_attributes_year ON attributes(year);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_created_at ON pipeline_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ImportAttributes(ctx context.Context, records []model.AttributeRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attributes (region_code, region_name, year, measure, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (region_code, year, measure) DO UPDATE SET
			region_name = excluded.region_name,
			value = excluded.value`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close() //nolint:errcheck

	var rows int64
	for _, rec := range records {
		for measure, value := range rec.Measures {
			if _, err := stmt.ExecContext(ctx, rec.RegionCode, rec.RegionName, rec.Year, measure, value); err != nil {
				return 0, eris.Wrapf(err, "sqlite: import region %d", rec.RegionCode)
			}
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return rows, nil
}

func (s *SQLiteStore) Attributes(ctx context.Context, year int) ([]model.AttributeRecord, error) {
	query := `
		SELECT region_code, region_name, year, measure, value
		FROM attributes`
	args := []any{}
	if year != 0 {
		query += ` WHERE year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY region_code, year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query attributes")
	}
	defer rows.Close() //nolint:errcheck

	type key struct {
		code int64
		year int
	}
	grouped := make(map[key]*model.AttributeRecord)
	var order []key

	for rows.Next() {
		var (
			code    int64
			name    string
			y       int
			measure string
			value   float64
		)
		if err := rows.Scan(&code, &name, &y, &measure, &value); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attribute row")
		}

		k := key{code: code, year: y}
		rec, ok := grouped[k]
		if !ok {
			rec = &model.AttributeRecord{
				RegionCode: code,
				RegionName: name,
				Year:       y,
				Measures:   make(map[string]float64),
			}
			grouped[k] = rec
			order = append(order, k)
		}
		rec.Measures[measure] = value
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate attributes")
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].code != order[j].code {
			return order[i].code < order[j].code
		}
		return order[i].year < order[j].year
	})

	out := make([]model.AttributeRecord, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.PipelineRun) (model.PipelineRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
			(id, year, parent_region, geometry_rows, matched_rows, skipped_codes, target_srid, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Year, run.ParentRegion, run.GeometryRows, run.MatchedRows,
		run.SkippedCodes, run.TargetSRID, run.DurationMs, run.CreatedAt,
	)
	if err != nil {
		return model.PipelineRun{}, eris.Wrap(err, "sqlite: record run")
	}
	return run, nil
}

func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, parent_region, geometry_rows, matched_rows, skipped_codes, target_srid, duration_ms, created_at
		FROM pipeline_runs
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PipelineRun
	for rows.Next() {
		var r model.PipelineRun
		if err := rows.Scan(&r.ID, &r.Year, &r.ParentRegion, &r.GeometryRows, &r.MatchedRows,
			&r.SkippedCodes, &r.TargetSRID, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
