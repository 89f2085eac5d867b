// Package store persists imported attribute tables and the pipeline run log
// in a local SQLite database.
package store

import (
	"context"

	"github.com/mapworks/censusmap/internal/model"
)

// Store is the persistence interface used by the CLI commands.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	// ImportAttributes upserts attribute records, one row per measure.
	ImportAttributes(ctx context.Context, records []model.AttributeRecord) (int64, error)

	// Attributes returns all stored records, optionally restricted to a year
	// (year 0 = all years).
	Attributes(ctx context.Context, year int) ([]model.AttributeRecord, error)

	// RecordRun appends one pipeline execution to the run log.
	RecordRun(ctx context.Context, run model.PipelineRun) (model.PipelineRun, error)

	// Runs lists recorded executions, newest first.
	Runs(ctx context.Context, limit int) ([]model.PipelineRun, error)
}
