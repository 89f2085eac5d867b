// Package pipeline implements the tabular-spatial join: demographic
// attribute rows joined onto boundary geometries by region code, restricted
// to one census year and one parent region, with the result tagged to a
// coordinate reference system.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapworks/censusmap/internal/boundary"
	"github.com/mapworks/censusmap/internal/census"
	"github.com/mapworks/censusmap/internal/crs"
	"github.com/mapworks/censusmap/internal/model"
)

// AttributeSource supplies demographic attribute rows.
type AttributeSource interface {
	Attributes(ctx context.Context) ([]model.AttributeRecord, error)
}

// GeometrySource supplies boundary geometry rows.
type GeometrySource interface {
	Geometries(ctx context.Context) ([]model.RegionGeometry, error)
}

// AttributeFunc adapts a function to AttributeSource.
type AttributeFunc func(ctx context.Context) ([]model.AttributeRecord, error)

func (f AttributeFunc) Attributes(ctx context.Context) ([]model.AttributeRecord, error) {
	return f(ctx)
}

// GeometryFunc adapts a function to GeometrySource.
type GeometryFunc func(ctx context.Context) ([]model.RegionGeometry, error)

func (f GeometryFunc) Geometries(ctx context.Context) ([]model.RegionGeometry, error) {
	return f(ctx)
}

// Options selects the region-year slice and the CRS handling for one run.
type Options struct {
	Year         int
	ParentRegion string
	KeyPolicy    model.KeyPolicy
	SourceSRID   int // assigned to untagged geometries; default 4326
	TargetSRID   int // 0 = keep the source CRS
}

// Result is one joined table plus the run counters.
type Result struct {
	Regions      []model.Region
	GeometryRows int // boundary rows after the parent filter and key policy
	MatchedRows  int // joined rows with a matching attribute record
	SkippedCodes int // boundary rows dropped under the skip policy
	Duration     time.Duration
}

// Run executes one load → filter → normalize → join → tag pass.
//
// Left-join semantics hold throughout: every usable boundary row appears in
// the result exactly once, with nil attributes when no record matched. Under
// KeyPolicyFail any unconvertible boundary code aborts the run; under
// KeyPolicySkip the row is dropped and counted. An empty slice (no boundary
// row matching the parent filter) is a valid empty result, not an error.
func Run(ctx context.Context, attrs AttributeSource, geoms GeometrySource, opts Options) (*Result, error) {
	if opts.SourceSRID == 0 {
		opts.SourceSRID = crs.WGS84
	}
	policy := opts.KeyPolicy
	if policy == "" {
		policy = model.KeyPolicyFail
	}

	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.Int("year", opts.Year),
		zap.String("parent_region", opts.ParentRegion),
	)
	start := time.Now()

	// The two sources are independent local reads; load them concurrently.
	var (
		attrRows []model.AttributeRecord
		geomRows []model.RegionGeometry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := attrs.Attributes(gCtx)
		if err != nil {
			return eris.Wrap(err, "pipeline: load attribute source")
		}
		attrRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := geoms.Geometries(gCtx)
		if err != nil {
			return eris.Wrap(err, "pipeline: load geometry source")
		}
		geomRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Slice both sources down to the requested year and parent region.
	attrSlice := census.FilterYear(attrRows, opts.Year)
	geomSlice := boundary.FilterParent(geomRows, opts.ParentRegion)

	if len(geomSlice) == 0 {
		log.Warn("parent region filter matched no boundary rows; producing empty table")
	}

	// Index the attribute slice by the canonical integer key. Within one
	// year slice the code is unique; a duplicate indicates a malformed
	// extract, so keep the first occurrence and say so.
	byCode := make(map[int64]model.AttributeRecord, len(attrSlice))
	for _, rec := range attrSlice {
		if _, dup := byCode[rec.RegionCode]; dup {
			log.Warn("duplicate attribute record for region code; keeping first",
				zap.Int64("region_code", rec.RegionCode),
			)
			continue
		}
		byCode[rec.RegionCode] = rec
	}

	res := &Result{Regions: make([]model.Region, 0, len(geomSlice))}

	for _, bg := range geomSlice {
		code, err := model.ParseRegionCode(bg.RegionCode)
		if err != nil {
			if policy == model.KeyPolicyFail {
				return nil, eris.Wrapf(err, "pipeline: normalize boundary code %q", bg.RegionCode)
			}
			res.SkippedCodes++
			log.Warn("skipping boundary row with unconvertible region code",
				zap.String("region_code", bg.RegionCode),
			)
			continue
		}

		region := model.Region{
			RegionCode:   code,
			RegionName:   bg.RegionName,
			ParentRegion: bg.ParentRegion,
			Geometry:     crs.Tag(bg.Geometry, opts.SourceSRID),
		}

		if rec, ok := byCode[code]; ok {
			// Copy so later source mutations cannot alias into the result.
			attr := rec
			region.Attributes = &attr
			res.MatchedRows++
		}

		if opts.TargetSRID != 0 {
			projected, err := crs.Transform(region.Geometry, opts.TargetSRID)
			if err != nil {
				return nil, eris.Wrapf(err, "pipeline: reproject region %d", code)
			}
			region.Geometry = projected
		}

		res.Regions = append(res.Regions, region)
	}

	res.GeometryRows = len(res.Regions)
	res.Duration = time.Since(start)

	log.Info("join pipeline complete",
		zap.Int("geometry_rows", res.GeometryRows),
		zap.Int("matched_rows", res.MatchedRows),
		zap.Int("skipped_codes", res.SkippedCodes),
		zap.Duration("duration", res.Duration),
	)

	return res, nil
}
