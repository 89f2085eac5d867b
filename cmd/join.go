package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mapworks/censusmap/internal/boundary"
	"github.com/mapworks/censusmap/internal/census"
	"github.com/mapworks/censusmap/internal/model"
	"github.com/mapworks/censusmap/internal/pipeline"
	"github.com/mapworks/censusmap/internal/store"
)

// initStore opens the local SQLite store configured in cfg.
func initStore() (store.Store, error) {
	return store.NewSQLite(cfg.Store.Path)
}

func censusSchema() census.Schema {
	return census.Schema{
		NameColumn:  cfg.Census.NameColumn,
		CodeColumn:  cfg.Census.CodeColumn,
		YearColumn:  cfg.Census.YearColumn,
		MeasureCols: cfg.Census.MeasureColumns(),
	}
}

func boundarySchema() boundary.Schema {
	return boundary.Schema{
		CodeField:   cfg.Boundary.CodeField,
		NameField:   cfg.Boundary.NameField,
		ParentField: cfg.Boundary.ParentField,
		SRID:        cfg.Boundary.SRID,
	}
}

// joinFlags holds the per-command flags shared by every command that
// executes the join. Flag values override the configured defaults.
type joinFlags struct {
	censusPath string
	shapefile  string
	year       int
	parent     string
	keyPolicy  string
	targetSRID int
	fromStore  bool
}

func (f *joinFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.censusPath, "census", "", "attribute CSV/XLSX file (default: configured census.path)")
	cmd.Flags().StringVar(&f.shapefile, "shapefile", "", "boundary shapefile (default: configured boundary.shapefile_path)")
	cmd.Flags().IntVar(&f.year, "year", 0, "census year to select (default: configured pipeline.year)")
	cmd.Flags().StringVar(&f.parent, "parent", "", "parent region label to select (default: configured pipeline.parent_region)")
	cmd.Flags().StringVar(&f.keyPolicy, "key-policy", "", "region code conversion policy: fail or skip")
	cmd.Flags().IntVar(&f.targetSRID, "target-srid", 0, "reproject output to this SRID (4326 or 3857; 0 keeps the source CRS)")
	cmd.Flags().BoolVar(&f.fromStore, "from-store", false, "read attributes from the local store instead of a file")
}

// options merges flag values over the configured pipeline defaults.
func (f *joinFlags) options() (pipeline.Options, error) {
	opts := pipeline.Options{
		Year:         cfg.Pipeline.Year,
		ParentRegion: cfg.Pipeline.ParentRegion,
		SourceSRID:   cfg.Boundary.SRID,
		TargetSRID:   cfg.Pipeline.TargetSRID,
	}
	if f.year != 0 {
		opts.Year = f.year
	}
	if f.parent != "" {
		opts.ParentRegion = f.parent
	}
	if f.targetSRID != 0 {
		opts.TargetSRID = f.targetSRID
	}

	raw := cfg.Pipeline.KeyPolicy
	if f.keyPolicy != "" {
		raw = f.keyPolicy
	}
	policy, err := model.ParseKeyPolicy(raw)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts.KeyPolicy = policy

	return opts, nil
}

// execute runs the join pipeline from the configured sources. Attribute
// rows come from the store when --from-store is set, otherwise from the
// census datapack file.
func (f *joinFlags) execute(ctx context.Context) (*pipeline.Result, pipeline.Options, error) {
	opts, err := f.options()
	if err != nil {
		return nil, pipeline.Options{}, err
	}

	var attrs pipeline.AttributeSource
	if f.fromStore {
		st, err := initStore()
		if err != nil {
			return nil, pipeline.Options{}, err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return nil, pipeline.Options{}, err
		}
		attrs = pipeline.AttributeFunc(func(ctx context.Context) ([]model.AttributeRecord, error) {
			return st.Attributes(ctx, opts.Year)
		})
	} else {
		path := cfg.Census.Path
		if f.censusPath != "" {
			path = f.censusPath
		}
		if path == "" {
			return nil, pipeline.Options{}, eris.New("no census file: set census.path or pass --census")
		}
		schema := censusSchema()
		attrs = pipeline.AttributeFunc(func(ctx context.Context) ([]model.AttributeRecord, error) {
			return census.Load(path, schema, opts.KeyPolicy)
		})
	}

	shpPath := cfg.Boundary.ShapefilePath
	if f.shapefile != "" {
		shpPath = f.shapefile
	}
	if shpPath == "" {
		return nil, pipeline.Options{}, eris.New("no boundary shapefile: set boundary.shapefile_path or pass --shapefile")
	}
	schema := boundarySchema()
	geoms := pipeline.GeometryFunc(func(ctx context.Context) ([]model.RegionGeometry, error) {
		return boundary.LoadShapefile(shpPath, schema)
	})

	res, err := pipeline.Run(ctx, attrs, geoms, opts)
	if err != nil {
		return nil, pipeline.Options{}, err
	}
	return res, opts, nil
}
