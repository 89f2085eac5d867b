package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/mapworks/censusmap/internal/crs"
	"github.com/mapworks/censusmap/internal/model"
)

// square returns a unit square multipolygon offset by dx with the given SRID.
func square(dx float64, srid int) *geom.MultiPolygon {
	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{dx, 0, dx + 1, 0, dx + 1, 1, dx, 1, dx, 0},
		[][]int{{10}},
	)
	mp.SetSRID(srid)
	return mp
}

func testAttributes() AttributeSource {
	return AttributeFunc(func(context.Context) ([]model.AttributeRecord, error) {
		return []model.AttributeRecord{
			{RegionName: "A", RegionCode: 100, Year: 2016, Measures: map[string]float64{"persons": 500}},
			{RegionName: "A", RegionCode: 100, Year: 2011, Measures: map[string]float64{"persons": 400}},
		}, nil
	})
}

func testGeometries() GeometrySource {
	return GeometryFunc(func(context.Context) ([]model.RegionGeometry, error) {
		return []model.RegionGeometry{
			{RegionCode: "100", RegionName: "A", ParentRegion: "RegionX", Geometry: square(0, 0)},
			{RegionCode: "200", RegionName: "B", ParentRegion: "RegionY", Geometry: square(2, 0)},
		}, nil
	})
}

func TestRunJoinsOneRegion(t *testing.T) {
	res, err := Run(context.Background(), testAttributes(), testGeometries(), Options{
		Year:         2016,
		ParentRegion: "RegionX",
	})
	require.NoError(t, err)

	// Left-join identity: output rows == filtered geometry rows.
	require.Len(t, res.Regions, 1)
	assert.Equal(t, 1, res.GeometryRows)
	assert.Equal(t, 1, res.MatchedRows)

	row := res.Regions[0]
	assert.Equal(t, int64(100), row.RegionCode)
	assert.Equal(t, "A", row.RegionName)
	require.NotNil(t, row.Geometry)
	assert.Equal(t, crs.WGS84, row.Geometry.SRID())

	// The textual shapefile code "100" joined the integer attribute key 100,
	// and attribute values passed through exactly.
	require.True(t, row.Matched())
	assert.Equal(t, 2016, row.Attributes.Year)
	persons, ok := row.Measure("persons")
	require.True(t, ok)
	assert.Equal(t, 500.0, persons)
}

func TestRunLeftJoinKeepsUnmatchedGeometry(t *testing.T) {
	// No parent filter: both geometries survive, only one has attributes.
	res, err := Run(context.Background(), testAttributes(), testGeometries(), Options{Year: 2016})
	require.NoError(t, err)

	require.Len(t, res.Regions, 2)
	assert.Equal(t, 1, res.MatchedRows)

	for _, row := range res.Regions {
		assert.NotNil(t, row.Geometry, "joined rows must always carry geometry")
	}

	assert.True(t, res.Regions[0].Matched())
	assert.False(t, res.Regions[1].Matched())
	assert.Nil(t, res.Regions[1].Attributes)
}

func TestRunEmptyParentSlice(t *testing.T) {
	res, err := Run(context.Background(), testAttributes(), testGeometries(), Options{
		Year:         2016,
		ParentRegion: "RegionZ",
	})
	require.NoError(t, err, "an empty slice is a result, not an error")
	assert.Empty(t, res.Regions)
	assert.Equal(t, 0, res.GeometryRows)
	assert.Equal(t, 0, res.MatchedRows)
}

func TestRunYearFilter(t *testing.T) {
	res, err := Run(context.Background(), testAttributes(), testGeometries(), Options{
		Year:         2011,
		ParentRegion: "RegionX",
	})
	require.NoError(t, err)

	require.Len(t, res.Regions, 1)
	persons, ok := res.Regions[0].Measure("persons")
	require.True(t, ok)
	assert.Equal(t, 400.0, persons)
}

func TestRunKeyPolicy(t *testing.T) {
	geoms := GeometryFunc(func(context.Context) ([]model.RegionGeometry, error) {
		return []model.RegionGeometry{
			{RegionCode: "100", RegionName: "A", ParentRegion: "RegionX", Geometry: square(0, 0)},
			{RegionCode: "1OO", RegionName: "Bad", ParentRegion: "RegionX", Geometry: square(2, 0)},
		}, nil
	})

	t.Run("fail aborts the run", func(t *testing.T) {
		_, err := Run(context.Background(), testAttributes(), geoms, Options{
			Year:         2016,
			ParentRegion: "RegionX",
			KeyPolicy:    model.KeyPolicyFail,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1OO")
	})

	t.Run("skip drops and counts the row", func(t *testing.T) {
		res, err := Run(context.Background(), testAttributes(), geoms, Options{
			Year:         2016,
			ParentRegion: "RegionX",
			KeyPolicy:    model.KeyPolicySkip,
		})
		require.NoError(t, err)
		require.Len(t, res.Regions, 1)
		assert.Equal(t, 1, res.SkippedCodes)
		assert.Equal(t, int64(100), res.Regions[0].RegionCode)
	})
}

func TestRunTagsUntaggedGeometry(t *testing.T) {
	geoms := GeometryFunc(func(context.Context) ([]model.RegionGeometry, error) {
		return []model.RegionGeometry{
			{RegionCode: "100", RegionName: "A", ParentRegion: "RegionX", Geometry: square(0, 0)},
		}, nil
	})

	res, err := Run(context.Background(), testAttributes(), geoms, Options{
		Year:         2016,
		ParentRegion: "RegionX",
		SourceSRID:   7844,
	})
	require.NoError(t, err)
	assert.Equal(t, 7844, res.Regions[0].Geometry.SRID())
}

func TestRunReprojects(t *testing.T) {
	geoms := GeometryFunc(func(context.Context) ([]model.RegionGeometry, error) {
		return []model.RegionGeometry{
			{RegionCode: "100", RegionName: "A", ParentRegion: "RegionX", Geometry: square(0, crs.WGS84)},
		}, nil
	})

	res, err := Run(context.Background(), testAttributes(), geoms, Options{
		Year:         2016,
		ParentRegion: "RegionX",
		TargetSRID:   crs.WebMercator,
	})
	require.NoError(t, err)

	g := res.Regions[0].Geometry
	assert.Equal(t, crs.WebMercator, g.SRID())
	// One degree of longitude is ~111 km of web-mercator easting.
	assert.InDelta(t, 111319.49, g.FlatCoords()[2], 1.0)
}

func TestRunSourceErrors(t *testing.T) {
	failing := AttributeFunc(func(context.Context) ([]model.AttributeRecord, error) {
		return nil, eris.New("boom")
	})

	_, err := Run(context.Background(), failing, testGeometries(), Options{Year: 2016})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribute source")

	failingGeom := GeometryFunc(func(context.Context) ([]model.RegionGeometry, error) {
		return nil, eris.New("no shapefile")
	})
	_, err = Run(context.Background(), testAttributes(), failingGeom, Options{Year: 2016})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geometry source")
}

func TestRunDuplicateAttributeKeepsFirst(t *testing.T) {
	attrs := AttributeFunc(func(context.Context) ([]model.AttributeRecord, error) {
		return []model.AttributeRecord{
			{RegionName: "A", RegionCode: 100, Year: 2016, Measures: map[string]float64{"persons": 500}},
			{RegionName: "A dup", RegionCode: 100, Year: 2016, Measures: map[string]float64{"persons": 999}},
		}, nil
	})

	res, err := Run(context.Background(), attrs, testGeometries(), Options{
		Year:         2016,
		ParentRegion: "RegionX",
	})
	require.NoError(t, err)

	persons, ok := res.Regions[0].Measure("persons")
	require.True(t, ok)
	assert.Equal(t, 500.0, persons)
}
