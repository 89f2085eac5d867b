package boundary

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squarePolygon builds a closed unit square offset by (dx, dy).
func squarePolygon(dx, dy float64) *shp.Polygon {
	pts := []shp.Point{
		{X: dx, Y: dy},
		{X: dx, Y: dy + 1},
		{X: dx + 1, Y: dy + 1},
		{X: dx + 1, Y: dy},
		{X: dx, Y: dy},
	}
	return &shp.Polygon{
		Box:       shp.Box{MinX: dx, MinY: dy, MaxX: dx + 1, MaxY: dy + 1},
		NumParts:  1,
		NumPoints: int32(len(pts)),
		Parts:     []int32{0},
		Points:    pts,
	}
}

// writeTestShapefile writes a two-region shapefile and returns its path.
func writeTestShapefile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "regions.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField("REGCODE", 25),
		shp.StringField("REGNAME", 50),
		shp.StringField("PARENT", 50),
	})

	records := []struct {
		code, name, parent string
		poly               *shp.Polygon
	}{
		{"100", "A", "RegionX", squarePolygon(0, 0)},
		{"200", "B", "RegionY", squarePolygon(2, 0)},
	}

	for i, rec := range records {
		w.Write(rec.poly)
		w.WriteAttribute(i, 0, rec.code)
		w.WriteAttribute(i, 1, rec.name)
		w.WriteAttribute(i, 2, rec.parent)
	}
	w.Close()

	return path
}

var testSchema = Schema{
	CodeField:   "REGCODE",
	NameField:   "REGNAME",
	ParentField: "PARENT",
	SRID:        4326,
}

func TestLoadShapefile(t *testing.T) {
	path := writeTestShapefile(t)

	rows, err := LoadShapefile(path, testSchema)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "100", first.RegionCode)
	assert.Equal(t, "A", first.RegionName)
	assert.Equal(t, "RegionX", first.ParentRegion)
	require.NotNil(t, first.Geometry)
	assert.Equal(t, 4326, first.Geometry.SRID())
	assert.Equal(t, 1, first.Geometry.NumPolygons())

	assert.Equal(t, "200", rows[1].RegionCode)
	assert.Equal(t, "RegionY", rows[1].ParentRegion)
}

func TestLoadShapefileMissingCodeField(t *testing.T) {
	path := writeTestShapefile(t)

	schema := testSchema
	schema.CodeField = "GEOID"
	_, err := LoadShapefile(path, schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEOID")
}

func TestLoadShapefileMissingFile(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "nope.shp"), testSchema)
	require.Error(t, err)
}

func TestFilterParent(t *testing.T) {
	path := writeTestShapefile(t)
	rows, err := LoadShapefile(path, testSchema)
	require.NoError(t, err)

	tests := []struct {
		name   string
		parent string
		want   int
	}{
		{name: "one match", parent: "RegionX", want: 1},
		{name: "other match", parent: "RegionY", want: 1},
		{name: "no match yields empty not error", parent: "RegionZ", want: 0},
		{name: "empty label keeps all", parent: "", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterParent(rows, tt.parent)
			assert.Len(t, got, tt.want)
			assert.NotNil(t, got)
		})
	}
}

func TestShapeToMultiPolygon(t *testing.T) {
	t.Run("nil shape", func(t *testing.T) {
		assert.Nil(t, shapeToMultiPolygon(nil, 4326))
	})

	t.Run("empty polygon", func(t *testing.T) {
		assert.Nil(t, shapeToMultiPolygon(&shp.Polygon{}, 4326))
	})

	t.Run("point is not polygonal", func(t *testing.T) {
		assert.Nil(t, shapeToMultiPolygon(&shp.Point{X: 1, Y: 2}, 4326))
	})

	t.Run("multi part polygon", func(t *testing.T) {
		a := squarePolygon(0, 0)
		b := squarePolygon(3, 3)
		merged := &shp.Polygon{
			NumParts:  2,
			NumPoints: a.NumPoints + b.NumPoints,
			Parts:     []int32{0, a.NumPoints},
			Points:    append(append([]shp.Point{}, a.Points...), b.Points...),
		}

		mp := shapeToMultiPolygon(merged, 7844)
		require.NotNil(t, mp)
		assert.Equal(t, 2, mp.NumPolygons())
		assert.Equal(t, 7844, mp.SRID())
	})
}
