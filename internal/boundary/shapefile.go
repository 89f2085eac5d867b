// Package boundary reads administrative boundary shapefiles into
// model.RegionGeometry rows, converting shapefile polygons to go-geom
// multipolygons tagged with the source CRS.
package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapworks/censusmap/internal/model"
)

// Schema names the DBF fields carrying the region identifiers.
type Schema struct {
	CodeField   string
	NameField   string
	ParentField string
	SRID        int // assigned to geometries; shapefiles carry no inline CRS
}

// LoadShapefile reads one boundary row per shapefile record. Records with
// missing or malformed geometry are skipped and counted; a shapefile where
// every record is skipped still yields an empty (non-nil) slice.
func LoadShapefile(shpPath string, schema Schema) ([]model.RegionGeometry, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	codeIdx, ok := fieldIdx[strings.ToLower(schema.CodeField)]
	if !ok {
		return nil, eris.Errorf("boundary: code field %q not found in %s", schema.CodeField, shpPath)
	}
	nameIdx, hasName := fieldIdx[strings.ToLower(schema.NameField)]
	parentIdx, hasParent := fieldIdx[strings.ToLower(schema.ParentField)]

	rows := make([]model.RegionGeometry, 0, 64)
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		mp := shapeToMultiPolygon(shape, schema.SRID)
		if mp == nil {
			skipped++
			continue
		}

		row := model.RegionGeometry{
			RegionCode: attr(reader, codeIdx),
			Geometry:   mp,
		}
		if hasName {
			row.RegionName = attr(reader, nameIdx)
		}
		if hasParent {
			row.ParentRegion = attr(reader, parentIdx)
		}

		rows = append(rows, row)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return rows, nil
}

// FilterParent restricts boundary rows to one parent region label.
// A label matching no rows yields an empty slice, never an error.
func FilterParent(rows []model.RegionGeometry, parent string) []model.RegionGeometry {
	if parent == "" {
		return rows
	}
	out := make([]model.RegionGeometry, 0, len(rows))
	for _, r := range rows {
		if r.ParentRegion == parent {
			out = append(out, r)
		}
	}
	return out
}

// attr reads a trimmed DBF attribute value.
func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}
