// Package geojson encodes a joined region table as a GeoJSON
// FeatureCollection for web map consumers.
package geojson

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mapworks/censusmap/internal/model"
)

// Encode converts joined rows to a FeatureCollection. Attribute measures
// become feature properties; unmatched regions carry matched=false and no
// measure properties, mirroring the left-join nulls.
func Encode(regions []model.Region) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(regions))}

	for _, r := range regions {
		if r.Geometry == nil {
			return nil, eris.Errorf("geojson: region %d has no geometry", r.RegionCode)
		}

		props := map[string]interface{}{
			"region_code":   r.RegionCode,
			"region_name":   r.RegionName,
			"parent_region": r.ParentRegion,
			"matched":       r.Matched(),
		}
		if r.Attributes != nil {
			props["year"] = r.Attributes.Year
			for name, value := range r.Attributes.Measures {
				props[name] = value
			}
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   r.Geometry,
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: marshal feature collection")
	}
	return data, nil
}
