package render

import (
	"image/color"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mapworks/censusmap/internal/model"
)

// SaveMap renders a static choropleth of the joined table to an image file.
// The output format follows the file extension (.png, .svg, .pdf). Unmatched
// regions are filled with the style's no-data color.
func SaveMap(path string, regions []model.Region, style Style) error {
	if len(regions) == 0 {
		return eris.New("render: no regions to map")
	}

	method, err := ParseMethod(style.Method)
	if err != nil {
		return err
	}

	var values []float64
	for _, r := range regions {
		if v, ok := r.Measure(style.Measure); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return eris.Errorf("render: no region carries measure %q", style.Measure)
	}

	bounds, err := Breaks(values, style.Classes, method)
	if err != nil {
		return err
	}
	colors := style.Colors()

	noData, err := parseHexColor(style.NoData)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = style.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	for _, r := range regions {
		fill := noData
		if v, ok := r.Measure(style.Measure); ok {
			// Colors may be fewer than classes when the palette ramp is short.
			idx := min(ClassOf(v, bounds), len(colors)-1)
			fill, err = parseHexColor(colors[idx])
			if err != nil {
				return err
			}
		}
		if err := addRegion(p, r.Geometry, fill); err != nil {
			return eris.Wrapf(err, "render: region %d", r.RegionCode)
		}
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "render: save map %s", path)
	}
	return nil
}

// addRegion adds one polygon plotter per polygon of the multipolygon.
func addRegion(p *plot.Plot, mp *geom.MultiPolygon, fill color.Color) error {
	if mp == nil {
		return eris.New("nil geometry")
	}

	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)

		rings := make([]plotter.XYer, 0, poly.NumLinearRings())
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			coords := ring.Coords()
			xys := make(plotter.XYs, len(coords))
			for k, c := range coords {
				xys[k].X = c[0]
				xys[k].Y = c[1]
			}
			rings = append(rings, xys)
		}

		shape, err := plotter.NewPolygon(rings...)
		if err != nil {
			return eris.Wrap(err, "build polygon")
		}
		shape.Color = fill
		shape.LineStyle.Color = color.Gray{Y: 80}
		shape.LineStyle.Width = vg.Points(0.5)
		p.Add(shape)
	}

	return nil
}

// parseHexColor parses a #rrggbb hex color.
func parseHexColor(s string) (color.Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return nil, eris.Errorf("render: bad hex color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return nil, eris.Errorf("render: bad hex color %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}
