// Package render produces choropleth outputs from a joined region table:
// class breaks and palettes, an interactive HTML chart, and a static
// SVG/PNG map.
package render

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// Method selects how class intervals are computed.
type Method string

const (
	MethodQuantile Method = "quantile"
	MethodEqual    Method = "equal"
)

// ParseMethod validates a classification method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodQuantile, MethodEqual:
		return Method(s), nil
	case "":
		return MethodQuantile, nil
	default:
		return "", eris.Errorf("render: unknown classification method %q", s)
	}
}

// Breaks computes classes+1 class boundaries (min and max included) for the
// given values. Needs at least one value and one class.
func Breaks(values []float64, classes int, method Method) ([]float64, error) {
	if classes < 1 {
		return nil, eris.Errorf("render: class count %d must be positive", classes)
	}
	if len(values) == 0 {
		return nil, eris.New("render: no values to classify")
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	min, max := sorted[0], sorted[len(sorted)-1]
	bounds := make([]float64, classes+1)
	bounds[0] = min
	bounds[classes] = max

	switch method {
	case MethodEqual:
		width := (max - min) / float64(classes)
		for i := 1; i < classes; i++ {
			bounds[i] = min + width*float64(i)
		}
	case MethodQuantile:
		for i := 1; i < classes; i++ {
			p := float64(i) / float64(classes)
			bounds[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
		}
	default:
		return nil, eris.Errorf("render: unknown classification method %q", method)
	}

	return bounds, nil
}

// ClassOf returns the class index (0-based) of a value against the bounds
// produced by Breaks. Values outside the range clamp to the edge classes.
func ClassOf(v float64, bounds []float64) int {
	classes := len(bounds) - 1
	if classes < 1 {
		return 0
	}
	for i := 1; i < classes; i++ {
		if v < bounds[i] {
			return i - 1
		}
	}
	return classes - 1
}
