// Package model defines the region, attribute, and joined-table types shared
// across the ingestion, pipeline, and rendering layers.
package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// KeyPolicy selects how region codes that fail integer conversion are handled.
type KeyPolicy string

const (
	// KeyPolicyFail aborts the whole pipeline on the first unconvertible code.
	KeyPolicyFail KeyPolicy = "fail"
	// KeyPolicySkip drops rows with unconvertible codes and logs a warning.
	KeyPolicySkip KeyPolicy = "skip"
)

// ParseKeyPolicy validates a key policy string from config or flags.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch KeyPolicy(s) {
	case KeyPolicyFail, KeyPolicySkip:
		return KeyPolicy(s), nil
	case "":
		return KeyPolicyFail, nil
	default:
		return "", eris.Errorf("model: unknown key policy %q (want fail or skip)", s)
	}
}

// ParseRegionCode converts a textual region code to the canonical integer
// join key. Source tables frequently store codes as text; the cast happens
// exactly once, at the ingestion or join boundary.
func ParseRegionCode(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("model: empty region code")
	}
	code, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "model: region code %q is not numeric", s)
	}
	return code, nil
}

// AttributeRecord is one row of a demographic attribute table: a single
// (region, year) observation with one or more named measures.
// RegionCode is already normalized to the canonical integer key; the cast
// from textual source codes happens once at ingestion.
type AttributeRecord struct {
	RegionName string             `json:"region_name"`
	RegionCode int64              `json:"region_code"`
	Year       int                `json:"year"`
	Measures   map[string]float64 `json:"measures"`
}

// Measure returns a named measure value, with ok=false when absent.
func (a AttributeRecord) Measure(name string) (float64, bool) {
	v, ok := a.Measures[name]
	return v, ok
}

// RegionGeometry is one row of a boundary table. RegionCode is kept as the
// raw DBF text here; the pipeline normalizes it to int64 under its KeyPolicy.
type RegionGeometry struct {
	RegionCode   string             `json:"region_code"`
	RegionName   string             `json:"region_name"`
	ParentRegion string             `json:"parent_region"`
	Geometry     *geom.MultiPolygon `json:"-"`
}

// Region is one row of the joined table: boundary geometry plus the matching
// attribute record, if any. Geometry is never nil in a pipeline result;
// Attributes is nil exactly when no attribute row matched (left-join
// semantics).
type Region struct {
	RegionCode   int64              `json:"region_code"`
	RegionName   string             `json:"region_name"`
	ParentRegion string             `json:"parent_region"`
	Geometry     *geom.MultiPolygon `json:"-"`
	Attributes   *AttributeRecord   `json:"attributes,omitempty"`
}

// Matched reports whether an attribute record joined onto this region.
func (r Region) Matched() bool { return r.Attributes != nil }

// Measure returns a named measure from the joined attributes.
// ok=false for unmatched regions or missing measure names.
func (r Region) Measure(name string) (float64, bool) {
	if r.Attributes == nil {
		return 0, false
	}
	return r.Attributes.Measure(name)
}

// PipelineRun records one pipeline execution for the run log.
type PipelineRun struct {
	ID           string    `json:"id"`
	Year         int       `json:"year"`
	ParentRegion string    `json:"parent_region"`
	GeometryRows int       `json:"geometry_rows"`
	MatchedRows  int       `json:"matched_rows"`
	SkippedCodes int       `json:"skipped_codes"`
	TargetSRID   int       `json:"target_srid"`
	DurationMs   int       `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
