//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/mapworks/censusmap/internal/geojson"
	"github.com/mapworks/censusmap/internal/model"
	"github.com/mapworks/censusmap/internal/pipeline"
	"github.com/mapworks/censusmap/internal/render"
	"github.com/mapworks/censusmap/internal/store"
)

func testServeMux(t *testing.T) http.Handler {
	t.Helper()

	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0},
		[][]int{{10}},
	)
	mp.SetSRID(4326)

	regions := []model.Region{
		{
			RegionCode:   100,
			RegionName:   "A",
			ParentRegion: "RegionX",
			Geometry:     mp,
			Attributes: &model.AttributeRecord{
				RegionName: "A",
				RegionCode: 100,
				Year:       2016,
				Measures:   map[string]float64{"persons": 500},
			},
		},
	}

	res := &pipeline.Result{Regions: regions, GeometryRows: 1, MatchedRows: 1}
	opts := pipeline.Options{Year: 2016, ParentRegion: "RegionX"}

	featureJSON, err := geojson.Encode(regions)
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	_, err = st.RecordRun(context.Background(), model.PipelineRun{
		Year: 2016, ParentRegion: "RegionX", GeometryRows: 1, MatchedRows: 1,
	})
	require.NoError(t, err)

	return newServeMux(res, opts, featureJSON, render.DefaultStyle(), st)
}

func TestServeHealthz(t *testing.T) {
	mux := testServeMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeRegions(t *testing.T) {
	mux := testServeMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/regions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 1)
}

func TestServeSummary(t *testing.T) {
	mux := testServeMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var s serveSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 2016, s.Year)
	assert.Equal(t, "RegionX", s.ParentRegion)
	assert.Equal(t, 1, s.GeometryRows)
	assert.Equal(t, 1, s.MatchedRows)
}

func TestServeRuns(t *testing.T) {
	mux := testServeMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var runs []model.PipelineRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 2016, runs[0].Year)
}

func TestServeMapPage(t *testing.T) {
	mux := testServeMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}
