//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mapworks/censusmap/internal/pipeline"
)

func TestFormatJoinSummary(t *testing.T) {
	res := &pipeline.Result{
		GeometryRows: 12345,
		MatchedRows:  12000,
		SkippedCodes: 3,
		Duration:     1234 * time.Millisecond,
	}
	opts := pipeline.Options{
		Year:         2016,
		ParentRegion: "Greater Sydney",
		TargetSRID:   3857,
	}

	var buf bytes.Buffer
	formatJoinSummary(&buf, "abc12345-6789", res, opts)

	output := buf.String()
	assert.Contains(t, output, "Run abc12345")
	assert.Contains(t, output, "2016")
	assert.Contains(t, output, "Greater Sydney")
	assert.Contains(t, output, "12,345")
	assert.Contains(t, output, "12,000")
	assert.Contains(t, output, "Skipped codes: 3")
	assert.Contains(t, output, "3857")
	assert.Contains(t, output, "1.234s")
}

func TestFormatJoinSummaryMinimal(t *testing.T) {
	res := &pipeline.Result{GeometryRows: 2, MatchedRows: 2}
	opts := pipeline.Options{Year: 2021}

	var buf bytes.Buffer
	formatJoinSummary(&buf, "xyz", res, opts)

	output := buf.String()
	assert.NotContains(t, output, "Parent region")
	assert.NotContains(t, output, "Skipped codes")
	assert.NotContains(t, output, "Target SRID")
}
