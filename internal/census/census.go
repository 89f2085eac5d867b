// Package census loads demographic attribute tables from census datapack
// extracts (CSV or XLSX) into model.AttributeRecord rows, normalizing the
// textual region code to the canonical integer key at ingestion.
package census

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/mapworks/censusmap/internal/model"
)

// Schema names the columns of an attribute source table.
type Schema struct {
	NameColumn  string
	CodeColumn  string
	YearColumn  string
	MeasureCols []string // empty = every other column that parses as numeric
}

// Load reads an attribute file, dispatching on extension (.csv or .xlsx).
func Load(path string, schema Schema, policy model.KeyPolicy) ([]model.AttributeRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "census: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return LoadCSV(f, schema, policy)
	case ".xlsx":
		return LoadXLSX(path, schema, policy)
	default:
		return nil, eris.Errorf("census: unsupported attribute file %s", path)
	}
}

// LoadCSV reads attribute records from CSV data with a header row.
func LoadCSV(r io.Reader, schema Schema, policy model.KeyPolicy) ([]model.AttributeRecord, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "census: read CSV header")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "census: read CSV record")
		}
		rows = append(rows, record)
	}

	return buildRecords(header, rows, schema, policy)
}

// LoadXLSX reads attribute records from the first sheet of an XLSX workbook.
func LoadXLSX(path string, schema Schema, policy model.KeyPolicy) ([]model.AttributeRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("census: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	var header []string
	var rows [][]string
	for i, row := range sheet.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		if i == 0 {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	if header == nil {
		return nil, eris.Errorf("census: xlsx %s is empty", path)
	}

	return buildRecords(header, rows, schema, policy)
}

// buildRecords converts raw rows into attribute records under the key policy.
func buildRecords(header []string, rows [][]string, schema Schema, policy model.KeyPolicy) ([]model.AttributeRecord, error) {
	colIdx := mapColumns(header)

	for _, required := range []string{schema.CodeColumn, schema.YearColumn} {
		if _, ok := colIdx[normalizeCol(required)]; !ok {
			return nil, eris.Errorf("census: required column %q not found", required)
		}
	}

	// Columns the measure scan should never treat as values.
	reserved := map[string]bool{
		normalizeCol(schema.NameColumn): true,
		normalizeCol(schema.CodeColumn): true,
		normalizeCol(schema.YearColumn): true,
	}

	log := zap.L().With(zap.String("component", "census.loader"))
	records := make([]model.AttributeRecord, 0, len(rows))
	var skipped int

	for _, record := range rows {
		rawCode := trimQuotes(getCol(record, colIdx, schema.CodeColumn))
		code, err := model.ParseRegionCode(rawCode)
		if err != nil {
			if policy == model.KeyPolicyFail {
				return nil, eris.Wrap(err, "census: normalize region code")
			}
			skipped++
			log.Warn("skipping attribute row with unconvertible region code",
				zap.String("region_code", rawCode),
			)
			continue
		}

		rec := model.AttributeRecord{
			RegionName: trimQuotes(getCol(record, colIdx, schema.NameColumn)),
			RegionCode: code,
			Year:       parseIntOr(getCol(record, colIdx, schema.YearColumn), 0),
			Measures:   make(map[string]float64),
		}

		if len(schema.MeasureCols) > 0 {
			for _, mc := range schema.MeasureCols {
				if v, ok := parseFloatOk(getCol(record, colIdx, mc)); ok {
					rec.Measures[normalizeCol(mc)] = v
				}
			}
		} else {
			for name, idx := range colIdx {
				if reserved[name] || idx >= len(record) {
					continue
				}
				if v, ok := parseFloatOk(record[idx]); ok {
					rec.Measures[name] = v
				}
			}
		}

		records = append(records, rec)
	}

	if skipped > 0 {
		log.Warn("attribute rows skipped for unconvertible region codes",
			zap.Int("skipped", skipped),
		)
	}

	return records, nil
}

// FilterYear returns only the records for the target census year.
// Zero matches is a legitimate empty slice, not an error.
func FilterYear(records []model.AttributeRecord, year int) []model.AttributeRecord {
	out := make([]model.AttributeRecord, 0, len(records))
	for _, r := range records {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}
