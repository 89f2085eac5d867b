package census

import (
	"strconv"
	"strings"
)

// normalizeCol lowercases and trims a header name for cross-format matching.
func normalizeCol(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapColumns builds a normalized column name → index map from a header row.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// getCol gets a column value by normalized name; empty string when absent.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[normalizeCol(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// trimQuotes removes surrounding double quotes from a field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// parseIntOr parses a string as an integer, returning def on failure.
// Census extracts use a handful of suppression flags in numeric columns.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" || s == ".." || s == "np" || s == "N/A" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseFloatOk parses a string as a float64, reporting whether it parsed.
func parseFloatOk(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == ".." || s == "np" || s == "N/A" {
		return 0, false
	}
	// Thousands separators show up in exported spreadsheets.
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
