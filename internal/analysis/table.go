package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column kinds inferred from cell content.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Options controls parsing and profiling of tabular data.
type Options struct {
	// MaxRows limits rows profiled; 0 means unlimited. Ingestion always reads every row.
	MaxRows int
	// SampleRows determines how many example rows to include in a profile.
	SampleRows int
	// Delimiter for CSV. If 0, picked from the file name (.tsv => tab, else comma).
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset parsing.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Column is a header entry with its inferred kind.
type Column struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Table is a fully materialized delimited or spreadsheet dataset.
// Every row has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]string

	opt Options
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index looks up a column by exact name, falling back to a trimmed,
// case-insensitive match.
func (t *Table) Index(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, c := range t.Columns {
		if strings.ToLower(strings.TrimSpace(c.Name)) == want {
			return i, true
		}
	}
	return -1, false
}

// Value returns the trimmed cell text.
func (t *Table) Value(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Float parses a cell as a number using the table's locale options.
func (t *Table) Float(row, col int) (float64, bool) {
	v := t.Value(row, col)
	if v == "" {
		return 0, false
	}
	return parseNumeric(v, t.opt)
}

// Options returns the options the table was read with.
func (t *Table) Options() Options { return t.opt }

// NewTable builds a table from a header and raw rows, normalizing row width
// and inferring column kinds.
func NewTable(name string, header []string, rows [][]string, opt Options) *Table {
	t := &Table{Name: name, opt: opt}
	t.Columns = make([]Column, len(header))
	for i, h := range header {
		t.Columns[i] = Column{Name: strings.TrimSpace(h)}
	}
	ncol := len(header)
	t.Rows = make([][]string, 0, len(rows))
	for _, rec := range rows {
		row := make([]string, ncol)
		for j := 0; j < ncol && j < len(rec); j++ {
			row[j] = strings.TrimSpace(rec[j])
		}
		t.Rows = append(t.Rows, row)
	}
	t.inferKinds()
	return t
}

// ReadDelimited parses delimited text with a header row into a Table.
// An input without a header yields an empty table with no columns.
func ReadDelimited(r io.Reader, name string, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(name, nil, nil, opt), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = trimBOM(header)
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return NewTable(name, header, rows, opt), nil
}

func (t *Table) inferKinds() {
	for j := range t.Columns {
		var numCnt, dtCnt, txtCnt int
		cats := map[string]struct{}{}
		for _, row := range t.Rows {
			v := row[j]
			if v == "" {
				continue
			}
			if _, ok := parseNumeric(v, t.opt); ok {
				numCnt++
				continue
			}
			if _, ok := parseTimeMaybe(v); ok {
				dtCnt++
				continue
			}
			txtCnt++
			if len(v) <= 64 {
				cats[v] = struct{}{}
			}
		}
		t.Columns[j].Kind = decideKind(numCnt, dtCnt, txtCnt, len(cats))
	}
}

// decideKind picks the predominant parsed type.
func decideKind(numCnt, dtCnt, txtCnt, cats int) string {
	switch {
	case numCnt >= dtCnt && numCnt >= txtCnt && numCnt > 0:
		return KindNumeric
	case dtCnt >= txtCnt && dtCnt > 0:
		return KindDatetime
	case cats > 0:
		return KindCategorical
	case txtCnt > 0:
		return KindText
	default:
		return KindUnknown
	}
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses a locale-formatted number with the given options.
func ParseNumber(s string, opt Options) (float64, bool) {
	return parseNumeric(s, opt)
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw, ok := NormalizeNumber(s, opt)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizeNumber strips currency symbols, percent signs and thousands
// separators and returns the value with '.' as the decimal separator, ready
// for strconv or an arbitrary-precision parser.
func NormalizeNumber(s string, opt Options) (string, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.TrimLeft(raw, "$€£")
	if strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		raw = raw[:1] + strings.TrimLeft(raw[1:], "$€£")
	}
	// Normalize spaces
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		dec, thou = detectSeparators(raw, thou)
	}
	// Remove thousands separators (common: ',', '.', space) if they differ from decimal
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	return raw, true
}

// detectSeparators guesses the decimal separator of a single value. When only
// one of ',' or '.' appears, it is a thousands separator if it repeats or is
// followed by exactly three digits ("1,000" or "2.500.000").
func detectSeparators(raw string, thou rune) (rune, rune) {
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			return ',', '.'
		}
		return '.', ','
	case cpos >= 0:
		if groupedThousands(raw, ',') {
			return '.', ','
		}
		return ',', thou
	case dpos >= 0:
		if strings.Count(raw, ".") > 1 && groupedThousands(raw, '.') {
			return ',', '.'
		}
		return '.', thou
	default:
		return '.', thou
	}
}

func groupedThousands(raw string, sep rune) bool {
	parts := strings.Split(raw, string(sep))
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
