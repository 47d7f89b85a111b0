package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Report is a profile of one export, rendered by Markdown.
type Report struct {
	Name      string          `json:"name"`
	Rows      int             `json:"rows"`
	Processed int             `json:"processed"`
	Cols      []ColumnSummary `json:"columns"`
	Samples   [][]string      `json:"samples,omitempty"`
	Sections  []Section       `json:"sections,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Section is an extra bulleted block appended after the schema, such as the
// role check run by "sitelens profile --role".
type Section struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// AddSection appends a titled block to the report.
func (r *Report) AddSection(title string, lines ...string) {
	r.Sections = append(r.Sections, Section{Title: title, Lines: lines})
}

// ColumnSummary is the inferred kind and statistics of one column. Numeric
// fields are only set for numeric columns.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Unit    string `json:"unit,omitempty"`
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique,omitempty"`

	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Std  float64 `json:"std,omitempty"`

	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty"`

	TopValues []CategoryCount `json:"top_values,omitempty"`
	Examples  []string        `json:"examples,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const (
	maxCategories   = 10000
	maxCategoryLen  = 64
	maxTopValues    = 8
	maxExamples     = 3
	minOutlierCells = 8
)

// columnAcc folds the cells of one column. Numeric moments use Welford's
// update.
type columnAcc struct {
	sum ColumnSummary

	n, numeric, datetime, text int
	mean, m2                   float64
	vals                       []float64
	cats                       map[string]int
}

func newColumnAcc(header string) *columnAcc {
	name, unit := splitUnits(header)
	return &columnAcc{
		sum:  ColumnSummary{Name: name, Unit: unit, Min: math.Inf(1), Max: math.Inf(-1)},
		cats: map[string]int{},
	}
}

func (a *columnAcc) observe(v string, opt Options) {
	if v == "" {
		a.sum.Missing++
		return
	}
	a.sum.NonNull++
	if a.sum.Unit == "" && strings.Contains(v, "%") {
		a.sum.Unit = "%"
	}
	if x, ok := parseNumeric(v, opt); ok {
		a.numeric++
		a.n++
		a.sum.Min = math.Min(a.sum.Min, x)
		a.sum.Max = math.Max(a.sum.Max, x)
		d := x - a.mean
		a.mean += d / float64(a.n)
		a.m2 += d * (x - a.mean)
		a.vals = append(a.vals, x)
		return
	}
	if _, ok := parseTimeMaybe(v); ok {
		a.datetime++
		return
	}
	a.text++
	if len(a.cats) <= maxCategories && len(v) <= maxCategoryLen {
		a.cats[v]++
	}
	if len(a.sum.Examples) < maxExamples {
		a.sum.Examples = append(a.sum.Examples, v)
	}
}

func (a *columnAcc) summary(opt Options) ColumnSummary {
	s := a.sum
	s.Kind = decideKind(a.numeric, a.datetime, a.text, len(a.cats))
	if s.Kind != KindNumeric {
		s.Min, s.Max = 0, 0
	}
	if s.Kind != KindText {
		s.Examples = nil
	}
	switch s.Kind {
	case KindNumeric:
		s.Mean = a.mean
		if a.n > 1 {
			s.Std = math.Sqrt(a.m2 / float64(a.n-1))
		}
		if opt.Outliers && len(a.vals) >= minOutlierCells {
			s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = robustOutliers(a.vals, opt.OutlierThreshold)
		}
	case KindCategorical:
		s.Unique = len(a.cats)
		s.TopValues = topCategories(a.cats, maxTopValues)
	}
	return s
}

// topCategories orders values by count, ties broken by value.
func topCategories(cats map[string]int, limit int) []CategoryCount {
	out := make([]CategoryCount, 0, len(cats))
	for v, n := range cats {
		out = append(out, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Profile summarizes every column of the table. Only the first opt.MaxRows
// rows contribute.
func (t *Table) Profile(opt Options) *Report {
	rep := &Report{Name: t.Name, Rows: len(t.Rows)}
	if len(t.Columns) == 0 {
		return rep
	}
	accs := make([]*columnAcc, len(t.Columns))
	for i, c := range t.Columns {
		accs[i] = newColumnAcc(c.Name)
	}
	limit := len(t.Rows)
	if opt.MaxRows > 0 && opt.MaxRows < limit {
		limit = opt.MaxRows
	}
	for _, rec := range t.Rows[:limit] {
		if len(rep.Samples) < opt.SampleRows {
			rep.Samples = append(rep.Samples, append([]string(nil), rec...))
		}
		for j, a := range accs {
			a.observe(rec[j], opt)
		}
	}
	rep.Processed = limit

	rep.Cols = make([]ColumnSummary, len(accs))
	for i, a := range accs {
		rep.Cols[i] = a.summary(opt)
	}
	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	return rep
}

// robustOutliers counts values whose robust z-score (0.6745·|x-median|/MAD)
// exceeds thr, defaulting thr to 3.5.
func robustOutliers(vals []float64, thr float64) (cnt int, maxAbsZ, threshold float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0, thr
	}
	for _, v := range vals {
		z := math.Abs(0.6745 * (v - median) / mad)
		if z > thr {
			cnt++
		}
		maxAbsZ = math.Max(maxAbsZ, z)
	}
	return cnt, maxAbsZ, thr
}

// Markdown renders the report as [DATASET SUMMARY] and [SCHEMA] blocks
// followed by sample rows, extra sections and notes.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	switch {
	case r.Rows > 0 && r.Processed > 0 && r.Processed < r.Rows:
		fmt.Fprintf(&b, "Rows: ~%d (processed %d)\n", r.Rows, r.Processed)
	case r.Rows > 0:
		fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	}
	fmt.Fprintf(&b, "Columns: %d\n\n[SCHEMA]\n", len(r.Cols))
	for _, c := range r.Cols {
		writeColumn(&b, c)
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		header := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			header[i] = safeName(c.Name)
		}
		WriteMarkdownTable(&b, header, r.Samples)
	}
	for _, s := range r.Sections {
		writeBullets(&b, s.Title, s.Lines)
	}
	if len(r.Warnings) > 0 {
		writeBullets(&b, "NOTES", r.Warnings)
	}
	return b.String()
}

func writeColumn(b *strings.Builder, c ColumnSummary) {
	missPct := 0.0
	if total := c.NonNull + c.Missing; total > 0 {
		missPct = float64(c.Missing) * 100 / float64(total)
	}
	name := safeName(c.Name)
	if c.Unit != "" {
		name += " [" + c.Unit + "]"
	}
	fmt.Fprintf(b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct)
	switch c.Kind {
	case KindNumeric:
		fmt.Fprintf(b, " - min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		if c.OutlierThreshold > 0 {
			fmt.Fprintf(b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
			if c.OutliersMaxAbsZ > 0 {
				fmt.Fprintf(b, " (max |z|≈%.2f)", c.OutliersMaxAbsZ)
			}
		}
	case KindCategorical:
		if len(c.TopValues) > 0 {
			parts := make([]string, len(c.TopValues))
			for i, kv := range c.TopValues {
				parts[i] = fmt.Sprintf("%s(%d)", SafeCell(kv.Value), kv.Count)
			}
			b.WriteString(" - top: " + strings.Join(parts, ", "))
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(b, "; unique=%d", c.Unique)
			}
		}
	case KindText:
		if len(c.Examples) > 0 {
			parts := make([]string, len(c.Examples))
			for i, ex := range c.Examples {
				parts[i] = SafeCell(ex)
			}
			b.WriteString(" - e.g., " + strings.Join(parts, " | "))
		}
	}
	b.WriteString("\n")
}

func writeBullets(b *strings.Builder, title string, lines []string) {
	fmt.Fprintf(b, "\n[%s]\n", title)
	for _, l := range lines {
		fmt.Fprintf(b, "- %s\n", l)
	}
}

// WriteMarkdownTable writes a pipe table; long cells are truncated.
func WriteMarkdownTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(header, " | "))
	b.WriteString(" |\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range header {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(SafeCell(val))
		}
		b.WriteString(" |\n")
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// SafeCell strips characters that would break a Markdown table row.
func SafeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Cost (USD)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Duration [days]
	{regexp.MustCompile(`^(.*?)[_\s-]+(\$|€|£|%|hrs|h|days)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
