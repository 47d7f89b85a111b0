package pipeline

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
)

// RoleCheckTitle heads the section CheckRole findings are rendered under.
const RoleCheckTitle = "ROLE CHECK"

// moneyColumns are parsed as exact decimals rather than floats.
var moneyColumns = map[string]bool{ColTotalSpendSrc: true, ColShrinkageSrc: true}

// CheckRole reports what would stop t from being accepted as the role's
// export, or skipped by the zero-hours policy, before it is registered. An
// empty result means the table is ready.
func CheckRole(t *analysis.Table, r Role) []string {
	var out []string
	for _, name := range RequiredColumns(r) {
		j, ok := t.Index(name)
		if !ok {
			out = append(out, fmt.Sprintf("missing required column %s", name))
			continue
		}
		if name == ColProjectID {
			if n := countRows(t, func(i int) bool { return strings.TrimSpace(t.Value(i, j)) == "" }); n > 0 {
				out = append(out, fmt.Sprintf("%s: %d blank value(s)", name, n))
			}
			continue
		}
		if k := t.Columns[j].Kind; k != analysis.KindNumeric {
			out = append(out, fmt.Sprintf("%s: inferred %s, want numeric", name, k))
		}
		bad := countRows(t, func(i int) bool {
			raw := t.Value(i, j)
			if raw == "" {
				return true
			}
			if moneyColumns[name] {
				_, ok := ParseMoney(raw, t.Options())
				return !ok
			}
			_, ok := t.Float(i, j)
			return !ok
		})
		if bad > 0 {
			out = append(out, fmt.Sprintf("%s: %d missing or non-numeric value(s)", name, bad))
		}
		if name == ColAvailableHours {
			zero := countRows(t, func(i int) bool {
				v, ok := t.Float(i, j)
				return ok && v == 0
			})
			if zero > 0 {
				out = append(out, fmt.Sprintf("%s: %d zero value(s); zero_hours policy fail aborts, skip drops the rows", name, zero))
			}
		}
	}
	return out
}

// RoleCheckLines renders CheckRole findings, reporting an empty result as
// ready.
func RoleCheckLines(r Role, findings []string) []string {
	if len(findings) == 0 {
		return []string{fmt.Sprintf("ready to register as %s", r)}
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = fmt.Sprintf("%s: %s", r, f)
	}
	return lines
}

func countRows(t *analysis.Table, pred func(int) bool) int {
	n := 0
	for i := 0; i < t.Len(); i++ {
		if pred(i) {
			n++
		}
	}
	return n
}
