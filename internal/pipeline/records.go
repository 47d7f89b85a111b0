package pipeline

import (
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/shopspring/decimal"
)

// ProgressRecord is one row of the site-progress export. Extra carries the
// remaining progress columns in source order so the master table keeps them.
type ProgressRecord struct {
	Row         int
	ProjectID   string
	PlannedDays float64
	ActualDays  float64
	Extra       []string
}

// LogEntry is one logged shift or activity.
type LogEntry struct {
	Row            int
	ProjectID      string
	UsedHours      float64
	AvailableHours float64
}

// SpendRecord carries a project's total spend.
type SpendRecord struct {
	Row        int
	ProjectID  string
	TotalSpend decimal.Decimal
}

// ShrinkageRecord carries a project's total shrinkage.
type ShrinkageRecord struct {
	Row            int
	ProjectID      string
	TotalShrinkage decimal.Decimal
}

// derivedNames are master-table columns that shadow a same-named progress column.
var derivedNames = map[string]bool{
	ColScheduleVariance: true,
	ColUtilisationAvg:   true,
	ColTotalSpend:       true,
	ColTotalShrinkage:   true,
}

// ExtractProgress reads progress records and the names of the extra columns.
func ExtractProgress(t *analysis.Table) ([]ProgressRecord, []string, error) {
	idx, err := requireColumns(RoleProgress, t)
	if err != nil {
		return nil, nil, err
	}
	used := map[int]bool{}
	for _, i := range idx {
		used[i] = true
	}
	var extraIdx []int
	var extraNames []string
	for i, c := range t.Columns {
		if used[i] || derivedNames[c.Name] {
			continue
		}
		extraIdx = append(extraIdx, i)
		extraNames = append(extraNames, c.Name)
	}

	out := make([]ProgressRecord, 0, t.Len())
	for r := range t.Rows {
		id, err := projectID(RoleProgress, t, r, idx[0])
		if err != nil {
			return nil, nil, err
		}
		planned, err := number(RoleProgress, t, r, idx[1])
		if err != nil {
			return nil, nil, err
		}
		actual, err := number(RoleProgress, t, r, idx[2])
		if err != nil {
			return nil, nil, err
		}
		extra := make([]string, len(extraIdx))
		for j, c := range extraIdx {
			extra[j] = t.Value(r, c)
		}
		out = append(out, ProgressRecord{Row: r + 1, ProjectID: id, PlannedDays: planned, ActualDays: actual, Extra: extra})
	}
	return out, extraNames, nil
}

// ExtractLog reads site-log entries.
func ExtractLog(t *analysis.Table) ([]LogEntry, error) {
	idx, err := requireColumns(RoleLog, t)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, t.Len())
	for r := range t.Rows {
		id, err := projectID(RoleLog, t, r, idx[0])
		if err != nil {
			return nil, err
		}
		used, err := number(RoleLog, t, r, idx[1])
		if err != nil {
			return nil, err
		}
		avail, err := number(RoleLog, t, r, idx[2])
		if err != nil {
			return nil, err
		}
		out = append(out, LogEntry{Row: r + 1, ProjectID: id, UsedHours: used, AvailableHours: avail})
	}
	return out, nil
}

// ExtractSpend reads per-project spend.
func ExtractSpend(t *analysis.Table) ([]SpendRecord, error) {
	idx, err := requireColumns(RoleSpend, t)
	if err != nil {
		return nil, err
	}
	out := make([]SpendRecord, 0, t.Len())
	for r := range t.Rows {
		id, err := projectID(RoleSpend, t, r, idx[0])
		if err != nil {
			return nil, err
		}
		amt, err := money(RoleSpend, t, r, idx[1])
		if err != nil {
			return nil, err
		}
		out = append(out, SpendRecord{Row: r + 1, ProjectID: id, TotalSpend: amt})
	}
	return out, nil
}

// ExtractShrinkage reads per-project shrinkage.
func ExtractShrinkage(t *analysis.Table) ([]ShrinkageRecord, error) {
	idx, err := requireColumns(RoleShrinkage, t)
	if err != nil {
		return nil, err
	}
	out := make([]ShrinkageRecord, 0, t.Len())
	for r := range t.Rows {
		id, err := projectID(RoleShrinkage, t, r, idx[0])
		if err != nil {
			return nil, err
		}
		amt, err := money(RoleShrinkage, t, r, idx[1])
		if err != nil {
			return nil, err
		}
		out = append(out, ShrinkageRecord{Row: r + 1, ProjectID: id, TotalShrinkage: amt})
	}
	return out, nil
}

// requireColumns resolves the role's required columns in RequiredColumns order.
func requireColumns(role Role, t *analysis.Table) ([]int, error) {
	cols := RequiredColumns(role)
	idx := make([]int, len(cols))
	for i, name := range cols {
		j, ok := t.Index(name)
		if !ok {
			return nil, &SchemaError{Role: role, Column: name, Reason: "column not found"}
		}
		idx[i] = j
	}
	return idx, nil
}

func projectID(role Role, t *analysis.Table, row, col int) (string, error) {
	id := strings.TrimSpace(t.Value(row, col))
	if id == "" {
		return "", &SchemaError{Role: role, Column: t.Columns[col].Name, Row: row + 1, Reason: "empty project id"}
	}
	return id, nil
}

func number(role Role, t *analysis.Table, row, col int) (float64, error) {
	raw := t.Value(row, col)
	if raw == "" {
		return 0, &SchemaError{Role: role, Column: t.Columns[col].Name, Row: row + 1, Reason: "missing value"}
	}
	v, ok := t.Float(row, col)
	if !ok {
		return 0, &SchemaError{Role: role, Column: t.Columns[col].Name, Row: row + 1, Value: raw, Reason: "not a number"}
	}
	return v, nil
}

func money(role Role, t *analysis.Table, row, col int) (decimal.Decimal, error) {
	raw := t.Value(row, col)
	if raw == "" {
		return decimal.Zero, &SchemaError{Role: role, Column: t.Columns[col].Name, Row: row + 1, Reason: "missing value"}
	}
	d, ok := ParseMoney(raw, t.Options())
	if !ok {
		return decimal.Zero, &SchemaError{Role: role, Column: t.Columns[col].Name, Row: row + 1, Value: raw, Reason: "not a monetary amount"}
	}
	return d, nil
}

// ParseMoney parses an amount such as "1,234.50", "$-12" or the accounting
// form "(120.00)" into an exact decimal.
func ParseMoney(s string, opt analysis.Options) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	clean, ok := analysis.NormalizeNumber(raw, opt)
	if !ok {
		return decimal.Zero, false
	}
	clean = strings.TrimPrefix(clean, "+")
	if neg {
		if strings.HasPrefix(clean, "-") {
			return decimal.Zero, false
		}
		clean = "-" + clean
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
