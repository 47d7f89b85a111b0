package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DuplicateKeyPolicy decides how a repeated Project_ID in a per-project table is treated.
type DuplicateKeyPolicy string

const (
	// DuplicateKeysFanout joins every matching pair, like a relational inner
	// join, and records a warning per duplicated key.
	DuplicateKeysFanout DuplicateKeyPolicy = "fanout"
	// DuplicateKeysFail aborts with a DuplicateKeyError.
	DuplicateKeysFail DuplicateKeyPolicy = "fail"
)

// ParseDuplicateKeyPolicy accepts "fanout" or "fail"; empty means fanout.
func ParseDuplicateKeyPolicy(s string) (DuplicateKeyPolicy, error) {
	switch DuplicateKeyPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateKeysFanout:
		return DuplicateKeysFanout, nil
	case DuplicateKeysFail:
		return DuplicateKeysFail, nil
	}
	return "", fmt.Errorf("unsupported duplicate-key policy: %s (use fanout|fail)", s)
}

// MasterRow is one joined project row.
type MasterRow struct {
	ProjectID   string
	PlannedDays float64
	ActualDays  float64
	Extra       []string

	ScheduleVarianceDays float64
	UtilisationAvgPct    float64
	TotalSpend           decimal.Decimal
	TotalShrinkage       decimal.Decimal
}

// MasterTable is the joined dataset the analyses run over.
type MasterTable struct {
	ExtraColumns []string
	Rows         []MasterRow
}

// Len returns the number of rows.
func (m *MasterTable) Len() int { return len(m.Rows) }

// Header lists the master columns: the progress columns, then the derived
// and renamed ones.
func (m *MasterTable) Header() []string {
	h := []string{ColProjectID, ColPlannedDays, ColActualDays}
	h = append(h, m.ExtraColumns...)
	return append(h, ColScheduleVariance, ColUtilisationAvg, ColTotalSpend, ColTotalShrinkage)
}

// Record renders row i in Header order.
func (m *MasterTable) Record(i int) []string {
	r := m.Rows[i]
	rec := []string{r.ProjectID, formatFloat(r.PlannedDays), formatFloat(r.ActualDays)}
	rec = append(rec, r.Extra...)
	return append(rec,
		formatFloat(r.ScheduleVarianceDays),
		formatFloat(r.UtilisationAvgPct),
		r.TotalSpend.String(),
		r.TotalShrinkage.String(),
	)
}

// Column returns a numeric master column by name.
func (m *MasterTable) Column(name string) ([]float64, bool) {
	var get func(MasterRow) float64
	switch name {
	case ColPlannedDays:
		get = func(r MasterRow) float64 { return r.PlannedDays }
	case ColActualDays:
		get = func(r MasterRow) float64 { return r.ActualDays }
	case ColScheduleVariance:
		get = func(r MasterRow) float64 { return r.ScheduleVarianceDays }
	case ColUtilisationAvg:
		get = func(r MasterRow) float64 { return r.UtilisationAvgPct }
	case ColTotalSpend:
		get = func(r MasterRow) float64 { return r.TotalSpend.InexactFloat64() }
	case ColTotalShrinkage:
		get = func(r MasterRow) float64 { return r.TotalShrinkage.InexactFloat64() }
	default:
		return nil, false
	}
	out := make([]float64, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = get(r)
	}
	return out, true
}

// Join performs the cumulative inner join
// (progress ⋈ utilisation) ⋈ spend ⋈ shrinkage on Project_ID. Rows follow
// progress order; duplicate keys fan out in source order.
func Join(progress []ProgressRecord, extra []string, util []ProjectUtilisation, spend []SpendRecord, shrinkage []ShrinkageRecord, policy DuplicateKeyPolicy) (*MasterTable, []Warning, error) {
	var warnings []Warning
	check := func(role Role, ids []string) error {
		dups, order := duplicates(ids)
		for _, id := range order {
			if policy == DuplicateKeysFail {
				return &DuplicateKeyError{Role: role, ProjectID: id, Count: dups[id]}
			}
			warnings = append(warnings, Warning{Stage: "join", Role: role,
				Message: fmt.Sprintf("%d rows for %s %q; joined rows fan out", dups[id], ColProjectID, id)})
		}
		return nil
	}

	progressIDs := make([]string, len(progress))
	for i, p := range progress {
		progressIDs[i] = p.ProjectID
	}
	spendIDs := make([]string, len(spend))
	spendBy := map[string][]SpendRecord{}
	for i, s := range spend {
		spendIDs[i] = s.ProjectID
		spendBy[s.ProjectID] = append(spendBy[s.ProjectID], s)
	}
	shrinkIDs := make([]string, len(shrinkage))
	shrinkBy := map[string][]ShrinkageRecord{}
	for i, s := range shrinkage {
		shrinkIDs[i] = s.ProjectID
		shrinkBy[s.ProjectID] = append(shrinkBy[s.ProjectID], s)
	}
	utilBy := make(map[string]ProjectUtilisation, len(util))
	for _, u := range util {
		utilBy[u.ProjectID] = u
	}

	if err := check(RoleProgress, progressIDs); err != nil {
		return nil, nil, err
	}
	if err := check(RoleSpend, spendIDs); err != nil {
		return nil, nil, err
	}
	if err := check(RoleShrinkage, shrinkIDs); err != nil {
		return nil, nil, err
	}

	m := &MasterTable{ExtraColumns: append([]string(nil), extra...)}
	for _, p := range progress {
		u, ok := utilBy[p.ProjectID]
		if !ok {
			continue
		}
		for _, s := range spendBy[p.ProjectID] {
			for _, k := range shrinkBy[p.ProjectID] {
				m.Rows = append(m.Rows, MasterRow{
					ProjectID:            p.ProjectID,
					PlannedDays:          p.PlannedDays,
					ActualDays:           p.ActualDays,
					Extra:                append([]string(nil), p.Extra...),
					ScheduleVarianceDays: ScheduleVariance(p),
					UtilisationAvgPct:    u.AvgPct,
					TotalSpend:           s.TotalSpend,
					TotalShrinkage:       k.TotalShrinkage,
				})
			}
		}
	}
	if len(m.Rows) == 0 {
		return nil, warnings, &JoinEmptyError{Keys: map[string]int{
			string(RoleProgress):  distinct(progressIDs),
			string(RoleLog):       len(utilBy),
			string(RoleSpend):     len(spendBy),
			string(RoleShrinkage): len(shrinkBy),
		}}
	}
	return m, warnings, nil
}

// duplicates counts ids seen more than once, listing them in order of first appearance.
func duplicates(ids []string) (map[string]int, []string) {
	counts := map[string]int{}
	var order []string
	for _, id := range ids {
		counts[id]++
		if counts[id] == 1 {
			order = append(order, id)
		}
	}
	dups := map[string]int{}
	var dupOrder []string
	for _, id := range order {
		if counts[id] > 1 {
			dups[id] = counts[id]
			dupOrder = append(dupOrder, id)
		}
	}
	return dups, dupOrder
}

func distinct(ids []string) int {
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	return len(seen)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
