package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// ZeroHoursPolicy decides what happens to a log row with zero Available_Hours.
type ZeroHoursPolicy string

const (
	// ZeroHoursFail aborts the run with a DivisionByZeroWarning.
	ZeroHoursFail ZeroHoursPolicy = "fail"
	// ZeroHoursSkip leaves the row out of its project's mean and records a warning.
	ZeroHoursSkip ZeroHoursPolicy = "skip"
)

// ParseZeroHoursPolicy accepts "fail" or "skip"; empty means fail.
func ParseZeroHoursPolicy(s string) (ZeroHoursPolicy, error) {
	switch ZeroHoursPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ZeroHoursFail:
		return ZeroHoursFail, nil
	case ZeroHoursSkip:
		return ZeroHoursSkip, nil
	}
	return "", fmt.Errorf("unsupported zero-hours policy: %s (use fail|skip)", s)
}

// Warning is a non-fatal condition recorded during a run.
type Warning struct {
	Stage   string `json:"stage"`
	Role    Role   `json:"role,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Role == "" {
		return fmt.Sprintf("%s: %s", w.Stage, w.Message)
	}
	return fmt.Sprintf("%s (%s): %s", w.Stage, w.Role, w.Message)
}

// ProjectUtilisation is the mean utilisation percentage of one project.
type ProjectUtilisation struct {
	ProjectID string
	AvgPct    float64
	Entries   int
}

// ScheduleVariance is Planned_Days - Actual_Days: positive means ahead of
// schedule, negative behind.
func ScheduleVariance(p ProgressRecord) float64 {
	return p.PlannedDays - p.ActualDays
}

// Utilisation is Used_Hours / Available_Hours * 100 for one log entry.
func Utilisation(e LogEntry) float64 {
	return e.UsedHours / e.AvailableHours * 100
}

// UtilisationAverages groups log entries by Project_ID and averages their
// utilisation. Results are in ascending Project_ID order.
func UtilisationAverages(entries []LogEntry, policy ZeroHoursPolicy) ([]ProjectUtilisation, []Warning, error) {
	type acc struct {
		sum float64
		n   int
	}
	groups := map[string]*acc{}
	skipped := map[string]bool{}
	var warnings []Warning
	for _, e := range entries {
		if e.AvailableHours == 0 {
			dz := &DivisionByZeroWarning{Role: RoleLog, Row: e.Row, ProjectID: e.ProjectID}
			if policy != ZeroHoursSkip {
				return nil, nil, dz
			}
			warnings = append(warnings, Warning{Stage: "derive", Role: RoleLog, Message: dz.Error() + "; row skipped"})
			skipped[e.ProjectID] = true
			continue
		}
		a := groups[e.ProjectID]
		if a == nil {
			a = &acc{}
			groups[e.ProjectID] = a
		}
		a.sum += Utilisation(e)
		a.n++
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]ProjectUtilisation, 0, len(ids))
	for _, id := range ids {
		a := groups[id]
		out = append(out, ProjectUtilisation{ProjectID: id, AvgPct: a.sum / float64(a.n), Entries: a.n})
	}

	var emptied []string
	for id := range skipped {
		if groups[id] == nil {
			emptied = append(emptied, id)
		}
	}
	sort.Strings(emptied)
	for _, id := range emptied {
		warnings = append(warnings, Warning{Stage: "derive", Role: RoleLog,
			Message: fmt.Sprintf("%s %q has no usable log rows and drops out of the join", ColProjectID, id)})
	}
	return out, warnings, nil
}
