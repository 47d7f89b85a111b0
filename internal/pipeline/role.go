// Package pipeline turns the five construction-project exports into the
// joined master table and runs the correlation and regression analyses over it.
package pipeline

import (
	"fmt"
	"strings"
)

// Role names one of the five inputs.
type Role string

const (
	RoleProgress  Role = "progress"
	RoleLog       Role = "log"
	RolePayroll   Role = "payroll"
	RoleSpend     Role = "spend"
	RoleShrinkage Role = "shrinkage"
)

// Roles lists every input role in canonical order.
func Roles() []Role {
	return []Role{RoleProgress, RoleLog, RolePayroll, RoleSpend, RoleShrinkage}
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	want := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range Roles() {
		if r == want {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q (use one of %s)", s, joinRoles(Roles()))
}

// Column names of the source exports and the master table.
const (
	ColProjectID      = "Project_ID"
	ColPlannedDays    = "Planned_Days"
	ColActualDays     = "Actual_Days"
	ColUsedHours      = "Used_Hours"
	ColAvailableHours = "Available_Hours"
	ColTotalSpendSrc  = "Total_Spend_$"
	ColShrinkageSrc   = "Total_Shrinkage_$"

	ColScheduleVariance = "Schedule_Variance_Days"
	ColUtilisation      = "Utilisation_%"
	ColUtilisationAvg   = "Project_Utilisation_AvgPct"
	ColTotalSpend       = "Total_Spend"
	ColTotalShrinkage   = "Total_Shrinkage"
)

// RequiredColumns returns the columns a role's table must carry. Payroll is
// accepted without any.
func RequiredColumns(r Role) []string {
	switch r {
	case RoleProgress:
		return []string{ColProjectID, ColPlannedDays, ColActualDays}
	case RoleLog:
		return []string{ColProjectID, ColUsedHours, ColAvailableHours}
	case RoleSpend:
		return []string{ColProjectID, ColTotalSpendSrc}
	case RoleShrinkage:
		return []string{ColProjectID, ColShrinkageSrc}
	default:
		return nil
	}
}

// AnalysisColumns are the four master-table columns correlated by Analyze.
func AnalysisColumns() []string {
	return []string{ColScheduleVariance, ColUtilisationAvg, ColTotalSpend, ColTotalShrinkage}
}

func joinRoles(rs []Role) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
