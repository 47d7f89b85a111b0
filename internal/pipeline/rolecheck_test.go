package pipeline

import (
	"testing"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/stretchr/testify/assert"
)

func TestCheckRole(t *testing.T) {
	table := func(header []string, rows ...[]string) *analysis.Table {
		return analysis.NewTable("t.csv", header, rows, analysis.DefaultOptions())
	}
	cases := []struct {
		name string
		role Role
		tbl  *analysis.Table
		want []string
	}{
		{
			name: "log with blank id bad hours and zero availability",
			role: RoleLog,
			tbl: table([]string{"Project_ID", "Used_Hours", "Available_Hours"},
				[]string{"P1", "40", "50"},
				[]string{"", "30", "0"},
				[]string{"P3", "x", "0"}),
			want: []string{
				"Project_ID: 1 blank value(s)",
				"Used_Hours: 1 missing or non-numeric value(s)",
				"Available_Hours: 2 zero value(s); zero_hours policy fail aborts, skip drops the rows",
			},
		},
		{
			name: "spend without amount column",
			role: RoleSpend,
			tbl:  table([]string{"Project_ID", "Amount"}, []string{"P1", "10"}),
			want: []string{"missing required column Total_Spend_$"},
		},
		{
			name: "shrinkage amounts typed as text",
			role: RoleShrinkage,
			tbl: table([]string{"Project_ID", "Total_Shrinkage_$"},
				[]string{"P1", "n/a"},
				[]string{"P2", "tbd"},
				[]string{"P3", "12"}),
			want: []string{
				"Total_Shrinkage_$: inferred categorical, want numeric",
				"Total_Shrinkage_$: 2 missing or non-numeric value(s)",
			},
		},
		{
			name: "accounting negatives are money",
			role: RoleSpend,
			tbl:  table([]string{"project_id", "Total_Spend_$"}, []string{"P1", "(1,000.50)"}, []string{"P2", "$2,000"}),
		},
		{
			name: "payroll needs no columns",
			role: RolePayroll,
			tbl:  table([]string{"Employee"}, []string{""}),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckRole(tc.tbl, tc.role))
		})
	}
}

func TestRoleCheckLines(t *testing.T) {
	assert.Equal(t, []string{"ready to register as spend"}, RoleCheckLines(RoleSpend, nil))
	assert.Equal(t, []string{"log: Available_Hours: 2 zero value(s)"},
		RoleCheckLines(RoleLog, []string{"Available_Hours: 2 zero value(s)"}))
}
