package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/KaramelBytes/sitelens-cli/internal/stats"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMasterExampleScenario(t *testing.T) {
	res, err := BuildMaster(exampleInputs(), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, res.Master.Len())

	row := res.Master.Rows[0]
	assert.Equal(t, "P1", row.ProjectID)
	assert.Equal(t, 2.0, row.ScheduleVarianceDays)
	assert.InDelta(t, 70.0, row.UtilisationAvgPct, 1e-9)
	assert.True(t, row.TotalSpend.Equal(decimal.NewFromInt(1000)))
	assert.True(t, row.TotalShrinkage.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, []string{
		"Project_ID", "Planned_Days", "Actual_Days",
		"Schedule_Variance_Days", "Project_Utilisation_AvgPct", "Total_Spend", "Total_Shrinkage",
	}, res.Master.Header())
	assert.Equal(t, []string{"P1", "10", "8", "2", "70", "1000", "50"}, res.Master.Record(0))
	assert.Nil(t, res.Analysis)
	require.Len(t, res.Inputs, 5)
	assert.Equal(t, RolePayroll, res.Inputs[2].Role)
	assert.Equal(t, 1, res.Inputs[2].Rows)
}

func TestRunSingleProjectIsDegenerate(t *testing.T) {
	_, err := Run(exampleInputs(), DefaultOptions())
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, StepSimple, ae.Step)
	var dfe *stats.DegenerateFitError
	assert.ErrorAs(t, err, &dfe)
	assert.Equal(t, "degenerate_fit", ErrorKind(err))
}

func TestRunFullDataset(t *testing.T) {
	res, err := Run(fullInputs(), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, res.Analysis)

	// P9 has no spend and P10 only shrinkage.
	require.Equal(t, 8, res.Master.Len())
	ids := make([]string, res.Master.Len())
	for i, r := range res.Master.Rows {
		ids[i] = r.ProjectID
		assert.Equal(t, r.PlannedDays-r.ActualDays, r.ScheduleVarianceDays)
	}
	assert.Equal(t, []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"}, ids)
	assert.Equal(t, []string{"Site"}, res.Master.ExtraColumns)
	assert.Equal(t, "North", res.Master.Rows[0].Extra[0])
	assert.True(t, res.Master.Rows[0].TotalSpend.Equal(decimal.NewFromInt(1200000)))

	corr := res.Correlation
	require.Equal(t, AnalysisColumns(), corr.Columns)
	for i := range corr.Columns {
		assert.Equal(t, 1.0, corr.Values[i][i])
		for j := range corr.Columns {
			assert.Equal(t, corr.Values[i][j], corr.Values[j][i])
			assert.LessOrEqual(t, math.Abs(corr.Values[i][j]), 1.0)
		}
	}
	assert.Equal(t, "Total_Spend ~ Total_Shrinkage", res.Simple.Formula())
	assert.Equal(t, "Total_Shrinkage ~ Schedule_Variance_Days + Total_Spend", res.Controlled.Formula())
	assert.GreaterOrEqual(t, res.PartialCorrelation, -1.0)
	assert.LessOrEqual(t, res.PartialCorrelation, 1.0)
	assert.Equal(t, 8, res.Simple.NObs)
	assert.Empty(t, res.Warnings)
}

func TestRunIsIdempotent(t *testing.T) {
	a, err := Run(fullInputs(), DefaultOptions())
	require.NoError(t, err)
	b, err := Run(fullInputs(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Master, b.Master)
	assert.Equal(t, a.Correlation, b.Correlation)
	assert.Equal(t, a.Simple.Params, b.Simple.Params)
	assert.Equal(t, a.Controlled.Params, b.Controlled.Params)
	assert.Equal(t, a.PartialCorrelation, b.PartialCorrelation)
}

func TestProjectMissingFromSpendIsDropped(t *testing.T) {
	in := exampleInputs()
	in[RoleProgress] = src(RoleProgress, "Project_ID,Planned_Days,Actual_Days\nP1,10,8\nP2,5,5\n")
	in[RoleLog] = src(RoleLog, "Project_ID,Used_Hours,Available_Hours\nP1,40,50\nP2,10,20\n")
	res, err := BuildMaster(in, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, res.Master.Len())
	assert.Equal(t, "P1", res.Master.Rows[0].ProjectID)
}

func TestJoinCardinalityBound(t *testing.T) {
	res, err := BuildMaster(fullInputs(), DefaultOptions())
	require.NoError(t, err)
	// distinct keys: progress 9, utilisation 9, spend 8, shrinkage 9
	assert.LessOrEqual(t, res.Master.Len(), 8)
}

func TestMissingInputGate(t *testing.T) {
	in := fullInputs()
	delete(in, RoleSpend)
	in[RolePayroll] = Source{Name: "payroll.csv"}

	_, err := Run(in, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsMissingInput(err))
	var mi *MissingInputError
	require.ErrorAs(t, err, &mi)
	assert.Equal(t, []Role{RolePayroll, RoleSpend}, mi.Missing)
	assert.Equal(t, "missing_input", ErrorKind(err))

	opt := DefaultOptions()
	opt.RequirePayroll = false
	in = fullInputs()
	delete(in, RolePayroll)
	res, err := Run(in, opt)
	require.NoError(t, err)
	assert.Len(t, res.Inputs, 4)
}

func TestZeroAvailableHours(t *testing.T) {
	in := exampleInputs()
	in[RoleLog] = src(RoleLog, "Project_ID,Used_Hours,Available_Hours\nP1,40,50\nP1,30,0\n")
	_, err := BuildMaster(in, DefaultOptions())
	var dz *DivisionByZeroWarning
	require.ErrorAs(t, err, &dz)
	assert.Equal(t, RoleLog, dz.Role)
	assert.Equal(t, 2, dz.Row)
	assert.Equal(t, "P1", dz.ProjectID)

	opt := DefaultOptions()
	opt.ZeroHours = ZeroHoursSkip
	in = exampleInputs()
	in[RoleLog] = src(RoleLog, "Project_ID,Used_Hours,Available_Hours\nP1,40,50\nP1,30,0\n")
	res, err := BuildMaster(in, opt)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, res.Master.Rows[0].UtilisationAvgPct, 1e-9)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "Available_Hours is zero")
}

func TestZeroHoursSkipDropsProject(t *testing.T) {
	util, warns, err := UtilisationAverages([]LogEntry{
		{Row: 1, ProjectID: "P1", UsedHours: 5, AvailableHours: 0},
		{Row: 2, ProjectID: "P2", UsedHours: 5, AvailableHours: 10},
	}, ZeroHoursSkip)
	require.NoError(t, err)
	require.Len(t, util, 1)
	assert.Equal(t, "P2", util[0].ProjectID)
	assert.Equal(t, 50.0, util[0].AvgPct)
	require.Len(t, warns, 2)
	assert.Contains(t, warns[1].Message, `"P1" has no usable log rows`)
}

func TestSchemaErrors(t *testing.T) {
	in := exampleInputs()
	in[RoleSpend] = src(RoleSpend, "Project_ID,Spend\nP1,1000\n")
	_, err := BuildMaster(in, DefaultOptions())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RoleSpend, se.Role)
	assert.Equal(t, "Total_Spend_$", se.Column)
	assert.Equal(t, 0, se.Row)
	assert.Contains(t, err.Error(), `spend input is missing required column "Total_Spend_$"`)

	in = exampleInputs()
	in[RoleProgress] = src(RoleProgress, "Project_ID,Planned_Days,Actual_Days\nP1,10,8\nP2,ten,8\n")
	_, err = BuildMaster(in, DefaultOptions())
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RoleProgress, se.Role)
	assert.Equal(t, "Planned_Days", se.Column)
	assert.Equal(t, 2, se.Row)
	assert.Equal(t, "ten", se.Value)
	assert.Equal(t, "schema", ErrorKind(err))

	in = exampleInputs()
	in[RoleShrinkage] = src(RoleShrinkage, "Project_ID,Total_Shrinkage_$\n,50\n")
	_, err = BuildMaster(in, DefaultOptions())
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "empty project id", se.Reason)
}

func TestColumnLookupIsCaseInsensitive(t *testing.T) {
	in := exampleInputs()
	in[RoleSpend] = src(RoleSpend, "project_id , total_spend_$\nP1,1000\n")
	res, err := BuildMaster(in, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Master.Len())
}

func TestJoinEmpty(t *testing.T) {
	in := exampleInputs()
	in[RoleSpend] = src(RoleSpend, "Project_ID,Total_Spend_$\nX9,1000\n")
	_, err := BuildMaster(in, DefaultOptions())
	var je *JoinEmptyError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, 1, je.Keys["spend"])
	assert.Equal(t, 1, je.Keys["progress"])
	assert.Contains(t, err.Error(), "log=1 progress=1 shrinkage=1 spend=1")
	assert.Equal(t, "join_empty", ErrorKind(err))
}

func TestDuplicateKeys(t *testing.T) {
	in := exampleInputs()
	in[RoleSpend] = src(RoleSpend, "Project_ID,Total_Spend_$\nP1,1000\nP1,250\n")
	res, err := BuildMaster(in, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, res.Master.Len())
	assert.True(t, res.Master.Rows[0].TotalSpend.Equal(decimal.NewFromInt(1000)))
	assert.True(t, res.Master.Rows[1].TotalSpend.Equal(decimal.NewFromInt(250)))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, RoleSpend, res.Warnings[0].Role)

	opt := DefaultOptions()
	opt.DuplicateKeys = DuplicateKeysFail
	in = exampleInputs()
	in[RoleSpend] = src(RoleSpend, "Project_ID,Total_Spend_$\nP1,1000\nP1,250\n")
	_, err = BuildMaster(in, opt)
	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, RoleSpend, de.Role)
	assert.Equal(t, 2, de.Count)
}

func TestConstantSpendIsDegenerate(t *testing.T) {
	in := fullInputs()
	var b strings.Builder
	b.WriteString("Project_ID,Total_Spend_$\n")
	for _, id := range []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"} {
		b.WriteString(id + ",1000\n")
	}
	in[RoleSpend] = src(RoleSpend, b.String())
	_, err := Run(in, DefaultOptions())
	var dfe *stats.DegenerateFitError
	require.ErrorAs(t, err, &dfe)
	assert.True(t, errors.As(err, new(*AnalysisError)))
}

func TestUnreadableInput(t *testing.T) {
	in := exampleInputs()
	in[RolePayroll] = Source{Name: "payroll.pdf", Reader: strings.NewReader("%PDF")}
	_, err := BuildMaster(in, DefaultOptions())
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, RolePayroll, ie.Role)
	assert.Equal(t, "input", ErrorKind(err))
}

func TestPreparsedTableSource(t *testing.T) {
	in := exampleInputs()
	tbl := analysis.NewTable("spend", []string{"Project_ID", "Total_Spend_$"}, [][]string{{"P1", "(1,000.50)"}}, analysis.DefaultOptions())
	in[RoleSpend] = Source{Name: "spend", Table: tbl}
	res, err := BuildMaster(in, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "-1000.5", res.Master.Rows[0].TotalSpend.String())
}

func TestParseMoney(t *testing.T) {
	opt := analysis.DefaultOptions()
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1000", "1000", true},
		{"$1,234.50", "1234.5", true},
		{"(120.00)", "-120", true},
		{"-$12", "-12", true},
		{"1.234,56", "1234.56", true},
		{"abc", "", false},
		{"", "", false},
		{"(-5)", "", false},
	}
	for _, c := range cases {
		got, ok := ParseMoney(c.in, opt)
		if assert.Equal(t, c.ok, ok, c.in) && ok {
			assert.Equal(t, c.want, got.String(), c.in)
		}
	}
}

func TestPolicyParsing(t *testing.T) {
	zp, err := ParseZeroHoursPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ZeroHoursFail, zp)
	zp, err = ParseZeroHoursPolicy("SKIP")
	require.NoError(t, err)
	assert.Equal(t, ZeroHoursSkip, zp)
	_, err = ParseZeroHoursPolicy("ignore")
	assert.Error(t, err)

	dp, err := ParseDuplicateKeyPolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, DuplicateKeysFail, dp)
	_, err = ParseDuplicateKeyPolicy("dedupe")
	assert.Error(t, err)

	r, err := ParseRole(" Shrinkage ")
	require.NoError(t, err)
	assert.Equal(t, RoleShrinkage, r)
	_, err = ParseRole("budget")
	assert.Error(t, err)
}
