package report

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleResult(t *testing.T) *pipeline.Result {
	t.Helper()
	csv := func(role pipeline.Role, body string) pipeline.Source {
		return pipeline.Source{Name: string(role) + ".csv", Reader: strings.NewReader(body)}
	}
	in := pipeline.Inputs{
		pipeline.RoleProgress: csv(pipeline.RoleProgress, "Project_ID,Site,Planned_Days,Actual_Days\n"+
			"P1,North,120,130\nP2,South,90,85\nP3,East,200,230\nP4,West,60,61\nP5,North,150,140\nP6,South,100,120\n"),
		pipeline.RoleLog: csv(pipeline.RoleLog, "Project_ID,Used_Hours,Available_Hours\n"+
			"P1,40,50\nP2,30,40\nP3,70,80\nP4,20,40\nP5,35,50\nP6,28,40\n"),
		pipeline.RolePayroll: csv(pipeline.RolePayroll, "Employee,Hours\nE1,8\n"),
		pipeline.RoleSpend: csv(pipeline.RoleSpend, "Project_ID,Total_Spend_$\n"+
			"P1,\"1,200,000.00\"\nP2,800000\nP3,2100000\nP4,450000\nP5,1500000\nP6,950000\n"),
		pipeline.RoleShrinkage: csv(pipeline.RoleShrinkage, "Project_ID,Total_Shrinkage_$\n"+
			"P1,36000\nP2,12000\nP3,88000\nP4,9000\nP5,30000\nP6,41000\n"),
	}
	res, err := pipeline.Run(in, pipeline.DefaultOptions())
	require.NoError(t, err)
	return res
}

func TestNumberMarshalsNonFiniteAsNull(t *testing.T) {
	b, err := json.Marshal([]Number{1.5, Number(math.NaN()), Number(math.Inf(-1))})
	require.NoError(t, err)
	assert.Equal(t, "[1.5,null,null]", string(b))
}

func TestJSON(t *testing.T) {
	res := sampleResult(t)
	res.Simple.FPValue = math.NaN()

	b, err := JSON(res)
	require.NoError(t, err)

	var got struct {
		Status string `json:"status"`
		Master struct {
			Columns []string                 `json:"columns"`
			Rows    []map[string]interface{} `json:"rows"`
		} `json:"master"`
		Correlation struct {
			Columns []string    `json:"columns"`
			Values  [][]float64 `json:"values"`
		} `json:"correlation"`
		Simple struct {
			Model        string                   `json:"model"`
			FPValue      *float64                 `json:"f_p_value"`
			Coefficients []map[string]interface{} `json:"coefficients"`
		} `json:"simple_regression"`
		Partial struct {
			Value float64 `json:"value"`
		} `json:"partial_correlation"`
		Warnings []interface{} `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "ok", got.Status)
	require.Len(t, got.Master.Rows, 6)
	assert.Equal(t, "P1", got.Master.Rows[0]["Project_ID"])
	assert.Equal(t, "1200000", got.Master.Rows[0]["Total_Spend"])
	assert.Equal(t, map[string]interface{}{"Site": "North"}, got.Master.Rows[0]["extra"])
	assert.Equal(t, pipeline.AnalysisColumns(), got.Correlation.Columns)
	assert.Equal(t, 1.0, got.Correlation.Values[2][2])
	assert.Equal(t, "Total_Spend ~ Total_Shrinkage", got.Simple.Model)
	assert.Nil(t, got.Simple.FPValue)
	require.Len(t, got.Simple.Coefficients, 2)
	assert.Equal(t, "Intercept", got.Simple.Coefficients[0]["name"])
	assert.InDelta(t, res.PartialCorrelation, got.Partial.Value, 1e-12)
	assert.NotNil(t, got.Warnings)
}

func TestMarkdownSections(t *testing.T) {
	res := sampleResult(t)
	res.Warnings = append(res.Warnings, pipeline.Warning{Stage: "join", Role: pipeline.RoleSpend, Message: "2 rows for Project_ID \"P1\""})
	md := Markdown(res)
	for _, want := range []string{
		"[INPUTS]",
		"- spend: spend.csv (6 rows, 2 columns)",
		"[MASTER DATASET]",
		"Rows: 6",
		"| Project_ID | Planned_Days | Actual_Days | Site | Schedule_Variance_Days |",
		"[CORRELATIONS]",
		"| Schedule_Variance_Days | 1.0000 |",
		"[SIMPLE REGRESSION: Total_Spend ~ Total_Shrinkage]",
		"[CONTROLLED REGRESSION: Total_Shrinkage ~ Schedule_Variance_Days + Total_Spend]",
		"OLS Regression Results",
		"[PARTIAL CORRELATION]",
		"[NOTES]",
		"- join (spend): 2 rows for Project_ID \"P1\"",
	} {
		assert.Contains(t, md, want)
	}
}

func TestWorkbook(t *testing.T) {
	res := sampleResult(t)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(res, &buf))
	data := append([]byte(nil), buf.Bytes()...)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetMaster, SheetCorr, SheetSimple, SheetSimpleFit, SheetControlled}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	v, err := f.GetCellValue(SheetMaster, "A2", raw)
	require.NoError(t, err)
	assert.Equal(t, "P1", v)
	v, _ = f.GetCellValue(SheetMaster, "D1", raw)
	assert.Equal(t, "Site", v)
	v, _ = f.GetCellValue(SheetMaster, "G2", raw)
	assert.Equal(t, "1200000", v)

	v, _ = f.GetCellValue(SheetCorr, "B1", raw)
	assert.Equal(t, pipeline.ColScheduleVariance, v)
	v, _ = f.GetCellValue(SheetCorr, "C3", raw)
	assert.Equal(t, "1", v)

	formats, err := f.GetConditionalFormats(SheetCorr)
	require.NoError(t, err)
	require.Contains(t, formats, "B2:E5")
	assert.Equal(t, "3_color_scale", formats["B2:E5"][0].Type)

	v, _ = f.GetCellValue(SheetSimple, "B1", raw)
	assert.Equal(t, "Total_Spend ~ Total_Shrinkage", v)
	v, _ = f.GetCellValue(SheetControlled, "A15", raw)
	assert.Equal(t, "Schedule_Variance_Days", v)

	// Fit rows are ordered by shrinkage: P4 (9000) first, P3 (88000) last.
	v, _ = f.GetCellValue(SheetSimpleFit, "D1", raw)
	assert.Equal(t, "Fitted", v)
	v, _ = f.GetCellValue(SheetSimpleFit, "A2", raw)
	assert.Equal(t, "P4", v)
	v, _ = f.GetCellValue(SheetSimpleFit, "C2", raw)
	assert.Equal(t, "450000", v)
	v, _ = f.GetCellValue(SheetSimpleFit, "A7", raw)
	assert.Equal(t, "P3", v)
	v, _ = f.GetCellValue(SheetSimpleFit, "D7", raw)
	fitted, err := strconv.ParseFloat(v, 64)
	require.NoError(t, err)
	assert.InDelta(t, res.Simple.Fitted[2], fitted, 1e-6)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var chart string
	for _, zf := range zr.File {
		if strings.HasPrefix(zf.Name, "xl/charts/chart") {
			rc, err := zf.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			chart = string(b)
		}
	}
	require.NotEmpty(t, chart, "workbook has no chart part")
	assert.Contains(t, chart, "scatterChart")
	assert.Contains(t, chart, "$B$2:$B$7")
	assert.Contains(t, chart, "$D$2:$D$7")
}

func TestWorkbookNeedsAnalysis(t *testing.T) {
	_, err := Workbook(&pipeline.Result{})
	assert.Error(t, err)
}

func TestHeatmap(t *testing.T) {
	res := sampleResult(t)
	out := Heatmap(res.Correlation)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Sc_Va_Da")
	assert.Contains(t, lines[1], "Schedule_Variance_Days")
	assert.Contains(t, lines[1], "1.00")
	assert.Contains(t, lines[4], "Total_Shrinkage")
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, coolwarm[0], HeatColor(-1))
	assert.Equal(t, coolwarm[len(coolwarm)-1], HeatColor(1))
	assert.Equal(t, coolwarm[4], HeatColor(0))
	assert.Equal(t, coolwarm[len(coolwarm)-1], HeatColor(3))
	assert.Equal(t, coolwarm[4], HeatColor(math.NaN()))
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "Total_Spend", abbreviate("Total_Spend", 11))
	assert.Equal(t, "Sc_Va_Da", abbreviate("Schedule_Variance_Days", 8))
	assert.Equal(t, "Tot_Shr", abbreviate("Total_Shrinkage", 8))
}
