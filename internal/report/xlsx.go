package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/stats"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary    = "Summary"
	SheetMaster     = "Master"
	SheetCorr       = "Correlation"
	SheetSimple     = "Simple Regression"
	SheetSimpleFit  = "Simple Fit"
	SheetControlled = "Controlled Regression"
)

type styles struct {
	header int
	money  int
	ratio  int
}

// Workbook builds an excelize workbook for a completed result.
func Workbook(res *pipeline.Result) (*excelize.File, error) {
	if res.Master == nil || res.Analysis == nil {
		return nil, fmt.Errorf("workbook: result has no analysis")
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, s := range []string{SheetMaster, SheetCorr, SheetSimple, SheetSimpleFit, SheetControlled} {
		if _, err := f.NewSheet(s); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet %s: %w", s, err)
		}
	}
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	steps := []func() error{
		func() error { return writeSummarySheet(f, st, res) },
		func() error { return writeMasterSheet(f, st, res.Master) },
		func() error { return writeCorrSheet(f, st, res.Correlation) },
		func() error { return writeRegressionSheet(f, st, SheetSimple, res.Simple) },
		func() error { return writeSimpleFitSheet(f, st, res.Master, res.Simple) },
		func() error { return writeRegressionSheet(f, st, SheetControlled, res.Controlled) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteXLSX writes the workbook for res to w.
func WriteXLSX(res *pipeline.Result, w io.Writer) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.money, err = f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	fmtCode := "0.0000"
	st.ratio, err = f.NewStyle(&excelize.Style{CustomNumFmt: &fmtCode})
	if err != nil {
		return st, fmt.Errorf("ratio style: %w", err)
	}
	return st, nil
}

func cellName(col, row int) string {
	c, _ := excelize.CoordinatesToCellName(col, row)
	return c
}

// setNum writes a float, leaving the cell blank for NaN or ±Inf.
func setNum(f *excelize.File, sheet string, col, row int, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return f.SetCellValue(sheet, cellName(col, row), v)
}

func writeHeader(f *excelize.File, st styles, sheet string, row int, cols []string) error {
	for i, c := range cols {
		if err := f.SetCellValue(sheet, cellName(i+1, row), c); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, cellName(1, row), cellName(len(cols), row), st.header)
}

func writeSummarySheet(f *excelize.File, st styles, res *pipeline.Result) error {
	s := SheetSummary
	if err := writeHeader(f, st, s, 1, []string{"Role", "File", "Rows", "Columns"}); err != nil {
		return err
	}
	row := 2
	for _, in := range res.Inputs {
		vals := []interface{}{string(in.Role), in.Name, in.Rows, strings.Join(in.Columns, ", ")}
		if err := f.SetSheetRow(s, cellName(1, row), &vals); err != nil {
			return err
		}
		row++
	}
	row++
	vals := []interface{}{"Master rows", res.Master.Len()}
	if err := f.SetSheetRow(s, cellName(1, row), &vals); err != nil {
		return err
	}
	row++
	label := fmt.Sprintf("Partial correlation %s vs %s | %s",
		pipeline.ColScheduleVariance, pipeline.ColTotalShrinkage, pipeline.ColTotalSpend)
	if err := f.SetCellValue(s, cellName(1, row), label); err != nil {
		return err
	}
	if err := setNum(f, s, 2, row, res.PartialCorrelation); err != nil {
		return err
	}
	if err := f.SetCellStyle(s, cellName(2, row), cellName(2, row), st.ratio); err != nil {
		return err
	}
	if len(res.Warnings) > 0 {
		row += 2
		if err := writeHeader(f, st, s, row, []string{"Warning"}); err != nil {
			return err
		}
		for _, w := range res.Warnings {
			row++
			if err := f.SetCellValue(s, cellName(1, row), w.String()); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(s, "A", "B", 36)
}

func writeMasterSheet(f *excelize.File, st styles, m *pipeline.MasterTable) error {
	s := SheetMaster
	header := m.Header()
	if err := writeHeader(f, st, s, 1, header); err != nil {
		return err
	}
	nExtra := len(m.ExtraColumns)
	for i, r := range m.Rows {
		row := i + 2
		vals := []interface{}{r.ProjectID, r.PlannedDays, r.ActualDays}
		for _, e := range r.Extra {
			vals = append(vals, e)
		}
		vals = append(vals, r.ScheduleVarianceDays, r.UtilisationAvgPct,
			r.TotalSpend.InexactFloat64(), r.TotalShrinkage.InexactFloat64())
		if err := f.SetSheetRow(s, cellName(1, row), &vals); err != nil {
			return err
		}
	}
	if m.Len() > 0 {
		spendCol := 3 + nExtra + 3
		if err := f.SetCellStyle(s, cellName(spendCol, 2), cellName(spendCol+1, m.Len()+1), st.money); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(s, "A", last, 18)
}

func writeCorrSheet(f *excelize.File, st styles, m *stats.CorrMatrix) error {
	s := SheetCorr
	if err := writeHeader(f, st, s, 1, append([]string{""}, m.Columns...)); err != nil {
		return err
	}
	for i, name := range m.Columns {
		row := i + 2
		if err := f.SetCellValue(s, cellName(1, row), name); err != nil {
			return err
		}
		for j, v := range m.Values[i] {
			if err := setNum(f, s, j+2, row, v); err != nil {
				return err
			}
		}
	}
	k := len(m.Columns)
	rng := fmt.Sprintf("%s:%s", cellName(2, 2), cellName(k+1, k+1))
	if err := f.SetCellStyle(s, cellName(2, 2), cellName(k+1, k+1), st.ratio); err != nil {
		return err
	}
	err := f.SetConditionalFormat(s, rng, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MidType:  "num",
		MaxType:  "num",
		MinValue: "-1",
		MidValue: "0",
		MaxValue: "1",
		MinColor: "#3B4CC0",
		MidColor: "#DDDDDD",
		MaxColor: "#B40426",
	}})
	if err != nil {
		return fmt.Errorf("heatmap format: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(k + 1)
	return f.SetColWidth(s, "A", last, 28)
}

func writeRegressionSheet(f *excelize.File, st styles, sheet string, r *stats.Regression) error {
	if err := f.SetCellValue(sheet, "A1", "Model"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", r.Formula()); err != nil {
		return err
	}
	fit := []struct {
		name string
		v    float64
	}{
		{"No. Observations", float64(r.NObs)},
		{"Df Model", r.DFModel},
		{"Df Residuals", r.DFResid},
		{"R-squared", r.RSquared},
		{"Adj. R-squared", r.AdjRSquared},
		{"F-statistic", r.FValue},
		{"Prob (F-statistic)", r.FPValue},
		{"Log-Likelihood", r.LogLikelihood},
		{"AIC", r.AIC},
		{"BIC", r.BIC},
	}
	row := 2
	for _, x := range fit {
		if err := f.SetCellValue(sheet, cellName(1, row), x.name); err != nil {
			return err
		}
		if err := setNum(f, sheet, 2, row, x.v); err != nil {
			return err
		}
		row++
	}

	row++
	if err := writeHeader(f, st, sheet, row, []string{"Term", "coef", "std err", "t", "P>|t|", "[0.025", "0.975]"}); err != nil {
		return err
	}
	for i, name := range r.Names {
		row++
		if err := f.SetCellValue(sheet, cellName(1, row), name); err != nil {
			return err
		}
		for j, v := range []float64{r.Params[i], r.StdErr[i], r.TValues[i], r.PValues[i], r.ConfInt[i][0], r.ConfInt[i][1]} {
			if err := setNum(f, sheet, j+2, row, v); err != nil {
				return err
			}
		}
	}

	row += 2
	if err := writeHeader(f, st, sheet, row, []string{"Diagnostic", "value"}); err != nil {
		return err
	}
	diag := []struct {
		name string
		v    float64
	}{
		{"Omnibus", r.Omnibus},
		{"Prob(Omnibus)", r.OmnibusPValue},
		{"Durbin-Watson", r.DurbinWatson},
		{"Jarque-Bera (JB)", r.JarqueBera},
		{"Prob(JB)", r.JBPValue},
		{"Skew", r.Skew},
		{"Kurtosis", r.Kurtosis},
		{"Cond. No.", r.CondNo},
	}
	for _, x := range diag {
		row++
		if err := f.SetCellValue(sheet, cellName(1, row), x.name); err != nil {
			return err
		}
		if err := setNum(f, sheet, 2, row, x.v); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "G", 20)
}

// writeSimpleFitSheet lists observed spend against shrinkage next to the
// fitted line and charts both as a scatter. Rows are ordered by shrinkage so
// the fitted series draws as a straight line.
func writeSimpleFitSheet(f *excelize.File, st styles, m *pipeline.MasterTable, r *stats.Regression) error {
	sheet := SheetSimpleFit
	if r == nil || len(r.Fitted) != len(m.Rows) {
		return fmt.Errorf("%s: fitted values do not match master rows", sheet)
	}
	if err := writeHeader(f, st, sheet, 1, []string{"Project_ID", pipeline.ColTotalShrinkage, pipeline.ColTotalSpend, "Fitted"}); err != nil {
		return err
	}
	order := make([]int, len(m.Rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Rows[order[a]].TotalShrinkage.LessThan(m.Rows[order[b]].TotalShrinkage)
	})
	for k, i := range order {
		row := k + 2
		mr := m.Rows[i]
		if err := f.SetCellValue(sheet, cellName(1, row), mr.ProjectID); err != nil {
			return err
		}
		for j, v := range []float64{mr.TotalShrinkage.InexactFloat64(), mr.TotalSpend.InexactFloat64(), r.Fitted[i]} {
			if err := setNum(f, sheet, j+2, row, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(sheet, "B2", cellName(4, len(order)+1), st.money); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "D", 18); err != nil {
		return err
	}
	if len(order) == 0 {
		return nil
	}

	last := len(order) + 1
	ref := func(col string) string {
		return fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, col, col, last)
	}
	return f.AddChart(sheet, "F2", &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$C$1", sheet),
				Categories: ref("B"),
				Values:     ref("C"),
				Marker:     excelize.ChartMarker{Symbol: "circle", Size: 6},
				Line:       excelize.ChartLine{Type: excelize.ChartLineNone},
			},
			{
				Name:       fmt.Sprintf("'%s'!$D$1", sheet),
				Categories: ref("B"),
				Values:     ref("D"),
				Marker:     excelize.ChartMarker{Symbol: "none"},
				Line:       excelize.ChartLine{Width: 1.5},
			},
		},
		Title:  []excelize.RichTextRun{{Text: r.Formula()}},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: pipeline.ColTotalShrinkage}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: pipeline.ColTotalSpend}}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}
