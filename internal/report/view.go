// Package report renders a pipeline result as Markdown, JSON, an XLSX
// workbook or a terminal heatmap.
package report

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/stats"
	"github.com/KaramelBytes/sitelens-cli/internal/utils"
	"github.com/shopspring/decimal"
)

// Number is a float64 that encodes NaN and ±Inf as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// View is the serialisable form of a pipeline result.
type View struct {
	Status               string                  `json:"status"`
	Inputs               []pipeline.InputSummary `json:"inputs"`
	Master               MasterView              `json:"master"`
	Correlation          CorrelationView         `json:"correlation"`
	SimpleRegression     RegressionView          `json:"simple_regression"`
	ControlledRegression RegressionView          `json:"controlled_regression"`
	PartialCorrelation   PartialView             `json:"partial_correlation"`
	Warnings             []pipeline.Warning      `json:"warnings"`
}

// MasterView lists the joined rows. Money columns keep their exact decimal text.
type MasterView struct {
	Columns []string        `json:"columns"`
	Rows    []MasterRowView `json:"rows"`
}

type MasterRowView struct {
	ProjectID            string            `json:"Project_ID"`
	PlannedDays          Number            `json:"Planned_Days"`
	ActualDays           Number            `json:"Actual_Days"`
	Extra                map[string]string `json:"extra,omitempty"`
	ScheduleVarianceDays Number            `json:"Schedule_Variance_Days"`
	UtilisationAvgPct    Number            `json:"Project_Utilisation_AvgPct"`
	TotalSpend           decimal.Decimal   `json:"Total_Spend"`
	TotalShrinkage       decimal.Decimal   `json:"Total_Shrinkage"`
}

type CorrelationView struct {
	Columns []string   `json:"columns"`
	Values  [][]Number `json:"values"`
}

type CoefficientView struct {
	Name   string `json:"name"`
	Coef   Number `json:"coef"`
	StdErr Number `json:"std_err"`
	T      Number `json:"t"`
	P      Number `json:"p"`
	CILow  Number `json:"ci_low"`
	CIHigh Number `json:"ci_high"`
}

type RegressionView struct {
	Model         string            `json:"model"`
	DepVar        string            `json:"dep_var"`
	NObs          int               `json:"n_obs"`
	DFModel       Number            `json:"df_model"`
	DFResid       Number            `json:"df_resid"`
	RSquared      Number            `json:"r_squared"`
	AdjRSquared   Number            `json:"adj_r_squared"`
	FValue        Number            `json:"f_statistic"`
	FPValue       Number            `json:"f_p_value"`
	LogLikelihood Number            `json:"log_likelihood"`
	AIC           Number            `json:"aic"`
	BIC           Number            `json:"bic"`
	Coefficients  []CoefficientView `json:"coefficients"`
	Diagnostics   map[string]Number `json:"diagnostics"`
	Summary       string            `json:"summary"`
}

type PartialView struct {
	Y       string `json:"y"`
	X       string `json:"x"`
	Control string `json:"control"`
	Value   Number `json:"value"`
}

// NewView converts a completed result. Analysis fields are left empty when
// only the master table was built.
func NewView(res *pipeline.Result) View {
	v := View{Status: "ok", Inputs: res.Inputs, Warnings: res.Warnings}
	if v.Warnings == nil {
		v.Warnings = []pipeline.Warning{}
	}
	if res.Master != nil {
		v.Master = newMasterView(res.Master)
	}
	if res.Analysis != nil {
		v.Correlation = newCorrelationView(res.Correlation)
		v.SimpleRegression = newRegressionView(res.Simple)
		v.ControlledRegression = newRegressionView(res.Controlled)
		v.PartialCorrelation = PartialView{
			Y:       pipeline.ColTotalShrinkage,
			X:       pipeline.ColScheduleVariance,
			Control: pipeline.ColTotalSpend,
			Value:   Number(res.PartialCorrelation),
		}
	}
	return v
}

// JSON renders the result as indented JSON.
func JSON(res *pipeline.Result) ([]byte, error) {
	return utils.PrettyJSON(NewView(res))
}

func newMasterView(m *pipeline.MasterTable) MasterView {
	mv := MasterView{Columns: m.Header(), Rows: make([]MasterRowView, len(m.Rows))}
	for i, r := range m.Rows {
		row := MasterRowView{
			ProjectID:            r.ProjectID,
			PlannedDays:          Number(r.PlannedDays),
			ActualDays:           Number(r.ActualDays),
			ScheduleVarianceDays: Number(r.ScheduleVarianceDays),
			UtilisationAvgPct:    Number(r.UtilisationAvgPct),
			TotalSpend:           r.TotalSpend,
			TotalShrinkage:       r.TotalShrinkage,
		}
		if len(m.ExtraColumns) > 0 {
			row.Extra = make(map[string]string, len(m.ExtraColumns))
			for j, c := range m.ExtraColumns {
				row.Extra[c] = r.Extra[j]
			}
		}
		mv.Rows[i] = row
	}
	return mv
}

func newCorrelationView(c *stats.CorrMatrix) CorrelationView {
	cv := CorrelationView{Columns: c.Columns, Values: make([][]Number, len(c.Values))}
	for i, row := range c.Values {
		cv.Values[i] = make([]Number, len(row))
		for j, x := range row {
			cv.Values[i][j] = Number(x)
		}
	}
	return cv
}

func newRegressionView(r *stats.Regression) RegressionView {
	rv := RegressionView{
		Model:         r.Formula(),
		DepVar:        r.DepVar,
		NObs:          r.NObs,
		DFModel:       Number(r.DFModel),
		DFResid:       Number(r.DFResid),
		RSquared:      Number(r.RSquared),
		AdjRSquared:   Number(r.AdjRSquared),
		FValue:        Number(r.FValue),
		FPValue:       Number(r.FPValue),
		LogLikelihood: Number(r.LogLikelihood),
		AIC:           Number(r.AIC),
		BIC:           Number(r.BIC),
		Diagnostics: map[string]Number{
			"omnibus":         Number(r.Omnibus),
			"omnibus_p_value": Number(r.OmnibusPValue),
			"durbin_watson":   Number(r.DurbinWatson),
			"jarque_bera":     Number(r.JarqueBera),
			"jb_p_value":      Number(r.JBPValue),
			"skew":            Number(r.Skew),
			"kurtosis":        Number(r.Kurtosis),
			"cond_no":         Number(r.CondNo),
		},
		Summary: r.Summary(),
	}
	for i, name := range r.Names {
		rv.Coefficients = append(rv.Coefficients, CoefficientView{
			Name:   name,
			Coef:   Number(r.Params[i]),
			StdErr: Number(r.StdErr[i]),
			T:      Number(r.TValues[i]),
			P:      Number(r.PValues[i]),
			CILow:  Number(r.ConfInt[i][0]),
			CIHigh: Number(r.ConfInt[i][1]),
		})
	}
	return rv
}
