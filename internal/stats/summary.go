package stats

import (
	"fmt"
	"math"
	"strings"
)

const summaryWidth = 78

// Summary renders the fit as a fixed-width OLS results table.
func (r *Regression) Summary() string {
	var b strings.Builder
	heavy := strings.Repeat("=", summaryWidth) + "\n"
	light := strings.Repeat("-", summaryWidth) + "\n"

	title := "OLS Regression Results"
	pad := (summaryWidth - len(title)) / 2
	b.WriteString(strings.Repeat(" ", pad) + title + "\n")
	b.WriteString(heavy)
	pairs := [][4]string{
		{"Dep. Variable:", r.DepVar, "R-squared:", num(r.RSquared)},
		{"Model:", "OLS", "Adj. R-squared:", num(r.AdjRSquared)},
		{"Method:", "Least Squares", "F-statistic:", num(r.FValue)},
		{"No. Observations:", fmt.Sprintf("%d", r.NObs), "Prob (F-statistic):", num(r.FPValue)},
		{"Df Residuals:", fmt.Sprintf("%.0f", r.DFResid), "Log-Likelihood:", num(r.LogLikelihood)},
		{"Df Model:", fmt.Sprintf("%.0f", r.DFModel), "AIC:", num(r.AIC)},
		{"", "", "BIC:", num(r.BIC)},
	}
	writePairs(&b, pairs)
	b.WriteString(heavy)

	nameW := 16
	for _, n := range r.Names {
		if len(n) > nameW {
			nameW = len(n)
		}
	}
	b.WriteString(fmt.Sprintf("%-*s %10s %10s %8s %8s %10s %10s\n", nameW, "", "coef", "std err", "t", "P>|t|", "[0.025", "0.975]"))
	b.WriteString(light)
	for i, n := range r.Names {
		b.WriteString(fmt.Sprintf("%-*s %10s %10s %8s %8s %10s %10s\n", nameW, n,
			num(r.Params[i]), num(r.StdErr[i]), fixed(r.TValues[i]), fixed(r.PValues[i]),
			num(r.ConfInt[i][0]), num(r.ConfInt[i][1])))
	}
	b.WriteString(heavy)
	writePairs(&b, [][4]string{
		{"Omnibus:", num(r.Omnibus), "Durbin-Watson:", num(r.DurbinWatson)},
		{"Prob(Omnibus):", num(r.OmnibusPValue), "Jarque-Bera (JB):", num(r.JarqueBera)},
		{"Skew:", num(r.Skew), "Prob(JB):", num(r.JBPValue)},
		{"Kurtosis:", num(r.Kurtosis), "Cond. No.", num(r.CondNo)},
	})
	b.WriteString(heavy)
	if r.NObs < 8 {
		b.WriteString("Note: omnibus normality test needs at least 8 observations.\n")
	}
	return b.String()
}

func writePairs(b *strings.Builder, pairs [][4]string) {
	for _, p := range pairs {
		left := fmt.Sprintf("%-20s%18s", p[0], p[1])
		right := fmt.Sprintf("%-22s%17s", p[2], p[3])
		b.WriteString(left + "   " + right + "\n")
	}
}

// num formats a statistic with four significant digits.
func num(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	a := math.Abs(v)
	if a != 0 && (a >= 1e6 || a < 1e-4) {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.4f", v)
}

func fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return num(v)
	}
	return fmt.Sprintf("%.3f", v)
}
