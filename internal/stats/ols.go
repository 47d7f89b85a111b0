package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// rankTol is the smallest singular value, relative to the largest, that still
// counts as a full-rank design column.
const rankTol = 1e-10

// InterceptName labels the constant term.
const InterceptName = "Intercept"

// Regression is an ordinary-least-squares fit with an intercept.
type Regression struct {
	DepVar string   `json:"dep_var"`
	Names  []string `json:"names"` // Names[0] is the intercept

	Params  []float64    `json:"params"`
	StdErr  []float64    `json:"std_err"`
	TValues []float64    `json:"t_values"`
	PValues []float64    `json:"p_values"`
	ConfInt [][2]float64 `json:"conf_int"` // 95% interval per parameter

	Fitted    []float64 `json:"fitted"`
	Residuals []float64 `json:"residuals"`

	NObs    int     `json:"n_obs"`
	DFModel float64 `json:"df_model"`
	DFResid float64 `json:"df_resid"`

	RSquared      float64 `json:"r_squared"`
	AdjRSquared   float64 `json:"adj_r_squared"`
	FValue        float64 `json:"f_value"`
	FPValue       float64 `json:"f_p_value"`
	LogLikelihood float64 `json:"log_likelihood"`
	AIC           float64 `json:"aic"`
	BIC           float64 `json:"bic"`

	// Residual diagnostics
	Omnibus       float64 `json:"omnibus"`
	OmnibusPValue float64 `json:"omnibus_p_value"`
	DurbinWatson  float64 `json:"durbin_watson"`
	JarqueBera    float64 `json:"jarque_bera"`
	JBPValue      float64 `json:"jb_p_value"`
	Skew          float64 `json:"skew"`
	Kurtosis      float64 `json:"kurtosis"`
	CondNo        float64 `json:"cond_no"`
}

// Formula returns the model in "y ~ x1 + x2" notation.
func (r *Regression) Formula() string {
	return formula(r.DepVar, r.Names[1:])
}

// Param returns the estimate for the named term.
func (r *Regression) Param(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Params[i], true
		}
	}
	return 0, false
}

func formula(dep string, regressors []string) string {
	if len(regressors) == 0 {
		return dep + " ~ 1"
	}
	return dep + " ~ " + strings.Join(regressors, " + ")
}

// Fit estimates y = b0 + b1*x1 + ... by ordinary least squares.
func Fit(y Series, xs ...Series) (*Regression, error) {
	names := make([]string, len(xs))
	for i, x := range xs {
		names[i] = x.Name
	}
	model := formula(y.Name, names)
	all := append([]Series{y}, xs...)
	if err := checkAligned(all...); err != nil {
		return nil, fmt.Errorf("%s: %w", model, err)
	}
	for _, s := range all {
		if err := checkFinite(s); err != nil {
			return nil, fmt.Errorf("%s: %w", model, err)
		}
	}
	n := y.Len()
	p := len(xs) + 1
	if n <= p {
		return nil, &DegenerateFitError{Model: model, N: n, Params: p,
			Reason: fmt.Sprintf("need more than %d observations", p)}
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, s := range xs {
			x.Set(i, j+1, s.Values[i])
		}
	}
	// Rank, coefficients and (XᵀX)⁻¹ are computed on unit-norm columns;
	// Cond. No. is reported for the raw design.
	norms := make([]float64, p)
	scaled := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		norms[j] = mat.Norm(x.ColView(j), 2)
		if norms[j] == 0 {
			return nil, &DegenerateFitError{Model: model, N: n, Params: p,
				Reason: fmt.Sprintf("regressor %s is identically zero", names[j-1])}
		}
		for i := 0; i < n; i++ {
			scaled.Set(i, j, x.At(i, j)/norms[j])
		}
	}
	var svd mat.SVD
	if !svd.Factorize(scaled, mat.SVDNone) {
		return nil, &DegenerateFitError{Model: model, N: n, Params: p, Reason: "singular value decomposition failed"}
	}
	sv := svd.Values(nil)
	if sv[0] == 0 || sv[p-1]/sv[0] < rankTol {
		return nil, &DegenerateFitError{Model: model, N: n, Params: p,
			Reason: "design matrix is rank deficient (constant or collinear regressor)"}
	}
	var raw mat.SVD
	if !raw.Factorize(x, mat.SVDNone) {
		return nil, &DegenerateFitError{Model: model, N: n, Params: p, Reason: "singular value decomposition failed"}
	}
	rawSV := raw.Values(nil)

	yv := mat.NewVecDense(n, append([]float64(nil), y.Values...))
	var qr mat.QR
	qr.Factorize(scaled)
	var betaS mat.VecDense
	if err := qr.SolveVecTo(&betaS, false, yv); err != nil && !isCondition(err) {
		return nil, &DegenerateFitError{Model: model, N: n, Params: p, Reason: err.Error()}
	}
	// (XᵀX)⁻¹ = D⁻¹ (SᵀS)⁻¹ D⁻¹ with S the scaled design and D the column norms.
	var xtx, xtxInv mat.Dense
	xtx.Mul(scaled.T(), scaled)
	if err := xtxInv.Inverse(&xtx); err != nil && !isCondition(err) {
		return nil, &DegenerateFitError{Model: model, N: n, Params: p, Reason: err.Error()}
	}

	r := &Regression{
		DepVar:  y.Name,
		Names:   append([]string{InterceptName}, names...),
		NObs:    n,
		DFModel: float64(p - 1),
		DFResid: float64(n - p),
		CondNo:  rawSV[0] / rawSV[p-1],
	}
	r.Params = make([]float64, p)
	for j := 0; j < p; j++ {
		r.Params[j] = betaS.AtVec(j) / norms[j]
	}

	var fitted mat.VecDense
	fitted.MulVec(scaled, &betaS)
	r.Fitted = make([]float64, n)
	r.Residuals = make([]float64, n)
	var ssr float64
	for i := 0; i < n; i++ {
		r.Fitted[i] = fitted.AtVec(i)
		e := y.Values[i] - r.Fitted[i]
		r.Residuals[i] = e
		ssr += e * e
	}
	ybar := stat.Mean(y.Values, nil)
	var sst float64
	for _, v := range y.Values {
		sst += (v - ybar) * (v - ybar)
	}

	sigma2 := ssr / r.DFResid
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: r.DFResid}
	q := tdist.Quantile(0.975)
	r.StdErr = make([]float64, p)
	r.TValues = make([]float64, p)
	r.PValues = make([]float64, p)
	r.ConfInt = make([][2]float64, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(sigma2*xtxInv.At(j, j)) / norms[j]
		r.StdErr[j] = se
		t := r.Params[j] / se
		r.TValues[j] = t
		if math.IsNaN(t) {
			r.PValues[j] = math.NaN()
		} else {
			r.PValues[j] = 2 * tdist.Survival(math.Abs(t))
		}
		r.ConfInt[j] = [2]float64{r.Params[j] - q*se, r.Params[j] + q*se}
	}

	// A constant response has no variance to explain.
	r.RSquared, r.AdjRSquared = math.NaN(), math.NaN()
	r.FValue, r.FPValue = math.NaN(), math.NaN()
	if sst > 0 {
		r.RSquared = 1 - ssr/sst
		r.AdjRSquared = 1 - (1-r.RSquared)*float64(n-1)/r.DFResid
		if r.DFModel > 0 {
			r.FValue = ((sst - ssr) / r.DFModel) / sigma2
			switch {
			case math.IsInf(r.FValue, 1):
				r.FPValue = 0
			case r.FValue >= 0:
				fdist := distuv.F{D1: r.DFModel, D2: r.DFResid}
				r.FPValue = 1 - fdist.CDF(r.FValue)
			}
		}
	}

	nf := float64(n)
	r.LogLikelihood = -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	r.AIC = -2*r.LogLikelihood + 2*float64(p)
	r.BIC = -2*r.LogLikelihood + float64(p)*math.Log(nf)

	r.DurbinWatson = durbinWatson(r.Residuals)
	r.Skew, r.Kurtosis = moments(r.Residuals)
	r.JarqueBera = nf / 6 * (r.Skew*r.Skew + (r.Kurtosis-3)*(r.Kurtosis-3)/4)
	chi2 := distuv.ChiSquared{K: 2}
	r.JBPValue = math.NaN()
	if !math.IsNaN(r.JarqueBera) {
		r.JBPValue = chi2.Survival(r.JarqueBera)
	}
	if k2, ok := omnibus(r.Residuals, r.Skew, r.Kurtosis); ok {
		r.Omnibus = k2
		r.OmnibusPValue = chi2.Survival(k2)
	} else {
		r.Omnibus, r.OmnibusPValue = math.NaN(), math.NaN()
	}
	return r, nil
}

// isCondition reports a near-singularity warning from gonum, which still
// carries a usable result.
func isCondition(err error) bool {
	var c mat.Condition
	return errors.As(err, &c)
}

func durbinWatson(e []float64) float64 {
	var num, den float64
	for i, v := range e {
		den += v * v
		if i > 0 {
			d := v - e[i-1]
			num += d * d
		}
	}
	return num / den
}

// moments returns the biased sample skewness and (non-excess) kurtosis.
func moments(e []float64) (skew, kurt float64) {
	m2 := stat.Moment(2, e, nil)
	m3 := stat.Moment(3, e, nil)
	m4 := stat.Moment(4, e, nil)
	return m3 / math.Pow(m2, 1.5), m4 / (m2 * m2)
}

// omnibus is D'Agostino and Pearson's K² normality statistic. It needs at
// least eight observations.
func omnibus(e []float64, skew, kurt float64) (float64, bool) {
	n := float64(len(e))
	if len(e) < 8 || math.IsNaN(skew) || math.IsNaN(kurt) {
		return 0, false
	}
	// skewness test
	y := skew * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	if y == 0 {
		y = 1
	}
	zs := delta * math.Log(y/alpha+math.Sqrt((y/alpha)*(y/alpha)+1))

	// kurtosis test
	mean := 3 * (n - 1) / (n + 1)
	varb2 := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (kurt - mean) / math.Sqrt(varb2)
	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	term1 := 1 - 2/(9*a)
	denom := 1 + x*math.Sqrt(2/(a-4))
	if denom == 0 {
		return 0, false
	}
	term2 := math.Copysign(math.Cbrt((1-2/a)/math.Abs(denom)), denom)
	zk := (term1 - term2) / math.Sqrt(2/(9*a))

	k2 := zs*zs + zk*zk
	if math.IsNaN(k2) || math.IsInf(k2, 0) {
		return 0, false
	}
	return k2, true
}
