package analytics

import (
	"errors"
	"math"
)

// CointegrationResult holds the outcome of an augmented Dickey-Fuller test.
// An undefined result (too few samples or a numerical failure) has NaN
// statistic and p-value, IsStationary false and an empty critical value map.
type CointegrationResult struct {
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"p_value"`
	IsStationary   bool               `json:"is_stationary"`
	CriticalValues map[string]float64 `json:"critical_values"`
	UsedLag        int                `json:"used_lag"`
	NObs           int                `json:"n_obs"`
}

// Undefined reports whether the test could not be computed.
func (r CointegrationResult) Undefined() bool {
	return math.IsNaN(r.Statistic)
}

const minADFSamples = 20

// ADFTest runs an augmented Dickey-Fuller unit root test with a constant
// term. The null hypothesis is that the series has a unit root; a p-value
// below significance rejects it, marking the series stationary.
//
// maxLag <= 0 selects the Schwert rule 12*(n/100)^0.25, and the actual lag
// order is then chosen by minimizing the Akaike information criterion.
// P-values use MacKinnon's approximate response surface, critical values the
// MacKinnon 2010 finite-sample regressions.
func ADFTest(series []float64, maxLag int, significance float64) CointegrationResult {
	undefined := CointegrationResult{
		Statistic:      math.NaN(),
		PValue:         math.NaN(),
		IsStationary:   false,
		CriticalValues: map[string]float64{},
	}

	clean := dropNaN(series)
	n := len(clean)
	if n < minADFSamples {
		return undefined
	}

	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if limit := n/2 - 2; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return undefined
	}

	dy := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dy[i-1] = clean[i] - clean[i-1]
	}

	usedLag, err := adfSelectLag(clean, dy, maxLag)
	if err != nil {
		return undefined
	}

	stat, nobs, err := adfStatistic(clean, dy, usedLag)
	if err != nil {
		return undefined
	}

	pValue := mackinnonPValue(stat)
	result := CointegrationResult{
		Statistic:    stat,
		PValue:       pValue,
		IsStationary: pValue < significance,
		CriticalValues: map[string]float64{
			"1%":  mackinnonCrit(critCoef1, nobs),
			"5%":  mackinnonCrit(critCoef5, nobs),
			"10%": mackinnonCrit(critCoef10, nobs),
		},
		UsedLag: usedLag,
		NObs:    nobs,
	}
	return result
}

// adfSelectLag picks the lag order in [0, maxLag] minimizing AIC over a
// common estimation sample (all candidates start at row maxLag).
func adfSelectLag(level, dy []float64, maxLag int) (int, error) {
	rows := len(dy) - maxLag
	if rows <= maxLag+3 {
		// not enough data for lag selection, fall back to no lags
		return 0, nil
	}

	bestLag := 0
	bestIC := math.Inf(1)
	for k := 0; k <= maxLag; k++ {
		x, y := adfDesign(level, dy, k, maxLag)
		_, ssr, _, err := olsSolve(x, y)
		if err != nil || ssr <= 0 {
			continue
		}
		nobs := float64(len(y))
		nparams := float64(k + 2)
		ic := nobs*math.Log(ssr/nobs) + 2*nparams
		if ic < bestIC {
			bestIC = ic
			bestLag = k
		}
	}
	if math.IsInf(bestIC, 1) {
		return 0, errors.New("adf: no candidate regression converged")
	}
	return bestLag, nil
}

// adfStatistic refits the selected model on the longest available sample and
// returns the t statistic on the lagged level together with the sample size.
func adfStatistic(level, dy []float64, lag int) (float64, int, error) {
	x, y := adfDesign(level, dy, lag, lag)
	beta, ssr, xtxInv, err := olsSolve(x, y)
	if err != nil {
		return 0, 0, err
	}
	nobs := len(y)
	dof := float64(nobs - len(beta))
	if dof <= 0 {
		return 0, 0, errors.New("adf: no residual degrees of freedom")
	}
	sigma2 := ssr / dof
	se := math.Sqrt(sigma2 * xtxInv[0])
	if se == 0 || math.IsNaN(se) {
		return 0, 0, errors.New("adf: degenerate standard error")
	}
	return beta[0] / se, nobs, nil
}

// adfDesign builds the regression dy[t] on [level[t], dy[t-1..t-lag], 1]
// starting at row startLag of the differenced series.
func adfDesign(level, dy []float64, lag, startLag int) ([][]float64, []float64) {
	rows := len(dy) - startLag
	x := make([][]float64, rows)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		t := startLag + i
		row := make([]float64, lag+2)
		row[0] = level[t]
		for j := 1; j <= lag; j++ {
			row[j] = dy[t-j]
		}
		row[lag+1] = 1
		x[i] = row
		y[i] = dy[t]
	}
	return x, y
}

// olsSolve fits y = X*beta by normal equations, returning the coefficients,
// the residual sum of squares and the diagonal of (X'X)^-1.
func olsSolve(x [][]float64, y []float64) (beta []float64, ssr float64, xtxInvDiag []float64, err error) {
	rows := len(x)
	if rows == 0 {
		return nil, 0, nil, errors.New("ols: empty design matrix")
	}
	cols := len(x[0])
	if rows < cols {
		return nil, 0, nil, errors.New("ols: underdetermined system")
	}

	xtx := make([][]float64, cols)
	xty := make([]float64, cols)
	for i := 0; i < cols; i++ {
		xtx[i] = make([]float64, cols)
	}
	for r := 0; r < rows; r++ {
		for i := 0; i < cols; i++ {
			xty[i] += x[r][i] * y[r]
			for j := i; j < cols; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}
	for i := 0; i < cols; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invertMatrix(xtx)
	if err != nil {
		return nil, 0, nil, err
	}

	beta = make([]float64, cols)
	for i := 0; i < cols; i++ {
		for j := 0; j < cols; j++ {
			beta[i] += inv[i][j] * xty[j]
		}
	}

	for r := 0; r < rows; r++ {
		pred := 0.0
		for i := 0; i < cols; i++ {
			pred += x[r][i] * beta[i]
		}
		resid := y[r] - pred
		ssr += resid * resid
	}

	xtxInvDiag = make([]float64, cols)
	for i := 0; i < cols; i++ {
		xtxInvDiag[i] = inv[i][i]
	}
	return beta, ssr, xtxInvDiag, nil
}

// invertMatrix inverts a small square matrix by Gauss-Jordan elimination
// with partial pivoting.
func invertMatrix(m [][]float64) ([][]float64, error) {
	n := len(m)
	a := make([][]float64, n)
	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		a[i] = make([]float64, n)
		copy(a[i], m[i])
		inv[i] = make([]float64, n)
		inv[i][i] = 1
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New("matrix is singular")
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		pv := a[col][col]
		for j := 0; j < n; j++ {
			a[col][j] /= pv
			inv[col][j] /= pv
		}
		for r := 0; r < n; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			factor := a[r][col]
			for j := 0; j < n; j++ {
				a[r][j] -= factor * a[col][j]
				inv[r][j] -= factor * inv[col][j]
			}
		}
	}
	return inv, nil
}

// MacKinnon approximate p-value response surface, constant-only case.
var (
	tauSmallP = [3]float64{2.1659, 1.4412, 0.038977}
	tauLargeP = [4]float64{1.7339, 0.93202, -0.12745, -0.010368}
)

const (
	tauStarC = -1.61
	tauMaxC  = 2.74
	tauMinC  = -18.83
)

func mackinnonPValue(stat float64) float64 {
	if stat > tauMaxC {
		return 1.0
	}
	if stat < tauMinC {
		return 0.0
	}
	var z float64
	if stat <= tauStarC {
		z = tauSmallP[0] + stat*(tauSmallP[1]+stat*tauSmallP[2])
	} else {
		z = tauLargeP[0] + stat*(tauLargeP[1]+stat*(tauLargeP[2]+stat*tauLargeP[3]))
	}
	return NormCDF(z)
}

// MacKinnon 2010 finite-sample critical value regressions, constant case.
var (
	critCoef1  = [4]float64{-3.43035, -6.5393, -16.786, -79.433}
	critCoef5  = [4]float64{-2.86154, -2.8903, -4.234, -40.040}
	critCoef10 = [4]float64{-2.56677, -1.5384, -2.809, 0}
)

func mackinnonCrit(coef [4]float64, nobs int) float64 {
	n := float64(nobs)
	return coef[0] + coef[1]/n + coef[2]/(n*n) + coef[3]/(n*n*n)
}
