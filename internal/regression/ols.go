package regression

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"factorlens/pkg/contracts/domain"
)

// DefaultCondThreshold is the condition-number ceiling for the normal
// equations matrix before a window is declared singular. The normal
// equations square the conditioning of the design matrix, so this
// corresponds to a design-matrix condition number of roughly 1e6.
const DefaultCondThreshold = 1e12

// olsFit computes the ordinary least squares fit of dependent on
// independents plus intercept for a single window of observations.
//
// The design matrix X has one row per observation with columns
// [1, independents...]. The solve goes through a Cholesky factorization of
// the normal equations XᵀX, which also yields the (XᵀX)⁻¹ diagonal needed
// for coefficient standard errors. A failed factorization or a condition
// number beyond condMax marks the window singular.
//
// A window whose dependent is constant has zero total sum of squares, so
// R² is undefined and reported as NaN; zero-variance coefficients there
// carry NaN or infinite t-statistics.
func olsFit(obs []Observation, names []string, condMax float64) (domain.RegressionResult, error) {
	n := len(obs)
	p := len(names) + 1 // intercept column
	endDate := obs[n-1].Date

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, o := range obs {
		x.Set(i, 0, 1)
		for j, v := range o.Independents {
			x.Set(i, j+1, v)
		}
		y.SetVec(i, o.Dependent)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return domain.RegressionResult{}, &SingularDesignError{EndDate: endDate}
	}
	if cond := chol.Cond(); cond > condMax || math.IsInf(cond, 1) || math.IsNaN(cond) {
		return domain.RegressionResult{}, &SingularDesignError{EndDate: endDate, Cond: cond}
	}

	xty := mat.NewVecDense(p, nil)
	xty.MulVec(x.T(), y)

	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, xty); err != nil {
		return domain.RegressionResult{}, &SingularDesignError{EndDate: endDate, Cond: chol.Cond()}
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return domain.RegressionResult{}, &SingularDesignError{EndDate: endDate, Cond: chol.Cond()}
	}

	// Residual sum of squares and total sum of squares within the window
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, beta)

	yMean := stat.Mean(y.RawVector().Data, nil)
	var rss, tss float64
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		rss += r * r
		d := y.AtVec(i) - yMean
		tss += d * d
	}

	df := n - p
	sigma2 := rss / float64(df)

	// A constant dependent leaves TSS at zero, so R² is undefined for the
	// window. Reported as NaN rather than 1 so a dashboard can show a gap
	// instead of a perfect fit.
	rsq := math.NaN()
	if tss > 0 {
		rsq = 1 - rss/tss
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	coefficient := func(j int) domain.Coefficient {
		est := beta.AtVec(j)
		se := math.Sqrt(sigma2 * inv.At(j, j))
		t := est / se
		return domain.Coefficient{
			Estimate: est,
			StdErr:   se,
			TStat:    t,
			PValue:   2 * tDist.CDF(-math.Abs(t)),
		}
	}

	result := domain.RegressionResult{
		EndDate:      endDate,
		Intercept:    coefficient(0),
		Coefficients: make(map[string]domain.Coefficient, len(names)),
		RSquared:     rsq,
		ResidualDF:   df,
	}
	for j, name := range names {
		result.Coefficients[name] = coefficient(j + 1)
	}

	return result, nil
}
