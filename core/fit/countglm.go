package fit

import (
	"context"
	"fmt"
	"math"

	"github.com/huangsam/pairwise/schema"
	"gonum.org/v1/gonum/mat"
)

// IRLS settings for the count model.
const (
	countMaxIter   = 25
	countTolerance = 1e-8
	countMuStart   = 0.1
)

// countFit is a quasi-Poisson fit with a log link.
type countFit struct {
	beta       []float64
	se         []float64
	dispersion float64
	df         int
	iterations int
}

// fitCount fits y on the design by iteratively reweighted least squares.
// Standard errors are scaled by the Pearson dispersion.
func fitCount(ctx context.Context, d *design, y []float64) (*countFit, error) {
	n, p := d.n(), d.p()
	df := n - p
	if df <= 0 {
		return nil, fmt.Errorf("no residual degrees of freedom (%d rows, %d coefficients)", n, p)
	}
	for i, v := range y {
		if v < 0 {
			return nil, fmt.Errorf("negative count %g in row %d", v, d.rows[i])
		}
	}

	off := d.offset
	if off == nil {
		off = make([]float64, n)
	}
	mu := make([]float64, n)
	eta := make([]float64, n)
	for i := range y {
		mu[i] = y[i] + countMuStart
		eta[i] = math.Log(mu[i])
	}

	beta := mat.NewVecDense(p, nil)
	z := make([]float64, n)
	devOld := math.Inf(1)
	converged := false
	iter := 0
	for iter < countMaxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iter++
		for i := range y {
			z[i] = eta[i] - off[i] + (y[i]-mu[i])/mu[i]
		}
		chol, err := factorize(weightedGram(d.x, mu))
		if err != nil {
			return nil, err
		}
		xtwz := mat.NewVecDense(p, nil)
		for j := range p {
			var s float64
			for i := range n {
				s += d.x.At(i, j) * mu[i] * z[i]
			}
			xtwz.SetVec(j, s)
		}
		if err := chol.SolveVecTo(beta, xtwz); err != nil {
			return nil, err
		}

		var linear mat.VecDense
		linear.MulVec(d.x, beta)
		for i := range n {
			eta[i] = linear.AtVec(i) + off[i]
			mu[i] = math.Exp(eta[i])
			if math.IsInf(mu[i], 0) || math.IsNaN(mu[i]) {
				return nil, fmt.Errorf("fitted mean diverged at iteration %d", iter)
			}
		}
		dev := poissonDeviance(y, mu)
		if math.Abs(dev-devOld)/(math.Abs(dev)+0.1) < countTolerance {
			converged = true
			break
		}
		devOld = dev
	}
	if !converged {
		return nil, fmt.Errorf("IRLS did not converge in %d iterations", countMaxIter)
	}

	chol, err := factorize(weightedGram(d.x, mu))
	if err != nil {
		return nil, err
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, err
	}

	var pearson float64
	for i := range y {
		r := y[i] - mu[i]
		pearson += r * r / mu[i]
	}
	dispersion := pearson / float64(df)

	fit := &countFit{
		beta:       make([]float64, p),
		se:         make([]float64, p),
		dispersion: dispersion,
		df:         df,
		iterations: iter,
	}
	for j := range p {
		fit.beta[j] = beta.AtVec(j)
		fit.se[j] = math.Sqrt(dispersion * inv.At(j, j))
	}
	return fit, nil
}

// poissonDeviance returns 2 Σ (y log(y/μ) − (y − μ)).
func poissonDeviance(y, mu []float64) float64 {
	var dev float64
	for i := range y {
		if y[i] > 0 {
			dev += y[i] * math.Log(y[i]/mu[i])
		}
		dev -= y[i] - mu[i]
	}
	return 2 * dev
}

// coefficients converts a count fit into table rows.
func (c *countFit) coefficients(d *design, response string) []schema.Coefficient {
	rows := make([]schema.Coefficient, len(c.beta))
	for j := range c.beta {
		t, pv := tTest(c.beta[j], c.se[j], c.df)
		rows[j] = d.coefficient(response, j, c.beta[j], c.se[j], t, pv)
	}
	return rows
}
