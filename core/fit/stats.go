package fit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxCondition bounds the condition number of XᵀWX before the design is treated as rank deficient.
const maxCondition = 1e12

var errRankDeficient = errors.New("design matrix is rank deficient")

// tTest returns the t statistic and two-sided p-value of est with standard error se.
func tTest(est, se float64, df int) (float64, float64) {
	if se == 0 || math.IsNaN(se) {
		if est == 0 {
			return 0, 1
		}
		return math.Copysign(math.Inf(1), est), 0
	}
	t := est / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	p := 2 * dist.CDF(-math.Abs(t))
	return t, math.Min(1, p)
}

// weightedGram returns XᵀWX for diagonal weights w, or XᵀX when w is nil.
func weightedGram(x *mat.Dense, w []float64) *mat.SymDense {
	n, p := x.Dims()
	g := mat.NewSymDense(p, nil)
	for a := range p {
		for b := a; b < p; b++ {
			var s float64
			for i := range n {
				wi := 1.0
				if w != nil {
					wi = w[i]
				}
				s += wi * x.At(i, a) * x.At(i, b)
			}
			g.SetSym(a, b, s)
		}
	}
	return g
}

// factorize returns the Cholesky factor of g, rejecting singular and ill-conditioned matrices.
func factorize(g *mat.SymDense) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(g); !ok {
		return nil, errRankDeficient
	}
	if chol.Cond() > maxCondition {
		return nil, errRankDeficient
	}
	return &chol, nil
}
