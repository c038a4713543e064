package fit

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/huangsam/pairwise/schema"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Settings of the log-ratio model.
const (
	modeMinFeatures = 5   // Fewer features skip the mode correction
	modeGridPoints  = 512 // Resolution of the density grid
)

// logRatioFit is a shared least-squares fit of centered log2 ratios.
type logRatioFit struct {
	features []string
	beta     *mat.Dense // p × m
	se       *mat.Dense // p × m
	df       int
}

// compositional holds feature counts over candidate rows, before transformation.
type compositional struct {
	features []string
	counts   [][]float64 // Row-major: counts[i][j] is feature j in row i
	rows     []int
}

// filterPrevalence keeps features that are nonzero in at least minFrac of the rows.
func (c *compositional) filterPrevalence(minFrac float64) error {
	n := len(c.counts)
	var keep []int
	for j := range c.features {
		var nonzero int
		for i := range n {
			if c.counts[i][j] > 0 {
				nonzero++
			}
		}
		if nonzero > 0 && float64(nonzero)/float64(n) >= minFrac {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		return fmt.Errorf("no feature passes the prevalence filter %g", minFrac)
	}
	c.project(keep)
	return nil
}

// dropEmptyRows removes rows whose kept features sum to zero.
func (c *compositional) dropEmptyRows() {
	var counts [][]float64
	var rows []int
	for i, row := range c.counts {
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum > 0 {
			counts = append(counts, row)
			rows = append(rows, c.rows[i])
		}
	}
	c.counts, c.rows = counts, rows
}

// dropAllZero removes features with no nonzero count left.
func (c *compositional) dropAllZero() {
	var keep []int
	for j := range c.features {
		for _, row := range c.counts {
			if row[j] > 0 {
				keep = append(keep, j)
				break
			}
		}
	}
	c.project(keep)
}

func (c *compositional) project(keep []int) {
	features := make([]string, len(keep))
	for k, j := range keep {
		features[k] = c.features[j]
	}
	for i, row := range c.counts {
		next := make([]float64, len(keep))
		for k, j := range keep {
			next[k] = row[j]
		}
		c.counts[i] = next
	}
	c.features = features
}

// clr closes each row to proportions, optionally winsorizes the upper tail,
// replaces zeros with half the feature's smallest nonzero proportion and
// returns log2 values centered by their row mean.
func (c *compositional) clr(winsorize bool, outlierPct float64) *mat.Dense {
	n, m := len(c.counts), len(c.features)
	props := mat.NewDense(n, m, nil)
	for i, row := range c.counts {
		var sum float64
		for _, v := range row {
			sum += v
		}
		for j, v := range row {
			props.Set(i, j, v/sum)
		}
	}

	col := make([]float64, n)
	for j := range m {
		mat.Col(col, j, props)
		if winsorize && outlierPct > 0 {
			sorted := slices.Clone(col)
			slices.Sort(sorted)
			upper := stat.Quantile(1-outlierPct, stat.Empirical, sorted, nil)
			for i, v := range col {
				if v > upper {
					col[i] = upper
				}
			}
		}
		minPositive := math.Inf(1)
		for _, v := range col {
			if v > 0 && v < minPositive {
				minPositive = v
			}
		}
		for i, v := range col {
			if v == 0 {
				col[i] = minPositive / 2
			}
		}
		for i, v := range col {
			col[i] = math.Log2(v)
		}
		props.SetCol(j, col)
	}

	for i := range n {
		row := props.RawRowView(i)
		mean := stat.Mean(row, nil)
		for j := range row {
			row[j] -= mean
		}
	}
	return props
}

// fitLogRatio regresses every transformed feature on the design with one shared
// solve. When there are enough features each non-intercept coefficient is shifted
// by the mode of its values across features.
func fitLogRatio(ctx context.Context, d *design, features []string, y *mat.Dense) (*logRatioFit, error) {
	n, p := d.n(), d.p()
	_, m := y.Dims()
	df := n - p
	if df <= 0 {
		return nil, fmt.Errorf("no residual degrees of freedom (%d rows, %d coefficients)", n, p)
	}

	chol, err := factorize(weightedGram(d.x, nil))
	if err != nil {
		return nil, err
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, err
	}

	var xty mat.Dense
	xty.Mul(d.x.T(), y)
	var beta mat.Dense
	if err := chol.SolveTo(&beta, &xty); err != nil {
		return nil, err
	}

	var fitted mat.Dense
	fitted.Mul(d.x, &beta)
	se := mat.NewDense(p, m, nil)
	for j := range m {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rss float64
		for i := range n {
			r := y.At(i, j) - fitted.At(i, j)
			rss += r * r
		}
		s2 := rss / float64(df)
		for k := range p {
			se.Set(k, j, math.Sqrt(s2*inv.At(k, k)))
		}
	}

	if m >= modeMinFeatures {
		row := make([]float64, m)
		for k := range p {
			if d.terms[k].intercept {
				continue
			}
			mat.Row(row, k, &beta)
			shift := kdeMode(row)
			for j := range m {
				beta.Set(k, j, beta.At(k, j)-shift)
			}
		}
	}

	return &logRatioFit{features: features, beta: &beta, se: se, df: df}, nil
}

// coefficients converts a log-ratio fit into table rows, grouped by feature.
func (f *logRatioFit) coefficients(d *design) []schema.Coefficient {
	p, m := f.beta.Dims()
	rows := make([]schema.Coefficient, 0, p*m)
	for j := range m {
		for k := range p {
			est, se := f.beta.At(k, j), f.se.At(k, j)
			t, pv := tTest(est, se, f.df)
			rows = append(rows, d.coefficient(f.features[j], k, est, se, t, pv))
		}
	}
	return rows
}

// kdeMode returns the mode of a Gaussian kernel density estimate of xs,
// using Silverman's bandwidth on a fixed grid.
func kdeMode(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	sd := stat.StdDev(sorted, nil)
	iqr := stat.Quantile(0.75, stat.Empirical, sorted, nil) - stat.Quantile(0.25, stat.Empirical, sorted, nil)
	spread := sd
	if iqr > 0 && iqr/1.34 < spread {
		spread = iqr / 1.34
	}
	h := 0.9 * spread * math.Pow(float64(len(xs)), -0.2)
	if h <= 0 || math.IsNaN(h) {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}

	lo, hi := sorted[0]-3*h, sorted[len(sorted)-1]+3*h
	step := (hi - lo) / float64(modeGridPoints-1)
	best, bestDensity := lo, math.Inf(-1)
	for g := range modeGridPoints {
		x := lo + float64(g)*step
		var density float64
		for _, v := range xs {
			u := (x - v) / h
			density += math.Exp(-0.5 * u * u)
		}
		if density > bestDensity {
			best, bestDensity = x, density
		}
	}
	return best
}
