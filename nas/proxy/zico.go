package proxy

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/proxynas/proxynas/nas"
)

// zicoVarianceTolerance is the relative variance below which a parameter
// element counts as having constant gradient magnitude.
const zicoVarianceTolerance = 1e-12

// ZiCo sums, over every parameter element, the inverse coefficient of
// variation of the element's absolute per-sample gradient.
type ZiCo struct{}

func (ZiCo) Name() nas.MetricName { return nas.MetricZiCo }

func (z ZiCo) Evaluate(net *nas.Network, sample *nas.DataSample) (float64, error) {
	_, grads, err := lossGradients(net, sample)
	if err != nil {
		return 0, tagged(z.Name(), err)
	}
	n := float64(sample.Rows())

	total := 0.0
	for _, lg := range grads.Layers {
		// Weight element (o,k) has per-sample gradient Δ[i][o]·A[i][k].
		absD, sqD := absAndSquare(lg.Delta)
		absA, sqA := absAndSquare(lg.Input)
		var mean, meanSq mat.Dense
		mean.Mul(absD.T(), absA)
		meanSq.Mul(sqD.T(), sqA)
		total += inverseCVSum(mean.RawMatrix().Data, meanSq.RawMatrix().Data, n)

		total += inverseCVSum(columnSums(absD), columnSums(sqD), n)

		if lg.NormDelta != nil {
			scaled := mat.DenseCopyOf(lg.NormDelta)
			scaled.MulElem(scaled, lg.XHat)
			absS, sqS := absAndSquare(scaled)
			total += inverseCVSum(columnSums(absS), columnSums(sqS), n)
			absN, sqN := absAndSquare(lg.NormDelta)
			total += inverseCVSum(columnSums(absN), columnSums(sqN), n)
		}
	}
	return finite(z.Name(), total)
}

// inverseCVSum returns Σ mean/std over elements given per-element sums of
// |g| and g² across n samples. Elements with (near) zero variance are skipped.
func inverseCVSum(sumAbs, sumSq []float64, n float64) float64 {
	total := 0.0
	for i, s := range sumAbs {
		mean := s / n
		variance := sumSq[i]/n - mean*mean
		if variance <= zicoVarianceTolerance*sumSq[i]/n {
			continue
		}
		total += mean / math.Sqrt(variance)
	}
	return total
}

func absAndSquare(m *mat.Dense) (abs, sq *mat.Dense) {
	r, c := m.Dims()
	abs = mat.NewDense(r, c, nil)
	abs.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, m)
	sq = mat.NewDense(r, c, nil)
	sq.MulElem(m, m)
	return abs, sq
}

func columnSums(m *mat.Dense) []float64 {
	r, c := m.Dims()
	sums := make([]float64, c)
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			sums[j] += v
		}
	}
	return sums
}
