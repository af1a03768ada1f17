package proxy

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/proxynas/proxynas/nas"
)

// GradientConflict scores the mean pairwise cosine similarity of per-sample
// loss gradients. Aligned gradients mean the samples pull the parameters the
// same way.
type GradientConflict struct{}

func (GradientConflict) Name() nas.MetricName { return nas.MetricGradientConflict }

func (g GradientConflict) Evaluate(net *nas.Network, sample *nas.DataSample) (float64, error) {
	_, grads, err := lossGradients(net, sample)
	if err != nil {
		return 0, tagged(g.Name(), err)
	}
	gram := perSampleGram(grads)
	n, _ := gram.Dims()

	norms := make([]float64, n)
	usable := make([]int, 0, n)
	for i := 0; i < n; i++ {
		norms[i] = math.Sqrt(math.Max(gram.At(i, i), 0))
		if norms[i] > 0 {
			usable = append(usable, i)
		}
	}
	if len(usable) < 2 {
		return 0, nil
	}

	total, pairs := 0.0, 0
	for a := 0; a < len(usable); a++ {
		for b := a + 1; b < len(usable); b++ {
			i, j := usable[a], usable[b]
			total += gram.At(i, j) / (norms[i] * norms[j])
			pairs++
		}
	}
	return finite(g.Name(), total/float64(pairs))
}

// perSampleGram returns G[i][j] = <g_i, g_j> over all parameters, where g_i
// is sample i's gradient. A weight gradient is the outer product Δ_iᵀA_i, so
// its inner products factor as (Δ_i·Δ_j)(A_i·A_j).
func perSampleGram(grads *nas.Gradients) *mat.SymDense {
	n, _ := grads.Layers[0].Delta.Dims()
	gram := mat.NewSymDense(n, nil)
	for _, lg := range grads.Layers {
		dd := mat.NewSymDense(n, nil)
		dd.SymOuterK(1, lg.Delta)
		aa := mat.NewSymDense(n, nil)
		aa.SymOuterK(1, lg.Input)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				gram.SetSym(i, j, gram.At(i, j)+dd.At(i, j)*(aa.At(i, j)+1))
			}
		}
		if lg.NormDelta != nil {
			scaled := mat.DenseCopyOf(lg.NormDelta)
			scaled.MulElem(scaled, lg.XHat)
			gram.SymRankK(gram, 1, scaled)
			gram.SymRankK(gram, 1, lg.NormDelta)
		}
	}
	return gram
}
