package proxy

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/proxynas/proxynas/nas"
)

// ActivationCorrelation scores how distinguishable the samples' binary
// activation patterns are. The kernel entry K[i][j] counts the hidden units on
// which samples i and j agree (both active or both inactive); the score is
// log det(K + I). Correlated patterns shrink the determinant.
type ActivationCorrelation struct{}

func (ActivationCorrelation) Name() nas.MetricName { return nas.MetricActivationCorrelation }

// Evaluate returns -Inf with a nil error when every sample has the same pattern.
func (a ActivationCorrelation) Evaluate(net *nas.Network, sample *nas.DataSample) (float64, error) {
	pass, err := net.Forward(sample.X, nas.PassOptions{})
	if err != nil {
		return 0, tagged(a.Name(), err)
	}
	return finiteOrWorst(a.Name(), agreementLogDet(pass.ActivationCodes()))
}

// agreementLogDet returns log det(K + I) for the Hamming-agreement kernel of
// the 0/1 rows of codes, or -Inf when all rows are equal.
func agreementLogDet(codes *mat.Dense) float64 {
	if identicalRows(codes) {
		return math.Inf(-1)
	}
	n, units := codes.Dims()
	inactive := mat.NewDense(n, units, nil)
	inactive.Apply(func(_, _ int, v float64) float64 { return 1 - v }, codes)

	k := mat.NewSymDense(n, nil)
	k.SymOuterK(1, codes)
	k.SymRankK(k, 1, inactive)
	for i := 0; i < n; i++ {
		k.SetSym(i, i, k.At(i, i)+1)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return math.Inf(-1)
	}
	return chol.LogDet()
}

func identicalRows(codes *mat.Dense) bool {
	n, _ := codes.Dims()
	first := codes.RawRowView(0)
	for i := 1; i < n; i++ {
		for j, v := range codes.RawRowView(i) {
			if v != first[j] {
				return false
			}
		}
	}
	return true
}

// finiteOrWorst lets -Inf through as the defined worst score.
func finiteOrWorst(metric nas.MetricName, v float64) (float64, error) {
	if math.IsInf(v, -1) {
		return v, nil
	}
	return finite(metric, v)
}
