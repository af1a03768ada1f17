package proxy

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/proxynas/proxynas/nas"
)

// Synflow scores path-aggregated parameter saliency. The network is
// linearized with |θ| in place of θ and fed a single all-ones row; with
// R = Σ outputs the score is |Σ θ·∂R/∂θ|. The data sample is not used.
type Synflow struct{}

func (Synflow) Name() nas.MetricName { return nas.MetricSynflow }

func (s Synflow) Evaluate(net *nas.Network, _ *nas.DataSample) (float64, error) {
	abs := net.AbsClone()
	x := filled(1, abs.InputDim, 1)
	pass, err := abs.Forward(x, nas.PassOptions{Linear: true})
	if err != nil {
		return 0, tagged(s.Name(), err)
	}
	grads, err := abs.Backward(pass, filled(1, abs.OutputDim, 1))
	if err != nil {
		return 0, tagged(s.Name(), err)
	}
	return finite(s.Name(), math.Abs(floats.Dot(abs.ParamVector(), grads.Vector())))
}

func filled(r, c int, v float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(r, c, data)
}
