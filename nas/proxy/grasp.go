package proxy

import (
	"gonum.org/v1/gonum/floats"

	"github.com/proxynas/proxynas/nas"
)

// DefaultGraSPStep is the length of the finite-difference step along the gradient.
const DefaultGraSPStep = 1e-3

// GraSP scores Σ θ·Hg, where g is the batch loss gradient and Hg the
// Hessian-gradient product. Hg is taken by central differences of the
// gradient at θ ± h·g with h = Step/‖g‖, on clones of the network.
type GraSP struct {
	Step float64
}

// NewGraSP returns a GraSP evaluator with DefaultGraSPStep.
func NewGraSP() GraSP {
	return GraSP{Step: DefaultGraSPStep}
}

func (GraSP) Name() nas.MetricName { return nas.MetricGraSP }

// Evaluate returns 0 when the batch gradient vanishes.
func (g GraSP) Evaluate(net *nas.Network, sample *nas.DataSample) (float64, error) {
	step := g.Step
	if step <= 0 {
		step = DefaultGraSPStep
	}
	grad, err := batchGradient(net, sample)
	if err != nil {
		return 0, tagged(g.Name(), err)
	}
	norm := floats.Norm(grad, 2)
	if norm == 0 {
		return 0, nil
	}
	h := step / norm

	plus := net.Clone()
	plus.AddScaled(grad, h)
	gPlus, err := batchGradient(plus, sample)
	if err != nil {
		return 0, tagged(g.Name(), err)
	}
	minus := net.Clone()
	minus.AddScaled(grad, -h)
	gMinus, err := batchGradient(minus, sample)
	if err != nil {
		return 0, tagged(g.Name(), err)
	}

	hg := make([]float64, len(grad))
	floats.SubTo(hg, gPlus, gMinus)
	floats.Scale(1/(2*h), hg)
	return finite(g.Name(), floats.Dot(net.ParamVector(), hg))
}

func batchGradient(net *nas.Network, sample *nas.DataSample) ([]float64, error) {
	_, grads, err := lossGradients(net, sample)
	if err != nil {
		return nil, err
	}
	return grads.Vector(), nil
}
