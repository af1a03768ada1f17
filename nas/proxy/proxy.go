// Package proxy implements the zero-cost proxies scored by the search driver.
//
// Every proxy needs at most one forward/backward pass (GraSP needs two more
// gradient evaluations on perturbed clones) and never changes the network it
// is handed.
package proxy

import (
	"errors"
	"fmt"
	"math"

	"github.com/proxynas/proxynas/nas"
)

// New returns the evaluator for name.
func New(name nas.MetricName) (nas.Evaluator, error) {
	switch name {
	case nas.MetricActivationCorrelation:
		return ActivationCorrelation{}, nil
	case nas.MetricGradientConflict:
		return GradientConflict{}, nil
	case nas.MetricZiCo:
		return ZiCo{}, nil
	case nas.MetricSynflow:
		return Synflow{}, nil
	case nas.MetricGraSP:
		return NewGraSP(), nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}

// Standard returns the five standard evaluators in nas.StandardMetrics order.
func Standard() []nas.Evaluator {
	names := nas.StandardMetrics()
	out := make([]nas.Evaluator, len(names))
	for i, name := range names {
		ev, err := New(name)
		if err != nil {
			panic(fmt.Sprintf("standard metric %q has no evaluator: %v", name, err))
		}
		out[i] = ev
	}
	return out
}

// lossGradients runs the cross-entropy forward/backward pass on sample.
func lossGradients(net *nas.Network, sample *nas.DataSample) (*nas.Pass, *nas.Gradients, error) {
	pass, err := net.Forward(sample.X, nas.PassOptions{})
	if err != nil {
		return nil, nil, err
	}
	_, dLogits, err := nas.CrossEntropy(pass.Logits, sample.Labels)
	if err != nil {
		return nil, nil, err
	}
	grads, err := net.Backward(pass, dLogits)
	if err != nil {
		return nil, nil, err
	}
	return pass, grads, nil
}

// tagged attaches metric to an error coming out of the network.
func tagged(metric nas.MetricName, err error) error {
	var evalErr *nas.EvaluationError
	if errors.As(err, &evalErr) {
		evalErr.Metric = metric
		return evalErr
	}
	return &nas.EvaluationError{Metric: metric, Stage: "evaluate", Err: err}
}

// finite returns v, or an EvaluationError if v is NaN or Inf.
func finite(metric nas.MetricName, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &nas.EvaluationError{Metric: metric, Stage: "score"}
	}
	return v, nil
}
