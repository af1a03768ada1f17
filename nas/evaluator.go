//go:generate go run go.uber.org/mock/mockgen -source=evaluator.go -destination=mock_evaluator_test.go -package=nas

package nas

// Evaluator computes one zero-cost proxy for a network on a data sample.
//
// Implementations must not change the network's parameters; any perturbation
// has to happen on a Clone. Evaluate returns an *EvaluationError when the
// computation produces NaN or Inf.
type Evaluator interface {
	Name() MetricName
	Evaluate(net *Network, sample *DataSample) (float64, error)
}

// NewEvaluatorFunc constructs the evaluator registered for a metric name.
// Set by nas/proxy's init(); nil until that package is imported.
var NewEvaluatorFunc func(name MetricName) (Evaluator, error)

// newEvaluators resolves names through NewEvaluatorFunc.
func newEvaluators(names []MetricName) ([]Evaluator, error) {
	if NewEvaluatorFunc == nil {
		panic("nas.NewEvaluatorFunc is nil; import github.com/proxynas/proxynas/nas/proxy to register the standard proxies")
	}
	out := make([]Evaluator, 0, len(names))
	for _, name := range names {
		ev, err := NewEvaluatorFunc(name)
		if err != nil {
			return nil, &ConfigurationError{Field: "metrics", Reason: "cannot construct evaluator", Err: err}
		}
		out = append(out, ev)
	}
	return out, nil
}
