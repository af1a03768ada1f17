package nas

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/proxynas/proxynas/nas/trace"
)

// SearchSpace is the depth × width × activation grid. Dropout and batch norm
// apply to every configuration of the grid.
type SearchSpace struct {
	Depths       []int        `yaml:"depths"`
	Widths       []int        `yaml:"widths"`
	Activations  []Activation `yaml:"activations"`
	DropoutRate  float64      `yaml:"dropout_rate"`
	UseBatchNorm bool         `yaml:"use_batchnorm"`
}

// Size returns the number of configurations in the grid.
func (s SearchSpace) Size() int {
	return len(s.Depths) * len(s.Widths) * len(s.Activations)
}

// Enumerate lists the grid in declaration order: depth-major, then width, then activation.
func (s SearchSpace) Enumerate() []ArchitectureConfig {
	out := make([]ArchitectureConfig, 0, s.Size())
	for _, d := range s.Depths {
		for _, w := range s.Widths {
			for _, a := range s.Activations {
				out = append(out, ArchitectureConfig{
					Depth:        d,
					Width:        w,
					Activation:   a,
					DropoutRate:  s.DropoutRate,
					UseBatchNorm: s.UseBatchNorm,
				})
			}
		}
	}
	return out
}

// Validate rejects empty dimensions, duplicates, and entries any Build would reject.
func (s SearchSpace) Validate() error {
	if len(s.Depths) == 0 || len(s.Widths) == 0 || len(s.Activations) == 0 {
		return &ConfigurationError{Field: "space", Reason: fmt.Sprintf(
			"empty search space (%d depths, %d widths, %d activations)", len(s.Depths), len(s.Widths), len(s.Activations))}
	}
	if err := uniqueInts("depths", s.Depths); err != nil {
		return err
	}
	if err := uniqueInts("widths", s.Widths); err != nil {
		return err
	}
	seen := make(map[Activation]bool, len(s.Activations))
	for _, a := range s.Activations {
		if seen[a] {
			return &ConfigurationError{Field: "activations", Reason: fmt.Sprintf("duplicate activation %q", a)}
		}
		seen[a] = true
	}
	// One candidate per dimension value is enough: fields are validated independently.
	candidate := ArchitectureConfig{Depth: s.Depths[0], Width: s.Widths[0], Activation: s.Activations[0],
		DropoutRate: s.DropoutRate, UseBatchNorm: s.UseBatchNorm}
	for _, d := range s.Depths {
		candidate.Depth = d
		if err := candidate.Validate(); err != nil {
			return &ConfigurationError{Field: "depths", Reason: "invalid entry", Err: err}
		}
	}
	candidate.Depth = s.Depths[0]
	for _, w := range s.Widths {
		candidate.Width = w
		if err := candidate.Validate(); err != nil {
			return &ConfigurationError{Field: "widths", Reason: "invalid entry", Err: err}
		}
	}
	candidate.Width = s.Widths[0]
	for _, a := range s.Activations {
		candidate.Activation = a
		if err := candidate.Validate(); err != nil {
			return &ConfigurationError{Field: "activations", Reason: "invalid entry", Err: err}
		}
	}
	return nil
}

func uniqueInts(field string, values []int) error {
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("duplicate value %d", v)}
		}
		seen[v] = true
	}
	return nil
}

// SearchRequest groups every input of one search call.
type SearchRequest struct {
	InputDim  int
	OutputDim int
	Space     SearchSpace

	// NumSamples caps the cohort size. When the grid is larger, NumSamples
	// configurations are drawn without replacement.
	NumSamples int
	// SampleSize is the number of data rows scored per architecture; <= 0 uses all rows.
	SampleSize int
	Seed       int64

	Weights         MetricWeights
	UseMetaLearning bool

	// Metrics selects the registered proxies to run; nil means StandardMetrics.
	Metrics []MetricName
	// Evaluators, when non-nil, replaces Metrics with caller-supplied evaluators.
	Evaluators []Evaluator

	// Workers > 1 evaluates configurations concurrently.
	Workers int
	// Trace, when enabled, receives build and evaluation records in cohort order.
	Trace *trace.EvaluationTrace
}

// validate checks everything that must hold before any architecture is built.
func (r *SearchRequest) validate() error {
	if r.InputDim < 1 {
		return &ConfigurationError{Field: "input_dim", Reason: fmt.Sprintf("must be >= 1, got %d", r.InputDim)}
	}
	if r.OutputDim < 1 {
		return &ConfigurationError{Field: "output_dim", Reason: fmt.Sprintf("must be >= 1, got %d", r.OutputDim)}
	}
	if r.NumSamples < 1 {
		return &ConfigurationError{Field: "num_samples", Reason: fmt.Sprintf("must be >= 1, got %d", r.NumSamples)}
	}
	if err := r.Space.Validate(); err != nil {
		return err
	}
	if err := r.Weights.Validate(); err != nil {
		return err
	}
	for _, m := range r.Metrics {
		if !validMetricNames[m] {
			return &ConfigurationError{Field: "metrics", Reason: fmt.Sprintf("unknown metric %q", m)}
		}
	}
	if r.Evaluators != nil && len(r.Evaluators) == 0 {
		return &ConfigurationError{Field: "evaluators", Reason: "empty evaluator list"}
	}
	return nil
}

// cohortSlot holds everything one configuration's evaluation produces.
// Each slot is written by exactly one goroutine.
type cohortSlot struct {
	raw       []float64
	errs      []error
	durations []time.Duration
	params    int
}

// Search scores a cohort drawn from req.Space on a fixed sample of (x, y) and
// returns the ranked result. Configuration errors are returned before any
// architecture is built; per-architecture failures become worst-case scores.
func Search(req SearchRequest, x [][]float64, y []int) (*SearchResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(x) > 0 && len(x[0]) != req.InputDim {
		return nil, &ConfigurationError{Field: "data", Reason: fmt.Sprintf(
			"features have %d columns, input_dim is %d", len(x[0]), req.InputDim)}
	}

	rng := NewPartitionedRNG(NewSearchKey(req.Seed))
	sample, err := DrawSample(x, y, req.SampleSize, req.OutputDim, rng.ForSubsystem(SubsystemData))
	if err != nil {
		return nil, &ConfigurationError{Field: "data", Reason: "cannot draw sample", Err: err}
	}

	evaluators := req.Evaluators
	if evaluators == nil {
		names := req.Metrics
		if len(names) == 0 {
			names = StandardMetrics()
		}
		if evaluators, err = newEvaluators(names); err != nil {
			return nil, err
		}
	}
	metricNames := make([]MetricName, len(evaluators))
	seenMetric := make(map[MetricName]bool, len(evaluators))
	for i, ev := range evaluators {
		metricNames[i] = ev.Name()
		if seenMetric[ev.Name()] {
			return nil, &ConfigurationError{Field: "evaluators", Reason: fmt.Sprintf("duplicate metric %q", ev.Name())}
		}
		seenMetric[ev.Name()] = true
	}

	var prediction, centre *ArchitectureConfig
	var cohort []ArchitectureConfig
	if req.UseMetaLearning {
		p := Predict(x, y)
		c := snapToSpace(p, req.Space)
		prediction, centre = &p, &c
		cohort = nearestCohort(c, req.Space, req.NumSamples)
		logrus.Infof("Meta-learner predicted %s (grid point %s); cohort narrowed to its %d nearest neighbours",
			p.Key(), c.Key(), len(cohort))
	} else {
		cohort = sampleCohort(req.Space, req.NumSamples, rng.ForSubsystem(SubsystemSampling))
	}

	logrus.Infof("Starting search: %d/%d configurations, %d metrics, sample %dx%d, seed=%d, workers=%d",
		len(cohort), req.Space.Size(), len(evaluators), sample.Rows(), sample.Features(), req.Seed, req.Workers)

	// Seeds are derived up front so worker scheduling cannot influence them.
	seeds := make([]int64, len(cohort))
	for i, cfg := range cohort {
		seeds[i] = rng.DeriveSeed(SubsystemInit(cfg))
	}

	slots := make([]cohortSlot, len(cohort))
	evalOne := func(i int) {
		slots[i] = evaluateConfig(cohort[i], seeds[i], req.InputDim, req.OutputDim, sample, evaluators)
	}
	if req.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(req.Workers)
		for i := range cohort {
			i := i
			g.Go(func() error {
				evalOne(i)
				return nil
			})
		}
		_ = g.Wait() // workers never return errors; failures live in the slots
	} else {
		for i := range cohort {
			evalOne(i)
		}
	}

	result := assemble(cohort, slots, metricNames, req.Weights)
	result.Metadata = SearchMetadata{
		Seed:           req.Seed,
		SampleCount:    sample.Rows(),
		CohortSize:     len(cohort),
		SpaceSize:      req.Space.Size(),
		Metrics:        metricNames,
		Weights:        req.Weights.Resolve(metricNames),
		MetaPrediction: prediction,
		MetaCentre:     centre,
	}
	for _, s := range result.Scores {
		if s.Failed() {
			result.Metadata.Failures++
		}
	}
	recordTrace(req.Trace, cohort, slots, metricNames)

	logrus.Infof("Search complete: best %s (score %.4f), %d failed evaluations",
		result.BestConfig.Key(), result.BestScore, result.Metadata.Failures)
	return result, nil
}

// evaluateConfig builds one network and runs every evaluator on it.
func evaluateConfig(cfg ArchitectureConfig, seed int64, inputDim, outputDim int, sample *DataSample, evaluators []Evaluator) cohortSlot {
	slot := cohortSlot{
		raw:       make([]float64, len(evaluators)),
		errs:      make([]error, len(evaluators)),
		durations: make([]time.Duration, len(evaluators)),
	}
	net, err := Build(cfg, inputDim, outputDim, seed)
	if err != nil {
		// Search validates the space and dimensions before any build.
		panic(fmt.Sprintf("building validated configuration %s: %v", cfg.Key(), err))
	}
	slot.params = net.NumParams()

	for m, ev := range evaluators {
		start := time.Now()
		v, err := ev.Evaluate(net, sample)
		slot.durations[m] = time.Since(start)
		if err == nil && !usableScore(ev.Name(), v) {
			err = &EvaluationError{Metric: ev.Name(), Stage: "score", Err: errNonFinite}
		}
		if err != nil {
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				err = &EvaluationError{Metric: ev.Name(), Stage: "evaluate", Err: err}
			} else if evalErr.Metric == "" {
				evalErr.Metric = ev.Name()
			}
			logrus.Warnf("%s on %s failed: %v", ev.Name(), cfg.Key(), err)
			slot.raw[m] = math.NaN()
			slot.errs[m] = err
			continue
		}
		logrus.Debugf("%s on %s = %g (%s)", ev.Name(), cfg.Key(), v, slot.durations[m])
		slot.raw[m] = v
	}
	return slot
}

// usableScore reports whether v may enter normalization for metric. -Inf is
// only a score for activation correlation, whose all-identical patterns map there.
func usableScore(metric MetricName, v float64) bool {
	if math.IsInf(v, -1) {
		return metric == MetricActivationCorrelation
	}
	return !math.IsNaN(v) && !math.IsInf(v, 1)
}

// assemble normalizes every metric column over the cohort, computes ensemble
// scores and ranks. Must only run after every slot is filled.
func assemble(cohort []ArchitectureConfig, slots []cohortSlot, metrics []MetricName, weights MetricWeights) *SearchResult {
	result := &SearchResult{
		Results: make([]EnsembleResult, len(cohort)),
		Scores:  make([]MetricScore, 0, len(cohort)*len(metrics)),
	}
	normalized := make([][]float64, len(metrics))
	for m := range metrics {
		column := make([]float64, len(cohort))
		for i := range cohort {
			column[i] = slots[i].raw[m]
		}
		normalized[m] = Normalize(column)
	}

	for i, cfg := range cohort {
		res := EnsembleResult{
			Config:           cfg,
			RawScores:        make(map[MetricName]float64, len(metrics)),
			NormalizedScores: make(map[MetricName]float64, len(metrics)),
		}
		for m, name := range metrics {
			res.RawScores[name] = slots[i].raw[m]
			res.NormalizedScores[name] = normalized[m][i]
			score := MetricScore{Metric: name, Raw: slots[i].raw[m], Config: cfg}
			if slots[i].errs[m] != nil {
				score.Err = slots[i].errs[m].Error()
				res.Failures = append(res.Failures, name)
			}
			result.Scores = append(result.Scores, score)
		}
		// Weights were validated before the search started.
		s, err := Score(res.NormalizedScores, weights)
		if err != nil {
			panic(fmt.Sprintf("ensemble score after validation: %v", err))
		}
		res.EnsembleScore = s
		result.Results[i] = res
	}

	order := rankOrder(result.Results)
	for rank, i := range order {
		result.Results[i].Rank = rank + 1
	}
	best := result.Results[order[0]]
	result.BestConfig = best.Config
	result.BestScore = best.EnsembleScore
	return result
}

// rankOrder returns cohort positions from best to worst: highest ensemble
// score, then lowest depth×width, then earliest position.
func rankOrder(results []EnsembleResult) []int {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := results[order[a]], results[order[b]]
		if ra.EnsembleScore != rb.EnsembleScore {
			return ra.EnsembleScore > rb.EnsembleScore
		}
		return ra.Config.Complexity() < rb.Config.Complexity()
	})
	return order
}

// sampleCohort returns the whole grid, or numSamples configurations drawn
// without replacement and kept in enumeration order.
func sampleCohort(space SearchSpace, numSamples int, rng *rand.Rand) []ArchitectureConfig {
	grid := space.Enumerate()
	if len(grid) <= numSamples {
		return grid
	}
	chosen := sampleIndices(len(grid), numSamples, rng)
	sort.Ints(chosen)
	out := make([]ArchitectureConfig, numSamples)
	for i, idx := range chosen {
		out[i] = grid[idx]
	}
	return out
}

// snapToSpace moves a predicted configuration onto the nearest grid point.
func snapToSpace(pred ArchitectureConfig, space SearchSpace) ArchitectureConfig {
	out := ArchitectureConfig{
		Depth:        space.Depths[0],
		Width:        space.Widths[0],
		Activation:   space.Activations[0],
		DropoutRate:  space.DropoutRate,
		UseBatchNorm: space.UseBatchNorm,
	}
	for _, d := range space.Depths[1:] {
		if absInt(d-pred.Depth) < absInt(out.Depth-pred.Depth) {
			out.Depth = d
		}
	}
	for _, w := range space.Widths[1:] {
		if widthDistance(w, pred.Width) < widthDistance(out.Width, pred.Width) {
			out.Width = w
		}
	}
	for _, a := range space.Activations {
		if a == pred.Activation {
			out.Activation = a
		}
	}
	return out
}

// nearestCohort orders the grid by distance to centre and keeps the closest
// numSamples. centre is on the grid, so it comes first.
func nearestCohort(centre ArchitectureConfig, space SearchSpace, numSamples int) []ArchitectureConfig {
	grid := space.Enumerate()
	dist := func(c ArchitectureConfig) float64 {
		d := float64(absInt(c.Depth-centre.Depth)) + widthDistance(c.Width, centre.Width)
		if c.Activation != centre.Activation {
			d++
		}
		return d
	}
	sort.SliceStable(grid, func(a, b int) bool { return dist(grid[a]) < dist(grid[b]) })
	if len(grid) > numSamples {
		grid = grid[:numSamples]
	}
	return grid
}

func widthDistance(a, b int) float64 {
	return math.Abs(math.Log2(float64(a)) - math.Log2(float64(b)))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// recordTrace appends build and evaluation records in cohort order.
func recordTrace(t *trace.EvaluationTrace, cohort []ArchitectureConfig, slots []cohortSlot, metrics []MetricName) {
	if !t.Enabled() {
		return
	}
	for i, cfg := range cohort {
		t.RecordBuild(trace.BuildRecord{ConfigKey: cfg.Key(), Position: i, Params: slots[i].params})
		for m, name := range metrics {
			rec := trace.EvaluationRecord{
				ConfigKey: cfg.Key(),
				Position:  i,
				Metric:    string(name),
				Raw:       slots[i].raw[m],
				Duration:  slots[i].durations[m],
			}
			if slots[i].errs[m] != nil {
				rec.Err = slots[i].errs[m].Error()
			}
			t.RecordEvaluation(rec)
		}
	}
}
