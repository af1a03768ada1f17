package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/proxynas/proxynas/nas"
	"github.com/proxynas/proxynas/nas/trace"
)

var (
	// CLI flags for the search space
	searchDepths      []int    // Candidate hidden-layer counts
	searchWidths      []int    // Candidate hidden-layer widths
	searchActivations []string // Candidate activations
	searchDropout     float64  // Dropout rate applied to every candidate
	searchBatchNorm   bool     // Batch normalization on every candidate

	// CLI flags for the search run
	numSamples   int    // Cohort size cap
	sampleSize   int    // Rows scored per architecture (0 = all)
	seed         int64  // Master seed
	weightsFlag  string // name:weight pairs
	metricsFlag  string // Comma-separated proxy names
	useMeta      bool   // Narrow the cohort around the meta-learner's prediction
	workers      int    // Concurrent architecture evaluations
	configPath   string // Optional YAML search config
	outputPath   string // Result destination (stdout when empty)
	traceLevel     string // Evaluation trace level (none, evaluations)
	summarizeTrace bool   // Print the evaluation trace summary to stderr
	searchData     dataSource
)

// searchOptions is the fully resolved input of one CLI search.
type searchOptions struct {
	Space      nas.SearchSpace
	NumSamples int
	SampleSize int
	Seed       int64
	Meta       bool
	Workers    int
	Metrics    []nas.MetricName
	Weights    nas.MetricWeights
	Data       dataSource
	Output     string
}

// optionsFromFlags collects the flag values into searchOptions.
func optionsFromFlags() (*searchOptions, error) {
	o := &searchOptions{
		Space: nas.SearchSpace{
			Depths:       searchDepths,
			Widths:       searchWidths,
			DropoutRate:  searchDropout,
			UseBatchNorm: searchBatchNorm,
		},
		NumSamples: numSamples,
		SampleSize: sampleSize,
		Seed:       seed,
		Meta:       useMeta,
		Workers:    workers,
		Data:       searchData,
		Output:     outputPath,
	}
	for _, a := range searchActivations {
		o.Space.Activations = append(o.Space.Activations, nas.Activation(a))
	}
	var err error
	if o.Weights, err = nas.ParseMetricWeights(weightsFlag); err != nil {
		return nil, fmt.Errorf("--weights: %w", err)
	}
	if o.Metrics, err = nas.ParseMetricNames(metricsFlag); err != nil {
		return nil, fmt.Errorf("--metrics: %w", err)
	}
	return o, nil
}

// applyFile fills every option not explicitly set on the command line from f.
func (o *searchOptions) applyFile(f *SearchFile, changed func(string) bool) error {
	if !changed("depths") && len(f.Space.Depths) > 0 {
		o.Space.Depths = f.Space.Depths
	}
	if !changed("widths") && len(f.Space.Widths) > 0 {
		o.Space.Widths = f.Space.Widths
	}
	if !changed("activations") && len(f.Space.Activations) > 0 {
		o.Space.Activations = f.Space.Activations
	}
	if !changed("dropout") && f.Space.DropoutRate != 0 {
		o.Space.DropoutRate = f.Space.DropoutRate
	}
	if !changed("batchnorm") && f.Space.UseBatchNorm {
		o.Space.UseBatchNorm = true
	}
	if !changed("num-samples") && f.NumSamples != 0 {
		o.NumSamples = f.NumSamples
	}
	if !changed("sample-size") && f.SampleSize != 0 {
		o.SampleSize = f.SampleSize
	}
	if !changed("seed") && f.Seed != nil {
		o.Seed = *f.Seed
	}
	if !changed("workers") && f.Workers != 0 {
		o.Workers = f.Workers
	}
	if !changed("meta") && f.Meta {
		o.Meta = true
	}
	if !changed("data") && f.Data != "" {
		o.Data.Path = f.Data
	}
	if !changed("label-columns") && f.LabelColumns != 0 {
		o.Data.LabelColumns = f.LabelColumns
	}
	if !changed("output") && f.Output != "" {
		o.Output = f.Output
	}

	names, weights, err := f.MetricSelection()
	if err != nil {
		return err
	}
	if !changed("metrics") && names != nil {
		o.Metrics = names
	}
	if !changed("weights") && weights != nil {
		o.Weights = weights
	}
	return nil
}

// request turns the options into a SearchRequest for ds.
func (o *searchOptions) request(ds *dataset) nas.SearchRequest {
	return nas.SearchRequest{
		InputDim:        len(ds.X[0]),
		OutputDim:       ds.Classes,
		Space:           o.Space,
		NumSamples:      o.NumSamples,
		SampleSize:      o.SampleSize,
		Seed:            o.Seed,
		Weights:         o.Weights,
		UseMetaLearning: o.Meta,
		Metrics:         o.Metrics,
		Workers:         o.Workers,
	}
}

// newTrace returns an evaluation trace at level; it records nothing unless
// level is evaluations.
func newTrace(level string) (*trace.EvaluationTrace, error) {
	if !trace.IsValidTraceLevel(level) {
		return nil, fmt.Errorf("unknown trace level %q (valid: %s, %s)", level, trace.TraceLevelNone, trace.TraceLevelEvaluations)
	}
	if level == "" {
		level = string(trace.TraceLevelNone)
	}
	return trace.NewEvaluationTrace(trace.TraceLevel(level)), nil
}

// searchCmd scores a cohort of architectures and writes the ranked result
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank candidate architectures with the zero-cost proxy ensemble",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := optionsFromFlags()
		if err != nil {
			logrus.Fatalf("Invalid flags: %v", err)
		}
		if configPath != "" {
			file, err := LoadSearchFile(configPath)
			if err != nil {
				logrus.Fatalf("Failed to load search config: %v", err)
			}
			if err := opts.applyFile(file, cmd.Flags().Changed); err != nil {
				logrus.Fatalf("Invalid search config %s: %v", configPath, err)
			}
		}
		opts.Data.Seed = opts.Seed

		ds, err := opts.Data.load()
		if err != nil {
			logrus.Fatalf("Failed to load dataset: %v", err)
		}
		logrus.Infof("Loaded %d rows × %d features, %d classes", len(ds.X), len(ds.X[0]), ds.Classes)

		req := opts.request(ds)
		if req.Trace, err = newTrace(traceLevel); err != nil {
			logrus.Fatalf("Invalid --trace-level: %v", err)
		}
		if summarizeTrace && !req.Trace.Enabled() {
			logrus.Warnf("--summarize-trace has no effect without --trace-level %s", trace.TraceLevelEvaluations)
		}

		startTime := time.Now()
		result, err := nas.Search(req, ds.X, ds.Y)
		if err != nil {
			logrus.Fatalf("Search failed: %v", err)
		}
		logrus.Infof("Search took %v", time.Since(startTime))

		if err := writeResult(result, opts.Output); err != nil {
			logrus.Fatalf("Failed to write result: %v", err)
		}
		if summarizeTrace && req.Trace.Enabled() {
			printTraceSummary(os.Stderr, trace.Summarize(req.Trace))
		}
	},
}

func registerSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&searchDepths, "depths", []int{1, 2, 4}, "Candidate hidden-layer counts")
	cmd.Flags().IntSliceVar(&searchWidths, "widths", []int{32, 64, 128}, "Candidate hidden-layer widths")
	cmd.Flags().StringSliceVar(&searchActivations, "activations", []string{"relu", "tanh"}, "Candidate activations (relu, tanh, leaky_relu, sigmoid, elu)")
	cmd.Flags().Float64Var(&searchDropout, "dropout", 0, "Dropout rate applied to every candidate")
	cmd.Flags().BoolVar(&searchBatchNorm, "batchnorm", false, "Enable batch normalization on every candidate")

	cmd.Flags().IntVar(&numSamples, "num-samples", 10, "Maximum number of architectures to score")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 100, "Rows scored per architecture (0 = all rows)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for data sampling, cohort sampling and weight init")
	cmd.Flags().StringVar(&weightsFlag, "weights", "", "Metric weights as name:weight pairs (e.g., zico:2,synflow:1). Absent metrics get 1/5")
	cmd.Flags().StringVar(&metricsFlag, "metrics", "", "Comma-separated proxies to run (default: all five)")
	cmd.Flags().BoolVar(&useMeta, "meta", false, "Narrow the cohort around the meta-learner's predicted configuration")
	cmd.Flags().IntVar(&workers, "workers", 1, "Architectures evaluated concurrently")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML search config; flags set on the command line take precedence")
	cmd.Flags().StringVar(&outputPath, "output", "", "Result JSON path (gzip when ending in .gz); stdout when empty")
	cmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Evaluation trace level (none, evaluations)")
	cmd.Flags().BoolVar(&summarizeTrace, "summarize-trace", false, "Print a per-metric evaluation summary to stderr (requires --trace-level evaluations)")
	registerDataFlags(cmd, &searchData)
}
