package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxynas/proxynas/nas"
	"github.com/proxynas/proxynas/nas/trace"
)

func baseOptions() *searchOptions {
	return &searchOptions{
		Space: nas.SearchSpace{
			Depths:      []int{1, 2},
			Widths:      []int{8, 16},
			Activations: []nas.Activation{nas.ActivationReLU},
		},
		NumSamples: 10,
		SampleSize: 100,
		Seed:       42,
		Workers:    1,
	}
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestApplyFile_FileFillsUnsetFlags(t *testing.T) {
	// GIVEN a config file and no explicit flags
	f, err := parseSearchFile("test.yaml", []byte(validSearchYAML))
	require.NoError(t, err)
	opts := baseOptions()

	// WHEN the file is applied
	require.NoError(t, opts.applyFile(f, changedSet()))

	// THEN file values win over flag defaults
	assert.Equal(t, []int{16, 32}, opts.Space.Widths)
	assert.Equal(t, 0.1, opts.Space.DropoutRate)
	assert.Equal(t, 3, opts.NumSamples)
	assert.Equal(t, int64(0), opts.Seed)
	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, 3, opts.Data.LabelColumns)
	assert.Len(t, opts.Metrics, 3)
	assert.Equal(t, 2.0, opts.Weights[nas.MetricZiCo])
}

func TestApplyFile_ExplicitFlagsWin(t *testing.T) {
	f, err := parseSearchFile("test.yaml", []byte(validSearchYAML))
	require.NoError(t, err)
	opts := baseOptions()
	opts.Weights = nas.MetricWeights{nas.MetricSynflow: 4}

	require.NoError(t, opts.applyFile(f, changedSet("widths", "seed", "weights")))

	assert.Equal(t, []int{8, 16}, opts.Space.Widths)
	assert.Equal(t, int64(42), opts.Seed)
	assert.Equal(t, nas.MetricWeights{nas.MetricSynflow: 4}, opts.Weights)
	// metrics were not set on the command line, so the file's selection applies
	assert.Len(t, opts.Metrics, 3)
	// depths were not set either
	assert.Equal(t, []int{1, 2}, opts.Space.Depths)
}

func TestSearchPipeline_SyntheticToGzipDocument(t *testing.T) {
	// GIVEN options over a small synthetic dataset
	opts := baseOptions()
	opts.Data = dataSource{SyntheticRows: 40, SyntheticFeatures: 5, SyntheticClasses: 3, Seed: opts.Seed}
	ds, err := opts.Data.load()
	require.NoError(t, err)
	req := opts.request(ds)
	req.Trace, err = newTrace("evaluations")
	require.NoError(t, err)
	assert.Equal(t, 5, req.InputDim)
	assert.Equal(t, 3, req.OutputDim)

	// WHEN searched and written to a .gz path
	result, err := nas.Search(req, ds.X, ds.Y)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "result.json.gz")
	require.NoError(t, writeResult(result, path))

	// THEN the file is a gzip JSON document with every cohort member
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	var doc struct {
		BestConfig nas.ArchitectureConfig `json:"best_config"`
		Results    []json.RawMessage      `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Results, 4)
	assert.Equal(t, result.BestConfig, doc.BestConfig)

	var buf bytes.Buffer
	printTraceSummary(&buf, trace.Summarize(req.Trace))
	assert.Contains(t, buf.String(), "Evaluations: 20")
	assert.Contains(t, buf.String(), "zico")
}

func TestNewTrace_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled bool
	}{
		{"", false},
		{"none", false},
		{"evaluations", true},
	}
	for _, tt := range tests {
		tr, err := newTrace(tt.level)
		require.NoError(t, err, "level %q", tt.level)
		assert.Equal(t, tt.enabled, tr.Enabled(), "level %q", tt.level)
	}

	_, err := newTrace("decisions")
	assert.Error(t, err)
}

func TestWriteResult_PlainFile(t *testing.T) {
	result := &nas.SearchResult{
		Results:    []nas.EnsembleResult{{Config: nas.DefaultConfig(), Rank: 1}},
		BestConfig: nas.DefaultConfig(),
	}
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, writeResult(result, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestPrintMetrics_ListsEveryProxy(t *testing.T) {
	var buf bytes.Buffer
	printMetrics(&buf)
	for _, m := range nas.StandardMetrics() {
		assert.Contains(t, buf.String(), string(m))
	}
	assert.Contains(t, buf.String(), "0.2000")
}
