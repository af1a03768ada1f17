package nas

import (
	"encoding/json"
	"io"
)

// MetricScore is one raw proxy value for one configuration.
// Err is non-empty when the evaluation failed and Raw holds NaN.
type MetricScore struct {
	Metric MetricName         `json:"metric"`
	Raw    float64            `json:"-"`
	Config ArchitectureConfig `json:"config"`
	Err    string             `json:"error,omitempty"`
}

// Failed reports whether the evaluation produced no usable value.
func (m MetricScore) Failed() bool { return m.Err != "" }

// EnsembleResult is the scored outcome for one configuration of the cohort.
// Immutable once the search returns.
type EnsembleResult struct {
	Config           ArchitectureConfig     `json:"config"`
	RawScores        map[MetricName]float64 `json:"-"`
	NormalizedScores map[MetricName]float64 `json:"normalized_scores"`
	EnsembleScore    float64                `json:"ensemble_score"`
	Rank             int                    `json:"rank"`
	Failures         []MetricName           `json:"failures,omitempty"`
}

// SearchMetadata records how a search was run.
type SearchMetadata struct {
	Seed           int64               `json:"seed"`
	SampleCount    int                 `json:"sample_count"`
	CohortSize     int                 `json:"cohort_size"`
	SpaceSize      int                 `json:"space_size"`
	Metrics        []MetricName        `json:"metrics"`
	Weights        MetricWeights       `json:"weights"`
	MetaPrediction *ArchitectureConfig `json:"meta_prediction,omitempty"`
	// MetaCentre is MetaPrediction moved onto the search grid. It takes the
	// space's dropout and batch-norm settings, which bind every candidate.
	MetaCentre *ArchitectureConfig `json:"meta_centre,omitempty"`
	Failures       int                 `json:"failures"`
}

// SearchResult is the root object handed to CLI and reporting collaborators.
// Results are in cohort (evaluation) order; Rank orders them by score.
type SearchResult struct {
	Results    []EnsembleResult   `json:"results"`
	BestConfig ArchitectureConfig `json:"best_config"`
	BestScore  float64            `json:"best_score"`
	Metadata   SearchMetadata     `json:"metadata"`
	Scores     []MetricScore      `json:"-"`
}

// Top returns up to k results ordered by rank.
func (r *SearchResult) Top(k int) []EnsembleResult {
	if k > len(r.Results) || k < 0 {
		k = len(r.Results)
	}
	ranked := make([]EnsembleResult, len(r.Results))
	for _, res := range r.Results {
		ranked[res.Rank-1] = res
	}
	return ranked[:k]
}

// resultDocument is the serialized shape of a SearchResult. Raw scores are
// emitted as a map with failed values omitted, since JSON has no NaN.
type resultDocument struct {
	BestConfig ArchitectureConfig `json:"best_config"`
	BestScore  float64            `json:"best_score"`
	Results    []resultEntry      `json:"results"`
	Metadata   SearchMetadata     `json:"metadata"`
}

type resultEntry struct {
	EnsembleResult
	RawScores map[MetricName]float64 `json:"raw_scores"`
}

// Document returns the JSON-serializable view of the result.
func (r *SearchResult) Document() any {
	doc := resultDocument{
		BestConfig: r.BestConfig,
		BestScore:  r.BestScore,
		Results:    make([]resultEntry, len(r.Results)),
		Metadata:   r.Metadata,
	}
	for i, res := range r.Results {
		raw := make(map[MetricName]float64, len(res.RawScores))
		for name, v := range res.RawScores {
			if isFinite(v) {
				raw[name] = v
			}
		}
		doc.Results[i] = resultEntry{EnsembleResult: res, RawScores: raw}
	}
	return doc
}

// WriteJSON writes the indented result document to w.
func (r *SearchResult) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Document())
}
