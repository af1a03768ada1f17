package nas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Meta-learning heuristic bounds.
const (
	metaMinWidth          = 16
	metaMaxWidth          = 512
	metaMaxDepth          = 6
	metaWidthPerFeature   = 4
	metaBatchNormRows     = 1000
	metaOverfitRowsFactor = 10
	metaDropoutRate       = 0.1
	metaScaleForBatchNorm = 10.0
)

// DatasetStats are the summary statistics the meta-learner maps to a config.
type DatasetStats struct {
	Samples  int `json:"samples"`
	Features int `json:"features"`
	Classes  int `json:"classes"`
	// FeatureScale is the mean per-feature standard deviation.
	FeatureScale float64 `json:"feature_scale"`
}

// ComputeDatasetStats summarizes x and y. Ragged or empty input yields zero
// Features, which Predict treats as degenerate.
func ComputeDatasetStats(x [][]float64, y []int) DatasetStats {
	s := DatasetStats{Samples: len(x)}
	if len(x) == 0 || len(x[0]) == 0 {
		return s
	}
	cols := len(x[0])
	for _, row := range x {
		if len(row) != cols {
			return DatasetStats{Samples: len(x)}
		}
	}
	s.Features = cols

	classes := make(map[int]bool)
	for _, label := range y {
		classes[label] = true
	}
	s.Classes = len(classes)

	if len(x) > 1 {
		column := make([]float64, len(x))
		total := 0.0
		for j := 0; j < cols; j++ {
			for i, row := range x {
				column[i] = row[j]
			}
			total += stat.StdDev(column, nil)
		}
		s.FeatureScale = total / float64(cols)
	}
	return s
}

// Predict maps dataset statistics to one candidate configuration:
// width tracks feature dimensionality, depth tracks the log of the sample count.
// Never fails; degenerate statistics (no rows, no features, fewer than two
// classes) return DefaultConfig.
func Predict(x [][]float64, y []int) ArchitectureConfig {
	return PredictFromStats(ComputeDatasetStats(x, y))
}

// PredictFromStats is Predict on precomputed statistics.
func PredictFromStats(s DatasetStats) ArchitectureConfig {
	if s.Samples < 1 || s.Features < 1 || s.Classes < 2 {
		return DefaultConfig()
	}
	cfg := ArchitectureConfig{
		Depth:      clampInt(int(math.Round(math.Log10(float64(s.Samples)))), 1, metaMaxDepth),
		Width:      clampInt(nearestPowerOfTwo(metaWidthPerFeature*s.Features), metaMinWidth, metaMaxWidth),
		Activation: ActivationReLU,
	}
	if s.Samples < metaOverfitRowsFactor*s.Features {
		cfg.DropoutRate = metaDropoutRate
	}
	if s.Samples >= metaBatchNormRows || s.FeatureScale > metaScaleForBatchNorm {
		cfg.UseBatchNorm = true
	}
	return cfg
}

func nearestPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Round(math.Log2(float64(n))))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
