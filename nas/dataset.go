package nas

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DataSample is the fixed batch every architecture in one search is scored on.
// It is read-only after construction and may be shared across goroutines.
type DataSample struct {
	X          *mat.Dense // N×features
	Labels     []int      // class index per row, in [0, NumClasses)
	NumClasses int
}

// Rows returns the number of samples in the batch.
func (s *DataSample) Rows() int {
	r, _ := s.X.Dims()
	return r
}

// Features returns the feature dimensionality.
func (s *DataSample) Features() int {
	_, c := s.X.Dims()
	return c
}

// NewDataSample copies x and y into a DataSample. numClasses is the width of the
// label space (the network's output dimension); every label must lie below it.
func NewDataSample(x [][]float64, y []int, numClasses int) (*DataSample, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("data sample: no rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("data sample: %d feature rows but %d labels", len(x), len(y))
	}
	cols := len(x[0])
	if cols == 0 {
		return nil, fmt.Errorf("data sample: rows have no features")
	}
	data := make([]float64, 0, len(x)*cols)
	for i, row := range x {
		if len(row) != cols {
			return nil, fmt.Errorf("data sample: row %d has %d features, want %d", i, len(row), cols)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("data sample: non-finite feature at row %d col %d", i, j)
			}
		}
		data = append(data, row...)
	}
	labels := make([]int, len(y))
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("data sample: label %d at row %d outside [0,%d)", label, i, numClasses)
		}
		labels[i] = label
	}
	return &DataSample{X: mat.NewDense(len(x), cols, data), Labels: labels, NumClasses: numClasses}, nil
}

// DrawSample picks up to size rows without replacement using rng and returns
// them as a DataSample. Row order follows the draw. If size <= 0 or size covers
// the whole dataset, all rows are used in their original order.
func DrawSample(x [][]float64, y []int, size, numClasses int, rng *rand.Rand) (*DataSample, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("data sample: %d feature rows but %d labels", len(x), len(y))
	}
	if size <= 0 || size >= len(x) {
		return NewDataSample(x, y, numClasses)
	}
	idx := sampleIndices(len(x), size, rng)
	xs := make([][]float64, size)
	ys := make([]int, size)
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return NewDataSample(xs, ys, numClasses)
}

// LabelsFromOneHot converts one-hot label rows into class indices and returns
// the label-space width. Every row must have the same width and contain
// exactly one 1 with every other entry 0.
func LabelsFromOneHot(onehot [][]float64) ([]int, int, error) {
	if len(onehot) == 0 {
		return nil, 0, fmt.Errorf("one-hot labels: no rows")
	}
	width := len(onehot[0])
	if width == 0 {
		return nil, 0, fmt.Errorf("one-hot labels: rows have no columns")
	}
	labels := make([]int, len(onehot))
	for i, row := range onehot {
		if len(row) != width {
			return nil, 0, fmt.Errorf("one-hot labels: row %d has %d columns, want %d", i, len(row), width)
		}
		hot := -1
		for j, v := range row {
			switch v {
			case 0:
			case 1:
				if hot >= 0 {
					return nil, 0, fmt.Errorf("one-hot labels: row %d has more than one hot column", i)
				}
				hot = j
			default:
				return nil, 0, fmt.Errorf("one-hot labels: row %d col %d is %g, want 0 or 1", i, j, v)
			}
		}
		if hot < 0 {
			return nil, 0, fmt.Errorf("one-hot labels: row %d has no hot column", i)
		}
		labels[i] = hot
	}
	return labels, width, nil
}

// sampleIndices draws k distinct indices from [0,n) with a partial Fisher-Yates shuffle.
func sampleIndices(n, k int, rng *rand.Rand) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}

// SyntheticDataset generates a seeded Gaussian-blob classification problem:
// each class gets a random centre, each row is its class centre plus unit noise.
// Labels cycle through the classes so every class is represented.
func SyntheticDataset(rows, features, classes int, seed int64) ([][]float64, []int, error) {
	if rows < 1 || features < 1 || classes < 1 {
		return nil, nil, fmt.Errorf("synthetic dataset: rows, features and classes must be >= 1 (got %d, %d, %d)",
			rows, features, classes)
	}
	rng := NewPartitionedRNG(NewSearchKey(seed)).ForSubsystem(SubsystemSynthetic)

	centres := make([][]float64, classes)
	for c := range centres {
		centres[c] = make([]float64, features)
		for j := range centres[c] {
			centres[c][j] = rng.NormFloat64() * 2
		}
	}
	x := make([][]float64, rows)
	y := make([]int, rows)
	for i := range x {
		label := i % classes
		x[i] = make([]float64, features)
		for j := range x[i] {
			x[i][j] = centres[label][j] + rng.NormFloat64()
		}
		y[i] = label
	}
	return x, y, nil
}
