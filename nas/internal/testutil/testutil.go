// Package testutil provides shared test infrastructure for the proxynas
// packages: float assertions and small deterministic data fixtures used by
// nas/ and nas/proxy/ tests.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertUnitInterval fails unless every value is finite and in [0,1].
func AssertUnitInterval(t *testing.T, name string, values []float64) {
	t.Helper()
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			t.Errorf("%s[%d] = %v, want value in [0,1]", name, i, v)
		}
	}
}

// Blobs returns rows×features Gaussian points around one centre per class,
// labels cycling 0..classes-1. The same seed always yields the same data.
func Blobs(rows, features, classes int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	centres := make([][]float64, classes)
	for c := range centres {
		centres[c] = make([]float64, features)
		for j := range centres[c] {
			centres[c][j] = rng.NormFloat64() * 3
		}
	}
	x := make([][]float64, rows)
	y := make([]int, rows)
	for i := range x {
		y[i] = i % classes
		x[i] = make([]float64, features)
		for j := range x[i] {
			x[i][j] = centres[y[i]][j] + rng.NormFloat64()
		}
	}
	return x, y
}

// Dense copies row-major rows into a matrix.
func Dense(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

// Constant returns rows×features copies of v.
func Constant(rows, features int, v float64) [][]float64 {
	x := make([][]float64, rows)
	for i := range x {
		x[i] = make([]float64, features)
		for j := range x[i] {
			x[i][j] = v
		}
	}
	return x
}
