package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_HeaderAndLabels(t *testing.T) {
	input := "f1,f2,label\n0.5,1.5,0\n-1, 2 ,2\n3,4,1\n"
	ds, err := readCSV(strings.NewReader(input), 1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 1.5}, {-1, 2}, {3, 4}}, ds.X)
	assert.Equal(t, []int{0, 2, 1}, ds.Y)
	assert.Equal(t, 3, ds.Classes)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header only", "a,b,label\n"},
		{"single column", "1\n2\n"},
		{"bad feature after header", "1,2,0\nx,2,0\n"},
		{"fractional label", "1,2,0\n1,2,0.5\n"},
		{"negative label", "1,2,0\n1,2,-1\n"},
		{"ragged", "1,2,0\n1,2,3,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCSV(strings.NewReader(tt.input), 1)
			assert.Error(t, err)
		})
	}
}

func TestReadCSV_OneHotLabelBlock(t *testing.T) {
	// GIVEN two features followed by a three-column one-hot label block
	input := "f1,f2,c0,c1,c2\n0.5,1.5,0,0,1\n0.2,0.1,1,0,0\n0.9,0.3,0,1,0\n"

	// WHEN read with three label columns
	ds, err := readCSV(strings.NewReader(input), 3)

	// THEN the block becomes class indices and is not absorbed as features
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 1.5}, {0.2, 0.1}, {0.9, 0.3}}, ds.X)
	assert.Equal(t, []int{2, 0, 1}, ds.Y)
	assert.Equal(t, 3, ds.Classes)
}

func TestReadCSV_OneHotErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"two hot columns", "1,2,0,1,1\n"},
		{"no hot column", "1,2,1,0,0\n1,2,0,0,0\n"},
		{"soft label", "1,2,0.2,0.8,0\n"},
		{"too few columns", "1,0,1\n"},
		{"bad label cell after header", "1,2,0,0,1\n1,2,x,0,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCSV(strings.NewReader(tt.input), 3)
			assert.Error(t, err)
		})
	}
}

func TestDataSource_InvalidLabelColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2,0\n"), 0o644))

	_, err := dataSource{Path: path}.load()

	assert.Error(t, err)
}

func TestDataSource_GzipCSV(t *testing.T) {
	// GIVEN a gzip-compressed CSV
	path := filepath.Join(t.TempDir(), "data.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("1,2,0\n3,4,1\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	// WHEN loaded
	ds, err := dataSource{Path: path, LabelColumns: 1}.load()

	// THEN it decompresses transparently
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, ds.X)
	assert.Equal(t, 2, ds.Classes)
}

func TestDataSource_Synthetic(t *testing.T) {
	src := dataSource{SyntheticRows: 12, SyntheticFeatures: 4, SyntheticClasses: 3, Seed: 9}
	a, err := src.load()
	require.NoError(t, err)
	b, err := src.load()
	require.NoError(t, err)

	assert.Len(t, a.X, 12)
	assert.Len(t, a.X[0], 4)
	assert.Equal(t, 3, a.Classes)
	assert.Equal(t, a.X, b.X)

	_, err = dataSource{SyntheticRows: 0, SyntheticFeatures: 4, SyntheticClasses: 3}.load()
	assert.Error(t, err)
}
