package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/proxynas/proxynas/nas"
)

// dataSource selects where the labelled dataset comes from.
type dataSource struct {
	Path              string
	SyntheticRows     int
	SyntheticFeatures int
	SyntheticClasses  int
	Seed              int64
	// LabelColumns is the number of trailing CSV columns holding the label:
	// 1 for an integer class index, k > 1 for a one-hot block over k classes.
	LabelColumns int
}

// dataset is a labelled feature matrix plus its label-space width.
type dataset struct {
	X       [][]float64
	Y       []int
	Classes int
}

// load reads the CSV at Path or, when Path is empty, generates a seeded
// synthetic dataset.
func (s dataSource) load() (*dataset, error) {
	if s.Path == "" {
		x, y, err := nas.SyntheticDataset(s.SyntheticRows, s.SyntheticFeatures, s.SyntheticClasses, s.Seed)
		if err != nil {
			return nil, err
		}
		return &dataset{X: x, Y: y, Classes: s.SyntheticClasses}, nil
	}
	if s.LabelColumns < 1 {
		return nil, fmt.Errorf("label columns must be >= 1, got %d", s.LabelColumns)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.Path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip dataset %s: %w", s.Path, err)
		}
		defer gz.Close()
		r = gz
	}
	return readCSV(r, s.LabelColumns)
}

// readCSV parses rows of numeric features followed by labelColumns label
// columns: one integer class index, or a one-hot block whose width is the
// class count. A first row that does not parse as numbers is a header.
func readCSV(r io.Reader, labelColumns int) (*dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	ds := &dataset{}
	var onehot [][]float64
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
		line++
		if len(record) < labelColumns+1 {
			return nil, fmt.Errorf("dataset line %d: need at least one feature and %d label columns, got %d columns",
				line, labelColumns, len(record))
		}
		split := len(record) - labelColumns
		row, err := parseFloats(record[:split], 1)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("dataset line %d: %w", line, err)
		}
		if len(ds.X) > 0 && len(row) != len(ds.X[0]) {
			return nil, fmt.Errorf("dataset line %d: %d features, previous rows have %d", line, len(row), len(ds.X[0]))
		}

		if labelColumns == 1 {
			label, err := parseLabel(record[split])
			if err != nil {
				if line == 1 {
					continue
				}
				return nil, fmt.Errorf("dataset line %d: %w", line, err)
			}
			ds.Y = append(ds.Y, label)
			if label+1 > ds.Classes {
				ds.Classes = label + 1
			}
		} else {
			block, err := parseFloats(record[split:], split+1)
			if err != nil {
				if line == 1 {
					continue
				}
				return nil, fmt.Errorf("dataset line %d: %w", line, err)
			}
			onehot = append(onehot, block)
		}
		ds.X = append(ds.X, row)
	}
	if len(ds.X) == 0 {
		return nil, fmt.Errorf("dataset has no data rows")
	}
	if labelColumns > 1 {
		labels, classes, err := nas.LabelsFromOneHot(onehot)
		if err != nil {
			return nil, fmt.Errorf("dataset labels: %w", err)
		}
		ds.Y, ds.Classes = labels, classes
	}
	return ds, nil
}

// parseFloats parses fields as numbers; first is the 1-based column of fields[0].
func parseFloats(fields []string, first int) ([]float64, error) {
	out := make([]float64, len(fields))
	for j, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", first+j, err)
		}
		out[j] = v
	}
	return out, nil
}

func parseLabel(field string) (int, error) {
	label, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, fmt.Errorf("label: %w", err)
	}
	if label < 0 {
		return 0, fmt.Errorf("label %d is negative", label)
	}
	return label, nil
}
