package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// Dataset pairs (features x 1) samples with (labels x 1) targets.
type Dataset struct {
	Samples []*matrix.Matrix
	Labels  []*matrix.Matrix
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Samples) }

// LoadCSV loads data from a CSV file.
// labelCols specifies the indices of columns to be used as labels, in the
// order they appear in the label vector. All other columns are features.
// hasHeader skips the first line if true.
func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %v: %w", filename, err, ErrFormat)
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, fmt.Errorf("csv %s has no data rows: %w", filename, ErrFormat)
	}

	numCols := len(records[0])
	isLabelCol := make(map[int]bool, len(labelCols))
	for _, col := range labelCols {
		if col < 0 || col >= numCols {
			return nil, fmt.Errorf("label column %d out of %d columns: %w", col, numCols, ErrFormat)
		}
		isLabelCol[col] = true
	}

	d := &Dataset{}
	features := make([]float64, 0, numCols)
	labels := make([]float64, len(labelCols))
	row := make([]float64, numCols)

	// csv.Reader already rejects rows with a different field count.
	for i := startRow; i < len(records); i++ {
		features = features[:0]
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("parse value at row %d, col %d: %v: %w", i, j, err, ErrFormat)
			}
			row[j] = v
			if !isLabelCol[j] {
				features = append(features, v)
			}
		}
		for k, col := range labelCols {
			labels[k] = row[col]
		}

		d.Samples = append(d.Samples, matrix.Column(features...))
		d.Labels = append(d.Labels, matrix.Column(labels...))
	}
	return d, nil
}

// Normalize performs per-feature min-max normalization on the samples.
// Constant features become 0.
func (d *Dataset) Normalize() {
	if len(d.Samples) == 0 {
		return
	}

	first := d.Samples[0].Values()
	lo := append([]float64(nil), first...)
	hi := append([]float64(nil), first...)
	for _, s := range d.Samples {
		for i, v := range s.Values() {
			lo[i] = min(lo[i], v)
			hi[i] = max(hi[i], v)
		}
	}

	for k, s := range d.Samples {
		values := s.Values()
		for i, v := range values {
			if diff := hi[i] - lo[i]; diff != 0 {
				values[i] = (v - lo[i]) / diff
			} else {
				values[i] = 0
			}
		}
		d.Samples[k] = matrix.Column(values...)
	}
}

// Split splits the dataset into two based on the given ratio (0.0 to 1.0).
// Returns two new Datasets (train, test) sharing the sample matrices.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	if ratio <= 0 {
		return &Dataset{}, d
	}
	if ratio >= 1 {
		return d, &Dataset{}
	}

	splitIdx := int(float64(len(d.Samples)) * ratio)

	train := &Dataset{
		Samples: d.Samples[:splitIdx],
		Labels:  d.Labels[:splitIdx],
	}
	test := &Dataset{
		Samples: d.Samples[splitIdx:],
		Labels:  d.Labels[splitIdx:],
	}
	return train, test
}
