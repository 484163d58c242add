package model

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DataOptions holds options for loading observed data from CSV.
type DataOptions struct {
	Column      string // Column name for values (default: "y")
	IDColumn    string // Column name for a group ID (optional, for filtering)
	IDFilter    string // Keep only rows whose ID equals this value
	HasHeader   bool   // Whether the CSV has a header row (default: true)
	Delimiter   rune   // Field delimiter (default: ',')
	SkipRows    int    // Number of rows to skip at start
	DropMissing bool   // Drop missing values instead of keeping them as NaN
}

// DefaultDataOptions returns default options for CSV loading.
func DefaultDataOptions() *DataOptions {
	return &DataOptions{
		Column:    "y",
		HasHeader: true,
		Delimiter: ',',
	}
}

// LoadData reads one column of observations from a CSV file.
func LoadData(filename string, opts *DataOptions) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadData(file, opts)
}

// ReadData reads one column of observations from CSV. Empty, "NA", "NaN" and
// "null" cells are missing and become NaN, which Observed skips.
func ReadData(r io.Reader, opts *DataOptions) ([]float64, error) {
	if opts == nil {
		opts = DefaultDataOptions()
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, errors.Wrapf(err, "skipping row %d", i)
		}
	}

	valueIdx, idIdx := 0, -1
	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, errors.Wrap(err, "reading header")
		}
		valueIdx = -1
		for i, h := range header {
			h = strings.TrimSpace(strings.Trim(h, "\""))
			switch {
			case h == opts.Column:
				valueIdx = i
			case opts.IDColumn != "" && h == opts.IDColumn:
				idIdx = i
			}
		}
		if valueIdx == -1 {
			return nil, errors.Errorf("no column %q", opts.Column)
		}
		if opts.IDFilter != "" && idIdx == -1 {
			return nil, errors.Errorf("no ID column %q", opts.IDColumn)
		}
	}

	var values []float64
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if opts.IDFilter != "" && idIdx >= 0 && idIdx < len(record) {
			id := strings.TrimSpace(strings.Trim(record[idIdx], "\""))
			if id != opts.IDFilter {
				continue
			}
		}
		if valueIdx >= len(record) {
			return nil, errors.Errorf("row %d has no column %d", line, valueIdx)
		}

		s := strings.TrimSpace(strings.Trim(record[valueIdx], "\""))
		if s == "" || s == "NA" || s == "NaN" || s == "null" {
			if !opts.DropMissing {
				values = append(values, math.NaN())
			}
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", line)
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, errors.New("no data found in CSV")
	}
	return values, nil
}
