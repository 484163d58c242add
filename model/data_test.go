package model

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadData(t *testing.T) {
	csvData := `ds,y
2020-01-01,100
2020-01-02,101
2020-01-03,102`

	values, err := ReadData(strings.NewReader(csvData), nil)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}

	expected := []float64{100, 101, 102}
	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}
	for i, v := range expected {
		if values[i] != v {
			t.Errorf("Value at index %d: expected %f, got %f", i, v, values[i])
		}
	}
}

func TestReadDataWithFilter(t *testing.T) {
	csvData := `unique_id,ds,y
A,2020-01-01,100
B,2020-01-01,200
A,2020-01-02,101
B,2020-01-02,201
A,2020-01-03,102`

	opts := DefaultDataOptions()
	opts.IDColumn = "unique_id"
	opts.IDFilter = "A"

	values, err := ReadData(strings.NewReader(csvData), opts)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(values) != 3 {
		t.Errorf("Expected 3 observations for 'A', got %d", len(values))
	}
	if values[0] != 100 || values[2] != 102 {
		t.Errorf("Expected group A values, got %v", values)
	}
}

func TestReadDataMissing(t *testing.T) {
	csvData := "count\n3\nNA\n\n6\n"

	opts := DefaultDataOptions()
	opts.Column = "count"
	values, err := ReadData(strings.NewReader(csvData), opts)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(values) != 3 || !math.IsNaN(values[1]) {
		t.Errorf("Expected [3 NaN 6], got %v", values)
	}

	opts.DropMissing = true
	values, err = ReadData(strings.NewReader(csvData), opts)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("Expected 2 values, got %v", values)
	}
}

func TestReadDataNoHeader(t *testing.T) {
	opts := DefaultDataOptions()
	opts.HasHeader = false
	opts.Delimiter = ';'

	values, err := ReadData(strings.NewReader("1.5;x\n2.5;y\n"), opts)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(values) != 2 || values[1] != 2.5 {
		t.Errorf("Expected [1.5 2.5], got %v", values)
	}
}

func TestReadDataErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts *DataOptions
	}{
		{"missing column", "a,b\n1,2\n", nil},
		{"bad number", "y\nabc\n", nil},
		{"empty", "y\n", nil},
		{"missing id column", "y\n1\n", &DataOptions{Column: "y", HasHeader: true, Delimiter: ',', IDColumn: "g", IDFilter: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadData(strings.NewReader(tt.data), tt.opts); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	if err := os.WriteFile(path, []byte("y\n1\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	values, err := LoadData(path, nil)
	if err != nil {
		t.Fatalf("LoadData failed: %v", err)
	}
	if len(values) != 2 {
		t.Errorf("Expected 2 values, got %d", len(values))
	}

	if _, err := LoadData(filepath.Join(t.TempDir(), "missing.csv"), nil); err == nil {
		t.Error("Expected error for missing file")
	}
}
