package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StatPrefix marks sampler statistic columns in the text backend.
const StatPrefix = "sampler:"

// WriteCSV writes one chain as CSV: a header of flat names followed by
// sampler:<stat> columns, then one row per draw.
func WriteCSV(w io.Writer, vars []Var, c *Chain) error {
	writer := csv.NewWriter(w)

	var header []string
	for _, v := range vars {
		header = append(header, FlatNames(v.Name, v.Shape)...)
	}
	stats := c.StatNames()
	sort.Strings(stats)
	for _, s := range stats {
		header = append(header, StatPrefix+s)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	statValues := make([][]float64, len(stats))
	for k, s := range stats {
		statValues[k], _ = c.Stat(s)
	}

	record := make([]string, len(header))
	for i := 0; i < c.Len(); i++ {
		col := 0
		for _, v := range vars {
			size := v.Size()
			for _, x := range c.values[v.Name][i*size : (i+1)*size] {
				record[col] = formatFloat(x)
				col++
			}
		}
		for k := range stats {
			x := math.NaN()
			if i < len(statValues[k]) {
				x = statValues[k][i]
			}
			record[col] = formatFloat(x)
			col++
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV reads a chain written by WriteCSV. Variable shapes are inferred from
// the component indices in the header.
func ReadCSV(r io.Reader, id int) ([]Var, *Chain, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading header")
	}

	type column struct {
		name string
		stat bool
	}
	columns := make([]column, len(header))
	var vars []Var
	position := make(map[string]int)
	var stats []string

	for i, h := range header {
		h = strings.TrimSpace(h)
		if strings.HasPrefix(h, StatPrefix) {
			name := strings.TrimPrefix(h, StatPrefix)
			columns[i] = column{name: name, stat: true}
			stats = append(stats, name)
			continue
		}
		name, idx, err := ParseFlatName(h)
		if err != nil {
			return nil, nil, err
		}
		columns[i] = column{name: name}
		k, ok := position[name]
		if !ok {
			k = len(vars)
			position[name] = k
			vars = append(vars, Var{Name: name, Shape: make([]int, len(idx))})
		}
		if len(idx) != len(vars[k].Shape) {
			return nil, nil, errors.Errorf("column %q: inconsistent rank for %q", h, name)
		}
		for a, n := range idx {
			vars[k].Shape[a] = max(vars[k].Shape[a], n+1)
		}
	}

	values := make(map[string][]float64, len(vars))
	statValues := make(map[string][]float64, len(stats))
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading draw %d", rows)
		}
		for i, field := range record {
			x, err := parseFloat(field)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "draw %d column %q", rows, header[i])
			}
			if columns[i].stat {
				statValues[columns[i].name] = append(statValues[columns[i].name], x)
			} else {
				values[columns[i].name] = append(values[columns[i].name], x)
			}
		}
		rows++
	}

	c := NewChain(id, vars)
	for _, v := range vars {
		if len(values[v.Name]) != rows*v.Size() {
			return nil, nil, errors.Errorf("%q: %d values for %d draws of shape %v",
				v.Name, len(values[v.Name]), rows, v.Shape)
		}
		c.values[v.Name] = values[v.Name]
	}
	c.n = rows
	for _, s := range stats {
		c.SetStat(s, statValues[s])
	}
	return vars, c, nil
}

// SaveDir writes every chain of t to dir as chain-<n>.csv.
func SaveDir(dir string, t *Trace) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, c := range t.Chains {
		if err := saveChain(filepath.Join(dir, chainFile(c.ID)), t.Vars, c); err != nil {
			return errors.Wrapf(err, "saving chain %d", c.ID)
		}
	}
	return nil
}

func saveChain(filename string, vars []Var, c *Chain) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, vars, c); err != nil {
		return err
	}
	return file.Close()
}

// LoadDir reads a trace saved with SaveDir.
func LoadDir(dir string) (*Trace, error) {
	files, err := filepath.Glob(filepath.Join(dir, "chain-*.csv"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no chain files in %s", dir)
	}

	type entry struct {
		id   int
		file string
	}
	entries := make([]entry, 0, len(files))
	for _, f := range files {
		base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f), "chain-"), ".csv")
		id, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		entries = append(entries, entry{id: id, file: f})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	var t *Trace
	for _, e := range entries {
		c, vars, err := loadChain(e.file, e.id)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", e.file)
		}
		if t == nil {
			t = New(vars)
		}
		if err := t.AddChain(c); err != nil {
			return nil, err
		}
	}
	if t == nil {
		return nil, errors.Errorf("no chain files in %s", dir)
	}
	return t, nil
}

func loadChain(filename string, id int) (*Chain, []Var, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	vars, c, err := ReadCSV(file, id)
	return c, vars, err
}

func chainFile(id int) string {
	return fmt.Sprintf("chain-%d.csv", id)
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
