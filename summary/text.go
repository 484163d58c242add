package summary

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/trace"
)

// leader prefixes every line of a text summary.
const leader = "  "

const (
	statPad     = 17
	quantilePad = 15
)

// StatSummary renders the mean, standard deviation, Monte Carlo error and HPD
// interval of a variable as a text table.
type StatSummary struct {
	Formatter
	Batches int
	Alpha   float64
	header  string
}

// NewStatSummary creates a stat table with numbers rounded to decimals.
func NewStatSummary(decimals, batches int, alpha float64) *StatSummary {
	hpd := strconv.FormatFloat(100*(1-alpha), 'g', 6, 64) + "% HPD interval"
	return &StatSummary{
		Formatter: Formatter{Decimals: decimals},
		Batches:   batches,
		Alpha:     alpha,
		header:    valueLine(statPad, "Mean", "SD", "MC Error", hpd),
	}
}

// HeaderLines returns the column header and rule, without leader.
func (s *StatSummary) HeaderLines() []string {
	return []string{s.header, strings.Repeat("-", len(s.header))}
}

// RecordLines renders one line per record.
func (s *StatSummary) RecordLines(records []StatRecord) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = valueLine(statPad, s.Value(r.Mean), s.Value(r.SD), s.Value(r.MCError), s.Interval(r.HPD))
	}
	return lines
}

// ValueLines renders blocks, each preceded by its index row.
func (s *StatSummary) ValueLines(blocks []Block[StatRecord]) []string {
	var lines []string
	for _, b := range blocks {
		lines = append(lines, idxRow(b.Key, len(s.header)))
		lines = append(lines, s.RecordLines(b.Records)...)
	}
	return lines
}

// Lines returns the full table for sample, every line prefixed with leader.
func (s *StatSummary) Lines(sample Sample) ([]string, error) {
	blocks, err := CalculateStats(sample, s.Batches, s.Alpha)
	if err != nil {
		return nil, err
	}
	return withLeader(s.HeaderLines(), s.ValueLines(blocks)), nil
}

// Output returns the table as text followed by a blank line.
func (s *StatSummary) Output(sample Sample) (string, error) {
	lines, err := s.Lines(sample)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n\n", nil
}

// PosteriorQuantileSummary renders the 100*alpha/2, 25, 50, 75 and
// 100*(1-alpha/2) percentiles of a variable as a text table.
type PosteriorQuantileSummary struct {
	Formatter
	QList  []float64
	header string
}

// NewPosteriorQuantileSummary creates a quantile table with numbers rounded to decimals.
func NewPosteriorQuantileSummary(decimals int, alpha float64) *PosteriorQuantileSummary {
	qlist := []float64{100 * alpha / 2, 25, 50, 75, 100 * (1 - alpha/2)}
	names := make([]string, len(qlist))
	for i, q := range qlist {
		names[i] = strconv.FormatFloat(q, 'g', -1, 64)
	}
	return &PosteriorQuantileSummary{
		Formatter: Formatter{Decimals: decimals},
		QList:     qlist,
		header:    valueLine(quantilePad, names...),
	}
}

// HeaderLines returns the title, percentile header and marker, without leader.
func (s *PosteriorQuantileSummary) HeaderLines() []string {
	thin := strings.Repeat("-", quantilePad-1)
	thick := strings.Repeat("=", quantilePad-1)
	return []string{
		"Posterior quantiles:",
		s.header,
		"|" + thin + "|" + thick + "|" + thick + "|" + thin + "|",
	}
}

// RecordLines renders one line per record.
func (s *PosteriorQuantileSummary) RecordLines(records []QuantileRecord) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		cols := make([]string, len(r))
		for j, v := range r {
			cols[j] = s.Value(v)
		}
		lines[i] = valueLine(quantilePad, cols...)
	}
	return lines
}

// ValueLines renders blocks, each preceded by its index row.
func (s *PosteriorQuantileSummary) ValueLines(blocks []Block[QuantileRecord]) []string {
	var lines []string
	for _, b := range blocks {
		lines = append(lines, idxRow(b.Key, len(s.header)))
		lines = append(lines, s.RecordLines(b.Records)...)
	}
	return lines
}

// Lines returns the full table for sample, every line prefixed with leader.
func (s *PosteriorQuantileSummary) Lines(sample Sample) ([]string, error) {
	blocks, err := CalculatePosteriorQuantiles(sample, s.QList)
	if err != nil {
		return nil, err
	}
	return withLeader(s.HeaderLines(), s.ValueLines(blocks)), nil
}

// Output returns the table as text followed by a blank line.
func (s *PosteriorQuantileSummary) Output(sample Sample) (string, error) {
	lines, err := s.Lines(sample)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n\n", nil
}

// Write prints the stat and quantile tables of every selected variable of tr.
func Write(w io.Writer, tr *trace.Trace, opts *Options) error {
	opts = opts.withDefaults(tr)
	stat := NewStatSummary(opts.Decimals, opts.Batches, opts.Alpha)
	quant := NewPosteriorQuantileSummary(opts.Decimals, opts.Alpha)

	for _, name := range opts.varnames(tr) {
		sample, err := opts.sample(tr, name)
		if err != nil {
			return err
		}
		st, err := stat.Output(sample)
		if err != nil {
			return errors.Wrapf(err, "summarising %q", name)
		}
		qt, err := quant.Output(sample)
		if err != nil {
			return errors.Wrapf(err, "summarising %q", name)
		}
		if _, err := fmt.Fprintf(w, "\n%s:\n\n%s%s", name, st, qt); err != nil {
			return err
		}
	}
	return nil
}

// valueLine left-aligns each column in pad characters and trims the tail.
func valueLine(pad int, cols ...string) string {
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%-*s", pad, c)
	}
	return strings.TrimSpace(b.String())
}

// idxRow centres "[i, j, :]" in a row of dots, or is empty for an empty key.
func idxRow(key []int, width int) string {
	if len(key) == 0 {
		return ""
	}
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = strconv.Itoa(k)
	}
	label := "[" + strings.Join(parts, ", ") + ", :]"
	fill := max(width-len(label), 0)
	left := fill / 2
	return strings.Repeat(".", left) + label + strings.Repeat(".", fill-left)
}

func withLeader(groups ...[]string) []string {
	var lines []string
	for _, g := range groups {
		for _, l := range g {
			lines = append(lines, leader+l)
		}
	}
	return lines
}
