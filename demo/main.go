// Package main samples a few example models and runs every diagnostic on them:
// text and tabular summaries, information criteria, energy and convergence
// checks, and a model comparison. Traces are stored as CSV and in SQLite and
// the results are exported as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/compare"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/sampler"
	"github.com/sartorproj/mcdiag/stats"
	"github.com/sartorproj/mcdiag/summary"
	"github.com/sartorproj/mcdiag/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ModelResult holds the diagnostics of one model for JSON export.
type ModelResult struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	TraceID     string         `json:"trace_id,omitempty"`
	Chains      int            `json:"chains"`
	Draws       int            `json:"draws"`
	DIC         float64        `json:"dic"`
	BPIC        float64        `json:"bpic"`
	WAIC        float64        `json:"waic"`
	WAICSE      float64        `json:"waic_se"`
	PWAIC       float64        `json:"p_waic"`
	LOO         float64        `json:"loo"`
	LOOSE       float64        `json:"loo_se"`
	MaxParetoK  float64        `json:"max_pareto_k"`
	Warnings    []string       `json:"warnings,omitempty"`
	BFMI        []float64      `json:"bfmi,omitempty"`
	SuggestThin int            `json:"suggest_thin"`
	Summary     *summary.Frame `json:"summary"`
}

// ComparisonResult is a comparison table for JSON export.
type ComparisonResult struct {
	IC     string        `json:"ic"`
	Method string        `json:"method"`
	Rows   []compare.Row `json:"rows"`
}

// OutputData holds all results.
type OutputData struct {
	Models     []ModelResult      `json:"models"`
	Comparison []ComparisonResult `json:"comparison"`
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	method := flag.String("method", "", "sampling method, overrides the config (metropolis or hmc)")
	seed := flag.Uint64("seed", 0, "sampler seed, overrides the config when non-zero")
	outDir := flag.String("out", "", "directory for all outputs, overrides the config paths")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *method != "" {
		cfg.Sampler.Method = *method
	}
	if *seed != 0 {
		cfg.Sampler.Seed = *seed
	}
	if *outDir != "" {
		cfg.Output = OutputConfig{
			TraceDir: filepath.Join(*outDir, "traces"),
			SQLite:   filepath.Join(*outDir, "traces.db"),
			JSON:     filepath.Join(*outDir, "diagnostics.json"),
		}
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Fatal("demo failed", zap.Error(err))
	}
}

// run samples the example models, prints their diagnostics to w and writes the
// configured outputs.
func run(ctx context.Context, cfg *Config, w io.Writer, logger *zap.Logger) error {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "MCMC diagnostics demonstration")
	fmt.Fprintln(w, rule)

	obs, err := loadObservations(cfg)
	if err != nil {
		return errors.Wrap(err, "loading observations")
	}
	fmt.Fprintf(w, "\nObservations: %s\n", humanize.Comma(int64(len(obs))))

	var store *trace.SQLiteStore
	if cfg.Output.SQLite != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.SQLite), 0o755); err != nil {
			return err
		}
		store = trace.NewSQLiteStore(cfg.Output.SQLite)
		if err := store.Init(ctx); err != nil {
			return errors.Wrap(err, "opening trace store")
		}
		defer store.Close()
	}

	location := locationModels(obs)
	examples := append([]namedModel{coinModel(), scaleModel(obs)}, location...)

	output := OutputData{}
	traces := make(map[string]*trace.Trace, len(examples))
	for i, ex := range examples {
		fmt.Fprintf(w, "\n%s\n[%d/%d] %s: %s\n%s\n", rule, i+1, len(examples), ex.Name, ex.Description, rule)

		tr, err := sampler.Sample(ctx, ex.Model, cfg.SamplerOptions(logger.With(zap.String("model", ex.Name))))
		if err != nil {
			return errors.Wrapf(err, "sampling %s", ex.Name)
		}
		traces[ex.Name] = tr
		fmt.Fprintf(w, "   Sampled %s draws in %d chains\n",
			humanize.Comma(int64(tr.Len()*tr.NChains())), tr.NChains())

		result, err := diagnose(w, ex, tr, cfg, logger)
		if err != nil {
			return errors.Wrapf(err, "diagnosing %s", ex.Name)
		}
		if result.TraceID, err = persist(ctx, ex.Name, tr, cfg, store); err != nil {
			return errors.Wrapf(err, "saving %s", ex.Name)
		}
		output.Models = append(output.Models, *result)
	}

	if store != nil {
		infos, err := store.ListTraces(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s\nSTORED TRACES\n%s\n", rule, rule)
		for _, info := range infos {
			fmt.Fprintf(w, "   %-8s %s  %d chains x %s draws  %s\n", info.Name, info.ID, info.Chains,
				humanize.Comma(int64(info.Draws)), humanize.Time(info.CreatedAt))
		}
		if fi, err := os.Stat(cfg.Output.SQLite); err == nil {
			fmt.Fprintf(w, "   Database size: %s\n", humanize.Bytes(uint64(fi.Size())))
		}
	}

	fmt.Fprintf(w, "\n%s\nMODEL COMPARISON\n%s\n", rule, rule)
	names := make([]string, len(location))
	models := make([]*model.Model, len(location))
	locTraces := make([]*trace.Trace, len(location))
	for i, ex := range location {
		names[i], models[i], locTraces[i] = ex.Name, ex.Model, traces[ex.Name]
	}
	for _, method := range []string{compare.Stacking, compare.BBPseudoBMA, compare.PseudoBMA} {
		ccfg := cfg.CompareOptions(names, logger)
		ccfg.Method = method
		cmp, err := compare.CompareModels(ctx, locTraces, models, ccfg)
		if err != nil {
			return errors.Wrapf(err, "comparing with %s", method)
		}
		printComparison(w, cmp)
		output.Comparison = append(output.Comparison, ComparisonResult{IC: cmp.IC, Method: cmp.Method, Rows: cmp.Rows})
	}

	if cfg.Output.JSON != "" {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Output.JSON, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nExported %d models to %s (%s)\n", len(output.Models), cfg.Output.JSON,
			humanize.Bytes(uint64(len(data))))
	}
	fmt.Fprintln(w, rule)
	return nil
}

// diagnose prints the summaries and diagnostics of one sampled model.
func diagnose(w io.Writer, ex namedModel, tr *trace.Trace, cfg *Config, logger *zap.Logger) (*ModelResult, error) {
	opts := summary.DefaultOptions()
	opts.Alpha = cfg.Summary.Alpha
	opts.Decimals = cfg.Summary.Decimals
	opts.IncludeTransformed = cfg.Summary.IncludeTransformed

	if err := summary.Write(w, tr, opts); err != nil {
		return nil, err
	}
	frame, err := summary.DFSummary(tr, opts)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w)
	if err := frame.Write(w, cfg.Summary.Decimals); err != nil {
		return nil, err
	}

	result := &ModelResult{
		Name:        ex.Name,
		Description: ex.Description,
		Chains:      tr.NChains(),
		Draws:       tr.Len(),
		Summary:     frame,
	}
	if result.DIC, err = stats.DIC(tr, ex.Model); err != nil {
		return nil, err
	}
	if result.BPIC, err = stats.BPIC(tr, ex.Model); err != nil {
		return nil, err
	}
	waic, err := stats.WAIC(tr, ex.Model)
	if err != nil {
		return nil, err
	}
	result.WAIC, result.WAICSE, result.PWAIC = waic.Value, waic.SE, waic.P
	if waic.Warning {
		result.Warnings = append(result.Warnings, "WAIC: posterior variance of the log predictive density exceeds 0.4")
	}
	loo, err := stats.LOO(tr, ex.Model, 1)
	if err != nil {
		return nil, err
	}
	result.LOO, result.LOOSE = loo.Value, loo.SE
	for _, k := range loo.ParetoK {
		result.MaxParetoK = max(result.MaxParetoK, k)
	}
	if loo.Warning {
		result.Warnings = append(result.Warnings, "LOO: Pareto k above 0.7")
	}

	fmt.Fprintf(w, "\n   DIC %.2f   BPIC %.2f\n", result.DIC, result.BPIC)
	fmt.Fprintf(w, "   WAIC %.2f (SE %.2f, p %.2f)\n", waic.Value, waic.SE, waic.P)
	fmt.Fprintf(w, "   LOO  %.2f (SE %.2f, max k %.2f)\n", loo.Value, loo.SE, result.MaxParetoK)

	if bfmi, err := stats.TraceBFMI(tr); err == nil {
		result.BFMI = bfmi
		fmt.Fprintf(w, "   BFMI %v\n", formatAll(bfmi))
	} else {
		logger.Debug("no energy statistic", zap.String("model", ex.Name), zap.Error(err))
	}

	first := ex.Model.Free[0].Name
	values, err := tr.ChainValues(first, 0)
	if err != nil {
		return nil, err
	}
	chain := mat.Col(nil, 0, values)
	result.SuggestThin = stats.SuggestThin(chain, 10, 20, 0.05)
	fmt.Fprintf(w, "   %s: suggested thinning %d", first, result.SuggestThin)
	if acf := stats.ACFWithConfidence(chain, 20); acf != nil {
		lags := stats.SignificantLags(acf.Values, acf.ConfBounds)
		fmt.Fprintf(w, ", %d significant autocorrelation lags", len(lags))
	}
	if kpss := stats.KPSS(chain, 0); kpss != nil {
		fmt.Fprintf(w, ", KPSS p=%.3f", kpss.PValue)
	}
	if scores, err := stats.Geweke(chain, 0.1, 0.5, 5); err == nil {
		worst := 0.0
		for _, s := range scores {
			worst = max(worst, math.Abs(s.Z))
		}
		fmt.Fprintf(w, ", max |Geweke z| %.2f", worst)
	}
	fmt.Fprintln(w)

	for _, warning := range result.Warnings {
		logger.Warn(warning, zap.String("model", ex.Name))
	}
	return result, nil
}

// persist writes the trace to the configured CSV directory and SQLite store and
// returns the stored trace ID.
func persist(ctx context.Context, name string, tr *trace.Trace, cfg *Config, store *trace.SQLiteStore) (string, error) {
	if cfg.Output.TraceDir != "" {
		dir := filepath.Join(cfg.Output.TraceDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		if err := trace.SaveDir(dir, tr); err != nil {
			return "", err
		}
		// Round trip as a check on the text backend.
		loaded, err := trace.LoadDir(dir)
		if err != nil {
			return "", err
		}
		if loaded.NChains() != tr.NChains() || loaded.Len() != tr.Len() {
			return "", errors.Errorf("reloaded %d chains of %d draws, saved %d of %d",
				loaded.NChains(), loaded.Len(), tr.NChains(), tr.Len())
		}
	}
	if store == nil {
		return "", nil
	}
	return store.SaveTrace(ctx, name, tr)
}

func printComparison(w io.Writer, cmp *compare.Comparison) {
	fmt.Fprintf(w, "\n   %s weights over %s\n", cmp.Method, cmp.IC)
	fmt.Fprintf(w, "   %-8s %10s %8s %8s %8s %8s %8s %s\n", "model", cmp.IC, "p"+cmp.IC, "d"+cmp.IC, "weight", "SE", "dSE", "warn")
	for _, r := range cmp.Rows {
		fmt.Fprintf(w, "   %-8s %10.2f %8.2f %8.2f %8.3f %8.2f %8.2f %t\n",
			r.Name, r.IC, r.PIC, r.DIC, r.Weight, r.SE, r.DSE, r.Warning)
	}
}

func formatAll(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
