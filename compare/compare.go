package compare

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/stats"
	"github.com/sartorproj/mcdiag/trace"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Weighting methods.
const (
	Stacking    = "stacking"
	BBPseudoBMA = "BB-pseudo-BMA"
	PseudoBMA   = "pseudo-BMA"
)

// Information criteria.
const (
	WAIC = "WAIC"
	LOO  = "LOO"
)

// ErrLengthMismatch is returned when traces and models do not pair up.
var ErrLengthMismatch = errors.New("traces and models differ in length")

// Config holds configuration for model comparison.
type Config struct {
	IC       string      // Information criterion: "WAIC" or "LOO" (default: "WAIC")
	Method   string      // Weighting method: "stacking", "BB-pseudo-BMA" or "pseudo-BMA" (default: "stacking")
	BSamples int         // Bootstrap replicates for BB-pseudo-BMA (default: 1000)
	Alpha    float64     // Dirichlet concentration for BB-pseudo-BMA (default: 1)
	Seed     uint64      // Seed of the bootstrap source
	Names    []string    // Model names (default: "model0", "model1", ...)
	Logger   *zap.Logger // nil disables logging
}

// DefaultConfig returns the default comparison configuration.
func DefaultConfig() *Config {
	return &Config{
		IC:       WAIC,
		Method:   Stacking,
		BSamples: 1000,
		Alpha:    1,
		Seed:     1,
	}
}

// Row is one model of a comparison.
type Row struct {
	Model   int     // position of the model in the input
	Name    string  // model name
	IC      float64 // information criterion
	PIC     float64 // effective number of parameters
	DIC     float64 // difference to the best IC
	Weight  float64 // model weight
	SE      float64 // standard error of IC
	DSE     float64 // standard error of the pointwise IC difference to the best model
	Warning bool    // the criterion is unreliable
}

// Comparison is a table of models sorted by ascending IC.
type Comparison struct {
	IC     string
	Method string
	Rows   []Row
}

// Best returns the model with the lowest IC.
func (c *Comparison) Best() Row {
	return c.Rows[0]
}

// Weights returns the model weights in input order.
func (c *Comparison) Weights() []float64 {
	w := make([]float64, len(c.Rows))
	for _, r := range c.Rows {
		w[r.Model] = r.Weight
	}
	return w
}

// CompareModels computes the configured criterion for each trace and model
// pair concurrently and compares the results.
func CompareModels(ctx context.Context, traces []*trace.Trace, models []*model.Model, cfg *Config) (*Comparison, error) {
	if len(traces) != len(models) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d traces, %d models", len(traces), len(models))
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	criteria := make([]*stats.Criterion, len(models))
	g, ctx := errgroup.WithContext(ctx)
	for i := range models {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := criterion(traces[i], models[i], cfg.IC)
			if err != nil {
				return errors.Wrapf(err, "model %d", i)
			}
			criteria[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Compare(criteria, cfg)
}

func criterion(tr *trace.Trace, m *model.Model, ic string) (*stats.Criterion, error) {
	switch ic {
	case WAIC, "":
		return stats.WAIC(tr, m)
	case LOO:
		res, err := stats.LOO(tr, m, 1)
		if err != nil {
			return nil, err
		}
		return &res.Criterion, nil
	default:
		return nil, errors.Errorf("unknown information criterion %q", ic)
	}
}

// Compare ranks precomputed criteria and assigns model weights. All criteria
// must have pointwise values over the same observations.
func Compare(criteria []*stats.Criterion, cfg *Config) (*Comparison, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(criteria) == 0 {
		return nil, errors.New("no models to compare")
	}
	if len(cfg.Names) != 0 && len(cfg.Names) != len(criteria) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d names, %d models", len(cfg.Names), len(criteria))
	}
	n := len(criteria[0].Pointwise)
	for i, c := range criteria {
		if len(c.Pointwise) != n {
			return nil, errors.Errorf("model %d has %d pointwise values, model 0 has %d", i, len(c.Pointwise), n)
		}
		if c.Warning {
			logger.Warn("information criterion may be unreliable",
				zap.Int("model", i),
				zap.String("ic", c.Name),
			)
		}
	}

	order := make([]int, len(criteria))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return criteria[order[a]].Value < criteria[order[b]].Value
	})
	sorted := make([]*stats.Criterion, len(order))
	for i, k := range order {
		sorted[i] = criteria[k]
	}

	var (
		weights []float64
		ses     []float64
		err     error
	)
	switch cfg.Method {
	case Stacking, "":
		weights, err = stackingWeights(sorted, logger)
		ses = standardErrors(sorted)
	case BBPseudoBMA:
		weights, ses, err = bbPseudoBMAWeights(sorted, cfg)
	case PseudoBMA:
		weights = pseudoBMAWeights(sorted)
		ses = standardErrors(sorted)
	default:
		err = errors.Errorf("unknown weighting method %q", cfg.Method)
	}
	if err != nil {
		return nil, err
	}

	ic := cfg.IC
	if ic == "" {
		ic = sorted[0].Name
	}
	cmp := &Comparison{IC: ic, Method: cfg.Method, Rows: make([]Row, len(sorted))}
	best := sorted[0].Pointwise
	diff := make([]float64, n)
	for i, c := range sorted {
		floats.SubTo(diff, best, c.Pointwise)
		name := fmt.Sprintf("model%d", order[i])
		if len(cfg.Names) != 0 {
			name = cfg.Names[order[i]]
		}
		cmp.Rows[i] = Row{
			Model:   order[i],
			Name:    name,
			IC:      c.Value,
			PIC:     c.P,
			DIC:     math.Abs(floats.Sum(diff)),
			Weight:  weights[i],
			SE:      ses[i],
			DSE:     math.Sqrt(float64(n) * stat.PopVariance(diff, nil)),
			Warning: c.Warning,
		}
	}
	logger.Debug("compared models",
		zap.String("method", cmp.Method),
		zap.String("best", cmp.Rows[0].Name),
	)
	return cmp, nil
}

func standardErrors(criteria []*stats.Criterion) []float64 {
	ses := make([]float64, len(criteria))
	for i, c := range criteria {
		ses[i] = c.SE
	}
	return ses
}

// icMatrix returns the pointwise criteria as observations x models.
func icMatrix(criteria []*stats.Criterion) [][]float64 {
	n := len(criteria[0].Pointwise)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(criteria))
		for k, c := range criteria {
			rows[i][k] = c.Pointwise[i]
		}
	}
	return rows
}

// pseudoBMAWeights are Akaike-type weights exp(-IC/2), normalised.
func pseudoBMAWeights(criteria []*stats.Criterion) []float64 {
	ic := make([]float64, len(criteria))
	for i, c := range criteria {
		ic[i] = c.Value
	}
	return akaike(ic)
}

func akaike(ic []float64) []float64 {
	lo := floats.Min(ic)
	w := make([]float64, len(ic))
	for i, v := range ic {
		w[i] = math.Exp(-0.5 * (v - lo))
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// bbPseudoBMAWeights averages pseudo-BMA weights over Bayesian bootstrap
// reweightings of the pointwise criteria. The returned standard errors are the
// bootstrap standard deviations of the reweighted criteria.
func bbPseudoBMAWeights(criteria []*stats.Criterion, cfg *Config) ([]float64, []float64, error) {
	if cfg.BSamples < 1 {
		return nil, nil, errors.Errorf("bootstrap samples must be positive, got %d", cfg.BSamples)
	}
	alpha := cfg.Alpha
	if alpha <= 0 {
		return nil, nil, errors.Errorf("dirichlet concentration must be positive, got %g", alpha)
	}
	ics := icMatrix(criteria)
	n, k := len(ics), len(criteria)
	if n == 0 {
		return nil, nil, errors.Wrap(stats.ErrTooFewSamples, "no pointwise values")
	}
	conc := make([]float64, n)
	for i := range conc {
		conc[i] = alpha
	}
	dir := distmv.NewDirichlet(conc, rand.NewSource(cfg.Seed))

	weights := make([]float64, k)
	zs := make([][]float64, k)
	for j := range zs {
		zs[j] = make([]float64, cfg.BSamples)
	}
	b := make([]float64, n)
	z := make([]float64, k)
	for s := 0; s < cfg.BSamples; s++ {
		dir.Rand(b)
		for j := range z {
			z[j] = 0
			for i := range b {
				z[j] += b[i] * ics[i][j] * float64(n)
			}
			zs[j][s] = z[j]
		}
		floats.Add(weights, akaike(z))
	}
	floats.Scale(1/float64(cfg.BSamples), weights)

	ses := make([]float64, k)
	for j := range ses {
		ses[j] = math.Sqrt(stat.PopVariance(zs[j], nil))
	}
	return weights, ses, nil
}

// stackingWeights maximises the log score sum_i log sum_k w_k exp(-ic_ik/2) over
// the simplex. Weights are a softmax of k-1 free logits with the last fixed at 0,
// starting from the pseudo-BMA weights.
func stackingWeights(criteria []*stats.Criterion, logger *zap.Logger) ([]float64, error) {
	k := len(criteria)
	if k == 1 {
		return []float64{1}, nil
	}
	ics := icMatrix(criteria)
	if len(ics) == 0 {
		return nil, errors.Wrap(stats.ErrTooFewSamples, "no pointwise values")
	}

	// Rows are scaled by their maximum; this shifts the score by a constant.
	dens := make([][]float64, len(ics))
	for i, row := range ics {
		lo := floats.Min(row)
		dens[i] = make([]float64, k)
		for j, v := range row {
			dens[i][j] = math.Exp(-0.5 * (v - lo))
		}
	}

	w := make([]float64, k)
	softmax := func(z []float64) []float64 {
		copy(w, z)
		w[k-1] = 0
		floats.AddConst(-floats.LogSumExp(w), w)
		for j := range w {
			w[j] = math.Exp(w[j])
		}
		return w
	}
	full := make([]float64, k)
	expand := func(z []float64) []float64 {
		copy(full, z)
		full[k-1] = 0
		return full
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			w := softmax(expand(z))
			score := 0.0
			for _, d := range dens {
				score += math.Log(floats.Dot(d, w))
			}
			return -score
		},
		Grad: func(grad, z []float64) {
			w := softmax(expand(z))
			for j := range grad {
				grad[j] = 0
			}
			for _, d := range dens {
				s := floats.Dot(d, w)
				for j := range grad {
					grad[j] -= w[j] * (d[j]/s - 1)
				}
			}
		},
	}

	// Start from the pseudo-BMA weights, as logits relative to the last model.
	ic := make([]float64, k)
	for j, c := range criteria {
		ic[j] = c.Value
	}
	z0 := make([]float64, k-1)
	for j := range z0 {
		z0[j] = -0.5 * (ic[j] - ic[k-1])
	}

	result, err := optimize.Minimize(problem, z0, nil, &optimize.LBFGS{})
	if result == nil {
		return nil, errors.Wrap(err, "stacking")
	}
	if err != nil {
		logger.Debug("stacking optimisation stopped early", zap.Error(err))
	}
	return slices.Clone(softmax(expand(result.X))), nil
}
