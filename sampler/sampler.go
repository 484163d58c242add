package sampler

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/stats"
	"github.com/sartorproj/mcdiag/trace"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Sampling methods.
const (
	Metropolis = "metropolis"
	HMC        = "hmc"
)

// Sampler statistics recorded per draw.
const (
	StatAccepted   = "accepted"
	StatAcceptProb = "accept_prob"
	StatEnergy     = stats.EnergyStat
)

// batchSize is the number of draws between cancellation checks.
const batchSize = 100

// Config holds configuration for posterior sampling.
type Config struct {
	Draws    int         // Kept draws per chain (default: 1000)
	Tune     int         // Discarded warm-up draws per chain (default: 500)
	Chains   int         // Number of chains, sampled concurrently (default: 2)
	Seed     uint64      // Chain c draws from a source seeded with Seed+c
	Method   string      // "metropolis" or "hmc" (default: "hmc")
	StepSize float64     // HMC leapfrog step size in whitened space (default: 0.5)
	Leapfrog int         // HMC leapfrog steps per draw (default: 6)
	Logger   *zap.Logger // nil disables logging
}

// DefaultConfig returns the default sampling configuration.
func DefaultConfig() *Config {
	return &Config{
		Draws:    1000,
		Tune:     500,
		Chains:   2,
		Seed:     1,
		Method:   HMC,
		StepSize: 0.5,
		Leapfrog: 6,
	}
}

func (c *Config) validate() error {
	if c.Draws < 1 {
		return errors.Errorf("draws must be positive, got %d", c.Draws)
	}
	if c.Tune < 0 {
		return errors.Errorf("tune must not be negative, got %d", c.Tune)
	}
	if c.Chains < 1 {
		return errors.Errorf("chains must be positive, got %d", c.Chains)
	}
	switch c.Method {
	case Metropolis:
	case HMC:
		if c.StepSize <= 0 || c.Leapfrog < 1 {
			return errors.Errorf("hmc needs a positive step size and leapfrog count, got %g and %d", c.StepSize, c.Leapfrog)
		}
	default:
		return errors.Errorf("unknown sampling method %q", c.Method)
	}
	return nil
}

// Sample draws from the posterior of m. Chains start from the MAP estimate
// jittered by the Laplace covariance and run concurrently; the returned trace
// records the variables of m.TraceVars in chain order.
func Sample(ctx context.Context, m *model.Model, cfg *Config) (*trace.Trace, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Dim() == 0 {
		return nil, errors.New("model has no free variables")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	center, err := m.Pack(m.InitialPoint())
	if err != nil {
		return nil, err
	}
	if est, err := FindMAP(m, nil); err != nil {
		logger.Warn("MAP search failed, starting from the initial point", zap.Error(err))
	} else {
		center = est.X
		logger.Debug("found MAP", zap.Float64("logp", est.LogP))
	}

	cov, ok := LaplaceCovariance(m, center)
	if !ok {
		logger.Warn("Hessian at the MAP is not positive definite, using identity scaling")
	}
	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return nil, errors.New("proposal covariance is not positive definite")
	}
	var scale mat.TriDense
	chol.LTo(&scale)

	logger.Info("sampling",
		zap.String("method", cfg.Method),
		zap.Int("chains", cfg.Chains),
		zap.Int("draws", cfg.Draws),
		zap.Int("tune", cfg.Tune),
		zap.Int("dim", m.Dim()),
	)

	chains := make([]*trace.Chain, cfg.Chains)
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < cfg.Chains; c++ {
		g.Go(func() error {
			src := rand.NewSource(cfg.Seed + uint64(c))
			r := rand.New(src)
			start := jitter(center, &scale, r)

			var (
				chain *trace.Chain
				err   error
			)
			switch cfg.Method {
			case Metropolis:
				chain, err = runMetropolis(gctx, m, c, start, cov, src, cfg)
			default:
				chain, err = runHMC(gctx, m, c, start, center, &scale, r, cfg)
			}
			if err != nil {
				return errors.Wrapf(err, "chain %d", c)
			}

			accepted, _ := chain.Stat(StatAccepted)
			logger.Debug("chain finished",
				zap.Int("chain", c),
				zap.Float64("acceptance", mean(accepted)),
			)
			chains[c] = chain
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tr := trace.New(m.TraceVars())
	for _, c := range chains {
		if err := tr.AddChain(c); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

func jitter(center []float64, scale mat.Matrix, r *rand.Rand) []float64 {
	z := mat.NewVecDense(len(center), nil)
	for i := range center {
		z.SetVec(i, r.NormFloat64())
	}
	var x mat.VecDense
	x.MulVec(scale, z)
	start := make([]float64, len(center))
	for i := range start {
		start[i] = center[i] + x.AtVec(i)
	}
	return start
}

func record(c *trace.Chain, m *model.Model, x []float64) error {
	return c.Record(m.Unpack(x))
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}
