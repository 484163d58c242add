package sampler

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/trace"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/samplemv"
)

// runMetropolis runs one random-walk Metropolis chain with a Gaussian proposal
// scaled from cov by 2.38^2/d.
func runMetropolis(ctx context.Context, m *model.Model, id int, start []float64, cov *mat.SymDense, src rand.Source, cfg *Config) (*trace.Chain, error) {
	d := len(start)
	var sigma mat.SymDense
	sigma.ScaleSym(2.38*2.38/float64(d), cov)
	proposal, ok := samplemv.NewProposalNormal(&sigma, src)
	if !ok {
		return nil, errors.New("proposal covariance is not positive definite")
	}

	mh := samplemv.MetropolisHastingser{
		Initial:  start,
		Target:   m,
		Proposal: proposal,
		Src:      src,
		BurnIn:   cfg.Tune,
	}

	chain := trace.NewChain(id, m.TraceVars())
	accepted := make([]float64, 0, cfg.Draws)
	prev := slices.Clone(start)
	for done := 0; done < cfg.Draws; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(batchSize, cfg.Draws-done)
		batch := mat.NewDense(n, d, nil)
		mh.Sample(batch)

		for i := 0; i < n; i++ {
			row := batch.RawRowView(i)
			if err := record(chain, m, row); err != nil {
				return nil, err
			}
			if slices.Equal(row, prev) {
				accepted = append(accepted, 0)
			} else {
				accepted = append(accepted, 1)
			}
			copy(prev, row)
		}

		mh.Initial = slices.Clone(prev)
		mh.BurnIn = 0
		done += n
	}

	chain.SetStat(StatAccepted, accepted)
	return chain, nil
}
