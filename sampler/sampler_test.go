package sampler

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalMean has a conjugate posterior N(sum(y)/(n+0.01), 1/(n+0.01)).
func normalMean() *model.Model {
	y := make([]float64, 20)
	for i := range y {
		y[i] = 1.5 + 0.1*float64(i%5-2)
	}
	return &model.Model{
		Free: []model.FreeVar{
			{Name: "mu", Prior: distuv.Normal{Mu: 0, Sigma: 10}},
		},
		Observed: []model.Observed{
			{Name: "y", Shape: []int{len(y)}, Data: y, Dist: model.NormalLik(model.Ref("mu"), model.Const(1))},
		},
	}
}

func betaBinomial() *model.Model {
	return &model.Model{
		Free: []model.FreeVar{
			{Name: "p", Prior: distuv.Beta{Alpha: 1, Beta: 1}, Transform: model.Interval(0, 1)},
		},
		Observed: []model.Observed{
			{Name: "y", Data: []float64{7}, Dist: model.BinomialLik(model.Const(10), model.Ref("p"))},
		},
	}
}

const posteriorMean = 30.0 / 20.01

func smallConfig(method string) *Config {
	cfg := DefaultConfig()
	cfg.Method = method
	cfg.Draws = 1000
	cfg.Tune = 300
	cfg.Seed = 42
	return cfg
}

func varMean(t *testing.T, tr *trace.Trace, name string) float64 {
	t.Helper()
	m, err := tr.Values(name)
	require.NoError(t, err)
	return stat.Mean(mat.Col(nil, 0, m), nil)
}

func TestFindMAP(t *testing.T) {
	est, err := FindMAP(normalMean(), nil)
	require.NoError(t, err)
	assert.InDelta(t, posteriorMean, est.X[0], 1e-3)
	assert.InDelta(t, posteriorMean, est.Point["mu"][0], 1e-3)
	assert.False(t, math.IsInf(est.LogP, 0))
}

func TestFindMAPTransformed(t *testing.T) {
	est, err := FindMAP(betaBinomial(), nil)
	require.NoError(t, err)
	// The sampler-space mode of Beta(8, 4) under the logit transform is its mean.
	assert.InDelta(t, 8.0/12, est.Point["p"][0], 1e-2)
	assert.Contains(t, est.Point, "p_interval__")
}

func TestLaplaceCovariance(t *testing.T) {
	m := normalMean()
	cov, ok := LaplaceCovariance(m, []float64{posteriorMean})
	require.True(t, ok)
	assert.InDelta(t, 1/20.01, cov.At(0, 0), 1e-3)
}

func TestSample(t *testing.T) {
	for _, method := range []string{HMC, Metropolis} {
		t.Run(method, func(t *testing.T) {
			cfg := smallConfig(method)
			tr, err := Sample(context.Background(), normalMean(), cfg)
			require.NoError(t, err)

			assert.Equal(t, cfg.Chains, tr.NChains())
			assert.Equal(t, cfg.Draws, tr.Len())
			assert.InDelta(t, posteriorMean, varMean(t, tr, "mu"), 0.1)

			accepted, err := tr.Stat(StatAccepted)
			require.NoError(t, err)
			rate := stat.Mean(accepted, nil)
			assert.Greater(t, rate, 0.1)
			assert.LessOrEqual(t, rate, 1.0)
		})
	}
}

func TestSampleRecordsEnergy(t *testing.T) {
	tr, err := Sample(context.Background(), normalMean(), smallConfig(HMC))
	require.NoError(t, err)

	energy, err := tr.Stat(StatEnergy)
	require.NoError(t, err)
	assert.Len(t, energy, tr.NChains()*tr.Len())
	for _, e := range energy {
		assert.False(t, math.IsNaN(e) || math.IsInf(e, 0))
	}
}

func TestSampleTransformed(t *testing.T) {
	tr, err := Sample(context.Background(), betaBinomial(), smallConfig(HMC))
	require.NoError(t, err)

	assert.Equal(t, []string{"p_interval__", "p"}, tr.Varnames())
	// Beta(8, 4) posterior.
	assert.InDelta(t, 8.0/12, varMean(t, tr, "p"), 0.05)

	p, err := tr.Values("p")
	require.NoError(t, err)
	r, _ := p.Dims()
	for i := 0; i < r; i++ {
		v := p.At(i, 0)
		assert.True(t, v > 0 && v < 1, "draw %d out of support: %v", i, v)
	}
}

func TestSampleDeterministic(t *testing.T) {
	for _, method := range []string{HMC, Metropolis} {
		t.Run(method, func(t *testing.T) {
			cfg := smallConfig(method)
			cfg.Draws = 50
			cfg.Tune = 20

			a, err := Sample(context.Background(), normalMean(), cfg)
			require.NoError(t, err)
			b, err := Sample(context.Background(), normalMean(), cfg)
			require.NoError(t, err)

			va, err := a.Values("mu")
			require.NoError(t, err)
			vb, err := b.Values("mu")
			require.NoError(t, err)
			assert.True(t, mat.Equal(va, vb))
		})
	}
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sample(ctx, normalMean(), smallConfig(HMC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no draws", func(c *Config) { c.Draws = 0 }},
		{"negative tune", func(c *Config) { c.Tune = -1 }},
		{"no chains", func(c *Config) { c.Chains = 0 }},
		{"unknown method", func(c *Config) { c.Method = "nuts" }},
		{"zero step", func(c *Config) { c.StepSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			_, err := Sample(context.Background(), normalMean(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestSampleNoFreeVars(t *testing.T) {
	_, err := Sample(context.Background(), &model.Model{}, DefaultConfig())
	assert.Error(t, err)
}
