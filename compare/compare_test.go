package compare

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sartorproj/mcdiag/model"
	"github.com/sartorproj/mcdiag/stats"
	"github.com/sartorproj/mcdiag/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var methods = []string{Stacking, BBPseudoBMA, PseudoBMA}

func observations() []float64 {
	return observationsFrom(42)
}

func observationsFrom(seed uint64) []float64 {
	d := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	x := make([]float64, 100)
	for i := range x {
		x[i] = d.Rand()
	}
	return x
}

func muModel(x []float64, lik model.Likelihood) *model.Model {
	return &model.Model{
		Free: []model.FreeVar{{Name: "mu", Prior: distuv.Normal{Mu: 0, Sigma: 1}}},
		Observed: []model.Observed{
			{Name: "x", Shape: []int{len(x)}, Data: x, Dist: lik},
		},
	}
}

// posteriorTrace draws mu from the conjugate posterior of a N(mu, sigma)
// likelihood under a N(0, 1) prior.
func posteriorTrace(t *testing.T, x []float64, sigma float64, seed uint64) *trace.Trace {
	t.Helper()
	prec := float64(len(x))/(sigma*sigma) + 1
	mean := floats.Sum(x) / (sigma * sigma) / prec
	d := distuv.Normal{Mu: mean, Sigma: 1 / math.Sqrt(prec), Src: rand.NewSource(seed)}

	draws := mat.NewDense(1000, 1, nil)
	for i := 0; i < 1000; i++ {
		draws.Set(i, 0, d.Rand())
	}
	tr, err := trace.FromValues([]trace.Var{{Name: "mu"}}, map[string]mat.Matrix{"mu": draws})
	require.NoError(t, err)
	return tr
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IC != WAIC {
		t.Errorf("Expected IC=WAIC, got %s", cfg.IC)
	}
	if cfg.Method != Stacking {
		t.Errorf("Expected Method=stacking, got %s", cfg.Method)
	}
	if cfg.BSamples != 1000 {
		t.Errorf("Expected BSamples=1000, got %d", cfg.BSamples)
	}
	if cfg.Alpha != 1 {
		t.Errorf("Expected Alpha=1, got %f", cfg.Alpha)
	}
}

func TestCompareIdenticalModels(t *testing.T) {
	x := observations()
	m := muModel(x, model.NormalLik(model.Ref("mu"), model.Const(1)))
	tr := posteriorTrace(t, x, 1, 1)

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Method = method
			cmp, err := CompareModels(context.Background(),
				[]*trace.Trace{tr, tr}, []*model.Model{m, m}, cfg)
			require.NoError(t, err)

			w := cmp.Weights()
			assert.InDelta(t, w[0], w[1], 1e-7)
			assert.InDelta(t, 1.0, floats.Sum(w), 1e-7)
			assert.InDelta(t, 0.0, cmp.Rows[1].DIC, 1e-12)
			assert.InDelta(t, 0.0, cmp.Rows[1].DSE, 1e-12)
		})
	}
}

func TestCompareRanking(t *testing.T) {
	x := observations()
	models := []*model.Model{
		muModel(x, model.NormalLik(model.Ref("mu"), model.Const(1))),
		muModel(x, model.NormalLik(model.Ref("mu"), model.Const(0.8))),
		muModel(x, model.StudentTLik(model.Const(1), model.Ref("mu"), model.Const(1))),
	}
	traces := []*trace.Trace{
		posteriorTrace(t, x, 1, 1),
		posteriorTrace(t, x, 0.8, 2),
		posteriorTrace(t, x, 1, 3),
	}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Method = method
			cmp, err := CompareModels(context.Background(), traces, models, cfg)
			require.NoError(t, err)

			assert.Equal(t, 0, cmp.Best().Model)
			assert.Equal(t, "model0", cmp.Best().Name)
			w := cmp.Weights()
			assert.InDelta(t, 1.0, floats.Sum(w), 1e-7)
			assert.Greater(t, w[0], w[1])
			assert.Greater(t, w[0], w[2])
			assert.Greater(t, w[1], w[2])
			for _, v := range w {
				assert.GreaterOrEqual(t, v, 0.0)
			}

			for i := 1; i < len(cmp.Rows); i++ {
				assert.LessOrEqual(t, cmp.Rows[i-1].IC, cmp.Rows[i].IC)
				assert.InDelta(t, cmp.Rows[i].IC-cmp.Rows[0].IC, cmp.Rows[i].DIC, 1e-6)
				assert.Greater(t, cmp.Rows[i].DSE, 0.0)
			}
		})
	}
}

func TestStackingKeepsICOrder(t *testing.T) {
	for seed := uint64(13); seed <= 17; seed++ {
		x := observationsFrom(seed)
		models := []*model.Model{
			muModel(x, model.NormalLik(model.Ref("mu"), model.Const(1))),
			muModel(x, model.NormalLik(model.Ref("mu"), model.Const(0.8))),
			muModel(x, model.StudentTLik(model.Const(1), model.Ref("mu"), model.Const(1))),
		}
		traces := []*trace.Trace{
			posteriorTrace(t, x, 1, 1),
			posteriorTrace(t, x, 0.8, 2),
			posteriorTrace(t, x, 1, 3),
		}

		cmp, err := CompareModels(context.Background(), traces, models, DefaultConfig())
		require.NoError(t, err)
		w := cmp.Weights()
		assert.Greater(t, w[0], w[1], "seed %d: %v", seed, w)
		assert.Greater(t, w[1], w[2], "seed %d: %v", seed, w)
		for i := 1; i < len(cmp.Rows); i++ {
			assert.Greater(t, cmp.Rows[i-1].Weight, cmp.Rows[i].Weight, "seed %d", seed)
		}
	}
}

func TestCompareLOO(t *testing.T) {
	x := observations()
	m := muModel(x, model.NormalLik(model.Ref("mu"), model.Const(1)))
	tr := posteriorTrace(t, x, 1, 1)

	cfg := DefaultConfig()
	cfg.IC = LOO
	cfg.Method = PseudoBMA
	cfg.Names = []string{"a", "b"}
	cmp, err := CompareModels(context.Background(), []*trace.Trace{tr, tr}, []*model.Model{m, m}, cfg)
	require.NoError(t, err)
	assert.Equal(t, LOO, cmp.IC)
	assert.Equal(t, "a", cmp.Rows[0].Name)
	assert.InDelta(t, 0.5, cmp.Rows[0].Weight, 1e-9)
}

func TestBBPseudoBMADeterministic(t *testing.T) {
	criteria := []*stats.Criterion{
		{Name: WAIC, Value: 6, SE: 1, Pointwise: []float64{1, 2, 3}},
		{Name: WAIC, Value: 7, SE: 1, Pointwise: []float64{2, 2, 3}},
	}
	cfg := DefaultConfig()
	cfg.Method = BBPseudoBMA
	cfg.BSamples = 200

	a, err := Compare(criteria, cfg)
	require.NoError(t, err)
	b, err := Compare(criteria, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Weights(), b.Weights())
	assert.Greater(t, a.Weights()[0], a.Weights()[1])
}

func TestPseudoBMAWeights(t *testing.T) {
	criteria := []*stats.Criterion{
		{Name: WAIC, Value: 12, Pointwise: []float64{6, 6}},
		{Name: WAIC, Value: 10, Pointwise: []float64{5, 5}},
	}
	cfg := DefaultConfig()
	cfg.Method = PseudoBMA
	cmp, err := Compare(criteria, cfg)
	require.NoError(t, err)

	// exp(-1) / (1 + exp(-1)) for the worse model.
	want := math.Exp(-1) / (1 + math.Exp(-1))
	assert.Equal(t, 1, cmp.Best().Model)
	assert.InDelta(t, want, cmp.Weights()[0], 1e-12)
	assert.InDelta(t, 2.0, cmp.Rows[1].DIC, 1e-12)
	assert.InDelta(t, 0.0, cmp.Rows[1].DSE, 1e-12)
}

func TestCompareErrors(t *testing.T) {
	_, err := CompareModels(context.Background(), []*trace.Trace{nil}, nil, nil)
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = Compare(nil, nil)
	assert.Error(t, err)

	criteria := []*stats.Criterion{
		{Value: 1, Pointwise: []float64{1}},
		{Value: 2, Pointwise: []float64{1, 1}},
	}
	_, err = Compare(criteria, nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Method = "bma"
	_, err = Compare(criteria[:1], cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.IC = "DIC"
	x := observations()
	m := muModel(x, model.NormalLik(model.Ref("mu"), model.Const(1)))
	_, err = CompareModels(context.Background(), []*trace.Trace{posteriorTrace(t, x, 1, 1)}, []*model.Model{m}, cfg)
	assert.Error(t, err)
}

func TestStackingSingleModel(t *testing.T) {
	cmp, err := Compare([]*stats.Criterion{{Value: 3, Pointwise: []float64{1, 2}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, cmp.Weights())
}
