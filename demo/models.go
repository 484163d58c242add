package main

import (
	"github.com/sartorproj/mcdiag/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// namedModel is an example model with a display name.
type namedModel struct {
	Name        string
	Description string
	Model       *model.Model
}

// coinModel is a binomial success probability with a flat prior, observed
// through six experiments of five trials.
func coinModel() namedModel {
	return namedModel{
		Name:        "coin",
		Description: "Binomial(5, p) with p ~ Uniform(0, 1)",
		Model: &model.Model{
			Free: []model.FreeVar{
				{Name: "p", Prior: distuv.Beta{Alpha: 1, Beta: 1}, Transform: model.Interval(0, 1)},
			},
			Observed: []model.Observed{
				{
					Name:  "x",
					Shape: []int{6},
					Data:  []float64{0, 1, 2, 3, 4, 5},
					Dist:  model.BinomialLik(model.Const(5), model.Ref("p")),
				},
			},
		},
	}
}

// locationModels are three likelihoods for the location of the same data,
// used for model comparison.
func locationModels(obs []float64) []namedModel {
	build := func(lik model.Likelihood) *model.Model {
		return &model.Model{
			Free: []model.FreeVar{
				{Name: "mu", Prior: distuv.Normal{Mu: 0, Sigma: 1}},
			},
			Observed: []model.Observed{
				{Name: "y", Shape: []int{len(obs)}, Data: obs, Dist: lik},
			},
		}
	}
	return []namedModel{
		{
			Name:        "normal",
			Description: "y ~ Normal(mu, 1)",
			Model:       build(model.NormalLik(model.Ref("mu"), model.Const(1))),
		},
		{
			Name:        "narrow",
			Description: "y ~ Normal(mu, 0.8)",
			Model:       build(model.NormalLik(model.Ref("mu"), model.Const(0.8))),
		},
		{
			Name:        "cauchy",
			Description: "y ~ StudentT(1, mu, 1)",
			Model:       build(model.StudentTLik(model.Const(1), model.Ref("mu"), model.Const(1))),
		},
	}
}

// scaleModel has a positive scale parameter sampled on the log scale.
func scaleModel(obs []float64) namedModel {
	return namedModel{
		Name:        "scale",
		Description: "y ~ Normal(mu, sigma) with sigma ~ Gamma(2, 2)",
		Model: &model.Model{
			Free: []model.FreeVar{
				{Name: "mu", Prior: distuv.Normal{Mu: 0, Sigma: 1}},
				{Name: "sigma", Prior: distuv.Gamma{Alpha: 2, Beta: 2}, Transform: model.Log()},
			},
			Observed: []model.Observed{
				{
					Name:  "y",
					Shape: []int{len(obs)},
					Data:  obs,
					Dist:  model.NormalLik(model.Ref("mu"), model.Ref("sigma")),
				},
			},
		},
	}
}

// loadObservations reads the configured data file, or simulates standard
// normal observations.
func loadObservations(cfg *Config) ([]float64, error) {
	if cfg.Data.File != "" {
		opts := model.DefaultDataOptions()
		opts.Column = cfg.Data.Column
		return model.LoadData(cfg.Data.File, opts)
	}
	d := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(cfg.Sampler.Seed)}
	obs := make([]float64, cfg.Data.N)
	for i := range obs {
		obs[i] = d.Rand()
	}
	return obs, nil
}
