// Package sampler draws posterior samples from a model.Model.
//
// Two methods are provided: random-walk Metropolis built on gonum's
// samplemv.MetropolisHastingser, and Hamiltonian Monte Carlo with a
// finite-difference gradient. Both are preconditioned by the Laplace
// approximation at the MAP estimate, and each chain runs in its own goroutine
// with its own seeded random source, so results are reproducible.
//
// HMC chains record the "energy" statistic needed for BFMI.
package sampler
