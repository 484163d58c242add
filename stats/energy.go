package stats

import (
	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/trace"
	"gonum.org/v1/gonum/stat"
)

// EnergyStat is the sampler statistic holding the Hamiltonian energy of each draw.
const EnergyStat = "energy"

// BFMI returns the Bayesian fraction of missing information of an energy
// series: mean squared energy transition over the energy variance.
// Low values (below about 0.3) indicate the sampler explores the energy
// distribution poorly.
func BFMI(energy []float64) (float64, error) {
	if len(energy) < 2 {
		return 0, errors.Wrapf(ErrTooFewSamples, "%d energy values", len(energy))
	}
	v := stat.PopVariance(energy, nil)
	if v == 0 {
		return 0, errors.Wrap(ErrZeroVariance, "energy")
	}
	sq := 0.0
	for i := 1; i < len(energy); i++ {
		d := energy[i] - energy[i-1]
		sq += d * d
	}
	return sq / float64(len(energy)-1) / v, nil
}

// TraceBFMI returns the BFMI of each chain of tr.
func TraceBFMI(tr *trace.Trace) ([]float64, error) {
	if tr.NChains() == 0 {
		return nil, errors.Wrap(ErrTooFewSamples, "trace has no chains")
	}
	result := make([]float64, tr.NChains())
	for i, c := range tr.Chains {
		energy, ok := c.Stat(EnergyStat)
		if !ok {
			return nil, errors.Wrapf(trace.ErrUnknownVar, "chain %d has no %q statistic", c.ID, EnergyStat)
		}
		v, err := BFMI(energy)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %d", c.ID)
		}
		result[i] = v
	}
	return result, nil
}
