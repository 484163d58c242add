package stats

import "github.com/pkg/errors"

var (
	// ErrTooFewSamples is returned when an estimator needs more draws than it was given.
	ErrTooFewSamples = errors.New("too few samples")
	// ErrZeroVariance is returned when a statistic divides by a zero sample variance.
	ErrZeroVariance = errors.New("zero variance")
	// ErrShapeMismatch is returned when a trace does not match the model it is evaluated against.
	ErrShapeMismatch = errors.New("shape mismatch")
)
