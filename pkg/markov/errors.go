package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCorpus is returned when a corpus is not a sequence of runs.
	ErrInvalidCorpus = errors.New("corpus must be an array of runs")
	// ErrInvalidRun is returned when a run within a corpus is not a sequence.
	ErrInvalidRun = errors.New("invalid run in corpus: must be an array")
	// ErrInconsistentStateSize is matched by InconsistentStateSizeError.
	ErrInconsistentStateSize = errors.New("inconsistent state size")
	// ErrInvalidStateSize is returned when a chain is configured with a
	// state size lower than 1.
	ErrInvalidStateSize = errors.New("state size must be a positive integer")
	// ErrInvalidDocument is returned when a serialized chain does not have
	// the [[stateKey, [[followKey, {value, count}], ...]], ...] shape.
	ErrInvalidDocument = errors.New("invalid chain document")
	// ErrUnrepresentable is returned when a value cannot be canonicalized,
	// e.g. NaN, channels, functions or cyclic structures.
	ErrUnrepresentable = errors.New("value cannot be canonicalized")
)

// InconsistentStateSizeError reports a state key whose decoded length differs
// from the length of the first state key in a serialized chain.
type InconsistentStateSizeError struct {
	Expected int
	Actual   int
	Key      string
}

func (e *InconsistentStateSizeError) Error() string {
	return fmt.Sprintf("inconsistent state size: expected %d but got %d (%s)", e.Expected, e.Actual, e.Key)
}

// Is makes errors.Is(err, ErrInconsistentStateSize) hold.
func (e *InconsistentStateSizeError) Is(target error) bool {
	return target == ErrInconsistentStateSize
}
