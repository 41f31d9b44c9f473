package markov

import (
	"iter"
	"log/slog"
	"slices"
)

// generateOptions is used by the generate functions to configure default options.
type generateOptions struct {
	maxLength int
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in Generate, GenerateFrom, Walk and WalkFrom.
type GenerateOption func(*generateOptions)

// WithMaxLength caps the number of Values a walk yields. A value of 0, the
// default, leaves the walk unbounded: it ends only on End or an unknown state,
// so a model with a cycle that never reaches End can walk forever.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// Move chooses a Value that followed from in the corpus, weighted by how often
// it did. from is a State or, for single-Value states, a bare Value. The
// result may be End. The boolean is false if from is an unknown state.
func (c *Chain) Move(from any) (Value, bool) {
	key, err := StateKey(from)
	if err != nil {
		return nil, false
	}
	fs, ok := c.model.states[key]
	if !ok || len(fs.entries) == 0 {
		return nil, false
	}

	counts := make([]int, len(fs.entries))
	for i, e := range fs.entries {
		counts[i] = e.Count
	}
	return cloneValue(fs.entries[c.sampler.Sample(counts)].Value), true
}

// Generate returns a lazy walk starting from the Begin state. Every iteration
// of the returned sequence is a new, independent walk.
func (c *Chain) Generate(opts ...GenerateOption) iter.Seq[Value] {
	return c.GenerateFrom(c.BeginState(), opts...)
}

// GenerateFrom returns a lazy walk starting from state. At every step it moves
// from the current state, stops on End or an unknown state without yielding,
// and otherwise yields the Value and slides the state window by one.
func (c *Chain) GenerateFrom(state State, opts ...GenerateOption) iter.Seq[Value] {
	options := &generateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	initial := slices.Clone(state)

	return func(yield func(Value) bool) {
		current := slices.Clone(initial)
		generated := 0

		for options.maxLength <= 0 || generated < options.maxLength {
			step, ok := c.Move(current)
			if !ok {
				c.logger.Debug("Generation terminated due to dead-end",
					slog.Int("generated_length", generated),
				)
				return
			}
			if IsEnd(step) {
				c.logger.Debug("Generation terminated by End",
					slog.Int("generated_length", generated),
				)
				return
			}
			if !yield(step) {
				return
			}
			generated++
			if len(current) > 0 {
				current = append(current[1:], step)
			}
		}

		c.logger.Debug("Generation terminated by reaching maxLength",
			slog.Int("max_length", options.maxLength),
			slog.Int("generated_length", generated),
		)
	}
}

// Walk performs a single walk from the Begin state and returns its Values.
func (c *Chain) Walk(opts ...GenerateOption) []Value {
	return c.WalkFrom(c.BeginState(), opts...)
}

// WalkFrom performs a single walk from state and returns its Values.
func (c *Chain) WalkFrom(state State, opts ...GenerateOption) []Value {
	steps := []Value{}
	for step := range c.GenerateFrom(state, opts...) {
		steps = append(steps, step)
	}
	return steps
}
