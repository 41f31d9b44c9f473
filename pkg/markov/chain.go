package markov

import (
	"io"
	"log/slog"
	"math/rand/v2"
)

// DefaultStateSize is the state size used when WithStateSize is not given.
const DefaultStateSize = 1

// options configures chain construction.
type options struct {
	stateSize int
	rng       *rand.Rand
	logger    *slog.Logger
}

// Option is a function that configures a Chain or a Build call.
type Option func(*options)

// WithStateSize sets the number of preceding Values used to predict the next
// one. Default: 1
func WithStateSize(n int) Option {
	return func(o *options) { o.stateSize = n }
}

// WithRand sets the random generator used by Move and Generate. A nil
// generator selects the process-seeded default. A *rand.Rand is not safe for
// concurrent use, so a chain given one must not be walked concurrently.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		stateSize: DefaultStateSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chain is a Markov chain over runs that have both beginnings and ends, for
// example sentences. It exclusively owns its Model.
type Chain struct {
	stateSize int
	model     *Model
	sampler   *Sampler
	logger    *slog.Logger
}

// New builds the model of corpus and returns a chain over it.
func New(corpus [][]Value, opts ...Option) (*Chain, error) {
	model, err := Build(corpus, opts...)
	if err != nil {
		return nil, err
	}
	return newChain(model, opts...), nil
}

// NewFromModel returns a chain over an already built model. The chain takes
// the model's state size; WithStateSize is ignored.
func NewFromModel(model *Model, opts ...Option) *Chain {
	if model == nil {
		model = newModel(DefaultStateSize)
	}
	return newChain(model, opts...)
}

func newChain(model *Model, opts ...Option) *Chain {
	o := newOptions(opts)
	return &Chain{
		stateSize: model.stateSize,
		model:     model,
		sampler:   NewSampler(o.rng),
		logger:    o.logger,
	}
}

// StateSize returns the number of Values in a state of this chain.
func (c *Chain) StateSize() int { return c.stateSize }

// Model returns the chain's model. It must be treated as read-only.
func (c *Chain) Model() *Model { return c.model }

// SetLogger sets the logger for the Chain. A nil logger is ignored.
func (c *Chain) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// BeginState returns a state of StateSize copies of Begin, the state every
// walk starts from by default.
func (c *Chain) BeginState() State {
	return beginState(c.stateSize)
}

func beginState(stateSize int) State {
	s := make(State, stateSize)
	for i := range s {
		s[i] = Begin
	}
	return s
}
