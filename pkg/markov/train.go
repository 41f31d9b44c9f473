package markov

import (
	"fmt"
	"log/slog"
)

// Build counts, for every state of stateSize consecutive Values in corpus,
// how often each Value followed it. Each run is padded with stateSize Begin
// sentinels and one End sentinel, and len(run)+1 windows are read from it so
// the final window records the transition to End. The corpus is never
// modified and the returned model holds copies of its Values.
func Build(corpus [][]Value, opts ...Option) (*Model, error) {
	o := newOptions(opts)
	if o.stateSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStateSize, o.stateSize)
	}

	model := newModel(o.stateSize)
	var canon []string
	var transitions int

	for i, run := range corpus {
		// canon is the padded run: stateSize Begins, the run, End.
		canon = canon[:0]
		for range o.stateSize {
			canon = append(canon, Begin.name)
		}
		for j, v := range run {
			c, err := Canonicalize(v)
			if err != nil {
				return nil, fmt.Errorf("run %d, value %d: %w", i, j, err)
			}
			canon = append(canon, c)
		}
		canon = append(canon, End.name)

		for start := 0; start < len(run)+1; start++ {
			end := start + o.stateSize
			stateKey := joinKey(canon[start:end])
			followKey := joinKey(canon[end : end+1])

			var follow Value = End
			if pos := end - o.stateSize; pos < len(run) {
				follow = cloneValue(run[pos])
			}
			model.follows(stateKey).add(followKey, follow, 1)
			transitions++
		}
	}

	o.logger.Info("Chain built",
		slog.Int("state_size", o.stateSize),
		slog.Int("runs_processed", len(corpus)),
		slog.Int("transitions", transitions),
		slog.Int("states", model.Len()),
	)
	return model, nil
}
