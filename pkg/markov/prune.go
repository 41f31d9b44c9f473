package markov

import (
	"log/slog"
)

// Prune returns a new chain without the follow entries whose count is less
// than or equal to minCount. States left without any follow entry are dropped,
// so walks reaching them end there. The receiver is not modified. This is
// useful for reducing the size of a model by removing rare, and often noisy,
// transitions.
func (c *Chain) Prune(minCount int) *Chain {
	pruned := newModel(c.stateSize)
	var removed int

	for _, key := range c.model.keys {
		fs := c.model.states[key]
		var kept []FollowEntry
		for _, e := range fs.entries {
			if e.Count <= minCount {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			continue
		}
		target := pruned.follows(key)
		for _, e := range kept {
			target.add(e.Key, cloneValue(e.Value), e.Count)
		}
	}

	c.logger.Info("Chain pruned",
		slog.Int("min_count", minCount),
		slog.Int("follows_removed", removed),
		slog.Int("states_removed", c.model.Len()-pruned.Len()),
	)

	return &Chain{
		stateSize: c.stateSize,
		model:     pruned,
		sampler:   c.sampler,
		logger:    c.logger,
	}
}
