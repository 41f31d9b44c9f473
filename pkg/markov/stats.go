package markov

// Stats holds aggregated statistics for a single chain.
type Stats struct {
	StateSize      int `json:"state_size"`      // The number of Values in each state
	States         int `json:"states"`          // The number of distinct states
	Transitions    int `json:"transitions"`     // The number of unique state->follow links
	TotalFrequency int `json:"total_frequency"` // The sum of all counts; the total number of trained transitions
	StartingValues int `json:"starting_values"` // The number of unique Values that can start a walk
}

// Stats returns a snapshot of statistics for the chain's model.
func (c *Chain) Stats() Stats {
	stats := Stats{
		StateSize: c.stateSize,
		States:    c.model.Len(),
	}
	for _, fs := range c.model.states {
		stats.Transitions += len(fs.entries)
		stats.TotalFrequency += fs.total()
	}

	beginKey, err := StateKey(c.BeginState())
	if err == nil {
		if fs, ok := c.model.states[beginKey]; ok {
			for _, e := range fs.entries {
				if !IsEnd(e.Value) {
					stats.StartingValues++
				}
			}
		}
	}
	return stats
}
