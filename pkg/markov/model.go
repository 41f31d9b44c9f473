package markov

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// FollowEntry is one possible next Value after a state, with the number of
// times it was observed there.
type FollowEntry struct {
	Key   string
	Value Value
	Count int
}

// StateEntry is a state key together with its follow set, in the order the
// entries were first seen.
type StateEntry struct {
	Key     string
	Follows []FollowEntry
}

// followSet keeps follow entries in first-seen order with an index by key.
type followSet struct {
	entries []FollowEntry
	index   map[string]int
}

func (f *followSet) add(key string, value Value, count int) {
	if i, ok := f.index[key]; ok {
		f.entries[i].Count += count
		return
	}
	f.index[key] = len(f.entries)
	f.entries = append(f.entries, FollowEntry{Key: key, Value: value, Count: count})
}

func (f *followSet) total() int {
	var n int
	for _, e := range f.entries {
		n += e.Count
	}
	return n
}

// Model maps canonical state keys to the Values that followed them. A Model
// is built once, by Build or FromJSON, and is read-only afterwards; it is then
// safe for concurrent readers.
type Model struct {
	stateSize int
	keys      []string
	states    map[string]*followSet
}

func newModel(stateSize int) *Model {
	return &Model{
		stateSize: stateSize,
		states:    make(map[string]*followSet),
	}
}

// follows returns the follow set for key, creating it if needed.
func (m *Model) follows(key string) *followSet {
	fs, ok := m.states[key]
	if !ok {
		fs = &followSet{index: make(map[string]int)}
		m.states[key] = fs
		m.keys = append(m.keys, key)
	}
	return fs
}

// StateSize returns the number of Values in every state of the model.
func (m *Model) StateSize() int { return m.stateSize }

// Len returns the number of distinct states.
func (m *Model) Len() int { return len(m.keys) }

// StateKeys returns the state keys in first-seen order.
func (m *Model) StateKeys() []string {
	return append([]string(nil), m.keys...)
}

// Follows returns a copy of the follow entries for a state key, or nil if the
// state is unknown.
func (m *Model) Follows(key string) []FollowEntry {
	fs, ok := m.states[key]
	if !ok {
		return nil
	}
	out := make([]FollowEntry, len(fs.entries))
	for i, e := range fs.entries {
		out[i] = FollowEntry{Key: e.Key, Value: cloneValue(e.Value), Count: e.Count}
	}
	return out
}

// Lookup returns the follow entries for a State or, for single-Value states,
// a bare Value. The boolean is false if the state is unknown.
func (m *Model) Lookup(state any) ([]FollowEntry, bool) {
	key, err := StateKey(state)
	if err != nil {
		return nil, false
	}
	entries := m.Follows(key)
	return entries, entries != nil
}

// Equal reports whether both models hold the same state keys and, for each
// state, the same follow keys, counts and canonical values. Entry order is
// not significant.
func (m *Model) Equal(other *Model) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.stateSize != other.stateSize || len(m.states) != len(other.states) {
		return false
	}
	for key, fs := range m.states {
		ofs, ok := other.states[key]
		if !ok || len(fs.entries) != len(ofs.entries) {
			return false
		}
		for _, e := range fs.entries {
			i, ok := ofs.index[e.Key]
			if !ok || ofs.entries[i].Count != e.Count {
				return false
			}
			a, errA := Canonicalize(e.Value)
			b, errB := Canonicalize(ofs.entries[i].Value)
			if errA != nil || errB != nil || a != b {
				return false
			}
		}
	}
	return true
}

// entries returns the model as an ordered list of state entries.
func (m *Model) entries() []StateEntry {
	out := make([]StateEntry, 0, len(m.keys))
	for _, key := range m.keys {
		fs := m.states[key]
		out = append(out, StateEntry{Key: key, Follows: append([]FollowEntry(nil), fs.entries...)})
	}
	return out
}

// followRecord is the {value, count} object of the wire format.
type followRecord struct {
	Value json.RawMessage `json:"value"`
	Count int             `json:"count"`
}

// MarshalJSON encodes the entry as [followKey, {"value": ..., "count": ...}].
func (e FollowEntry) MarshalJSON() ([]byte, error) {
	value, err := encodeCompact(e.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: follow %s: %v", ErrUnrepresentable, e.Key, err)
	}
	return encodeCompact([]any{e.Key, followRecord{Value: value, Count: e.Count}})
}

// MarshalJSON encodes the entry as [stateKey, [follow, ...]].
func (e StateEntry) MarshalJSON() ([]byte, error) {
	follows := e.Follows
	if follows == nil {
		follows = []FollowEntry{}
	}
	return encodeCompact([]any{e.Key, follows})
}

// ToJSON returns the chain's model as a JSON-compatible structure of the
// shape [[stateKey, [[followKey, {value, count}], ...]], ...]. Keys are
// emitted verbatim.
func (c *Chain) ToJSON() []StateEntry {
	return c.model.entries()
}

// MarshalJSON serializes the chain's model. Only the model is written; the
// state size is recovered from the keys on hydration.
func (c *Chain) MarshalJSON() ([]byte, error) {
	return encodeCompact(c.ToJSON())
}

// Export writes the serialized chain to w.
func (c *Chain) Export(w io.Writer) error {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Errorf("could not serialize chain: %w", err)
	}
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("could not write chain: %w", err)
	}
	c.logger.Info("Chain exported",
		slog.Int("state_size", c.stateSize),
		slog.Int("states_exported", c.model.Len()),
	)
	return nil
}

// Import reads a serialized chain from r and hydrates it with FromJSON.
func Import(r io.Reader, opts ...Option) (*Chain, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read chain: %w", err)
	}
	return FromJSON(data, opts...)
}

// FromJSON hydrates a chain from its serialized model. The state size is the
// decoded length of the first state key; every other key must have the same
// length or an *InconsistentStateSizeError is returned. An empty document
// yields an empty chain of the default state size. WithStateSize is ignored.
func FromJSON(data []byte, opts ...Option) (*Chain, error) {
	var states []json.RawMessage
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	stateSize := DefaultStateSize
	var model *Model
	var follows int

	for i, raw := range states {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: state entry %d must be a [key, follows] pair", ErrInvalidDocument, i)
		}
		var stateKey string
		if err := json.Unmarshal(pair[0], &stateKey); err != nil {
			return nil, fmt.Errorf("%w: state entry %d key must be a string", ErrInvalidDocument, i)
		}

		size, err := keyLen(stateKey)
		if err != nil {
			return nil, err
		}
		if size < 1 {
			return nil, fmt.Errorf("%w: %w: state key %s has no elements", ErrInvalidDocument, ErrInvalidStateSize, stateKey)
		}
		if i == 0 {
			stateSize = size
			model = newModel(stateSize)
		} else if size != stateSize {
			return nil, &InconsistentStateSizeError{Expected: stateSize, Actual: size, Key: stateKey}
		}
		if _, dup := model.states[stateKey]; dup {
			return nil, fmt.Errorf("%w: duplicate state key %s", ErrInvalidDocument, stateKey)
		}

		var rawFollows []json.RawMessage
		if err := json.Unmarshal(pair[1], &rawFollows); err != nil {
			return nil, fmt.Errorf("%w: follows of %s must be an array", ErrInvalidDocument, stateKey)
		}

		fs := model.follows(stateKey)
		for _, rf := range rawFollows {
			key, value, count, err := decodeFollow(rf)
			if err != nil {
				return nil, fmt.Errorf("%w: state %s: %v", ErrInvalidDocument, stateKey, err)
			}
			if _, dup := fs.index[key]; dup {
				return nil, fmt.Errorf("%w: state %s: duplicate follow key %s", ErrInvalidDocument, stateKey, key)
			}
			fs.add(key, value, count)
			follows++
		}
	}
	if model == nil {
		model = newModel(stateSize)
	}

	c := newChain(model, opts...)
	c.logger.Debug("Chain hydrated",
		slog.Int("state_size", stateSize),
		slog.Int("states", model.Len()),
		slog.Int("follows", follows),
	)
	return c, nil
}

var (
	beginFollowKey = joinKey([]string{Begin.name})
	endFollowKey   = joinKey([]string{End.name})
)

// decodeFollow decodes one [followKey, {value, count}] pair into fresh values
// that do not reference the parse buffer.
func decodeFollow(raw json.RawMessage) (string, Value, int, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return "", nil, 0, fmt.Errorf("follow entry must be a [key, {value, count}] pair")
	}
	var key string
	if err := json.Unmarshal(pair[0], &key); err != nil {
		return "", nil, 0, fmt.Errorf("follow key must be a string")
	}
	var record followRecord
	if err := json.Unmarshal(pair[1], &record); err != nil {
		return "", nil, 0, fmt.Errorf("follow %s: %v", key, err)
	}
	if record.Count < 1 {
		return "", nil, 0, fmt.Errorf("follow %s: count must be positive, got %d", key, record.Count)
	}

	switch key {
	case endFollowKey:
		return key, End, record.Count, nil
	case beginFollowKey:
		return key, Begin, record.Count, nil
	}

	var value Value
	if len(record.Value) > 0 {
		dec := json.NewDecoder(bytes.NewReader(record.Value))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return "", nil, 0, fmt.Errorf("follow %s value: %v", key, err)
		}
	}
	return key, value, record.Count, nil
}
