package markov

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Value is one step of a run. Any JSON-representable data is accepted:
// strings, numbers, booleans, nil, []any, map[string]any, and types that
// encoding/json marshals deterministically.
type Value = any

// State is a fixed-width window of consecutive Values used to look up
// transitions. A State passed to StateKey or Move is treated as a sequence;
// any other value, including a bare []any, is a single Value.
type State []Value

// Sentinel is a reserved marker padding the boundaries of every run.
// The only sentinels are Begin and End.
type Sentinel struct {
	name string
}

var (
	// Begin pads the start of every run.
	Begin = Sentinel{name: "@@MARKOV_CHAIN_BEGIN"}
	// End marks the end of every run.
	End = Sentinel{name: "@@MARKOV_CHAIN_END"}
)

// String returns the reserved name of the sentinel.
func (s Sentinel) String() string { return s.name }

// MarshalJSON encodes the sentinel as its reserved name.
func (s Sentinel) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.name)
}

// IsEnd reports whether v is the End sentinel.
func IsEnd(v Value) bool {
	s, ok := v.(Sentinel)
	return ok && s == End
}

// IsBegin reports whether v is the Begin sentinel.
func IsBegin(v Value) bool {
	s, ok := v.(Sentinel)
	return ok && s == Begin
}

// Canonicalize returns the deterministic string form of v. Structurally equal
// values give the same string: maps are emitted with sorted keys and numbers
// in their shortest form. Sentinels map to their reserved names, which are
// not valid JSON and therefore never collide with ordinary values.
func Canonicalize(v Value) (string, error) {
	if s, ok := v.(Sentinel); ok {
		return s.name, nil
	}
	b, err := encodeCompact(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrepresentable, err)
	}
	return string(b), nil
}

// StateKey returns the lookup key of a state. A State is keyed as-is; any
// other value is keyed as a single-element state. The key is a JSON array of
// canonical strings, so json.Unmarshal recovers the state length.
func StateKey(state any) (string, error) {
	s, ok := state.(State)
	if !ok {
		s = State{state}
	}
	parts := make([]string, len(s))
	for i, v := range s {
		c, err := Canonicalize(v)
		if err != nil {
			return "", err
		}
		parts[i] = c
	}
	return joinKey(parts), nil
}

// joinKey encodes already canonicalized parts as a state key.
func joinKey(parts []string) string {
	b, err := encodeCompact(parts)
	if err != nil {
		// A []string always marshals.
		panic(err)
	}
	return string(b)
}

// keyLen parses a state key and returns the number of elements it holds.
func keyLen(key string) (int, error) {
	var parts []string
	if err := json.Unmarshal([]byte(key), &parts); err != nil {
		return 0, fmt.Errorf("%w: state key %s is not an array of strings: %v", ErrInvalidDocument, key, err)
	}
	return len(parts), nil
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// cloneValue deep-copies container Values so a Model never aliases
// caller-owned slices, maps or pointers.
func cloneValue(v Value) Value {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case State:
		out := make(State, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case nil, string, bool, float64, json.Number, Sentinel:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Pointer, reflect.Struct, reflect.Interface:
		return deepCopy(rv).Interface()
	}
	return v
}

// deepCopy copies typed containers while keeping their types. Unexported
// struct fields are copied shallowly; encoding/json never reads them, so they
// take no part in the Value's key. Values reaching here have already been
// canonicalized, which rejects pointer cycles.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopy(v.Elem()))
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := range v.NumField() {
			if f := out.Field(i); f.CanSet() {
				f.Set(deepCopy(v.Field(i)))
			}
		}
		return out
	default:
		return v
	}
}
