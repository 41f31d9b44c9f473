package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeCorpus reads a JSON corpus, an array of runs where each run is an
// array of Values. Numbers are decoded as json.Number so their canonical form
// survives a serialize/hydrate round trip unchanged. It fails with
// ErrInvalidCorpus if the document is not an array and with ErrInvalidRun if
// one of its elements is not.
func DecodeCorpus(r io.Reader) ([][]Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrInvalidCorpus)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCorpus, err)
	}

	runs, ok := top.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidCorpus, top)
	}

	corpus := make([][]Value, len(runs))
	for i, run := range runs {
		values, ok := run.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: run %d is %T", ErrInvalidRun, i, run)
		}
		corpus[i] = values
	}
	return corpus, nil
}

// ParseCorpus is a convenience wrapper around DecodeCorpus for in-memory data.
func ParseCorpus(data []byte) ([][]Value, error) {
	return DecodeCorpus(bytes.NewReader(data))
}

// BuildJSON parses a JSON corpus and returns a chain built from it.
func BuildJSON(data []byte, opts ...Option) (*Chain, error) {
	corpus, err := ParseCorpus(data)
	if err != nil {
		return nil, err
	}
	return New(corpus, opts...)
}
