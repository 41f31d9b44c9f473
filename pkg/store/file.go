package store

import (
	"bytes"
	"fmt"
	"os"

	"github.com/CTAG07/markov-chains/pkg/markov"
	"github.com/natefinch/atomic"
)

// WriteFile serializes chain to path. The file is replaced atomically, so a
// reader never observes a partially written document.
func WriteFile(path string, chain *markov.Chain) error {
	doc, err := chain.MarshalJSON()
	if err != nil {
		return fmt.Errorf("could not serialize chain: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("failed to write chain file: %w", err)
	}
	return nil
}

// ReadFile hydrates a chain from a document written by WriteFile or any other
// serialization of the same shape.
func ReadFile(path string, opts ...markov.Option) (*markov.Chain, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	chain, err := markov.FromJSON(doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chain file %s: %w", path, err)
	}
	return chain, nil
}
