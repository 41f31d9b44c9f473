package markov

import (
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// testCorpus returns the two-sentence corpus used across the tests.
func testCorpus() [][]Value {
	var corpus [][]Value
	for _, sentence := range []string{"foo bar baz qux.", "foo baz qux bar."} {
		var run []Value
		for _, word := range strings.Split(sentence, " ") {
			run = append(run, word)
		}
		corpus = append(corpus, run)
	}
	return corpus
}

// mixedCorpus returns a corpus of structured Values.
func mixedCorpus() [][]Value {
	return [][]Value{
		{[]any{1, 2, 3}, map[string]any{"foo": "bar"}, "qux", 0, map[string]any{"end": true}},
		{[]any{1, 2, 3}, map[string]any{"foo": "baz"}, "qux", 1, map[string]any{"end": true}},
		{[]any{1, 2, 3}, map[string]any{"foo": "bar"}, "bar", 0, map[string]any{"end": true}},
		{[]any{4, 5, 6}, map[string]any{"foo": "baz"}, "bar", 1, map[string]any{"end": true}},
	}
}

// newTestChain builds a chain over corpus with a seeded generator.
func newTestChain(t testing.TB, corpus [][]Value, stateSize int) *Chain {
	t.Helper()
	c, err := New(corpus, WithStateSize(stateSize), WithRand(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// mustKey returns the state key of state or fails the test.
func mustKey(t testing.TB, state any) string {
	t.Helper()
	key, err := StateKey(state)
	if err != nil {
		t.Fatalf("StateKey(%v) error = %v", state, err)
	}
	return key
}

// canonicalEqual compares two Values structurally.
func canonicalEqual(t testing.TB, a, b Value) bool {
	t.Helper()
	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize(%v) error = %v", a, err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize(%v) error = %v", b, err)
	}
	return ca == cb
}

var (
	benchmarkCorpus [][]Value
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for
// benchmarking, one run per non-empty line.
func createBenchmarkCorpus() [][]Value {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				sb.Reset()
				sb.WriteString("this is a fallback corpus for benchmarking.\nit is not very long but will prevent a crash.\n")
				break
			}
			sb.Write(content)
			sb.WriteString("\n")
		}

		for _, line := range strings.Split(sb.String(), "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			run := make([]Value, len(fields))
			for i, f := range fields {
				run[i] = f
			}
			benchmarkCorpus = append(benchmarkCorpus, run)
		}
	})
	return benchmarkCorpus
}
