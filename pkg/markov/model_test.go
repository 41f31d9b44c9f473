package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		corpus    [][]Value
		stateSize int
	}{
		{name: "Text corpus order 1", corpus: testCorpus(), stateSize: 1},
		{name: "Text corpus order 2", corpus: testCorpus(), stateSize: 2},
		{name: "Mixed corpus order 1", corpus: mixedCorpus(), stateSize: 1},
		{name: "Mixed corpus order 3", corpus: mixedCorpus(), stateSize: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			original := newTestChain(t, tc.corpus, tc.stateSize)

			serialized, err := json.Marshal(original)
			if err != nil {
				t.Fatalf("json.Marshal(chain) failed: %v", err)
			}

			hydrated, err := FromJSON(serialized)
			if err != nil {
				t.Fatalf("FromJSON() failed: %v", err)
			}

			if hydrated.StateSize() != original.StateSize() {
				t.Errorf("expected state size %d, got %d", original.StateSize(), hydrated.StateSize())
			}
			if !hydrated.Model().Equal(original.Model()) {
				t.Errorf("hydrated model differs from original:\n%s", serialized)
			}

			// Serializing again gives back the same document.
			again, err := json.Marshal(hydrated)
			if err != nil {
				t.Fatalf("json.Marshal(hydrated) failed: %v", err)
			}
			if !bytes.Equal(serialized, again) {
				t.Errorf("second serialization differs:\n%s\n%s", serialized, again)
			}
		})
	}
}

func TestExportImportStream(t *testing.T) {
	original := newTestChain(t, testCorpus(), 2)

	var buf bytes.Buffer
	if err := original.Export(&buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	hydrated, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if !hydrated.Model().Equal(original.Model()) {
		t.Error("imported model differs from exported model")
	}

	// Walks over the hydrated chain still terminate on End.
	for i := 0; i < 20; i++ {
		walk := hydrated.Walk()
		if len(walk) == 0 {
			t.Fatal("expected a non-empty walk")
		}
		for _, step := range walk {
			if s, ok := step.(string); ok && s == End.String() {
				t.Fatalf("walk yielded the End marker: %v", walk)
			}
		}
	}
}

func TestToJSONShape(t *testing.T) {
	c := newTestChain(t, [][]Value{{"a"}}, 1)

	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}

	var doc []any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not a JSON array: %v", err)
	}
	if len(doc) != 2 {
		t.Fatalf("expected 2 states, got %d: %s", len(doc), data)
	}

	first, ok := doc[0].([]any)
	if !ok || len(first) != 2 {
		t.Fatalf("expected a [key, follows] pair, got %v", doc[0])
	}
	if first[0] != mustKey(t, Begin) {
		t.Errorf("expected first state key %s, got %v", mustKey(t, Begin), first[0])
	}
	follows, ok := first[1].([]any)
	if !ok || len(follows) != 1 {
		t.Fatalf("expected one follow, got %v", first[1])
	}
	follow, ok := follows[0].([]any)
	if !ok || len(follow) != 2 || follow[0] != mustKey(t, "a") {
		t.Fatalf("unexpected follow entry %v", follows[0])
	}
	record, ok := follow[1].(map[string]any)
	if !ok || record["value"] != "a" || record["count"] != float64(1) {
		t.Errorf("unexpected follow record %v", follow[1])
	}
}

func TestFromJSONInconsistentStateSize(t *testing.T) {
	doc, err := json.Marshal([]any{
		[]any{`["A"]`, []any{}},
		[]any{`["A","B"]`, []any{}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = FromJSON(doc)
	if !errors.Is(err, ErrInconsistentStateSize) {
		t.Fatalf("expected ErrInconsistentStateSize, got %v", err)
	}
	var sizeErr *InconsistentStateSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *InconsistentStateSizeError, got %T", err)
	}
	if sizeErr.Expected != 1 || sizeErr.Actual != 2 || sizeErr.Key != `["A","B"]` {
		t.Errorf("unexpected error details: %+v", sizeErr)
	}
}

func TestFromJSONInvalidDocuments(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{name: "Not JSON", doc: `not json`},
		{name: "Top level object", doc: `{"a": 1}`},
		{name: "State entry not a pair", doc: `[["[\"1\"]"]]`},
		{name: "State key not a string", doc: `[[1, []]]`},
		{name: "State key not an array", doc: `[["\"1\"", []]]`},
		{name: "Empty state key", doc: `[["[]", [["[\"\\\"a\\\"\"]", {"value": "a", "count": 1}]]]]`},
		{name: "Empty later state key", doc: `[["[\"1\"]", []], ["[]", []]]`},
		{name: "Follows not an array", doc: `[["[\"1\"]", {}]]`},
		{name: "Follow not a pair", doc: `[["[\"1\"]", [["[\"2\"]"]]]]`},
		{name: "Zero count", doc: `[["[\"1\"]", [["[\"2\"]", {"value": 2, "count": 0}]]]]`},
		{name: "Duplicate state", doc: `[["[\"1\"]", []], ["[\"1\"]", []]]`},
		{name: "Duplicate follow", doc: `[["[\"1\"]", [["[\"2\"]", {"value": 2, "count": 1}], ["[\"2\"]", {"value": 2, "count": 1}]]]]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tc.doc))
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestFromJSONEmptyStateKey(t *testing.T) {
	_, err := FromJSON([]byte(`[["[]", []]]`))
	if !errors.Is(err, ErrInvalidStateSize) {
		t.Errorf("expected ErrInvalidStateSize, got %v", err)
	}
}

func TestFromJSONEmpty(t *testing.T) {
	c, err := FromJSON([]byte(`[]`))
	if err != nil {
		t.Fatalf("FromJSON() failed: %v", err)
	}
	if c.StateSize() != DefaultStateSize || c.Model().Len() != 0 {
		t.Errorf("expected empty chain of default state size, got size %d with %d states", c.StateSize(), c.Model().Len())
	}
	if walk := c.Walk(); len(walk) != 0 {
		t.Errorf("expected empty walk, got %v", walk)
	}
}

func TestModelEqual(t *testing.T) {
	a, _ := Build(testCorpus(), WithStateSize(2))
	b, _ := Build(testCorpus(), WithStateSize(2))
	c, _ := Build(testCorpus(), WithStateSize(1))
	d, _ := Build(testCorpus()[:1], WithStateSize(2))

	if !a.Equal(b) {
		t.Error("expected models built from the same corpus to be equal")
	}
	if a.Equal(c) {
		t.Error("expected models of different state sizes to differ")
	}
	if a.Equal(d) {
		t.Error("expected models of different corpora to differ")
	}
}
