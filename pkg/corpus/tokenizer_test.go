package corpus

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/CTAG07/markov-chains/pkg/markov"
)

func TestStreamNext(t *testing.T) {
	stream := NewTokenizer().NewStream(strings.NewReader("One fish, two fish.\nRed fish!"))

	expected := []Token{
		{Text: "One"}, {Text: "fish"}, {Text: ","}, {Text: "two"}, {Text: "fish"}, {Text: ".", EOC: true},
		{Text: "Red"}, {Text: "fish"}, {Text: "!", EOC: true},
	}
	for i, want := range expected {
		got, err := stream.Next()
		if err != nil {
			t.Fatalf("token %d: unexpected error %v", i, err)
		}
		if *got != want {
			t.Errorf("token %d: got %+v, want %+v", i, *got, want)
		}
	}
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestRuns(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected [][]markov.Value
	}{
		{
			name:  "Sentences",
			input: "one fish two fish. red fish blue fish.",
			expected: [][]markov.Value{
				{"one", "fish", "two", "fish", "."},
				{"red", "fish", "blue", "fish", "."},
			},
		},
		{
			name:     "Trailing text without terminator",
			input:    "hello? is it me",
			expected: [][]markov.Value{{"hello", "?"}, {"is", "it", "me"}},
		},
		{
			name:     "Empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runs, err := NewTokenizer().Runs(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Runs() failed: %v", err)
			}
			if !reflect.DeepEqual(runs, tc.expected) {
				t.Errorf("Runs() = %v, want %v", runs, tc.expected)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	testCases := []struct {
		name     string
		opts     []Option
		values   []markov.Value
		expected string
	}{
		{name: "Ends in punctuation", values: []markov.Value{"one", "fish", ",", "two", "fish", "."}, expected: "one fish, two fish."},
		{name: "EOC is appended", values: []markov.Value{"red", "fish"}, expected: "red fish."},
		{name: "Custom separator and EOC", opts: []Option{WithSeparator("_"), WithEOC("!")}, values: []markov.Value{"a", "b"}, expected: "a_b!"},
		{name: "Non-string values", values: []markov.Value{"n", 3}, expected: "n 3."},
		{name: "Empty walk", values: nil, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewTokenizer(tc.opts...).Join(tc.values); got != tc.expected {
				t.Errorf("Join() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestRunsTrainWalk(t *testing.T) {
	tok := NewTokenizer()
	runs, err := tok.Runs(strings.NewReader("one fish two fish. red fish blue fish."))
	if err != nil {
		t.Fatal(err)
	}
	chain, err := markov.New(runs, markov.WithStateSize(2))
	if err != nil {
		t.Fatalf("markov.New() failed: %v", err)
	}

	for i := 0; i < 20; i++ {
		text := tok.Join(chain.Walk())
		if text != "one fish two fish." && text != "red fish blue fish." {
			t.Errorf("unexpected walk %q", text)
		}
	}
}
