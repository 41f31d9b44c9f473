package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/CTAG07/markov-chains/pkg/markov"
)

// maxRunLength prevents massive sentences from taking up a large amount of
// memory. Longer sentences are split into several runs.
const maxRunLength = 4096

// Token represents a single tokenized unit of text. It contains the text itself
// and a boolean flag indicating if it ends a run (e.g., a sentence).
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer splits text into runs of words and punctuation, using regular
// expressions to find tokens and to recognize sentence-ending punctuation.
// Its behavior can be customized with functional options.
type Tokenizer struct {
	separator         string
	eoc               string
	separatorRegex    *regexp.Regexp
	eocRegex          *regexp.Regexp
	separatorExcRegex *regexp.Regexp
	eocExcRegex       *regexp.Regexp
}

// Option is a function that configures a Tokenizer.
type Option func(*Tokenizer)

// WithSeparator sets the string used for joining tokens in Join.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *Tokenizer) {
		t.separator = sep
	}
}

// WithEOC sets the string Join appends to a run that does not already end in
// punctuation.
// Default: "."
func WithEOC(eoc string) Option {
	return func(t *Tokenizer) {
		t.eoc = eoc
	}
}

// WithSeparatorRegex sets the regex used to find tokens in input text.
// Default: `[\w']+|[.,!?;]`
func WithSeparatorRegex(splitRegex string) Option {
	return func(t *Tokenizer) {
		t.separatorRegex = regexp.MustCompile(splitRegex)
	}
}

// WithEOCRegex sets the regex deciding whether a token ends a run.
// Default: `^[.!?]$`
func WithEOCRegex(eocRegex string) Option {
	return func(t *Tokenizer) {
		t.eocRegex = regexp.MustCompile(eocRegex)
	}
}

// WithSeparatorExcRegex sets the regex deciding which tokens get no separator
// before them.
func WithSeparatorExcRegex(splitExcRegex string) Option {
	return func(t *Tokenizer) {
		t.separatorExcRegex = regexp.MustCompile(splitExcRegex)
	}
}

// WithEOCExcRegex sets the regex deciding which last tokens get no EOC after
// them.
func WithEOCExcRegex(eocRegex string) Option {
	return func(t *Tokenizer) {
		t.eocExcRegex = regexp.MustCompile(eocRegex)
	}
}

// NewTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		separator: " ",
		eoc:       ".",
		// Sequences of word characters OR single instances of common punctuation.
		separatorRegex: regexp.MustCompile(`[\w']+|[.,!?;]`),
		eocRegex:       regexp.MustCompile(`^[.!?]$`),
		// Characters that don't get a separator put before them.
		separatorExcRegex: regexp.MustCompile(`^[.,!?;]`),
		// Characters that don't get an EOC put after them.
		eocExcRegex: regexp.MustCompile(`^[.,!?;]`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewStream returns a stateful stream of tokens read from r.
func (t *Tokenizer) NewStream(r io.Reader) *Stream {
	return &Stream{
		scanner:    bufio.NewScanner(r),
		splitRegex: t.separatorRegex,
		eocRegex:   t.eocRegex,
	}
}

// Runs reads r to the end and returns one run per sentence. The token ending a
// sentence is kept as the last Value of its run; trailing text without a
// terminator forms a final run.
func (t *Tokenizer) Runs(r io.Reader) ([][]markov.Value, error) {
	stream := t.NewStream(r)
	var runs [][]markov.Value
	var current []markov.Value

	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}

		current = append(current, token.Text)
		if token.EOC || len(current) >= maxRunLength {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs, nil
}

// Join renders a walk back to text. String Values are joined with the
// separator, except before punctuation, and the EOC string is appended unless
// the walk already ends in punctuation. Other Values are formatted with %v.
func (t *Tokenizer) Join(values []markov.Value) string {
	var builder strings.Builder
	var last string

	for i, v := range values {
		text, ok := v.(string)
		if !ok {
			text = fmt.Sprint(v)
		}
		if i > 0 && !t.separatorExcRegex.MatchString(text) {
			builder.WriteString(t.separator)
		}
		builder.WriteString(text)
		last = text
	}
	if len(values) > 0 && !t.eocExcRegex.MatchString(last) {
		builder.WriteString(t.eoc)
	}
	return builder.String()
}

// Stream uses a bufio.Scanner and regular expressions to read and tokenize a
// stream.
type Stream struct {
	scanner    *bufio.Scanner
	buffer     []string
	splitRegex *regexp.Regexp
	eocRegex   *regexp.Regexp
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns a nil Token and io.EOF. Any other error indicates a problem
// reading from the underlying stream.
func (s *Stream) Next() (*Token, error) {
	for len(s.buffer) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.buffer = s.splitRegex.FindAllString(s.scanner.Text(), -1)
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]

	return &Token{Text: word, EOC: s.eocRegex.MatchString(word)}, nil
}
