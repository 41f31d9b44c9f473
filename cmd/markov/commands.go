package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/CTAG07/markov-chains/pkg/corpus"
	"github.com/CTAG07/markov-chains/pkg/markov"
	"github.com/CTAG07/markov-chains/pkg/store"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// seededOptions returns the chain options for a --seed flag. A zero seed keeps
// the default random source.
func seededOptions(seed uint64) []markov.Option {
	if seed == 0 {
		return nil
	}
	return []markov.Option{markov.WithRand(rand.New(rand.NewPCG(seed, seed)))}
}

// loadChain reads a chain from the document at file when it is set, and from
// the store otherwise.
func (a *app) loadChain(ctx context.Context, name, file string, opts ...markov.Option) (*markov.Chain, error) {
	if file != "" {
		return store.ReadFile(file, append([]markov.Option{markov.WithLogger(a.logger)}, opts...)...)
	}
	return a.store.Load(ctx, name, opts...)
}

// readCorpus turns every input into runs. Text inputs are split by the
// tokenizer; JSON inputs must be arrays of runs.
func readCorpus(inputs []io.Reader, format string) ([][]markov.Value, error) {
	tokenizer := corpus.NewTokenizer()
	var runs [][]markov.Value
	for _, r := range inputs {
		var batch [][]markov.Value
		var err error
		switch format {
		case formatText:
			batch, err = tokenizer.Runs(r)
		case formatJSON:
			batch, err = markov.DecodeCorpus(r)
		default:
			return nil, fmt.Errorf("unknown corpus format %q", format)
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, batch...)
	}
	return runs, nil
}

// runTrain builds a chain from corpus files, or stdin, and stores it.
func (c *command) runTrain(args []string) error {
	var (
		configPath string
		stateSize  int
		format     string
		output     string
	)
	flags := newFlagSet("train", &configPath)
	flags.IntVarP(&stateSize, "state-size", "s", 0, "number of values in a state (default from config)")
	flags.StringVarP(&format, "format", "f", formatText, "corpus format: text or json")
	flags.StringVarP(&output, "output", "o", "", "write the chain document to this file instead of the store")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: markov train <name> [files...] [flags]")
		flags.PrintDefaults()
	}
	if err := parseFlags(flags, args, 1, true); err != nil {
		return err
	}
	name := flags.Arg(0)

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if stateSize == 0 {
		stateSize = a.config.StateSize
	}

	inputs := []io.Reader{c.stdin}
	if files := flags.Args()[1:]; len(files) > 0 {
		inputs = inputs[:0]
		for _, path := range files {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open corpus: %w", err)
			}
			defer f.Close()
			inputs = append(inputs, f)
		}
	}

	runs, err := readCorpus(inputs, format)
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}

	start := time.Now()
	chain, err := markov.New(runs, markov.WithStateSize(stateSize), markov.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to build chain: %w", err)
	}
	a.logger.Info("Training finished", "chain_name", name, "runs", len(runs), "duration", time.Since(start))

	if output != "" {
		if err = store.WriteFile(output, chain); err != nil {
			return err
		}
	} else {
		ctx, stop := signalContext()
		defer stop()
		if err = a.store.Save(ctx, name, chain); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.stdout, "Trained chain %q: %d states from %d runs (state size %d)\n",
		name, chain.Model().Len(), len(runs), chain.StateSize())
	return nil
}

// runWalk prints generated walks, one per line.
func (c *command) runWalk(args []string) error {
	var (
		configPath string
		count      int
		maxLength  int
		raw        bool
		seed       uint64
		file       string
	)
	flags := newFlagSet("walk", &configPath)
	flags.IntVarP(&count, "count", "n", 1, "number of walks to generate")
	flags.IntVar(&maxLength, "max-length", -1, "maximum values per walk, 0 for unbounded (default from config)")
	flags.BoolVar(&raw, "raw", false, "print each walk as a JSON array instead of text")
	flags.Uint64Var(&seed, "seed", 0, "seed for reproducible walks")
	flags.StringVar(&file, "file", "", "read the chain from a document file instead of the store")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: markov walk <name> [flags]")
		flags.PrintDefaults()
	}
	if err := parseChainFlags(flags, args, &file); err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("--count must be positive, got %d", count)
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if maxLength < 0 {
		maxLength = a.config.MaxLength
	}

	ctx, stop := signalContext()
	defer stop()
	chain, err := a.loadChain(ctx, flags.Arg(0), file, seededOptions(seed)...)
	if err != nil {
		return err
	}

	tokenizer := corpus.NewTokenizer()
	for range count {
		walk := chain.Walk(markov.WithMaxLength(maxLength))
		if !raw {
			fmt.Fprintln(c.stdout, tokenizer.Join(walk))
			continue
		}
		line, err := json.Marshal(walk)
		if err != nil {
			return fmt.Errorf("failed to encode walk: %w", err)
		}
		fmt.Fprintln(c.stdout, string(line))
	}
	return nil
}

// runMove samples one value following a state given as a JSON array. States
// shorter than the chain's state size are padded with beginning markers, so
// an omitted state samples a starting value.
func (c *command) runMove(args []string) error {
	var (
		configPath string
		seed       uint64
		file       string
	)
	flags := newFlagSet("move", &configPath)
	flags.Uint64Var(&seed, "seed", 0, "seed for a reproducible draw")
	flags.StringVar(&file, "file", "", "read the chain from a document file instead of the store")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: markov move <name> ['["value", ...]'] [flags]`)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	name, stateArg, maxArgs := flags.Arg(0), flags.Arg(1), 2
	if file != "" {
		// Without a chain name the only positional argument is the state.
		name, stateArg, maxArgs = "", flags.Arg(0), 1
	}
	if (file == "" && name == "") || flags.NArg() > maxArgs {
		flags.Usage()
		return errors.New("a chain name and at most one state are required")
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	chain, err := a.loadChain(ctx, name, file, seededOptions(seed)...)
	if err != nil {
		return err
	}

	state, err := parseState(stateArg, chain.StateSize())
	if err != nil {
		return err
	}
	next, ok := chain.Move(state)
	if !ok {
		return errors.New("no transitions from state")
	}
	out, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	fmt.Fprintln(c.stdout, string(out))
	return nil
}

// parseState decodes a JSON array into a state of stateSize values, padding it
// on the left with beginning markers.
func parseState(arg string, stateSize int) (markov.State, error) {
	var values []markov.Value
	if arg != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("state must be a JSON array: %w", err)
		}
	}
	if len(values) > stateSize {
		return nil, fmt.Errorf("state has %d values but the chain's state size is %d", len(values), stateSize)
	}
	state := make(markov.State, 0, stateSize)
	for range stateSize - len(values) {
		state = append(state, markov.Begin)
	}
	return append(state, values...), nil
}

// runExport writes a stored chain's document to stdout or a file.
func (c *command) runExport(args []string) error {
	var configPath, output string
	flags := newFlagSet("export", &configPath)
	flags.StringVarP(&output, "output", "o", "", "write the document to this file instead of stdout")
	if err := parseFlags(flags, args, 1, false); err != nil {
		return err
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	chain, err := a.store.Load(ctx, flags.Arg(0))
	if err != nil {
		return err
	}
	if output != "" {
		return store.WriteFile(output, chain)
	}
	return chain.Export(c.stdout)
}

// runImport stores a chain read from a document file, or stdin.
func (c *command) runImport(args []string) error {
	var configPath string
	flags := newFlagSet("import", &configPath)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: markov import <name> [file] [flags]")
		flags.PrintDefaults()
	}
	if err := parseFlags(flags, args, 1, true); err != nil {
		return err
	}
	if flags.NArg() > 2 {
		flags.Usage()
		return errors.New("at most one document file can be imported")
	}
	name := flags.Arg(0)

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	r := c.stdin
	if path := flags.Arg(1); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		r = f
	}
	chain, err := markov.Import(r, markov.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to import chain: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()
	if err = a.store.Save(ctx, name, chain); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Imported chain %q: %d states (state size %d)\n", name, chain.Model().Len(), chain.StateSize())
	return nil
}

// runList prints every stored chain.
func (c *command) runList(args []string) error {
	var configPath string
	var asJSON bool
	flags := newFlagSet("list", &configPath)
	flags.BoolVar(&asJSON, "json", false, "print the list as JSON")
	if err := parseFlags(flags, args, 0, false); err != nil {
		return err
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	infos, err := a.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chains: %w", err)
	}

	if asJSON {
		return writeJSON(c.stdout, infos)
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE SIZE\tSTATES\tUPDATED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", info.Name, info.StateSize, info.States, info.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// runStats prints the statistics of a stored chain as JSON.
func (c *command) runStats(args []string) error {
	var configPath, file string
	flags := newFlagSet("stats", &configPath)
	flags.StringVar(&file, "file", "", "read the chain from a document file instead of the store")
	if err := parseChainFlags(flags, args, &file); err != nil {
		return err
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	chain, err := a.loadChain(ctx, flags.Arg(0), file)
	if err != nil {
		return err
	}
	return writeJSON(c.stdout, chain.Stats())
}

// runPrune removes transitions seen at most --min-count times, storing the
// result under the same name or the one given by --as.
func (c *command) runPrune(args []string) error {
	var (
		configPath string
		minCount   int
		as         string
	)
	flags := newFlagSet("prune", &configPath)
	flags.IntVar(&minCount, "min-count", 1, "drop transitions seen this many times or fewer")
	flags.StringVar(&as, "as", "", "store the pruned chain under this name instead of replacing it")
	if err := parseFlags(flags, args, 1, false); err != nil {
		return err
	}
	name := flags.Arg(0)
	if as == "" {
		as = name
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	chain, err := a.store.Load(ctx, name)
	if err != nil {
		return err
	}
	pruned := chain.Prune(minCount)
	if err = a.store.Save(ctx, as, pruned); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Pruned chain %q into %q: %d of %d states kept\n", name, as, pruned.Model().Len(), chain.Model().Len())
	return nil
}

// runRemove deletes a stored chain.
func (c *command) runRemove(args []string) error {
	var configPath string
	flags := newFlagSet("remove", &configPath)
	if err := parseFlags(flags, args, 1, false); err != nil {
		return err
	}

	a, err := c.openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	if err = a.store.Remove(ctx, flags.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Removed chain %q\n", flags.Arg(0))
	return nil
}

// parseChainFlags parses the flags of a command reading one chain. The chain
// name may be omitted when the chain is read from the file flag instead.
func parseChainFlags(flags *pflag.FlagSet, args []string, file *string) error {
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 1 || (flags.NArg() == 0 && *file != "") {
		return nil
	}
	flags.Usage()
	return errors.New("a chain name or --file is required")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
