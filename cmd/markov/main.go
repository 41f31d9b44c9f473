package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/CTAG07/markov-chains/pkg/markov"
	"github.com/CTAG07/markov-chains/pkg/store"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const defaultConfigPath = "./config.json"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a subcommand. It is separate from main so the commands can be
// driven from tests with their own input and output.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errors.New("subcommand required")
	}

	c := &command{stdin: stdin, stdout: stdout}
	err := c.dispatch(args[0], args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func (c *command) dispatch(subcommand string, args []string) error {
	switch subcommand {
	case "train":
		return c.runTrain(args)
	case "walk":
		return c.runWalk(args)
	case "move":
		return c.runMove(args)
	case "export":
		return c.runExport(args)
	case "import":
		return c.runImport(args)
	case "list":
		return c.runList(args)
	case "stats":
		return c.runStats(args)
	case "prune":
		return c.runPrune(args)
	case "remove":
		return c.runRemove(args)
	case "serve":
		return c.runServe(args)
	case "version":
		fmt.Fprintf(c.stdout, "markov %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return nil
	case "-h", "--help", "help":
		printUsage(c.stdout)
		return nil
	default:
		printUsage(c.stdout)
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: markov <subcommand> [flags]

Subcommands:
  train     Build a chain from text or a JSON corpus and store it
  walk      Generate walks from a stored chain
  move      Sample the value following a state
  export    Write a stored chain as a JSON document
  import    Store a chain read from a JSON document
  list      List stored chains
  stats     Print statistics for a stored chain
  prune     Remove rare transitions from a stored chain
  remove    Delete a stored chain
  serve     Serve stored chains over HTTP
  version   Print version information

Run 'markov <subcommand> --help' for subcommand flags.
`)
}

// command carries the streams shared by every subcommand.
type command struct {
	stdin  io.Reader
	stdout io.Writer
}

// app holds the resources opened from the configuration for one command.
type app struct {
	config *Config
	logger *slog.Logger
	db     *sql.DB
	store  *store.Store
}

// newFlagSet returns a flag set for a subcommand carrying the shared --config
// flag.
func newFlagSet(name string, configPath *string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringVar(configPath, "config", defaultConfigPath, "path to the JSON configuration file")
	return flags
}

// parseFlags parses args and checks that exactly nArgs positional arguments
// remain, or at least nArgs when atLeast is set.
func parseFlags(flags *pflag.FlagSet, args []string, nArgs int, atLeast bool) error {
	if err := flags.Parse(args); err != nil {
		return err
	}
	n := flags.NArg()
	if n == nArgs || (atLeast && n > nArgs) {
		return nil
	}
	flags.Usage()
	if nArgs == 1 && !atLeast {
		return errors.New("a chain name is required")
	}
	return fmt.Errorf("expected %d arguments, got %d", nArgs, n)
}

// openApp loads the configuration and opens the chain store.
func (c *command) openApp(configPath string) (*app, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so command output stays machine readable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	dbFile, _, _ := strings.Cut(config.DatabasePath, "?")
	if dir := filepath.Dir(dbFile); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openDB(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup chain schema: %w", err)
	}

	s, err := store.NewStore(db, markov.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create chain store: %w", err)
	}
	s.SetLogger(logger)

	return &app{config: config, logger: logger, db: db, store: s}, nil
}

func (a *app) Close() {
	a.store.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}
