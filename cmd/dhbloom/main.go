// dhbloom builds Bloom filters from line-oriented files and answers
// membership queries against them.
//
// Usage Examples
// ==============
//
// Build a filter from one item per line and save it:
//
//	dhbloom build -in users.txt -out users.dhb -p 0.001
//
// Query a saved filter, one item per line from a file or stdin:
//
//	dhbloom query -filter users.dhb candidates.txt
//
// Build in memory and query in one step:
//
//	dhbloom check -in users.txt candidates.txt
//
// Inspect a saved filter:
//
//	dhbloom stats -filter users.dhb
//
// Output
// ======
//
// query and check print one line per query, "<item>\tyes" when the item may
// be present and "<item>\tno" when it definitely is not. Blank lines are
// ignored in both item and query input.
//
// Exit Codes
// ==========
//
// 0: Success.
// 1: Invalid parameters or an unreadable/corrupted file.
// 2: Usage error.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jcalabro/dhbloom"
)

const usageText = `usage: dhbloom <command> [flags] [queries]

commands:
  build   build a filter from -in and write it to -out
  query   query a saved -filter with lines from a file or stdin
  check   build a filter from -in in memory and query it
  stats   print the parameters of a saved -filter

run "dhbloom <command> -h" for command flags
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "build":
		err = runBuild(rest, stdin, stderr)
	case "query":
		err = runQuery(rest, stdin, stdout, stderr)
	case "check":
		err = runCheck(rest, stdin, stdout, stderr)
	case "stats":
		err = runStats(rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usageText)
		return 0
	default:
		fmt.Fprintf(stderr, "[err] unknown command %q\n", cmd)
		fmt.Fprint(stderr, usageText)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "[err] %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "[err] %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage")

// newLogger returns a text logger on w; verbose enables debug records.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// filterFlags are the construction flags shared by build and check.
type filterFlags struct {
	in      string
	items   int
	fpRate  float64
	hash    string
	verbose bool
}

func (ff *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&ff.in, "in", "", "File with one item per line (\"-\" for stdin)")
	fs.IntVar(&ff.items, "n", 0, "Expected number of items (default: number of input lines)")
	fs.Float64Var(&ff.fpRate, "p", dhbloom.DefaultFPRate, "Target false positive rate, in (0, 1)")
	fs.StringVar(&ff.hash, "hash", dhbloom.DefaultHash.String(), "Base hash: xxh3, murmur3 or xxhash")
	fs.BoolVar(&ff.verbose, "v", false, "Verbose logging")
}

// build reads the items and inserts them into a freshly sized filter.
func (ff *filterFlags) build(stdin io.Reader, logger *slog.Logger) (*dhbloom.Filter, error) {
	if ff.in == "" {
		return nil, fmt.Errorf("%w: -in is required", errUsage)
	}
	hash, err := dhbloom.ParseHashAlgorithm(ff.hash)
	if err != nil {
		return nil, err
	}

	items, err := readLinesFrom(ff.in, stdin)
	if err != nil {
		return nil, err
	}

	expected := ff.items
	if expected == 0 {
		expected = len(items)
	}
	f, err := dhbloom.NewWithConfig(dhbloom.Config{
		ExpectedItems:     expected,
		FalsePositiveRate: ff.fpRate,
		Hash:              hash,
	})
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		f.InsertString(item)
	}
	if len(items) > expected {
		logger.Warn("more items than expected, false positive rate exceeds target",
			"items", len(items), "expected", expected,
			"target", ff.fpRate, "estimated", f.EstimatedFalsePositiveRate())
	}
	logger.Debug("built filter",
		"items", len(items), "expected", expected,
		"bits", f.BitCount(), "hashes", f.HashCount(), "hash", f.Hash())
	return f, nil
}

func runBuild(args []string, stdin io.Reader, stderr io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var ff filterFlags
	ff.register(fs)
	out := fs.String("out", "", "Output filter file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("%w: -out is required", errUsage)
	}

	logger := newLogger(stderr, ff.verbose)
	f, err := ff.build(stdin, logger)
	if err != nil {
		return err
	}

	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	logger.Info("wrote filter", "file", *out, "bytes", len(data),
		"items", f.Count(), "bits", f.BitCount(), "hashes", f.HashCount())
	return nil
}

func runQuery(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("filter", "", "Filter file written by build")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: -filter is required", errUsage)
	}

	f, err := loadFilter(*path)
	if err != nil {
		return err
	}
	newLogger(stderr, *verbose).Debug("loaded filter", "file", *path,
		"items", f.Count(), "bits", f.BitCount(), "hashes", f.HashCount(), "hash", f.Hash())

	return queryFrom(f, fs.Args(), stdin, stdout)
}

func runCheck(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var ff filterFlags
	ff.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ff.in == "-" && fs.NArg() == 0 {
		return fmt.Errorf("%w: items and queries cannot both come from stdin", errUsage)
	}

	f, err := ff.build(stdin, newLogger(stderr, ff.verbose))
	if err != nil {
		return err
	}
	return queryFrom(f, fs.Args(), stdin, stdout)
}

func runStats(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("filter", "", "Filter file written by build")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: -filter is required", errUsage)
	}

	f, err := loadFilter(*path)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "hash:            %s\n", f.Hash())
	fmt.Fprintf(stdout, "bits:            %d\n", f.BitCount())
	fmt.Fprintf(stdout, "hashes:          %d\n", f.HashCount())
	fmt.Fprintf(stdout, "items:           %d\n", f.Count())
	fmt.Fprintf(stdout, "fill ratio:      %.4f\n", f.EstimatedFillRatio())
	fmt.Fprintf(stdout, "est. fp rate:    %.6f\n", f.EstimatedFalsePositiveRate())
	return nil
}

func loadFilter(path string) (*dhbloom.Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := dhbloom.UnmarshalBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// membership is the query side of a filter.
type membership interface {
	ContainsString(s string) bool
}

// queryFrom answers every line of the files in paths, or of stdin when
// paths is empty.
func queryFrom(f membership, paths []string, stdin io.Reader, stdout io.Writer) error {
	w := bufio.NewWriter(stdout)
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	for _, path := range paths {
		queries, err := readLinesFrom(path, stdin)
		if err != nil {
			return err
		}
		writeAnswers(w, f, queries)
	}
	return w.Flush()
}

func writeAnswers(w io.Writer, f membership, queries []string) {
	for _, q := range queries {
		answer := "no"
		if f.ContainsString(q) {
			answer = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\n", q, answer)
	}
}

// readLinesFrom reads the non-blank lines of path, or of stdin for "-".
func readLinesFrom(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return readLines(stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return readLines(file)
}

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
