// Command recsort sorts delimited byte records, reproducing the
// comparison semantics of a single-byte, non-locale line sorter.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"recsort/internal/config"
	"recsort/internal/pipeline"
	"recsort/internal/record"
)

type cliFlags struct {
	reverse        bool
	numeric        bool
	foldCase       bool
	unique         bool
	stable         bool
	zeroTerminated bool
	debug          bool
	output         string
	fieldSep       string
	keys           []string
	memLimit       int64
	parallelism    int
}

func main() {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:           "recsort [flags] [FILE...]",
		Short:         "Sort lines of text",
		Long:          "Sort delimited byte records from FILEs (or standard input) by one or more keys.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(&flags)
			if err != nil {
				return &usageError{err}
			}
			return run(cfg, &flags, args)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.reverse, "reverse", "r", false, "reverse the result of comparisons")
	f.BoolVarP(&flags.numeric, "numeric-sort", "n", false, "compare according to numerical value")
	f.BoolVarP(&flags.foldCase, "ignore-case", "f", false, "compare case-insensitively (ASCII)")
	f.BoolVarP(&flags.unique, "unique", "u", false, "output only the first of an equal run")
	f.BoolVarP(&flags.stable, "stable", "s", false, "stabilize sort by disabling last-resort comparison")
	f.BoolVarP(&flags.zeroTerminated, "zero-terminated", "z", false, "record terminator is NUL, not newline")
	f.StringVarP(&flags.output, "output", "o", "", "write result to FILE instead of standard output")
	f.StringVarP(&flags.fieldSep, "field-separator", "t", "", "use SEP instead of blank-run field splitting")
	f.StringArrayVarP(&flags.keys, "key", "k", nil, "sort via a key; KEYDEF gives location and type")
	f.BoolVar(&flags.debug, "debug", false, "annotate the part of each record used to sort")
	f.Int64Var(&flags.memLimit, "buffer-size", 0, "per-chunk memory budget in bytes")
	f.IntVar(&flags.parallelism, "parallel", 0, "number of chunk-sort workers")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "recsort: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// usageError marks configuration-shape problems, reported with exit
// code 2 like other option-parsing failures.
type usageError struct {
	err error
}

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func buildConfig(flags *cliFlags) (*config.Config, error) {
	cfg := &config.Config{
		Reverse:        flags.reverse,
		Numeric:        flags.numeric,
		FoldCase:       flags.foldCase,
		Unique:         flags.unique,
		Stable:         flags.stable,
		ZeroTerminated: flags.zeroTerminated,
		Output:         flags.output,
	}

	if flags.fieldSep != "" {
		sep, err := parseFieldSeparator(flags.fieldSep)
		if err != nil {
			return nil, err
		}
		cfg.FieldSep = sep
		cfg.HasFieldSep = true
	}

	for _, def := range flags.keys {
		spec, err := config.ParseKey(def)
		if err != nil {
			return nil, err
		}
		cfg.Keys = append(cfg.Keys, spec)
	}
	return cfg, nil
}

// parseFieldSeparator accepts a single byte or the escapes \0, \t, \n
// and \\.
func parseFieldSeparator(s string) (byte, error) {
	switch s {
	case "\\0", "\x00":
		return 0, nil
	case "\\t":
		return '\t', nil
	case "\\n":
		return '\n', nil
	case "\\\\":
		return '\\', nil
	}
	if len(s) == 1 {
		return s[0], nil
	}
	return 0, fmt.Errorf("invalid field separator %q: must be a single byte", s)
}

func run(cfg *config.Config, flags *cliFlags, args []string) error {
	sources := make([]io.Reader, 0, len(args))
	var toClose []*os.File
	defer func() {
		for _, f := range toClose {
			f.Close()
		}
	}()

	if len(args) == 0 {
		sources = append(sources, os.Stdin)
	}
	for _, path := range args {
		if path == "-" {
			sources = append(sources, os.Stdin)
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		toClose = append(toClose, f)
		sources = append(sources, f)
	}

	opts := []pipeline.Option{}
	if flags.memLimit > 0 {
		opts = append(opts, pipeline.WithMemoryLimit(flags.memLimit))
	}
	if flags.parallelism > 0 {
		opts = append(opts, pipeline.WithParallelism(flags.parallelism))
	}
	if flags.debug {
		annotator := newAnnotator(os.Stderr, cfg)
		opts = append(opts, pipeline.WithRecordObserver(func(rec record.Record) {
			annotator.annotate(rec)
		}))
	}

	return pipeline.Run(cfg, sources, os.Stdout, opts...)
}
