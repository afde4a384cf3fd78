package config

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// Operation names accepted by --op.
const (
	OpSelectColumns     = "select_columns"
	OpCorrelationMatrix = "correlation_matrix"
)

// ErrHelp is returned by ParseArgs when -h or --help was given.
var ErrHelp = flag.ErrHelp

// Options is one invocation's command line.
type Options struct {
	Op         string `validate:"required,oneof=select_columns correlation_matrix"`
	IndexCol   *int   `validate:"omitempty,gte=0"`
	OutputFile string
	Columns    string   `validate:"required"`
	Files      []string `validate:"min=1,dive,required"`

	// Unknown holds arguments that were not recognised. They are tolerated.
	Unknown []string `validate:"-"`
}

// valueFlags are the recognised options that take a value.
var valueFlags = map[string]struct{}{
	"op":          {},
	"index_col":   {},
	"output_file": {},
	"columns":     {},
}

// ParseArgs reads args (without the program name). Unrecognised options and
// positionals after the file list are collected in Options.Unknown.
func ParseArgs(args []string) (*Options, error) {
	known, positional, unknown := splitArgs(args)

	opts := &Options{}
	fs := newFlagSet(opts)
	var indexCol int
	fs.IntVar(&indexCol, "index_col", 0, "zero-based column index used as row identifier (default none)")

	if err := fs.Parse(known); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, errors.NewInvalidArgumentError(err.Error())
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "index_col" {
			opts.IndexCol = &indexCol
		}
	})

	positional = append(positional, fs.Args()...)
	if len(positional) > 0 {
		opts.Files = splitList(positional[0])
		unknown = append(unknown, positional[1:]...)
	}
	opts.Unknown = unknown
	return opts, nil
}

// Usage writes the command-line synopsis and option defaults to w.
func Usage(w io.Writer) {
	fs := newFlagSet(&Options{})
	fs.Int("index_col", 0, "zero-based column index used as row identifier (default none)")
	fs.SetOutput(w)
	fmt.Fprintln(w, "usage: tabkit [--op OP] [--index_col N] [--output_file PATH] [--columns SPEC] FILES")
	fmt.Fprintln(w, "\nFILES is a comma separated list of .csv or .tsv paths.")
	fs.PrintDefaults()
}

func newFlagSet(opts *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("tabkit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Op, "op", OpSelectColumns, "operation: select_columns or correlation_matrix")
	fs.StringVar(&opts.OutputFile, "output_file", "", "output path ending in .csv or .tsv (default console)")
	fs.StringVar(&opts.Columns, "columns", "", "select_columns: a,b,c; correlation_matrix: a,b:c,d")
	return fs
}

// splitArgs separates recognised options from positionals and unknown options.
func splitArgs(args []string) (known, positional, unknown []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		switch {
		case name == "h" || name == "help":
			known = append(known, arg)
		case isValueFlag(name):
			known = append(known, arg)
			if !hasValue && i+1 < len(args) {
				known = append(known, args[i+1])
				i++
			}
		default:
			unknown = append(unknown, arg)
		}
	}
	return known, positional, unknown
}

func isValueFlag(name string) bool {
	_, ok := valueFlags[name]
	return ok
}

func splitList(s string) []string {
	return strings.Split(s, ",")
}

// Validate checks option values and file extensions.
func (o *Options) Validate() error {
	if err := structValidator.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			return errors.NewInvalidArgumentError(describe(verrs[0]))
		}
		return errors.NewInvalidArgumentError(err.Error())
	}

	for _, f := range o.Files {
		if _, err := dataset.Resolve(f); err != nil {
			return err
		}
	}
	if o.OutputFile != "" {
		if _, err := dataset.Resolve(o.OutputFile); err != nil {
			return err
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Op":
		return fmt.Sprintf("--op must be one of %s, %s; got %q", OpSelectColumns, OpCorrelationMatrix, fe.Value())
	case "IndexCol":
		return "--index_col must be a non-negative integer"
	case "Columns":
		return "--columns is required"
	default:
		if strings.HasPrefix(fe.Namespace(), "Options.Files") {
			return "a comma separated list of input files is required"
		}
		return fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag())
	}
}

// LogAttrs returns the options as log attributes.
func (o *Options) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("op", o.Op),
		slog.String("columns", o.Columns),
		slog.Any("files", o.Files),
	}
	if o.IndexCol != nil {
		attrs = append(attrs, slog.Int("index_col", *o.IndexCol))
	}
	if o.OutputFile != "" {
		attrs = append(attrs, slog.String("output_file", o.OutputFile))
	}
	return attrs
}
