package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"tabkit/internal/errors"
)

// missingTokens are field values read as the missing-value marker.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
}

const utf8BOM = "\ufeff"

// LoadOptions configures how a file is turned into a Dataset.
type LoadOptions struct {
	// IndexCol is the zero-based column used as row identifier; nil means none.
	IndexCol *int
}

// Loader reads delimited files into datasets.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader that reports through logger.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the whole file described by spec. The first record is the header.
func (l *Loader) Load(ctx context.Context, spec FileSpec, opts LoadOptions) (*Dataset, error) {
	l.logger.InfoContext(ctx, "Reading file",
		slog.String("path", spec.Path),
		slog.String("delimiter", spec.Delimiter.String()))

	f, err := os.Open(spec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(spec.Path)
		}
		return nil, errors.NewPermissionError(fmt.Sprintf("cannot open %s", spec.Path), err)
	}
	defer f.Close()

	ds, err := l.read(spec.Path, f, spec.Delimiter, opts)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Loaded dataset",
		slog.String("path", spec.Path),
		slog.Int("rows", ds.NumRows()),
		slog.Int("columns", len(ds.Columns)),
		slog.Any("column_names", ds.Columns),
		slog.String("index", ds.IndexName()))

	return ds, nil
}

func (l *Loader) read(name string, src io.Reader, delim Delimiter, opts LoadOptions) (*Dataset, error) {
	r := csv.NewReader(src)
	r.Comma = rune(delim)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.NewEmptyFileError(name)
	}
	if err != nil {
		return nil, errors.NewParsingError(name, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	seen := make(map[string]struct{}, len(header))
	for _, col := range header {
		if _, dup := seen[col]; dup {
			return nil, errors.NewDuplicateColumnError(col, name)
		}
		seen[col] = struct{}{}
	}

	indexCol := -1
	if opts.IndexCol != nil {
		indexCol = *opts.IndexCol
		if indexCol < 0 || indexCol >= len(header) {
			return nil, errors.NewInvalidArgumentError(
				fmt.Sprintf("index column %d is out of range for %s with %d columns", indexCol, name, len(header)))
		}
	}

	columns := make([]string, 0, len(header))
	for i, col := range header {
		if i != indexCol {
			columns = append(columns, col)
		}
	}

	var index *Index
	if indexCol >= 0 {
		index = &Index{Name: header[indexCol]}
	}

	var rows [][]Cell
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError(name, err)
		}
		if len(rec) != len(header) {
			line, _ := r.FieldPos(0)
			return nil, errors.NewMalformedRowError(name, line, len(rec), len(header))
		}

		row := make([]Cell, 0, len(columns))
		for i, field := range rec {
			if i == indexCol {
				index.Keys = append(index.Keys, field)
				continue
			}
			row = append(row, parseCell(field))
		}
		rows = append(rows, row)
	}

	if index != nil && index.Keys == nil {
		index.Keys = []string{}
	}

	return New(name, columns, rows, index), nil
}

func parseCell(field string) Cell {
	if _, ok := missingTokens[field]; ok {
		return Missing()
	}
	return Value(field)
}
