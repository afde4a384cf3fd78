package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// Table is a labelled result ready for output.
type Table interface {
	Header() []string
	IndexName() string
	Labels() []string
	// Records renders cells for files, missing values as empty text.
	Records() [][]string
	// Display renders cells for people, missing values as NaN.
	Display() [][]string
}

// labelKeeper is implemented by tables whose row labels belong in file output.
type labelKeeper interface {
	KeepLabels() bool
}

// Sink is where a table goes: a console writer or a file.
type Sink struct {
	console io.Writer
	file    *dataset.FileSpec
}

// ConsoleSink writes aligned text to w.
func ConsoleSink(w io.Writer) Sink {
	return Sink{console: w}
}

// FileSink writes a delimited file described by spec.
func FileSink(spec dataset.FileSpec) Sink {
	return Sink{file: &spec}
}

// IsConsole reports whether the sink is a console.
func (s Sink) IsConsole() bool {
	return s.file == nil
}

func (s Sink) String() string {
	if s.file != nil {
		return s.file.Path
	}
	return "console"
}

// Emitter renders tables to sinks.
type Emitter struct {
	writer *CSVWriter
	logger *slog.Logger
}

// NewEmitter creates an emitter that reports through logger.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{writer: NewCSVWriter(logger), logger: logger}
}

// Emit writes table to sink.
func (e *Emitter) Emit(ctx context.Context, table Table, sink Sink) error {
	if sink.IsConsole() {
		if err := writeConsole(sink.console, table); err != nil {
			return errors.NewWriteFailureError(sink.String(), err)
		}
		e.logger.DebugContext(ctx, "Printed table", slog.Int("rows", len(table.Labels())))
		return nil
	}

	header, records := table.Header(), table.Records()
	if keep, ok := table.(labelKeeper); ok && keep.KeepLabels() {
		header, records = withLabels(table.IndexName(), header, table.Labels(), records)
	}

	if err := e.writer.WriteCSV(sink.file.Path, WriteOptions{
		Headers:   header,
		Records:   records,
		Delimiter: sink.file.Delimiter,
	}); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Wrote output file",
		slog.String("path", sink.file.Path),
		slog.String("delimiter", sink.file.Delimiter.String()),
		slog.Int("rows", len(records)),
		slog.Int("columns", len(header)))
	return nil
}

func withLabels(indexName string, header, labels []string, records [][]string) ([]string, [][]string) {
	h := make([]string, 0, len(header)+1)
	h = append(h, indexName)
	h = append(h, header...)

	out := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, 0, len(rec)+1)
		row = append(row, labels[i])
		out[i] = append(row, rec...)
	}
	return h, out
}

// writeConsole prints the label column followed by the table columns.
func writeConsole(w io.Writer, table Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	labels := table.Labels()
	if _, err := fmt.Fprintln(tw, strings.Join(append([]string{table.IndexName()}, table.Header()...), "\t")); err != nil {
		return err
	}
	for i, rec := range table.Display() {
		if _, err := fmt.Fprintln(tw, strings.Join(append([]string{labels[i]}, rec...), "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
