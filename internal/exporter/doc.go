// Package exporter emits result tables.
//
// CSVWriter is the low-level delimited file writer. Emitter renders a Table
// either to a console as aligned text or to a file through CSVWriter, using
// the delimiter derived from the output file's extension.
//
// Example usage:
//
//	emitter := exporter.NewEmitter(logger)
//	spec, err := dataset.NewFileSpec("out/result.tsv")
//	if err != nil {
//		return err
//	}
//	err = emitter.Emit(ctx, table, exporter.FileSink(spec))
package exporter
