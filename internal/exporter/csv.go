package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// CSVWriter writes delimited files
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Delimiter dataset.Delimiter // zero means comma
}

// WriteCSV writes data to filePath with the given options. Any failure is
// reported as WRITE_FAILURE naming the path.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	// Ensure directory exists
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewWriteFailureError(filePath, err)
		}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return errors.NewWriteFailureError(filePath, err)
	}

	if err := w.write(file, options); err != nil {
		file.Close()
		return errors.NewWriteFailureError(filePath, err)
	}
	if err := file.Close(); err != nil {
		return errors.NewWriteFailureError(filePath, err)
	}
	return nil
}

func (w *CSVWriter) write(file *os.File, options WriteOptions) error {
	writer := csv.NewWriter(file)
	if options.Delimiter != 0 {
		writer.Comma = rune(options.Delimiter)
	}

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return err
		}
	}
	for _, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
