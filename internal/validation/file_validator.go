package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// FileValidator checks input and output paths before any data is read
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputFiles resolves every path to a FileSpec and checks that it is a
// readable regular file. The first failing path stops validation.
func (v *FileValidator) ValidateInputFiles(paths []string) ([]dataset.FileSpec, error) {
	v.logger.Info("Checking files", slog.Any("files", paths))

	specs := make([]dataset.FileSpec, 0, len(paths))
	for _, path := range paths {
		spec, err := dataset.NewFileSpec(path)
		if err != nil {
			return nil, err
		}
		if err := v.ValidateFile(path); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return errors.NewNotFoundError(path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewPermissionError(fmt.Sprintf("cannot stat %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return errors.NewInvalidArgumentError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewPermissionError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputFile resolves path to a FileSpec and checks that its parent
// directory exists or can be created below the nearest existing ancestor.
func (v *FileValidator) ValidateOutputFile(path string) (dataset.FileSpec, error) {
	spec, err := dataset.NewFileSpec(path)
	if err != nil {
		return dataset.FileSpec{}, err
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return dataset.FileSpec{}, errors.NewWriteFailureError(path, fmt.Errorf("%s is a directory", path))
	}

	dir := filepath.Dir(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				v.logger.Error("Output parent is not a directory",
					slog.String("path", path),
					slog.String("parent", dir))
				return dataset.FileSpec{}, errors.NewWriteFailureError(path, fmt.Errorf("%s is not a directory", dir))
			}
			break
		}
		if !os.IsNotExist(err) {
			return dataset.FileSpec{}, errors.NewWriteFailureError(path, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	v.logger.Debug("Output file validated",
		slog.String("file", path),
		slog.String("delimiter", spec.Delimiter.String()))
	return spec, nil
}
