package dataset

import (
	"strings"

	"tabkit/internal/errors"
)

// Delimiter is the field separator of a delimited file.
type Delimiter rune

const (
	Comma Delimiter = ','
	Tab   Delimiter = '\t'
)

// String returns a readable name for log output.
func (d Delimiter) String() string {
	switch d {
	case Comma:
		return "comma"
	case Tab:
		return "tab"
	default:
		return string(rune(d))
	}
}

// Resolve maps a file path to its delimiter from the extension.
// Only the exact, case-sensitive suffixes .csv and .tsv are accepted.
func Resolve(path string) (Delimiter, error) {
	switch {
	case strings.HasSuffix(path, ".csv"):
		return Comma, nil
	case strings.HasSuffix(path, ".tsv"):
		return Tab, nil
	default:
		return 0, errors.NewInvalidFormatError(path)
	}
}

// FileSpec pairs a path with the delimiter derived from it.
type FileSpec struct {
	Path      string
	Delimiter Delimiter
}

// NewFileSpec resolves path and returns its FileSpec.
func NewFileSpec(path string) (FileSpec, error) {
	d, err := Resolve(path)
	if err != nil {
		return FileSpec{}, err
	}
	return FileSpec{Path: path, Delimiter: d}, nil
}
