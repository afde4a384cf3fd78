package operations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
	"tabkit/internal/exporter"
)

// Operation is an analysis selectable with --op
type Operation interface {
	// Name is the value of --op that selects this operation
	Name() string

	// Apply runs the operation on the joined table with the --columns argument
	Apply(ctx context.Context, table *dataset.Dataset, columns string) (exporter.Table, error)
}

// Registry manages the registered operations
type Registry struct {
	operations map[string]Operation
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{operations: make(map[string]Operation)}
}

// Register adds an operation to the registry
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}

	name := op.Name()
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}
	if _, exists := r.operations[name]; exists {
		return fmt.Errorf("operation %s already registered", name)
	}

	r.operations[name] = op
	return nil
}

// Get retrieves an operation by name
func (r *Registry) Get(name string) (Operation, error) {
	op, exists := r.operations[name]
	if !exists {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown operation %q, valid operations are %s",
			name, strings.Join(r.Names(), ", ")))
	}
	return op, nil
}

// Names returns the registered operation names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.operations))
	for name := range r.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
