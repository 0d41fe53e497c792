package modules

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/sequence"
)

// HandlersExport is the export catalogs read beat handlers from.
const HandlersExport = "handlers"

// ErrLoaderNotFound matches any *LoaderNotFoundError.
var ErrLoaderNotFound = errors.New("module loader not found")

// LoaderNotFoundError names the specifier no loader could serve.
type LoaderNotFoundError struct {
	Specifier string
}

func (e *LoaderNotFoundError) Error() string {
	return fmt.Sprintf("no loader for module %q", e.Specifier)
}

func (e *LoaderNotFoundError) Unwrap() error {
	return ErrLoaderNotFound
}

// RegisterFunc is the shape of a plugin's runtime registration export.
type RegisterFunc func(ctx context.Context, c conductor.Conductor) error

// Module is a loaded module and its named exports.
type Module struct {
	Specifier string
	Exports   map[string]any
}

// Export returns the named export.
func (m *Module) Export(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.Exports[name]
	return v, ok
}

// Handlers returns the module's handler map, accepting either the
// sequence.Handlers type or a plain map of handler funcs.
func (m *Module) Handlers() (sequence.Handlers, bool) {
	v, ok := m.Export(HandlersExport)
	if !ok {
		return nil, false
	}
	switch h := v.(type) {
	case sequence.Handlers:
		return h, true
	case map[string]sequence.Handler:
		return sequence.Handlers(h), true
	}
	return nil, false
}

// Register returns the named export as a RegisterFunc.
func (m *Module) Register(name string) (RegisterFunc, error) {
	v, ok := m.Export(name)
	if !ok {
		return nil, fmt.Errorf("module %q has no export %q", m.Specifier, name)
	}
	switch fn := v.(type) {
	case RegisterFunc:
		return fn, nil
	case func(context.Context, conductor.Conductor) error:
		return fn, nil
	}
	return nil, fmt.Errorf("export %q of module %q is not a register function (%T)", name, m.Specifier, v)
}

// ExportNames lists the module's exports, sorted.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.Exports))
	for name := range m.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
