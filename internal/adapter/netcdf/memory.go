package netcdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
)

// MemVariable is an in-memory netCDF variable.
type MemVariable struct {
	Attrs  map[string]string
	Values []float64
}

func (v *MemVariable) Attribute(name string) (string, bool) {
	s, ok := v.Attrs[name]
	return s, ok
}

func (v *MemVariable) Float64s() ([]float64, error) { return v.Values, nil }

// MemFile is an in-memory netCDF file, for streams decoded elsewhere and for
// tests.
type MemFile struct {
	Attrs map[string]string
	order []string
	vars  map[string]*MemVariable
}

// NewMemFile creates a MemFile with the given global attributes.
func NewMemFile(attrs map[string]string) *MemFile {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &MemFile{Attrs: attrs, vars: map[string]*MemVariable{}}
}

// AddVariable appends a variable, keeping insertion order.
func (f *MemFile) AddVariable(name string, attrs map[string]string, values ...float64) *MemFile {
	if _, exists := f.vars[name]; !exists {
		f.order = append(f.order, name)
	}
	f.vars[name] = &MemVariable{Attrs: attrs, Values: values}
	return f
}

func (f *MemFile) Attribute(name string) (string, bool) {
	s, ok := f.Attrs[name]
	return s, ok
}

func (f *MemFile) VariableNames() []string {
	return append([]string(nil), f.order...)
}

func (f *MemFile) Variable(name string) (domain.Variable, error) {
	v, ok := f.vars[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrMissingVariable)
	}
	return v, nil
}

func (f *MemFile) Close() error { return nil }

// MemOpener serves registered MemFiles by URI.
type MemOpener struct {
	mu    sync.Mutex
	files map[string]*MemFile
}

// NewMemOpener creates an empty MemOpener.
func NewMemOpener() *MemOpener {
	return &MemOpener{files: map[string]*MemFile{}}
}

// Register makes f available under uri.
func (o *MemOpener) Register(uri string, f *MemFile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[uri] = f
}

// Open returns the file registered under uri, or an error wrapping
// domain.ErrOpen.
func (o *MemOpener) Open(_ context.Context, uri string) (domain.File, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.files[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such file", domain.ErrOpen, uri)
	}
	return f, nil
}
