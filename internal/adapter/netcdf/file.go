// Package netcdf adapts netCDF readers to domain.File.
package netcdf

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
)

// groupFile exposes the root group of a netCDF file as a domain.File.
type groupFile struct {
	group   api.Group
	onClose func() error
}

func newGroupFile(g api.Group, onClose func() error) *groupFile {
	return &groupFile{group: g, onClose: onClose}
}

func (f *groupFile) Attribute(name string) (string, bool) {
	return attribute(f.group.Attributes(), name)
}

func (f *groupFile) VariableNames() []string {
	return f.group.ListVariables()
}

func (f *groupFile) Variable(name string) (domain.Variable, error) {
	if !slices.Contains(f.group.ListVariables(), name) {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrMissingVariable)
	}
	v, err := f.group.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("get variable %s: %w", name, err)
	}
	return &variable{name: name, v: v}, nil
}

func (f *groupFile) Close() error {
	f.group.Close()
	if f.onClose != nil {
		return f.onClose()
	}
	return nil
}

type variable struct {
	name string
	v    *api.Variable
}

func (v *variable) Attribute(name string) (string, bool) {
	return attribute(v.v.Attributes, name)
}

func (v *variable) Float64s() ([]float64, error) {
	out, err := toFloat64s(v.v.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", v.name, err)
	}
	return out, nil
}

func attribute(m api.AttributeMap, name string) (string, bool) {
	if m == nil {
		return "", false
	}
	val, ok := m.Get(name)
	if !ok {
		return "", false
	}
	return formatAttribute(val), true
}

// formatAttribute renders an attribute value as text. Numeric vectors are
// space separated.
func formatAttribute(val any) string {
	switch x := val.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case []string:
		return strings.Join(x, " ")
	}
	if values, err := toFloat64s(val); err == nil {
		parts := make([]string, len(values))
		for i, f := range values {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(val)
}

// toFloat64s converts the numeric value shapes produced by the reader, scalars
// included, to a float64 slice.
func toFloat64s(values any) ([]float64, error) {
	switch x := values.(type) {
	case []float64:
		return x, nil
	case []float32:
		return convert(x), nil
	case []int8:
		return convert(x), nil
	case []int16:
		return convert(x), nil
	case []int32:
		return convert(x), nil
	case []int64:
		return convert(x), nil
	case []uint8:
		return convert(x), nil
	case []uint16:
		return convert(x), nil
	case []uint32:
		return convert(x), nil
	case []uint64:
		return convert(x), nil
	case float64:
		return []float64{x}, nil
	case float32:
		return []float64{float64(x)}, nil
	case int8:
		return []float64{float64(x)}, nil
	case int16:
		return []float64{float64(x)}, nil
	case int32:
		return []float64{float64(x)}, nil
	case int64:
		return []float64{float64(x)}, nil
	case uint8:
		return []float64{float64(x)}, nil
	case uint16:
		return []float64{float64(x)}, nil
	case uint32:
		return []float64{float64(x)}, nil
	case uint64:
		return []float64{float64(x)}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
