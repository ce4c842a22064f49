package domain

import (
	"context"
	"errors"
)

var (
	// ErrOpen marks an I/O level failure opening a file. It is the only open
	// failure that triggers the "#fillmismatch" fallback.
	ErrOpen = errors.New("open netcdf file")

	// ErrMissingVariable is returned when a required variable is absent.
	ErrMissingVariable = errors.New("missing variable")

	// ErrMissingAttribute is returned when a required attribute is absent.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrNoEntryID is returned when a file carries none of entry_id, id or
	// station_name.
	ErrNoEntryID = errors.New("no entry identifier attribute")

	// ErrUnsupportedURI is returned for URIs no opener can read, such as
	// OPeNDAP endpoints outside THREDDS. It never triggers a retry.
	ErrUnsupportedURI = errors.New("unsupported file uri")
)

// Attributes is read-only access to netCDF attributes. String attributes are
// returned as-is; numeric attributes are formatted.
type Attributes interface {
	Attribute(name string) (string, bool)
}

// Variable is a single netCDF variable.
type Variable interface {
	Attributes
	// Float64s returns the variable's samples converted to float64.
	Float64s() ([]float64, error)
}

// File is an opened netCDF file. Global attributes are exposed through the
// embedded Attributes.
type File interface {
	Attributes
	// VariableNames lists variables in file order.
	VariableNames() []string
	Variable(name string) (Variable, error)
	Close() error
}

// Opener opens a file addressed by URI.
type Opener interface {
	Open(ctx context.Context, uri string) (File, error)
}
