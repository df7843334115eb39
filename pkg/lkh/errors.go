package lkh

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is the root of every parameter and solver configuration error.
	ErrConfig = errors.New("lkh: configuration error")
	// ErrUnknownParameter indicates a parameter name outside the schema.
	ErrUnknownParameter = fmt.Errorf("%w: unknown parameter", ErrConfig)
	// ErrInvalidParameter indicates a value the solver would reject.
	ErrInvalidParameter = fmt.Errorf("%w: invalid parameter", ErrConfig)
	// ErrFilesystem indicates the working directories could not be created or written.
	ErrFilesystem = errors.New("lkh: filesystem error")
)
