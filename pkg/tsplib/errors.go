package tsplib

import "errors"

var (
	// ErrFormatMismatch indicates the graph directedness disagrees with the problem type
	// selected by the file extension, or the extension is not supported.
	ErrFormatMismatch = errors.New("tsplib: graph does not match problem format")
	// ErrMissingArgument indicates an m-PDTSP problem without demand, capacity or depot.
	ErrMissingArgument = errors.New("tsplib: missing argument")
	// ErrInvalidProblem indicates inconsistent problem data (ordering, demand rows, depot, weights).
	ErrInvalidProblem = errors.New("tsplib: invalid problem")
	// ErrNoTourSection indicates a tour file without a TOUR_SECTION keyword.
	ErrNoTourSection = errors.New("tsplib: TOUR_SECTION not found")
	// ErrNoDimension indicates a tour file whose header lacks an integer DIMENSION.
	ErrNoDimension = errors.New("tsplib: DIMENSION not found")
	// ErrMalformedTour indicates a truncated tour or a non-integer tour entry.
	ErrMalformedTour = errors.New("tsplib: malformed tour")
	// ErrMalformedProblem indicates a problem file that cannot be parsed back.
	ErrMalformedProblem = errors.New("tsplib: malformed problem file")
)
