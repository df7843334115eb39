package lkhd

import "errors"

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
	ErrRunExists    = errors.New("run already exists")
	ErrInvalidRunID = errors.New("invalid run_id")
	// ErrInvalidInput marks requests whose problem or parameters are rejected
	// before any solver work starts.
	ErrInvalidInput = errors.New("invalid run input")
)
