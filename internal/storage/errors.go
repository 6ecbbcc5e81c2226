package storage

import "errors"

// Storage errors.
var (
	// ErrOutsideRoot indicates a path outside the configured storage roots.
	ErrOutsideRoot = errors.New("storage: path outside storage roots")
)
