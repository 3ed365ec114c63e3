package storage

import "errors"

// Sentinel errors shared by every store implementation so services can
// translate them without knowing which backend is wired.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing one")
)
