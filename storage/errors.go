package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned when no register exists at the requested
	// address: no log on disk, or a log without a create op.
	ErrNotFound = errors.New("register not found")

	// ErrAlreadyExists is returned for a create command targeting an
	// address that already holds a register.
	ErrAlreadyExists = errors.New("register already exists")

	// ErrOutOfSpace is returned when an append would exceed the logical
	// byte budget of the store.
	ErrOutOfSpace = errors.New("byte budget exceeded")

	// ErrLogCorrupted is returned when a log record in the middle of a
	// file fails its checksum. The log is unrecoverable and the address
	// refuses further operations until operator intervention.
	ErrLogCorrupted = errors.New("op-log corrupted")
)
