package storage

import (
	"github.com/sectionnet/register-store/model/register"
)

// OpLogs is the durable journal of register operations: one append-only
// log per address. The store does not interpret op contents and performs
// no validation beyond record framing; ordering and exclusion for a
// single address are the engine's job.
type OpLogs interface {
	// Append durably appends ops to the address's log in one fsynced
	// batch. After a crash the log never presents a partially written
	// record. Returns ErrOutOfSpace when the byte budget has no room.
	Append(addr register.Address, ops []register.Op) error

	// ReadAll returns the address's records in append order, or an empty
	// slice when no log exists. A torn trailing record is truncated away;
	// a checksum failure anywhere else returns ErrLogCorrupted.
	ReadAll(addr register.Address) ([]register.Op, error)

	// Size returns the current byte length of the address's log, with ok
	// false when no log exists. The length changes only on Append, so it
	// serves as a cheap projection-cache validator.
	Size(addr register.Address) (int64, bool, error)

	// Delete removes the address's log from disk. Deleting a missing log
	// is not an error.
	Delete(addr register.Address) error

	// Addresses enumerates all addresses with a log on disk.
	Addresses() ([]register.Address, error)
}
