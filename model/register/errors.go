package register

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchEntry is returned when a lookup targets an entry hash or a
	// policy user that the register does not hold.
	ErrNoSuchEntry = errors.New("no such entry")

	// ErrCannotDeletePublic is returned for delete commands targeting a
	// Public register. Public registers are permanent.
	ErrCannotDeletePublic = errors.New("public register cannot be deleted")
)

// AccessDeniedError is returned when the policy does not grant the
// requester the capability for the attempted action.
type AccessDeniedError struct {
	User   User
	Action Action
}

func (e AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied for user %s on action %s", e.User, e.Action)
}

// IsAccessDeniedError returns whether err is an AccessDeniedError.
func IsAccessDeniedError(err error) bool {
	var target AccessDeniedError
	return errors.As(err, &target)
}

// InvalidSignatureError is returned when an op's authority signature does
// not verify against the declared author key.
type InvalidSignatureError struct {
	Key PublicKey
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature by author %s", e.Key)
}

// IsInvalidSignatureError returns whether err is an InvalidSignatureError.
func IsInvalidSignatureError(err error) bool {
	var target InvalidSignatureError
	return errors.As(err, &target)
}

// InvalidOwnerError is returned when an op requiring owner authority was
// authored by a different key.
type InvalidOwnerError struct {
	Author PublicKey
	Owner  User
}

func (e InvalidOwnerError) Error() string {
	return fmt.Sprintf("author %s is not the register owner %s", e.Author, e.Owner)
}

// IsInvalidOwnerError returns whether err is an InvalidOwnerError.
func IsInvalidOwnerError(err error) bool {
	var target InvalidOwnerError
	return errors.As(err, &target)
}

// AddressMismatchError is returned when an op declares a different
// address than the log it is being applied to.
type AddressMismatchError struct {
	OpAddress  Address
	LogAddress Address
}

func (e AddressMismatchError) Error() string {
	return fmt.Sprintf("op address %s does not match log address %s", e.OpAddress, e.LogAddress)
}

// IsAddressMismatchError returns whether err is an AddressMismatchError.
func IsAddressMismatchError(err error) bool {
	var target AddressMismatchError
	return errors.As(err, &target)
}

// MissingParentError is returned by ApplyOp when an edit references a
// parent hash not yet present in the DAG. The engine treats it as a
// deferral signal during replay rather than a hard failure.
type MissingParentError struct {
	Parent EntryHash
}

func (e MissingParentError) Error() string {
	return fmt.Sprintf("parent entry %s not present", e.Parent)
}

// IsMissingParentError returns whether err is a MissingParentError.
func IsMissingParentError(err error) bool {
	var target MissingParentError
	return errors.As(err, &target)
}

// TooManyEntriesError is returned when an edit would exceed the
// register's size cap.
type TooManyEntriesError struct {
	Cap uint16
}

func (e TooManyEntriesError) Error() string {
	return fmt.Sprintf("register holds maximum number of entries (%d)", e.Cap)
}

// IsTooManyEntriesError returns whether err is a TooManyEntriesError.
func IsTooManyEntriesError(err error) bool {
	var target TooManyEntriesError
	return errors.As(err, &target)
}

// EntryTooBigError is returned when an edit payload exceeds MaxEntrySize.
type EntryTooBigError struct {
	Size int
}

func (e EntryTooBigError) Error() string {
	return fmt.Sprintf("entry of %d bytes exceeds maximum of %d", e.Size, MaxEntrySize)
}

// IsEntryTooBigError returns whether err is an EntryTooBigError.
func IsEntryTooBigError(err error) bool {
	var target EntryTooBigError
	return errors.As(err, &target)
}
