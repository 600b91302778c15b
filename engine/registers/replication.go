package registers

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/storage"
)

// GetReplica exports the address's persisted op-log verbatim for
// anti-entropy exchange. Ops are not re-signed; verification is the
// receiver's job.
func (e *Engine) GetReplica(addr register.Address) (*register.LogBundle, error) {
	lock := e.locks.get(addr)
	lock.RLock()
	defer lock.RUnlock()

	ops, err := e.logs.ReadAll(addr)
	if err != nil {
		return nil, fmt.Errorf("could not read log: %w", err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("register at %s: %w", addr, storage.ErrNotFound)
	}

	return &register.LogBundle{Address: addr, OpLog: ops}, nil
}

// ImportReplica merges a peer's op-log into the local store. Every op is
// independently re-verified; invalid or mis-addressed ops are dropped
// with a warning rather than aborting the batch, so a single corrupt op
// cannot poison catch-up. Ops already held are skipped, which makes the
// import idempotent, and ops may arrive in any order: edits whose create
// or parents are still missing are journaled now and projected once
// their preconditions arrive.
func (e *Engine) ImportReplica(bundle *register.LogBundle) error {

	addr := bundle.Address
	lock := e.locks.get(addr)
	lock.Lock()
	defer lock.Unlock()

	stored, err := e.loadStored(addr)
	if err != nil {
		return fmt.Errorf("could not load stored register: %w", err)
	}

	held := make(map[string]struct{}, len(stored.log))
	for _, op := range stored.log {
		held[string(register.EncodeOp(op))] = struct{}{}
	}

	var toAppend []register.Op
	var dropped *multierror.Error

	drop := func(op register.Op, reason string, err error) {
		e.metrics.OpDropped(reason)
		dropped = multierror.Append(dropped, fmt.Errorf("%s op dropped (%s): %w", op.Type(), reason, err))
	}

	for _, op := range bundle.OpLog {

		if op.Address() != addr {
			drop(op, "address_mismatch", register.AddressMismatchError{OpAddress: op.Address(), LogAddress: addr})
			continue
		}
		err := register.VerifyAuthority(op)
		if err != nil {
			drop(op, "invalid_authority", err)
			continue
		}

		key := string(register.EncodeOp(op))
		if _, ok := held[key]; ok {
			// Replayed replication traffic; already journaled.
			continue
		}

		switch op := op.(type) {

		case *register.CreateOp:
			if stored.state != nil {
				// The register exists; a differing create for the same
				// address can never win.
				drop(op, "already_exists", storage.ErrAlreadyExists)
				continue
			}
			err := op.Policy.Validate(addr.Visibility)
			if err != nil {
				drop(op, "invalid_policy", err)
				continue
			}
			stored.state = register.New(addr, op.Policy.Clone(), op.SizeCap)
			e.replay(stored.state, stored.log)

		case *register.EditOp:
			if stored.state != nil {
				err := stored.state.CheckPermission(register.Author(op), register.ActionWrite)
				if err != nil {
					drop(op, "access_denied", err)
					continue
				}
				err = stored.state.ApplyOp(op)
				if err != nil && !register.IsMissingParentError(err) {
					drop(op, "unappliable", err)
					continue
				}
				// A missing parent is journaled anyway: it becomes
				// projectable once the parent arrives in a later bundle.
			}

		case *register.DeleteOp:
			if addr.Visibility != register.Private {
				drop(op, "delete_public", register.ErrCannotDeletePublic)
				continue
			}
			if stored.state == nil {
				drop(op, "not_found", storage.ErrNotFound)
				continue
			}
			owner := stored.state.Owner()
			if register.Author(op) != owner {
				drop(op, "invalid_owner", register.InvalidOwnerError{Author: op.Auth.PublicKey, Owner: owner})
				continue
			}
			err := e.logs.Delete(addr)
			if err != nil {
				return fmt.Errorf("could not delete log: %w", err)
			}
			e.cache.invalidate(addr)
			// The address starts over; everything collected so far died
			// with the log.
			stored = &storedRegister{addr: addr}
			held = make(map[string]struct{})
			toAppend = nil
			continue

		case *register.ExtendOp:
			if stored.state != nil {
				owner := stored.state.Owner()
				if register.Author(op) != owner {
					drop(op, "invalid_owner", register.InvalidOwnerError{Author: op.Auth.PublicKey, Owner: owner})
					continue
				}
				err := stored.state.ApplyOp(op)
				if err != nil {
					drop(op, "unappliable", err)
					continue
				}
			}
		}

		held[key] = struct{}{}
		toAppend = append(toAppend, op)
		stored.log = append(stored.log, op)
	}

	if len(toAppend) > 0 {
		err = e.append(addr, toAppend...)
		if err != nil {
			return err
		}
	}

	if dropped != nil {
		e.log.Warn().Err(dropped.ErrorOrNil()).
			Str("address", addr.String()).
			Int("dropped", dropped.Len()).
			Msg("discarded ops while importing replica")
	}

	return nil
}
