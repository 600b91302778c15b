package registers

import (
	"fmt"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/storage"
)

// Write validates and persists a single signed command. The op's
// authority is verified first; the address's log is then reconstructed,
// the command applied against the projected state, and on success the op
// is appended durably. A failed write leaves storage unchanged.
func (e *Engine) Write(op register.Op) error {

	err := register.VerifyAuthority(op)
	if err != nil {
		return err
	}

	addr := op.Address()
	lock := e.locks.get(addr)
	lock.Lock()
	defer lock.Unlock()

	stored, err := e.loadStored(addr)
	if err != nil {
		return err
	}

	switch op := op.(type) {
	case *register.CreateOp:
		return e.applyCreate(stored, op)
	case *register.EditOp:
		return e.applyEdit(stored, op)
	case *register.DeleteOp:
		return e.applyDelete(stored, op)
	case *register.ExtendOp:
		return e.applyExtend(stored, op)
	default:
		return fmt.Errorf("unknown op type %s", op.Type())
	}
}

func (e *Engine) applyCreate(stored *storedRegister, op *register.CreateOp) error {

	if stored.state != nil {
		return fmt.Errorf("register at %s: %w", stored.addr, storage.ErrAlreadyExists)
	}

	err := op.Policy.Validate(stored.addr.Visibility)
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	state := register.New(stored.addr, op.Policy.Clone(), op.SizeCap)

	// Edits may have been journaled ahead of the create by replication.
	// Fold the applicable ones into the fresh projection; the rest were
	// artifacts that no longer satisfy invariants.
	if len(stored.log) > 0 {
		e.replay(state, stored.log)
	}

	err = e.append(stored.addr, op)
	if err != nil {
		return err
	}

	e.log.Debug().Str("address", stored.addr.String()).Msg("register created")

	return nil
}

func (e *Engine) applyEdit(stored *storedRegister, op *register.EditOp) error {

	if stored.state == nil {
		return fmt.Errorf("register at %s: %w", stored.addr, storage.ErrNotFound)
	}

	err := stored.state.CheckPermission(register.Author(op), register.ActionWrite)
	if err != nil {
		return err
	}

	// An edit whose entry is already merged applies as a no-op but is
	// still journaled: the log is authoritative and reconstruction must
	// remain stable under replayed traffic.
	err = stored.state.ApplyOp(op)
	if err != nil {
		return err
	}

	return e.append(stored.addr, op)
}

func (e *Engine) applyDelete(stored *storedRegister, op *register.DeleteOp) error {

	if stored.addr.Visibility != register.Private {
		return register.ErrCannotDeletePublic
	}
	if stored.state == nil {
		return fmt.Errorf("register at %s: %w", stored.addr, storage.ErrNotFound)
	}

	owner := stored.state.Owner()
	if register.Author(op) != owner {
		return register.InvalidOwnerError{Author: op.Auth.PublicKey, Owner: owner}
	}

	// The delete is physical: the log is removed whole, no tombstone is
	// kept, and a later create starts the address from scratch.
	err := e.logs.Delete(stored.addr)
	if err != nil {
		return fmt.Errorf("could not delete log: %w", err)
	}
	e.cache.invalidate(stored.addr)

	e.log.Debug().Str("address", stored.addr.String()).Msg("register deleted")

	return nil
}

func (e *Engine) applyExtend(stored *storedRegister, op *register.ExtendOp) error {

	if stored.state == nil {
		return fmt.Errorf("register at %s: %w", stored.addr, storage.ErrNotFound)
	}

	owner := stored.state.Owner()
	if register.Author(op) != owner {
		return register.InvalidOwnerError{Author: op.Auth.PublicKey, Owner: owner}
	}

	err := stored.state.ApplyOp(op)
	if err != nil {
		return err
	}

	return e.append(stored.addr, op)
}

// append persists ops for the address and drops its cached projection.
func (e *Engine) append(addr register.Address, ops ...register.Op) error {
	err := e.logs.Append(addr, ops)
	if err != nil {
		return fmt.Errorf("could not append to log: %w", err)
	}
	e.cache.invalidate(addr)
	return nil
}
