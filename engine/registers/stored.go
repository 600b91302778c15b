package registers

import (
	"fmt"

	"github.com/ef-ds/deque"

	"github.com/sectionnet/register-store/model/register"
)

// storedRegister is the in-memory bundle for one address while it is
// being processed: the persisted op-log plus the state projected from
// it. The state stays nil until a create op for the address is known;
// edits received ahead of the create are retained in the log and only
// become part of the projection once the create arrives.
type storedRegister struct {
	addr  register.Address
	state *register.Register
	log   []register.Op
}

func (s *storedRegister) clone() *storedRegister {
	cloned := &storedRegister{
		addr: s.addr,
		log:  append([]register.Op(nil), s.log...),
	}
	if s.state != nil {
		cloned.state = s.state.Clone()
	}
	return cloned
}

// loadStored reconstructs the address's bundle from its persisted log,
// consulting the projection cache first. The returned bundle is the
// caller's to mutate.
func (e *Engine) loadStored(addr register.Address) (*storedRegister, error) {

	size, exists, err := e.logs.Size(addr)
	if err != nil {
		return nil, fmt.Errorf("could not stat log: %w", err)
	}
	if exists {
		if stored, ok := e.cache.get(addr, size); ok {
			return stored.clone(), nil
		}
	}

	ops, err := e.logs.ReadAll(addr)
	if err != nil {
		return nil, fmt.Errorf("could not read log: %w", err)
	}

	stored := e.reconstruct(addr, ops)

	// ReadAll may have truncated a torn tail, so measure again before
	// caching.
	size, exists, err = e.logs.Size(addr)
	if err != nil {
		return nil, fmt.Errorf("could not stat log: %w", err)
	}
	if exists {
		e.cache.put(addr, size, stored)
		return stored.clone(), nil
	}

	return stored, nil
}

// reconstruct projects the register state from its op-log. The log is
// trusted at this point: every record passed authority verification
// before it was persisted, so only the create op's signature is checked
// again before it anchors a projection.
func (e *Engine) reconstruct(addr register.Address, ops []register.Op) *storedRegister {

	stored := &storedRegister{
		addr: addr,
		log:  ops,
	}

	for _, op := range ops {
		create, ok := op.(*register.CreateOp)
		if !ok {
			continue
		}
		if create.Address() != addr {
			e.log.Warn().Str("address", addr.String()).Msg("skipping mis-addressed create in log")
			continue
		}
		err := register.VerifyAuthority(create)
		if err != nil {
			e.log.Warn().Err(err).Str("address", addr.String()).Msg("skipping create with invalid authority in log")
			continue
		}
		stored.state = register.New(addr, create.Policy.Clone(), create.SizeCap)
		break
	}
	if stored.state == nil {
		return stored
	}

	e.replay(stored.state, ops)

	return stored
}

// replay applies every edit and extend in the log to the state. The log
// may hold ops journaled before the create was known, so every op is
// gated on the policy here: edits need a write grant, extends need the
// owner key, and failures are left out of the projection with a warning.
// Edits arriving causally out of order are deferred and retried until a
// full pass makes no progress; whatever remains unapplied stays in the
// log, becoming projectable once its parents arrive through replication.
func (e *Engine) replay(state *register.Register, ops []register.Op) {

	pending := deque.New()
	for _, op := range ops {
		switch op := op.(type) {
		case *register.EditOp:
			err := state.CheckPermission(register.Author(op), register.ActionWrite)
			if err != nil {
				e.log.Warn().Err(err).
					Str("address", state.Address().String()).
					Msg("skipping unauthorized edit during replay")
				continue
			}
			pending.PushBack(register.Op(op))
		case *register.ExtendOp:
			if register.Author(op) != state.Owner() {
				e.log.Warn().
					Str("address", state.Address().String()).
					Str("author", op.Auth.PublicKey.String()).
					Msg("skipping extend by non-owner during replay")
				continue
			}
			pending.PushBack(register.Op(op))
		}
	}

	for {
		remaining := pending.Len()
		if remaining == 0 {
			return
		}

		progress := false
		for i := 0; i < remaining; i++ {
			next, _ := pending.PopFront()
			op := next.(register.Op)

			err := state.ApplyOp(op)
			if err == nil {
				progress = true
				continue
			}
			if register.IsMissingParentError(err) {
				pending.PushBack(op)
				continue
			}
			e.log.Warn().Err(err).
				Str("address", state.Address().String()).
				Str("op_type", op.Type().String()).
				Msg("skipping unappliable op during replay")
		}

		if !progress {
			for pending.Len() > 0 {
				next, _ := pending.PopFront()
				op := next.(register.Op)
				e.log.Warn().
					Str("address", state.Address().String()).
					Str("op_type", op.Type().String()).
					Msg("op parents not yet known, leaving out of projection")
			}
			return
		}
	}
}
