package registers

import (
	"fmt"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/storage"
)

// GetRegister reconstructs the register at the address and returns it
// after checking the requester's read permission.
func (e *Engine) GetRegister(addr register.Address, requester register.User) (*register.Register, error) {
	lock := e.locks.get(addr)
	lock.RLock()
	defer lock.RUnlock()

	return e.loadChecked(addr, requester)
}

// ReadRegister returns the current value of the register: its leaves.
func (e *Engine) ReadRegister(addr register.Address, requester register.User) ([]register.Leaf, error) {
	state, err := e.GetRegister(addr, requester)
	if err != nil {
		return nil, err
	}
	return state.Leaves(), nil
}

// GetEntry returns the entry stored under the given hash.
func (e *Engine) GetEntry(addr register.Address, hash register.EntryHash, requester register.User) (register.Entry, error) {
	state, err := e.GetRegister(addr, requester)
	if err != nil {
		return nil, err
	}
	return state.Get(hash)
}

// GetOwner returns the register owner.
func (e *Engine) GetOwner(addr register.Address, requester register.User) (register.User, error) {
	state, err := e.GetRegister(addr, requester)
	if err != nil {
		return register.User{}, err
	}
	return state.Owner(), nil
}

// GetUserPermissions returns the stored or inherited permission entry
// for the user, or ErrNoSuchEntry when the policy holds nothing for
// them.
func (e *Engine) GetUserPermissions(addr register.Address, user register.User, requester register.User) (register.Permission, error) {
	state, err := e.GetRegister(addr, requester)
	if err != nil {
		return register.Permission{}, err
	}
	perm, ok := state.PermissionsOf(user)
	if !ok {
		return register.Permission{}, register.ErrNoSuchEntry
	}
	return perm, nil
}

// GetPolicy returns the register policy.
func (e *Engine) GetPolicy(addr register.Address, requester register.User) (register.Policy, error) {
	state, err := e.GetRegister(addr, requester)
	if err != nil {
		return register.Policy{}, err
	}
	return state.Policy(), nil
}

// loadChecked reconstructs the projection and gates it on read
// permission. The caller must hold at least the address's read lock.
func (e *Engine) loadChecked(addr register.Address, requester register.User) (*register.Register, error) {
	stored, err := e.loadStored(addr)
	if err != nil {
		return nil, err
	}
	if stored.state == nil {
		return nil, fmt.Errorf("register at %s: %w", addr, storage.ErrNotFound)
	}
	err = stored.state.CheckPermission(requester, register.ActionRead)
	if err != nil {
		return nil, err
	}
	return stored.state, nil
}
