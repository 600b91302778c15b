package register

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Action is a capability a user may hold on a register.
type Action uint8

const (
	ActionRead Action = iota
	ActionWrite
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionWrite:
		return "write"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// PermissionState is the tri-state value of a single capability grant.
// Unspecified falls through to the Anyone entry of the policy; if that is
// unspecified too, the action is denied.
type PermissionState uint8

const (
	PermUnspecified PermissionState = iota
	PermAllowed
	PermDenied
)

// Permission is the capability set granted to one user.
type Permission struct {
	Read  PermissionState
	Write PermissionState
}

func (p Permission) state(action Action) PermissionState {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	default:
		return PermDenied
	}
}

// Policy is the access-control descriptor of a register: the owner plus a
// per-user permission map. The owner is always a specific key and holds
// full rights regardless of the map.
type Policy struct {
	Owner       User
	Permissions map[User]Permission
}

// Validate checks the structural invariants of a policy for a register of
// the given visibility: the owner must be a specific key, and Private
// policies must not grant anything to Anyone.
func (p *Policy) Validate(visibility Visibility) error {
	if p.Owner.IsAnyone() {
		return fmt.Errorf("policy owner must be a specific key")
	}
	if visibility == Private {
		if _, ok := p.Permissions[Anyone()]; ok {
			return fmt.Errorf("private policy cannot reference anyone")
		}
	}
	return nil
}

// IsActionAllowed checks whether the requester may perform the action.
// The owner short-circuits all lookups; otherwise the requester's own
// entry shadows the Anyone entry.
func (p *Policy) IsActionAllowed(requester User, action Action) error {
	if requester == p.Owner {
		return nil
	}
	if state := p.Permissions[requester].state(action); state != PermUnspecified {
		if state == PermAllowed {
			return nil
		}
		return AccessDeniedError{User: requester, Action: action}
	}
	if !requester.IsAnyone() {
		if state := p.Permissions[Anyone()].state(action); state == PermAllowed {
			return nil
		}
	}
	return AccessDeniedError{User: requester, Action: action}
}

// PermissionsOf returns the permission entry applying to the user: the
// owner gets a full grant, a stored entry shadows the Anyone entry, and
// the second return is false when neither is present.
func (p *Policy) PermissionsOf(user User) (Permission, bool) {
	if user == p.Owner {
		return Permission{Read: PermAllowed, Write: PermAllowed}, true
	}
	if perm, ok := p.Permissions[user]; ok {
		return perm, true
	}
	if perm, ok := p.Permissions[Anyone()]; ok {
		return perm, true
	}
	return Permission{}, false
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() Policy {
	perms := make(map[User]Permission, len(p.Permissions))
	for user, perm := range p.Permissions {
		perms[user] = perm
	}
	return Policy{Owner: p.Owner, Permissions: perms}
}

// Encode returns the canonical binary form of the policy: the owner key,
// a big-endian entry count, then the entries sorted by their canonical
// user encoding.
func (p *Policy) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(p.Owner.Key().Encode())

	users := make([]User, 0, len(p.Permissions))
	for user := range p.Permissions {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return bytes.Compare(users[i].Encode(), users[j].Encode()) < 0
	})

	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(users)))
	buf.Write(count)
	for _, user := range users {
		perm := p.Permissions[user]
		buf.Write(user.Encode())
		buf.WriteByte(byte(perm.Read))
		buf.WriteByte(byte(perm.Write))
	}
	return buf.Bytes()
}

// Encode returns the raw bytes of the public key. Defined on PublicKey so
// the policy owner encodes without the user tag byte, keeping the wire
// form of Create bodies fixed-width at the front.
func (pk PublicKey) Encode() []byte {
	out := make([]byte, PublicKeyLen)
	copy(out, pk[:])
	return out
}

// decodePolicy parses a policy from the front of data and returns the
// number of bytes consumed.
func decodePolicy(data []byte) (Policy, int, error) {
	if len(data) < PublicKeyLen+4 {
		return Policy{}, 0, fmt.Errorf("policy truncated")
	}
	var owner PublicKey
	copy(owner[:], data[:PublicKeyLen])
	n := PublicKeyLen
	count := binary.BigEndian.Uint32(data[n:])
	n += 4

	perms := make(map[User]Permission, count)
	for i := uint32(0); i < count; i++ {
		user, consumed, err := decodeUser(data[n:])
		if err != nil {
			return Policy{}, 0, fmt.Errorf("invalid policy entry %d: %w", i, err)
		}
		n += consumed
		if len(data) < n+2 {
			return Policy{}, 0, fmt.Errorf("policy entry %d truncated", i)
		}
		perms[user] = Permission{
			Read:  PermissionState(data[n]),
			Write: PermissionState(data[n+1]),
		}
		n += 2
	}
	return Policy{Owner: KeyUser(owner), Permissions: perms}, n, nil
}
