package register

import (
	"bytes"
	"fmt"
	"math"
	"sort"
)

// Register is the projected state of one address: the entry DAG plus the
// policy governing it. It is a pure in-memory type; persistence and
// authority checks live with the storage engine. ApplyOp is deterministic
// and commutative over the set of applied ops, which is what makes two
// replicas holding the same op set converge regardless of arrival order.
type Register struct {
	addr    Address
	policy  Policy
	sizeCap uint16

	entries  map[EntryHash]dagEntry
	hasChild map[EntryHash]struct{}
}

type dagEntry struct {
	value   Entry
	parents []EntryHash
}

// New constructs a register with an empty DAG.
func New(addr Address, policy Policy, sizeCap uint16) *Register {
	return &Register{
		addr:     addr,
		policy:   policy,
		sizeCap:  sizeCap,
		entries:  make(map[EntryHash]dagEntry),
		hasChild: make(map[EntryHash]struct{}),
	}
}

// Address returns the register's address.
func (r *Register) Address() Address {
	return r.addr
}

// Name returns the name part of the address.
func (r *Register) Name() Name {
	return r.addr.Name
}

// Tag returns the tag part of the address.
func (r *Register) Tag() uint64 {
	return r.addr.Tag
}

// Owner returns the register owner.
func (r *Register) Owner() User {
	return r.policy.Owner
}

// Policy returns a copy of the register policy.
func (r *Register) Policy() Policy {
	return r.policy.Clone()
}

// SizeCap returns the maximum number of entries the register may hold.
func (r *Register) SizeCap() uint16 {
	return r.sizeCap
}

// Size returns the number of entries held.
func (r *Register) Size() int {
	return len(r.entries)
}

// IsEmpty returns true when the register holds no entries.
func (r *Register) IsEmpty() bool {
	return len(r.entries) == 0
}

// Get returns the entry stored under the given hash.
func (r *Register) Get(hash EntryHash) (Entry, error) {
	entry, ok := r.entries[hash]
	if !ok {
		return nil, ErrNoSuchEntry
	}
	return entry.value, nil
}

// Leaves returns the current value of the register: all entries without
// children, sorted by hash so every replica reports the same order.
func (r *Register) Leaves() []Leaf {
	leaves := make([]Leaf, 0, len(r.entries))
	for hash, entry := range r.entries {
		if _, ok := r.hasChild[hash]; ok {
			continue
		}
		leaves = append(leaves, Leaf{Hash: hash, Value: entry.value})
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i].Hash[:], leaves[j].Hash[:]) < 0
	})
	return leaves
}

// ApplyOp mutates the DAG with an edit or extend op. Create and delete
// ops are register lifecycle events and are handled by the engine, never
// here. Applying an edit whose entry is already present is an idempotent
// no-op.
func (r *Register) ApplyOp(op Op) error {
	if op.Address() != r.addr {
		return AddressMismatchError{OpAddress: op.Address(), LogAddress: r.addr}
	}
	switch op := op.(type) {
	case *EditOp:
		return r.applyEdit(op)
	case *ExtendOp:
		r.extend(op.AdditionalSize)
		return nil
	default:
		return fmt.Errorf("op type %s does not apply to register state", op.Type())
	}
}

func (r *Register) applyEdit(op *EditOp) error {
	if len(op.Payload) > MaxEntrySize {
		return EntryTooBigError{Size: len(op.Payload)}
	}
	for _, parent := range op.Parents {
		if _, ok := r.entries[parent]; !ok {
			return MissingParentError{Parent: parent}
		}
	}
	hash := op.EntryHash()
	if _, ok := r.entries[hash]; ok {
		// Already merged, e.g. replayed replication traffic.
		return nil
	}
	if len(r.entries) >= int(r.sizeCap) {
		return TooManyEntriesError{Cap: r.sizeCap}
	}
	parents := SortHashes(op.Parents)
	r.entries[hash] = dagEntry{
		value:   append(Entry(nil), op.Payload...),
		parents: parents,
	}
	for _, parent := range parents {
		r.hasChild[parent] = struct{}{}
	}
	return nil
}

func (r *Register) extend(additional uint16) {
	if r.sizeCap > math.MaxUint16-additional {
		r.sizeCap = math.MaxUint16
		return
	}
	r.sizeCap += additional
}

// Write appends an entry locally and returns its hash together with the
// unsigned edit op, for the caller to sign and persist or broadcast.
func (r *Register) Write(payload Entry, parents []EntryHash) (EntryHash, *EditOp, error) {
	op := NewEdit(r.addr, payload, parents)
	err := r.applyEdit(op)
	if err != nil {
		return EntryHash{}, nil, err
	}
	return op.EntryHash(), op, nil
}

// CheckPermission checks whether the requester may perform the action
// under the register's policy.
func (r *Register) CheckPermission(requester User, action Action) error {
	return r.policy.IsActionAllowed(requester, action)
}

// PermissionsOf returns the permission entry applying to the user; the
// second return is false when the policy holds nothing for them.
func (r *Register) PermissionsOf(user User) (Permission, bool) {
	return r.policy.PermissionsOf(user)
}

// Clone returns a deep copy of the register.
func (r *Register) Clone() *Register {
	clone := New(r.addr, r.policy.Clone(), r.sizeCap)
	for hash, entry := range r.entries {
		clone.entries[hash] = dagEntry{
			value:   append(Entry(nil), entry.value...),
			parents: append([]EntryHash(nil), entry.parents...),
		}
	}
	for hash := range r.hasChild {
		clone.hasChild[hash] = struct{}{}
	}
	return clone
}

// Equal reports whether two registers project the same DAG under the
// same address, policy and cap. Used by tests to assert convergence.
func (r *Register) Equal(other *Register) bool {
	if r.addr != other.addr || r.sizeCap != other.sizeCap {
		return false
	}
	if !bytes.Equal(r.policy.Encode(), other.policy.Encode()) {
		return false
	}
	if len(r.entries) != len(other.entries) {
		return false
	}
	for hash, entry := range r.entries {
		theirs, ok := other.entries[hash]
		if !ok || !bytes.Equal(entry.value, theirs.value) {
			return false
		}
	}
	return true
}
