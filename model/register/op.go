package register

import (
	"crypto/ed25519"
	"fmt"
)

// OpType tags the kind of an op-log record.
type OpType uint8

const (
	OpCreate OpType = iota
	OpEdit
	OpDelete
	OpExtend
)

func (t OpType) String() string {
	switch t {
	case OpCreate:
		return "create"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	case OpExtend:
		return "extend"
	default:
		return fmt.Sprintf("op(%d)", uint8(t))
	}
}

// Authority is the proof that an op was produced by its author: the
// author's public key plus an ed25519 signature over the op's canonical
// body.
type Authority struct {
	PublicKey PublicKey
	Signature []byte
}

// Verify checks the signature against the given canonical body.
func (a Authority) Verify(body []byte) error {
	if len(a.Signature) != ed25519.SignatureSize {
		return InvalidSignatureError{Key: a.PublicKey}
	}
	if !ed25519.Verify(a.PublicKey[:], body, a.Signature) {
		return InvalidSignatureError{Key: a.PublicKey}
	}
	return nil
}

// Op is one record of a register's operation log. Implementations are
// the four concrete op types in this package; the log store and the
// engine treat them uniformly through this interface.
type Op interface {
	// Type returns the record tag.
	Type() OpType
	// Address returns the register address the op targets.
	Address() Address
	// Authority returns the author proof carried by the op.
	Authority() Authority
	// Body returns the canonical serialization of the op's semantic
	// content, excluding the authority. Signatures are computed over
	// exactly these bytes.
	Body() []byte

	setAuthority(auth Authority)
}

// CreateOp instantiates a register with its immutable policy and size cap.
type CreateOp struct {
	Addr    Address
	Policy  Policy
	SizeCap uint16
	Auth    Authority
}

func (op *CreateOp) Type() OpType { return OpCreate }
func (op *CreateOp) Address() Address { return op.Addr }
func (op *CreateOp) Authority() Authority { return op.Auth }
func (op *CreateOp) setAuthority(a Authority) { op.Auth = a }

// EditOp appends one entry to the register DAG.
type EditOp struct {
	Addr    Address
	Payload Entry
	// Parents holds the causal parent hashes in canonical sorted order.
	Parents []EntryHash
	Auth    Authority
}

func (op *EditOp) Type() OpType { return OpEdit }
func (op *EditOp) Address() Address { return op.Addr }
func (op *EditOp) Authority() Authority { return op.Auth }
func (op *EditOp) setAuthority(a Authority) { op.Auth = a }

// EntryHash returns the hash the edit's entry will take in the DAG.
func (op *EditOp) EntryHash() EntryHash {
	return HashEntry(op.Payload, op.Parents)
}

// DeleteOp removes a Private register and its log entirely.
type DeleteOp struct {
	Addr Address
	Auth Authority
}

func (op *DeleteOp) Type() OpType { return OpDelete }
func (op *DeleteOp) Address() Address { return op.Addr }
func (op *DeleteOp) Authority() Authority { return op.Auth }
func (op *DeleteOp) setAuthority(a Authority) { op.Auth = a }

// ExtendOp grows the register's size cap.
type ExtendOp struct {
	Addr           Address
	AdditionalSize uint16
	Auth           Authority
}

func (op *ExtendOp) Type() OpType { return OpExtend }
func (op *ExtendOp) Address() Address { return op.Addr }
func (op *ExtendOp) Authority() Authority { return op.Auth }
func (op *ExtendOp) setAuthority(a Authority) { op.Auth = a }

// NewEdit builds an unsigned edit op, normalizing the parent set into
// canonical order.
func NewEdit(addr Address, payload Entry, parents []EntryHash) *EditOp {
	return &EditOp{
		Addr:    addr,
		Payload: payload,
		Parents: SortHashes(parents),
	}
}

// SignOp signs the op's canonical body with the given private key and
// attaches the resulting authority to the op.
func SignOp(op Op, key ed25519.PrivateKey) error {
	pk, err := ToPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return fmt.Errorf("could not derive author key: %w", err)
	}
	op.setAuthority(Authority{
		PublicKey: pk,
		Signature: ed25519.Sign(key, op.Body()),
	})
	return nil
}

// VerifyAuthority checks the op's signature against its canonical body.
// For create ops it additionally requires the author to be the declared
// policy owner.
func VerifyAuthority(op Op) error {
	err := op.Authority().Verify(op.Body())
	if err != nil {
		return err
	}
	if create, ok := op.(*CreateOp); ok {
		owner := create.Policy.Owner
		if owner.IsAnyone() || owner.Key() != create.Auth.PublicKey {
			return InvalidOwnerError{Author: create.Auth.PublicKey, Owner: owner}
		}
	}
	return nil
}

// Author returns the op's author as a policy principal.
func Author(op Op) User {
	return KeyUser(op.Authority().PublicKey)
}
