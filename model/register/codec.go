package register

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Canonical wire form of an op-log record:
//
//	tag byte
//	u32 BE body length, body
//	author public key (32 bytes)
//	u16 BE signature length, signature
//
// The body layouts are fixed per op type and must be bit-exact across
// nodes; signatures are computed over exactly the body bytes.

// Body returns the canonical body of a create op: address, size cap,
// policy.
func (op *CreateOp) Body() []byte {
	var buf bytes.Buffer
	buf.Write(op.Addr.Encode())
	sizeCap := make([]byte, 2)
	binary.BigEndian.PutUint16(sizeCap, op.SizeCap)
	buf.Write(sizeCap)
	buf.Write(op.Policy.Encode())
	return buf.Bytes()
}

// Body returns the canonical body of an edit op: address, length-prefixed
// payload, counted sorted parent hashes.
func (op *EditOp) Body() []byte {
	var buf bytes.Buffer
	buf.Write(op.Addr.Encode())
	plen := make([]byte, 4)
	binary.BigEndian.PutUint32(plen, uint32(len(op.Payload)))
	buf.Write(plen)
	buf.Write(op.Payload)
	parents := SortHashes(op.Parents)
	count := make([]byte, 2)
	binary.BigEndian.PutUint16(count, uint16(len(parents)))
	buf.Write(count)
	for _, parent := range parents {
		buf.Write(parent[:])
	}
	return buf.Bytes()
}

// Body returns the canonical body of a delete op: the address alone.
func (op *DeleteOp) Body() []byte {
	return op.Addr.Encode()
}

// Body returns the canonical body of an extend op: address plus the
// size-cap increase.
func (op *ExtendOp) Body() []byte {
	out := make([]byte, addressLen+2)
	copy(out, op.Addr.Encode())
	binary.BigEndian.PutUint16(out[addressLen:], op.AdditionalSize)
	return out
}

// EncodeOp serializes an op into its canonical record form.
func EncodeOp(op Op) []byte {
	body := op.Body()
	auth := op.Authority()

	var buf bytes.Buffer
	buf.WriteByte(byte(op.Type()))
	blen := make([]byte, 4)
	binary.BigEndian.PutUint32(blen, uint32(len(body)))
	buf.Write(blen)
	buf.Write(body)
	buf.Write(auth.PublicKey[:])
	slen := make([]byte, 2)
	binary.BigEndian.PutUint16(slen, uint16(len(auth.Signature)))
	buf.Write(slen)
	buf.Write(auth.Signature)
	return buf.Bytes()
}

// DecodeOp parses a canonical record, requiring it to be consumed
// exactly.
func DecodeOp(data []byte) (Op, error) {
	if len(data) < 1+4 {
		return nil, fmt.Errorf("op record truncated")
	}
	tag := OpType(data[0])
	bodyLen := binary.BigEndian.Uint32(data[1:])
	rest := data[5:]
	if uint32(len(rest)) < bodyLen {
		return nil, fmt.Errorf("op body truncated (%d < %d)", len(rest), bodyLen)
	}
	body := rest[:bodyLen]
	rest = rest[bodyLen:]

	if len(rest) < PublicKeyLen+2 {
		return nil, fmt.Errorf("op authority truncated")
	}
	var auth Authority
	copy(auth.PublicKey[:], rest[:PublicKeyLen])
	rest = rest[PublicKeyLen:]
	sigLen := binary.BigEndian.Uint16(rest)
	rest = rest[2:]
	if len(rest) != int(sigLen) {
		return nil, fmt.Errorf("op signature truncated (%d != %d)", len(rest), sigLen)
	}
	auth.Signature = append([]byte(nil), rest...)

	op, err := decodeBody(tag, body)
	if err != nil {
		return nil, err
	}
	op.setAuthority(auth)
	return op, nil
}

func decodeBody(tag OpType, body []byte) (Op, error) {
	switch tag {
	case OpCreate:
		return decodeCreateBody(body)
	case OpEdit:
		return decodeEditBody(body)
	case OpDelete:
		return decodeDeleteBody(body)
	case OpExtend:
		return decodeExtendBody(body)
	default:
		return nil, fmt.Errorf("unknown op tag (%d)", uint8(tag))
	}
}

func decodeCreateBody(body []byte) (Op, error) {
	if len(body) < addressLen+2 {
		return nil, fmt.Errorf("create body truncated")
	}
	addr, err := DecodeAddress(body[:addressLen])
	if err != nil {
		return nil, fmt.Errorf("invalid create address: %w", err)
	}
	sizeCap := binary.BigEndian.Uint16(body[addressLen:])
	policy, n, err := decodePolicy(body[addressLen+2:])
	if err != nil {
		return nil, fmt.Errorf("invalid create policy: %w", err)
	}
	if addressLen+2+n != len(body) {
		return nil, fmt.Errorf("create body has %d trailing bytes", len(body)-addressLen-2-n)
	}
	return &CreateOp{Addr: addr, Policy: policy, SizeCap: sizeCap}, nil
}

func decodeEditBody(body []byte) (Op, error) {
	if len(body) < addressLen+4 {
		return nil, fmt.Errorf("edit body truncated")
	}
	addr, err := DecodeAddress(body[:addressLen])
	if err != nil {
		return nil, fmt.Errorf("invalid edit address: %w", err)
	}
	rest := body[addressLen:]
	payloadLen := binary.BigEndian.Uint32(rest)
	rest = rest[4:]
	// Widen before adding: a declared length near the u32 ceiling must
	// not wrap the comparison and slice past the buffer.
	if uint64(len(rest)) < uint64(payloadLen)+2 {
		return nil, fmt.Errorf("edit payload truncated")
	}
	payload := append(Entry(nil), rest[:payloadLen]...)
	rest = rest[payloadLen:]
	count := binary.BigEndian.Uint16(rest)
	rest = rest[2:]
	if len(rest) != int(count)*EntryHashLen {
		return nil, fmt.Errorf("edit parents truncated (%d != %d)", len(rest), int(count)*EntryHashLen)
	}
	parents := make([]EntryHash, count)
	for i := range parents {
		copy(parents[i][:], rest[i*EntryHashLen:])
	}
	return &EditOp{Addr: addr, Payload: payload, Parents: SortHashes(parents)}, nil
}

func decodeDeleteBody(body []byte) (Op, error) {
	addr, err := DecodeAddress(body)
	if err != nil {
		return nil, fmt.Errorf("invalid delete address: %w", err)
	}
	return &DeleteOp{Addr: addr}, nil
}

func decodeExtendBody(body []byte) (Op, error) {
	if len(body) != addressLen+2 {
		return nil, fmt.Errorf("extend body has invalid length (%d)", len(body))
	}
	addr, err := DecodeAddress(body[:addressLen])
	if err != nil {
		return nil, fmt.Errorf("invalid extend address: %w", err)
	}
	return &ExtendOp{Addr: addr, AdditionalSize: binary.BigEndian.Uint16(body[addressLen:])}, nil
}
