package register

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// NameLen is the byte length of a register name.
const NameLen = 32

// Name is the 256-bit identifier part of a register address.
type Name [NameLen]byte

// Visibility determines whether a register is publicly readable and
// whether it may ever be deleted. It is part of the address: the same
// (name, tag) pair can exist once per visibility.
type Visibility uint8

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("visibility(%d)", uint8(v))
	}
}

// Valid returns true if v is a known visibility value.
func (v Visibility) Valid() bool {
	return v == Public || v == Private
}

// Address is the storage key of a register.
type Address struct {
	Name       Name
	Tag        uint64
	Visibility Visibility
}

// addressLen is the encoded size of an address: name, big-endian tag,
// one visibility byte.
const addressLen = NameLen + 8 + 1

// Encode returns the canonical binary form of the address.
func (a Address) Encode() []byte {
	out := make([]byte, addressLen)
	copy(out, a.Name[:])
	binary.BigEndian.PutUint64(out[NameLen:], a.Tag)
	out[NameLen+8] = byte(a.Visibility)
	return out
}

// DecodeAddress parses the canonical binary form of an address.
func DecodeAddress(data []byte) (Address, error) {
	var a Address
	if len(data) != addressLen {
		return a, fmt.Errorf("invalid address length (%d != %d)", len(data), addressLen)
	}
	copy(a.Name[:], data[:NameLen])
	a.Tag = binary.BigEndian.Uint64(data[NameLen:])
	a.Visibility = Visibility(data[NameLen+8])
	if !a.Visibility.Valid() {
		return a, fmt.Errorf("invalid visibility byte (%d)", data[NameLen+8])
	}
	return a, nil
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%s/%d", a.Visibility, hex.EncodeToString(a.Name[:]), a.Tag)
}
