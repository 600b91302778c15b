package register

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// PublicKeyLen is the byte length of an author public key (ed25519).
const PublicKeyLen = ed25519.PublicKeySize

// PublicKey identifies an author. Fixed-size so it can serve as a map key.
type PublicKey [PublicKeyLen]byte

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// ToPublicKey converts a raw ed25519 public key into a PublicKey.
func ToPublicKey(key ed25519.PublicKey) (PublicKey, error) {
	var pk PublicKey
	if len(key) != PublicKeyLen {
		return pk, fmt.Errorf("invalid public key length (%d != %d)", len(key), PublicKeyLen)
	}
	copy(pk[:], key)
	return pk, nil
}

// User is a principal appearing in a register policy: either a specific
// public key, or the wildcard Anyone. The zero value is not a valid user.
type User struct {
	key    PublicKey
	anyone bool
}

// Anyone returns the wildcard principal.
func Anyone() User {
	return User{anyone: true}
}

// KeyUser returns the principal for a specific public key.
func KeyUser(key PublicKey) User {
	return User{key: key}
}

// IsAnyone returns true for the wildcard principal.
func (u User) IsAnyone() bool {
	return u.anyone
}

// Key returns the public key of a specific-key principal. It must not be
// called on the Anyone principal.
func (u User) Key() PublicKey {
	return u.key
}

func (u User) String() string {
	if u.anyone {
		return "anyone"
	}
	return u.key.String()
}

const (
	userTagAnyone = 0
	userTagKey    = 1
)

// Encode returns the canonical binary form of the user: a tag byte,
// followed by the raw public key for specific-key principals.
func (u User) Encode() []byte {
	if u.anyone {
		return []byte{userTagAnyone}
	}
	out := make([]byte, 1+PublicKeyLen)
	out[0] = userTagKey
	copy(out[1:], u.key[:])
	return out
}

// decodeUser parses a user from the front of data and returns the number
// of bytes consumed.
func decodeUser(data []byte) (User, int, error) {
	if len(data) < 1 {
		return User{}, 0, fmt.Errorf("user truncated")
	}
	switch data[0] {
	case userTagAnyone:
		return Anyone(), 1, nil
	case userTagKey:
		if len(data) < 1+PublicKeyLen {
			return User{}, 0, fmt.Errorf("user key truncated")
		}
		var pk PublicKey
		copy(pk[:], data[1:1+PublicKeyLen])
		return KeyUser(pk), 1 + PublicKeyLen, nil
	default:
		return User{}, 0, fmt.Errorf("invalid user tag (%d)", data[0])
	}
}
