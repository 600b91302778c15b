package unittest

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sectionnet/register-store/model/register"
)

// KeypairFixture generates an author keypair.
func KeypairFixture(t testing.TB) (register.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pk, err := register.ToPublicKey(pub)
	require.NoError(t, err)
	return pk, priv
}

// NameFixture generates a random register name.
func NameFixture(t testing.TB) register.Name {
	var name register.Name
	_, err := rand.Read(name[:])
	require.NoError(t, err)
	return name
}

// AddressFixture generates a random address with the given visibility.
func AddressFixture(t testing.TB, visibility register.Visibility) register.Address {
	return register.Address{
		Name:       NameFixture(t),
		Tag:        43_000,
		Visibility: visibility,
	}
}

// PolicyFixture builds a policy owned by the given key with no further
// grants.
func PolicyFixture(owner register.PublicKey) register.Policy {
	return register.Policy{
		Owner:       register.KeyUser(owner),
		Permissions: make(map[register.User]register.Permission),
	}
}

// SignedCreateFixture builds and signs a create op for the address,
// owned by the signing key.
func SignedCreateFixture(t testing.TB, addr register.Address, owner register.PublicKey, key ed25519.PrivateKey, sizeCap uint16) *register.CreateOp {
	op := &register.CreateOp{
		Addr:    addr,
		Policy:  PolicyFixture(owner),
		SizeCap: sizeCap,
	}
	require.NoError(t, register.SignOp(op, key))
	return op
}

// SignedEditFixture builds and signs an edit op.
func SignedEditFixture(t testing.TB, addr register.Address, key ed25519.PrivateKey, payload []byte, parents ...register.EntryHash) *register.EditOp {
	op := register.NewEdit(addr, payload, parents)
	require.NoError(t, register.SignOp(op, key))
	return op
}

// SignedDeleteFixture builds and signs a delete op.
func SignedDeleteFixture(t testing.TB, addr register.Address, key ed25519.PrivateKey) *register.DeleteOp {
	op := &register.DeleteOp{Addr: addr}
	require.NoError(t, register.SignOp(op, key))
	return op
}

// SignedExtendFixture builds and signs an extend op.
func SignedExtendFixture(t testing.TB, addr register.Address, key ed25519.PrivateKey, additional uint16) *register.ExtendOp {
	op := &register.ExtendOp{Addr: addr, AdditionalSize: additional}
	require.NoError(t, register.SignOp(op, key))
	return op
}

// RandomBytes returns n random bytes.
func RandomBytes(t testing.TB, n int) []byte {
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}
