package register_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/utils/unittest"
)

func testRegister(t *testing.T) (*register.Register, register.Address) {
	ownerKey, _ := unittest.KeypairFixture(t)
	addr := unittest.AddressFixture(t, register.Public)
	return register.New(addr, unittest.PolicyFixture(ownerKey), 100), addr
}

func TestRegisterEmpty(t *testing.T) {
	reg, addr := testRegister(t)

	assert.Equal(t, addr, reg.Address())
	assert.True(t, reg.IsEmpty())
	assert.Empty(t, reg.Leaves())
	assert.Equal(t, uint16(100), reg.SizeCap())

	_, err := reg.Get(register.EntryHash{})
	assert.ErrorIs(t, err, register.ErrNoSuchEntry)
}

func TestRegisterConcurrentRoots(t *testing.T) {
	reg, _ := testRegister(t)

	// Two root entries with no parents fork the register.
	hashA, _, err := reg.Write(register.Entry("A"), nil)
	require.NoError(t, err)
	hashB, _, err := reg.Write(register.Entry("B"), nil)
	require.NoError(t, err)
	require.NotEqual(t, hashA, hashB)

	leaves := reg.Leaves()
	require.Len(t, leaves, 2)

	// A child naming both roots resolves the fork.
	hashC, _, err := reg.Write(register.Entry("C"), []register.EntryHash{hashA, hashB})
	require.NoError(t, err)

	leaves = reg.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, hashC, leaves[0].Hash)
	assert.Equal(t, register.Entry("C"), leaves[0].Value)

	// Non-leaf entries remain addressable.
	entry, err := reg.Get(hashA)
	require.NoError(t, err)
	assert.Equal(t, register.Entry("A"), entry)
}

func TestRegisterApplyIdempotent(t *testing.T) {
	reg, addr := testRegister(t)

	op := register.NewEdit(addr, register.Entry("hello"), nil)
	require.NoError(t, reg.ApplyOp(op))
	require.Equal(t, 1, reg.Size())

	// Applying the same edit again changes nothing.
	require.NoError(t, reg.ApplyOp(op))
	assert.Equal(t, 1, reg.Size())
}

func TestRegisterApplyMissingParent(t *testing.T) {
	reg, addr := testRegister(t)

	var unknown register.EntryHash
	unknown[0] = 0xff
	op := register.NewEdit(addr, register.Entry("orphan"), []register.EntryHash{unknown})

	err := reg.ApplyOp(op)
	require.True(t, register.IsMissingParentError(err))
	assert.True(t, reg.IsEmpty())
}

func TestRegisterApplyAddressMismatch(t *testing.T) {
	reg, _ := testRegister(t)
	other := unittest.AddressFixture(t, register.Public)

	err := reg.ApplyOp(register.NewEdit(other, register.Entry("stray"), nil))
	require.True(t, register.IsAddressMismatchError(err))
}

func TestRegisterEntryTooBig(t *testing.T) {
	reg, addr := testRegister(t)

	payload := unittest.RandomBytes(t, register.MaxEntrySize+1)
	err := reg.ApplyOp(register.NewEdit(addr, payload, nil))
	require.True(t, register.IsEntryTooBigError(err))
}

func TestRegisterSizeCapAndExtend(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)
	addr := unittest.AddressFixture(t, register.Public)
	reg := register.New(addr, unittest.PolicyFixture(ownerKey), 2)

	_, _, err := reg.Write(register.Entry("1"), nil)
	require.NoError(t, err)
	_, _, err = reg.Write(register.Entry("2"), nil)
	require.NoError(t, err)

	_, _, err = reg.Write(register.Entry("3"), nil)
	require.True(t, register.IsTooManyEntriesError(err))

	// Extending by k admits at least k further entries.
	require.NoError(t, reg.ApplyOp(&register.ExtendOp{Addr: addr, AdditionalSize: 2}))
	_, _, err = reg.Write(register.Entry("3"), nil)
	require.NoError(t, err)
	_, _, err = reg.Write(register.Entry("4"), nil)
	require.NoError(t, err)
	_, _, err = reg.Write(register.Entry("5"), nil)
	require.True(t, register.IsTooManyEntriesError(err))
}

func TestRegisterExtendSaturates(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)
	addr := unittest.AddressFixture(t, register.Public)
	reg := register.New(addr, unittest.PolicyFixture(ownerKey), math.MaxUint16-1)

	require.NoError(t, reg.ApplyOp(&register.ExtendOp{Addr: addr, AdditionalSize: 100}))
	assert.Equal(t, uint16(math.MaxUint16), reg.SizeCap())
}

func TestRegisterCloneIndependent(t *testing.T) {
	reg, _ := testRegister(t)

	_, _, err := reg.Write(register.Entry("A"), nil)
	require.NoError(t, err)

	clone := reg.Clone()
	require.True(t, reg.Equal(clone))

	_, _, err = clone.Write(register.Entry("B"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Size())
	assert.Equal(t, 2, clone.Size())
}

// TestRegisterConvergence checks the CRDT property: replicas receiving
// the same edit set in any order project identical DAGs, with edits
// retried when their parents have not landed yet.
func TestRegisterConvergence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ownerKey, _ := unittest.KeypairFixture(t)
		addr := unittest.AddressFixture(t, register.Public)
		policy := unittest.PolicyFixture(ownerKey)

		source := register.New(addr, policy.Clone(), math.MaxUint16)

		numEntries := rapid.IntRange(1, 40).Draw(rt, "num_entries")
		var hashes []register.EntryHash
		var ops []*register.EditOp

		for i := 0; i < numEntries; i++ {
			var parents []register.EntryHash
			if len(hashes) > 0 {
				numParents := rapid.IntRange(0, len(hashes)).Draw(rt, "num_parents")
				for _, idx := range rand.Perm(len(hashes))[:numParents] {
					parents = append(parents, hashes[idx])
				}
			}
			payload := rapid.SliceOfN(rapid.Byte(), 1, 32).Draw(rt, "payload")

			hash, op, err := source.Write(payload, parents)
			require.NoError(rt, err)
			hashes = append(hashes, hash)
			ops = append(ops, op)
		}

		replica := register.New(addr, policy.Clone(), math.MaxUint16)

		// Deliver the ops in a random order, deferring those whose
		// parents are still missing, the way the engine replays a log.
		pending := make([]*register.EditOp, len(ops))
		seed := rapid.Int64().Draw(rt, "shuffle_seed")
		for i, idx := range rand.New(rand.NewSource(seed)).Perm(len(ops)) {
			pending[i] = ops[idx]
		}
		for len(pending) > 0 {
			var deferred []*register.EditOp
			for _, op := range pending {
				err := replica.ApplyOp(op)
				if register.IsMissingParentError(err) {
					deferred = append(deferred, op)
					continue
				}
				require.NoError(rt, err)
			}
			require.Less(rt, len(deferred), len(pending), "no progress applying ops")
			pending = deferred
		}

		require.True(rt, source.Equal(replica), "replicas diverged")
	})
}
