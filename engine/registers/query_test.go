package registers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionnet/register-store/engine/registers"
	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/utils/unittest"
)

func TestHandleQuery(t *testing.T) {
	withEngine(t, func(e *registers.Engine) {
		addr, ownerKey, priv := createRegister(t, e, register.Public)
		owner := register.KeyUser(ownerKey)
		edit := unittest.SignedEditFixture(t, addr, priv, register.Entry("value"))
		require.NoError(t, e.Write(edit))

		t.Run("get", func(t *testing.T) {
			resp := e.HandleQuery(registers.GetQuery{Addr: addr}, owner)
			require.NoError(t, resp.Err)
			assert.Equal(t, 1, resp.Register.Size())
		})

		t.Run("read", func(t *testing.T) {
			resp := e.HandleQuery(registers.ReadQuery{Addr: addr}, owner)
			require.NoError(t, resp.Err)
			require.Len(t, resp.Leaves, 1)
			assert.Equal(t, register.Entry("value"), resp.Leaves[0].Value)
		})

		t.Run("get entry", func(t *testing.T) {
			resp := e.HandleQuery(registers.GetEntryQuery{Addr: addr, Hash: edit.EntryHash()}, owner)
			require.NoError(t, resp.Err)
			assert.Equal(t, register.Entry("value"), resp.Entry)
		})

		t.Run("get owner", func(t *testing.T) {
			resp := e.HandleQuery(registers.GetOwnerQuery{Addr: addr}, owner)
			require.NoError(t, resp.Err)
			assert.Equal(t, owner, resp.Owner)
		})

		t.Run("get user permissions", func(t *testing.T) {
			resp := e.HandleQuery(registers.GetUserPermissionsQuery{Addr: addr, User: owner}, owner)
			require.NoError(t, resp.Err)
			assert.Equal(t, register.Permission{Read: register.PermAllowed, Write: register.PermAllowed}, resp.Permissions)

			// A user the policy holds nothing for.
			strangerKey, _ := unittest.KeypairFixture(t)
			resp = e.HandleQuery(registers.GetUserPermissionsQuery{Addr: addr, User: register.KeyUser(strangerKey)}, owner)
			require.ErrorIs(t, resp.Err, register.ErrNoSuchEntry)
		})

		t.Run("get policy", func(t *testing.T) {
			resp := e.HandleQuery(registers.GetPolicyQuery{Addr: addr}, owner)
			require.NoError(t, resp.Err)
			assert.Equal(t, owner, resp.Policy.Owner)
		})

		t.Run("requester gated by read policy", func(t *testing.T) {
			strangerKey, _ := unittest.KeypairFixture(t)
			resp := e.HandleQuery(registers.ReadQuery{Addr: addr}, register.KeyUser(strangerKey))
			require.True(t, register.IsAccessDeniedError(resp.Err))
		})
	})
}
