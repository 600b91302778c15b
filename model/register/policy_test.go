package register_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/utils/unittest"
)

func TestPolicyOwnerShortCircuits(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)
	owner := register.KeyUser(ownerKey)

	// Even an explicit deny for the owner is ignored.
	policy := register.Policy{
		Owner: owner,
		Permissions: map[register.User]register.Permission{
			owner: {Read: register.PermDenied, Write: register.PermDenied},
		},
	}

	require.NoError(t, policy.IsActionAllowed(owner, register.ActionRead))
	require.NoError(t, policy.IsActionAllowed(owner, register.ActionWrite))

	perm, ok := policy.PermissionsOf(owner)
	require.True(t, ok)
	assert.Equal(t, register.Permission{Read: register.PermAllowed, Write: register.PermAllowed}, perm)
}

func TestPolicySpecificUserShadowsAnyone(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)
	userKey, _ := unittest.KeypairFixture(t)
	user := register.KeyUser(userKey)

	policy := register.Policy{
		Owner: register.KeyUser(ownerKey),
		Permissions: map[register.User]register.Permission{
			register.Anyone(): {Read: register.PermAllowed, Write: register.PermAllowed},
			user:              {Write: register.PermDenied},
		},
	}

	// The user's explicit write deny shadows the Anyone allow; their
	// unspecified read falls through to the Anyone allow.
	err := policy.IsActionAllowed(user, register.ActionWrite)
	require.True(t, register.IsAccessDeniedError(err))
	require.NoError(t, policy.IsActionAllowed(user, register.ActionRead))
}

func TestPolicyUnspecifiedDenies(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)
	strangerKey, _ := unittest.KeypairFixture(t)
	stranger := register.KeyUser(strangerKey)

	policy := unittest.PolicyFixture(ownerKey)

	err := policy.IsActionAllowed(stranger, register.ActionRead)
	require.True(t, register.IsAccessDeniedError(err))

	_, ok := policy.PermissionsOf(stranger)
	assert.False(t, ok)
}

func TestPolicyInheritedPermissions(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)
	userKey, _ := unittest.KeypairFixture(t)

	anyonePerm := register.Permission{Read: register.PermAllowed}
	policy := register.Policy{
		Owner: register.KeyUser(ownerKey),
		Permissions: map[register.User]register.Permission{
			register.Anyone(): anyonePerm,
		},
	}

	// A user without an own entry inherits the Anyone entry.
	perm, ok := policy.PermissionsOf(register.KeyUser(userKey))
	require.True(t, ok)
	assert.Equal(t, anyonePerm, perm)
}

func TestPolicyValidate(t *testing.T) {
	ownerKey, _ := unittest.KeypairFixture(t)

	t.Run("anyone owner rejected", func(t *testing.T) {
		policy := register.Policy{Owner: register.Anyone()}
		require.Error(t, policy.Validate(register.Public))
	})

	t.Run("anyone grant rejected on private", func(t *testing.T) {
		policy := register.Policy{
			Owner: register.KeyUser(ownerKey),
			Permissions: map[register.User]register.Permission{
				register.Anyone(): {Read: register.PermAllowed},
			},
		}
		require.Error(t, policy.Validate(register.Private))
		require.NoError(t, policy.Validate(register.Public))
	})
}
