package service

import (
	"strings"
	"testing"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteCodes(t *testing.T) {
	t.Run("generate and validate", func(t *testing.T) {
		env := newTestEnv(t, testBunt(t), nil)
		env.register(t, "alice", "alice@example.com")

		code, err := env.credentials.GenerateInviteCode("alice")
		require.NoError(t, err)
		assert.Len(t, code, env.cfg.Invites.CodeLength)

		assert.True(t, env.credentials.ValidateInviteCode("alice", code))
		assert.True(t, env.credentials.ValidateInviteCode("ALICE", code), "usernames match case-insensitively")
		// validation is read-only
		assert.True(t, env.credentials.ValidateInviteCode("alice", code))

		assert.False(t, env.credentials.ValidateInviteCode("alice", "nope"))
		assert.False(t, env.credentials.ValidateInviteCode("alice", ""))
		assert.False(t, env.credentials.ValidateInviteCode("", code))
		assert.False(t, env.credentials.ValidateInviteCode("bobby", code))
	})

	t.Run("code must match exactly", func(t *testing.T) {
		env := newTestEnv(t, testBunt(t), nil)
		env.register(t, "alice", "alice@example.com")

		code, err := env.credentials.GenerateInviteCode("alice")
		require.NoError(t, err)
		require.NotEqual(t, code, strings.ToLower(code))

		assert.False(t, env.credentials.ValidateInviteCode("alice", strings.ToLower(code)))
		assert.False(t, env.credentials.ValidateInviteCode("alice", "  "+code+"  "))
		assert.False(t, env.credentials.ValidateInviteCode("alice", code+"\n"))
		assert.True(t, env.credentials.ValidateInviteCode("alice", code))
	})

	t.Run("new code replaces the old one", func(t *testing.T) {
		env := newTestEnv(t, testBunt(t), nil)
		env.register(t, "alice", "alice@example.com")

		first, err := env.credentials.GenerateInviteCode("alice")
		require.NoError(t, err)
		second, err := env.credentials.GenerateInviteCode("alice")
		require.NoError(t, err)

		assert.False(t, env.credentials.ValidateInviteCode("alice", first))
		assert.True(t, env.credentials.ValidateInviteCode("alice", second))
	})

	t.Run("unknown inviter", func(t *testing.T) {
		env := newTestEnv(t, testBunt(t), nil)
		_, err := env.credentials.GenerateInviteCode("ghost")
		assert.Error(t, err)
	})

	t.Run("lookup failure reads as invalid", func(t *testing.T) {
		env := newTestEnv(t, &MockStorage{
			InviteCodeFunc: func(domain.Username) (domain.InviteCode, error) {
				return domain.InviteCode{}, assert.AnError
			},
		}, nil)
		assert.False(t, env.credentials.ValidateInviteCode("alice", "CODE"))
	})

	t.Run("only the digest is stored", func(t *testing.T) {
		var saved domain.InviteCode
		env := newTestEnv(t, &MockStorage{
			SaveInviteCodeFunc: func(invite domain.InviteCode) error {
				saved = invite
				return nil
			},
		}, nil)

		code, err := env.credentials.GenerateInviteCode("alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", saved.Username)
		assert.NotEqual(t, code, saved.CodeHash)
		assert.Equal(t, testHasher().HashExact(code), saved.CodeHash)
	})
}

func TestCredentialLookups(t *testing.T) {
	env := newTestEnv(t, testBunt(t), nil)
	id := env.register(t, "alice", "alice@example.com")

	byName, err := env.credentials.GetByUsername(" Alice ")
	require.NoError(t, err)
	assert.Equal(t, id, byName.Id)

	byEmail, err := env.credentials.GetByEmail("ALICE@example.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, id, byEmail[0].Id)

	none, err := env.credentials.GetByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	hash, err := env.passwords.Hash("brand new")
	require.NoError(t, err)
	require.NoError(t, env.credentials.SetPasswordHash(id, hash))
	assert.True(t, env.passwordIs(t, id, "brand new"))
}

func TestPasswords(t *testing.T) {
	p := NewPasswords(4)

	hash, err := p.Hash("secret")
	require.NoError(t, err)
	assert.True(t, p.Verify(hash, "secret"))
	assert.False(t, p.Verify(hash, "Secret"))

	_, err = p.Hash(strings.Repeat("x", 73))
	requireField(t, err, "password")

	a, err := p.Generate()
	require.NoError(t, err)
	b, err := p.Generate()
	require.NoError(t, err)
	assert.Len(t, a, GeneratedPasswordLength)
	assert.NotEqual(t, a, b)

	// out of range costs fall back to the default instead of failing
	_, err = NewPasswords(99).Hash("secret")
	assert.NoError(t, err)
}
