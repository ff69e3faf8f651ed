package validation

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return New(Policy{
		UsernameMinLength: 4,
		UsernameMaxLength: 32,
		ReservedUsernames: []string{"admin", "Root"},
		PasswordMinLength: 6,
		PasswordMaxBytes:  72,
	})
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T", err)
	assert.Equal(t, field, ve.Field)
}

func TestValidateUsername(t *testing.T) {
	e := testEngine()

	valid := []string{"alice", "bob_smith", "j.doe-99", "ABCD", "a1b2", strings.Repeat("x", 32)}
	for _, name := range valid {
		t.Run("valid "+name, func(t *testing.T) {
			assert.NoError(t, e.ValidateUsername(name))
		})
	}

	invalid := []string{
		"",                      // empty
		"abc",                   // too short
		strings.Repeat("x", 33), // too long
		"with space",
		"slash/name",
		`back\slash`,
		"tab\tname",
		"ünïcode",
		".leading",
		"trailing-",
		"_under",
		"admin",
		"ROOT", // reserved names are case-insensitive
	}
	for _, name := range invalid {
		t.Run("invalid "+name, func(t *testing.T) {
			requireFieldError(t, e.ValidateUsername(name), "username")
		})
	}
}

func TestValidateUsername_CharsetProperty(t *testing.T) {
	e := testEngine()
	const edge = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const inner = edge + "._-"
	rng := rand.New(rand.NewSource(42))

	randomName := func() []byte {
		n := 4 + rng.Intn(20)
		b := make([]byte, n)
		b[0] = edge[rng.Intn(len(edge))]
		b[n-1] = edge[rng.Intn(len(edge))]
		for i := 1; i < n-1; i++ {
			b[i] = inner[rng.Intn(len(inner))]
		}
		return b
	}

	for i := 0; i < 500; i++ {
		name := randomName()
		require.NoError(t, e.ValidateUsername(string(name)), "username %q should be valid", name)
	}

	// every printable ASCII byte outside the allow-list must be rejected
	for c := byte(0x20); c < 0x7f; c++ {
		if strings.IndexByte(inner, c) >= 0 {
			continue
		}
		name := randomName()
		name[len(name)/2] = c
		requireFieldError(t, e.ValidateUsername(string(name)), "username")
	}
}

func TestValidatePassword(t *testing.T) {
	e := testEngine()

	assert.NoError(t, e.ValidatePassword("secret"))
	assert.NoError(t, e.ValidatePassword("пароль"), "length counts characters, not bytes")
	requireFieldError(t, e.ValidatePassword(""), "password")
	requireFieldError(t, e.ValidatePassword("12345"), "password")

	assert.NoError(t, e.ValidatePassword(strings.Repeat("x", 72)))
	requireFieldError(t, e.ValidatePassword(strings.Repeat("x", 73)), "password")
	requireFieldError(t, e.ValidatePassword(strings.Repeat("x", 80)), "password")
	// 37 two-byte runes pass the character minimum but not the byte limit
	requireFieldError(t, e.ValidatePassword(strings.Repeat("п", 37)), "password")
}

func TestValidatePasswordPair(t *testing.T) {
	e := testEngine()

	assert.NoError(t, e.ValidatePasswordPair("secret1", "secret1"))
	requireFieldError(t, e.ValidatePasswordPair("secret1", "secret2"), "password")
	requireFieldError(t, e.ValidatePasswordPair("abc", "abc"), "password")
}

func TestValidateEmailAddress(t *testing.T) {
	e := testEngine()

	for _, email := range []string{"user@example.com", "first.last+tag@sub.example.org"} {
		assert.NoError(t, e.ValidateEmailAddress(email), email)
	}
	for _, email := range []string{"", "plainaddress", "@example.com", "user@", "user example@test.com"} {
		requireFieldError(t, e.ValidateEmailAddress(email), "email")
	}
}

func TestValidationIsDeterministic(t *testing.T) {
	e := testEngine()
	for i := 0; i < 3; i++ {
		assert.NoError(t, e.ValidateUsername("alice"))
		requireFieldError(t, e.ValidateUsername("a b"), "username")
	}
}

func TestResults(t *testing.T) {
	var r Results
	assert.True(t, r.Valid())
	assert.NoError(t, r.Err())

	r.Add(nil)
	r.Add(&ValidationError{Field: "username", Reason: "bad"})
	r.Add(errors.New("storage down"))

	assert.False(t, r.Valid())
	assert.Equal(t, []string{"username", "general"}, r.Fields())
	assert.Len(t, r.Errors(), 2)
	assert.Equal(t, "username: bad; general: storage down", r.Error())
	assert.Error(t, r.Err())
}
