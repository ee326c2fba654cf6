package password

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testParams = &argon2id.Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestArgon2Hasher_HashVerify(t *testing.T) {
	h := NewArgon2Hasher("pepper", testParams)

	hash, err := h.Hash("Password1")
	require.NoError(t, err)
	require.NotContains(t, hash, "Password1")

	ok, rehash, err := h.Verify("Password1", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, rehash)

	ok, _, err = h.Verify("Password2", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestArgon2Hasher_PepperMatters(t *testing.T) {
	hash, err := NewArgon2Hasher("pepper", testParams).Hash("Password1")
	require.NoError(t, err)

	ok, _, err := NewArgon2Hasher("other", testParams).Verify("Password1", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestArgon2Hasher_SaltedHashesDiffer(t *testing.T) {
	h := NewArgon2Hasher("", testParams)
	a, err := h.Hash("Password1")
	require.NoError(t, err)
	b, err := h.Hash("Password1")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestArgon2Hasher_LegacyBcrypt(t *testing.T) {
	h := NewArgon2Hasher("pepper", testParams)
	legacy, err := bcrypt.GenerateFromPassword([]byte("Password1pepper"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, rehash, err := h.Verify("Password1", string(legacy))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rehash)

	ok, rehash, err = h.Verify("wrong", string(legacy))
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, rehash)
}

func TestArgon2Hasher_WeakParamsNeedRehash(t *testing.T) {
	weak := NewArgon2Hasher("", testParams)
	hash, err := weak.Hash("Password1")
	require.NoError(t, err)

	strong := NewArgon2Hasher("", &argon2id.Params{
		Memory: 16 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	ok, rehash, err := strong.Verify("Password1", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rehash)
}

func TestArgon2Hasher_GarbageHash(t *testing.T) {
	_, _, err := NewArgon2Hasher("", testParams).Verify("x", "not-a-hash")
	require.Error(t, err)
}
