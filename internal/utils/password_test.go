package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	for _, algo := range []string{AlgoBcrypt, AlgoArgon2id} {
		t.Run(algo, func(t *testing.T) {
			h := NewPasswordHasher(algo, bcrypt.MinCost)

			digest, err := h.Hash("pw123")
			require.NoError(t, err)
			assert.NotEqual(t, "pw123", digest)

			ok, err := h.Verify("pw123", digest)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify("wrong", digest)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHasher_Salted(t *testing.T) {
	h := NewPasswordHasher(AlgoArgon2id, bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_VerifiesOtherAlgorithm(t *testing.T) {
	bcryptDigest, err := NewPasswordHasher(AlgoBcrypt, bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)

	ok, err := NewPasswordHasher(AlgoArgon2id, 0).Verify("pw", bcryptDigest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasher_BcryptCostApplied(t *testing.T) {
	h := NewPasswordHasher(AlgoBcrypt, 5)

	digest, err := h.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
}

func TestNewPasswordHasher_Defaults(t *testing.T) {
	h := NewPasswordHasher("md5", 99)
	assert.Equal(t, AlgoBcrypt, h.Algo)
	assert.Equal(t, bcrypt.DefaultCost, h.BcryptCost)
}

func TestPasswordHasher_InvalidDigest(t *testing.T) {
	h := NewPasswordHasher(AlgoBcrypt, bcrypt.MinCost)

	_, err := h.Verify("pw", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = h.Verify("pw", "$argon2id$v=19$broken")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
