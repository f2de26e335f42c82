package helpers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursebind/user-service/pkg/helpers"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := helpers.NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "password123",
		},
		{
			name:     "long password",
			password: "a-much-longer-password-with-symbols-!@#$",
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  helpers.ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)
			assert.True(t, hasher.Verify(tt.password, hash))
		})
	}
}

func TestPasswordHasher_SaltFreshness(t *testing.T) {
	hasher := helpers.NewPasswordHasher(bcrypt.MinCost)

	h1, err := hasher.Hash("password123")
	require.NoError(t, err)
	h2, err := hasher.Hash("password123")
	require.NoError(t, err)

	// Fresh salt per call: same plaintext, different hashes, both verify.
	assert.NotEqual(t, h1, h2)
	assert.True(t, hasher.Verify("password123", h1))
	assert.True(t, hasher.Verify("password123", h2))
}

func TestPasswordHasher_VerifyMismatch(t *testing.T) {
	hasher := helpers.NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	assert.False(t, hasher.Verify("password124", hash))
	assert.False(t, hasher.Verify("", hash))
	assert.False(t, hasher.Verify("password123", "not-a-bcrypt-hash"))
}

func TestNewPasswordHasher_CostFallback(t *testing.T) {
	// Out-of-range costs fall back to the bcrypt default.
	hasher := helpers.NewPasswordHasher(99)

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
