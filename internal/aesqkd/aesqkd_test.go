package aesqkd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

func randomKeyBits(n int, rng *rand.Rand) []quantum.Bit {
	bits := make([]quantum.Bit, n)
	for i := range bits {
		if rng.Float64() < 0.5 {
			bits[i] = quantum.One
		}
	}
	return bits
}

func TestNewRejectsBadMode(t *testing.T) {
	_, err := New("XTS", 256)
	require.Error(t, err)
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	_, err := New(ModeGCM, 100)
	require.Error(t, err)
}

func TestEncryptDecryptRoundTripAllModes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	key := randomKeyBits(256, rng)

	for _, mode := range []Mode{ModeGCM, ModeCBC, ModeCTR} {
		in, err := New(mode, 256)
		require.NoError(t, err)

		result := in.Encrypt("the eagle has landed", key)
		require.True(t, result.EncryptionSuccess)
		require.True(t, result.DecryptionSuccess)
		require.Equal(t, "the eagle has landed", result.DecryptedMessage)
	}
}

func TestDeriveKeyDeterministicForSameSalt(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	key := randomKeyBits(128, rng)

	in, err := New(ModeGCM, 128)
	require.NoError(t, err)

	derived1, salt, err := in.DeriveKey(key, nil)
	require.NoError(t, err)
	derived2, _, err := in.DeriveKey(key, salt)
	require.NoError(t, err)
	require.Equal(t, derived1, derived2)
}

func TestEncryptRejectsEmptyKey(t *testing.T) {
	in, err := New(ModeGCM, 256)
	require.NoError(t, err)
	result := in.Encrypt("hello", nil)
	require.False(t, result.EncryptionSuccess)
}

func TestDecryptRejectsMalformedBlob(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	key := randomKeyBits(256, rng)
	in, err := New(ModeGCM, 256)
	require.NoError(t, err)
	_, err = in.Decrypt("not-valid-base64!!!", key)
	require.Error(t, err)
}
