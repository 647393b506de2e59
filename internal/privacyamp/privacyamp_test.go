package privacyamp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

func randomBits(n int, rng *rand.Rand) []quantum.Bit {
	bits := make([]quantum.Bit, n)
	for i := range bits {
		if rng.Float64() < 0.5 {
			bits[i] = quantum.One
		}
	}
	return bits
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	_, err := New("bogus", 64)
	require.Error(t, err)
}

func TestAmplifyShrinksKey(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	input := randomBits(512, rng)

	for _, method := range []Method{MethodToeplitz, MethodUniversal, MethodHybrid} {
		a, err := New(method, 128)
		require.NoError(t, err)
		result, err := a.Amplify(input)
		require.NoError(t, err)
		require.LessOrEqual(t, len(result.FinalKey), len(input))
		require.LessOrEqual(t, len(result.FinalKey), 128)
	}
}

func TestAmplifyDeterministicLengthCap(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	input := randomBits(64, rng)

	a, err := New(MethodToeplitz, 1000)
	require.NoError(t, err)
	result, err := a.Amplify(input)
	require.NoError(t, err)
	require.LessOrEqual(t, len(result.FinalKey), len(input))
}

func TestShannonEntropyOfConstantSequence(t *testing.T) {
	bits := make([]quantum.Bit, 100)
	require.Equal(t, 0.0, ShannonEntropy(bits))
}

func TestShannonEntropyOfBalancedSequence(t *testing.T) {
	bits := make([]quantum.Bit, 100)
	for i := range bits {
		if i%2 == 0 {
			bits[i] = quantum.One
		}
	}
	entropy := ShannonEntropy(bits)
	require.InDelta(t, 100.0, entropy, 0.01)
}

func TestMinEntropyNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	bits := randomBits(256, rng)
	require.GreaterOrEqual(t, MinEntropy(bits), 0.0)
}

func TestConditionalEntropyShortInputFallsBack(t *testing.T) {
	bits := []quantum.Bit{0, 1, 1}
	require.Equal(t, ShannonEntropy(bits), ConditionalEntropy(bits))
}
