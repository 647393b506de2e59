package quantum

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBasisStateNormalized(t *testing.T) {
	for _, basis := range []Basis{Computational, Hadamard} {
		for _, bit := range []Bit{Zero, One} {
			q := FromBasisState(basis, bit)
			norm := cmplx.Abs(q.Alpha)*cmplx.Abs(q.Alpha) + cmplx.Abs(q.Beta)*cmplx.Abs(q.Beta)
			require.InDelta(t, 1.0, norm, 1e-9)
		}
	}
}

func TestMeasureOwnBasisDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, basis := range []Basis{Computational, Hadamard} {
		for _, bit := range []Bit{Zero, One} {
			q := FromBasisState(basis, bit)
			result := Measure(q, basis, rng)
			require.Equal(t, bit, result.Bit)
		}
	}
}

func TestMeasureOtherBasisUnbiased(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	q := FromBasisState(Computational, Zero)
	zeros := 0
	trials := 20000
	for i := 0; i < trials; i++ {
		if Measure(q, Hadamard, rng).Bit == Zero {
			zeros++
		}
	}
	freq := float64(zeros) / float64(trials)
	require.InDelta(t, 0.5, freq, 0.02)
}

func TestBlochCoordinatesComputationalZero(t *testing.T) {
	q := FromBasisState(Computational, Zero)
	x, y, z := BlochCoordinates(q)
	require.InDelta(t, 0.0, x, 1e-9)
	require.InDelta(t, 0.0, y, 1e-9)
	require.InDelta(t, 1.0, z, 1e-9)
}

func TestBitsToBytesRoundTrip(t *testing.T) {
	bits := []Bit{One, Zero, One, One, Zero, Zero, Zero, One}
	bytes := BitsToBytes(bits)
	require.Len(t, bytes, 1)

	recovered := BytesToBits(bytes, 8)
	require.Equal(t, bits, recovered)
}

func TestApplyDepolarizationKeepsNormalization(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	q := FromBasisState(Hadamard, One)
	for i := 0; i < 100; i++ {
		q = ApplyDepolarization(q, 0.3, rng)
		norm := cmplx.Abs(q.Alpha)*cmplx.Abs(q.Alpha) + cmplx.Abs(q.Beta)*cmplx.Abs(q.Beta)
		require.InDelta(t, 1.0, norm, 1e-6)
	}
}

func TestFromBasisStateHadamard(t *testing.T) {
	plus := FromBasisState(Hadamard, Zero)
	require.InDelta(t, 1/math.Sqrt2, real(plus.Alpha), 1e-9)
	require.InDelta(t, 1/math.Sqrt2, real(plus.Beta), 1e-9)
}
