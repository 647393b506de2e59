package privacyamp

import (
	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// toeplitzHash builds a conceptual outputLen x len(input) Toeplitz matrix
// from a seed sequence of (outputLen+len(input)-1) random bits and computes
// M.input over GF(2), one output bit per row, without materializing the
// matrix. M[i][j] = seed[i+j], mirroring the reference implementation.
func (a *Amplifier) toeplitzHash(input []quantum.Bit, outputLen int) []quantum.Bit {
	n := len(input)
	if n == 0 || outputLen <= 0 {
		return nil
	}

	seedLen := outputLen + n - 1
	seed := seedBits(seedLen)

	out := make([]quantum.Bit, outputLen)
	for i := 0; i < outputLen; i++ {
		sum := 0
		for j := 0; j < n; j++ {
			if seed[i+j] == quantum.One {
				sum += int(input[j])
			}
		}
		out[i] = quantum.Bit(sum % 2)
	}
	return out
}

// seedBits draws a fresh cryptographically random bit sequence for the
// Toeplitz seed row on every call.
func seedBits(n int) []quantum.Bit {
	raw := cryptoRandomBytes((n + 7) / 8)
	bits := make([]quantum.Bit, n)
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if raw[byteIdx]&(1<<bitIdx) != 0 {
			bits[i] = quantum.One
		}
	}
	return bits
}
