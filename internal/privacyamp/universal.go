package privacyamp

import (
	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// UniversalFamily selects between the polynomial and linear universal hash
// constructions, both over GF(2).
type UniversalFamily string

const (
	FamilyPolynomial UniversalFamily = "polynomial"
	FamilyLinear     UniversalFamily = "linear"
)

// universalHash applies a polynomial-evaluation universal hash: the input
// is packed into GF(2) coefficients and evaluated at a random point, with
// the result expanded bit by bit to outputLen via a random linear matrix.
// Falls back to the pure linear family when the input is too short for a
// meaningful polynomial degree.
func (a *Amplifier) universalHash(input []quantum.Bit, outputLen int) []quantum.Bit {
	if len(input) < 8 {
		return linearHash(input, outputLen)
	}
	return polynomialHash(input, outputLen)
}

// polynomialHash treats 8-bit chunks of input as coefficients of a
// polynomial over GF(2^8) (via byte arithmetic mod 257 for a prime field
// approximation) evaluated at a random point, then expands the digest to
// outputLen bits with a random linear matrix.
func polynomialHash(input []quantum.Bit, outputLen int) []quantum.Bit {
	coeffs := packChunks(input, 8)
	point := int(seedBits(16)[0]) + 2 // tiny nonzero point in [2,3]
	const prime = 257

	acc := 0
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = (acc*point + coeffs[i]) % prime
	}

	digest := make([]quantum.Bit, 16)
	for i := 0; i < 16; i++ {
		if (acc>>uint(i))&1 == 1 {
			digest[i] = quantum.One
		}
	}
	return expandLinear(digest, outputLen)
}

// linearHash computes out[i] = XOR over j of (randomMatrix[i][j] AND input[j]),
// the textbook GF(2) linear universal hash family.
func linearHash(input []quantum.Bit, outputLen int) []quantum.Bit {
	return expandLinear(input, outputLen)
}

func expandLinear(input []quantum.Bit, outputLen int) []quantum.Bit {
	n := len(input)
	if n == 0 || outputLen <= 0 {
		return nil
	}
	rowBits := seedBits(outputLen * n)
	out := make([]quantum.Bit, outputLen)
	for i := 0; i < outputLen; i++ {
		sum := 0
		for j := 0; j < n; j++ {
			if rowBits[i*n+j] == quantum.One {
				sum += int(input[j])
			}
		}
		out[i] = quantum.Bit(sum % 2)
	}
	return out
}

func packChunks(bits []quantum.Bit, chunkSize int) []int {
	var chunks []int
	for i := 0; i < len(bits); i += chunkSize {
		end := i + chunkSize
		if end > len(bits) {
			end = len(bits)
		}
		val := 0
		for _, b := range bits[i:end] {
			val = val<<1 | int(b)
		}
		chunks = append(chunks, val)
	}
	return chunks
}
