package reconcile

import (
	"math"
	"math/rand"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// LDPC is a deliberately simplified belief-propagation decoder: a
// heuristic damped-LLR iteration, not a faithful min-sum implementation.
// Documented as an approximation per spec 4.7/4.9.
type LDPC struct {
	CodeLength    int
	CodeRate      float64
	MaxIterations int

	infoBits   int
	parityBits int
	matrix     [][]int // parityBits x codeLength
}

func NewLDPC() *LDPC {
	l := &LDPC{CodeLength: 1024, CodeRate: 0.5, MaxIterations: 50}
	l.generateParityCheckMatrix(rand.New(rand.NewSource(1)))
	return l
}

func (l *LDPC) generateParityCheckMatrix(rng *rand.Rand) {
	l.infoBits = int(float64(l.CodeLength) * l.CodeRate)
	l.parityBits = l.CodeLength - l.infoBits

	l.matrix = make([][]int, l.parityBits)
	for i := range l.matrix {
		l.matrix[i] = make([]int, l.CodeLength)
		for j := 0; j < l.CodeLength; j++ {
			if rng.Float64() < 0.1 {
				l.matrix[i][j] = 1
			}
		}
	}
	for i := 0; i < l.parityBits; i++ {
		col := l.infoBits + i
		for j := 0; j < l.parityBits; j++ {
			if j == i {
				l.matrix[j][col] = 1
			} else {
				l.matrix[j][col] = 0
			}
		}
	}
}

// Encode appends (H_info . info) mod 2 as parity bits.
func (l *LDPC) Encode(info []quantum.Bit) []quantum.Bit {
	codeword := make([]quantum.Bit, l.CodeLength)
	copy(codeword, info)

	for i := 0; i < l.parityBits; i++ {
		sum := 0
		for j := 0; j < l.infoBits && j < len(info); j++ {
			sum += l.matrix[i][j] * int(info[j])
		}
		codeword[l.infoBits+i] = quantum.Bit(sum % 2)
	}
	return codeword
}

// Decode runs the damped-LLR belief-propagation approximation, returning
// the decoded information bits and whether the syndrome reached zero.
func (l *LDPC) Decode(received []quantum.Bit, rng *rand.Rand) ([]quantum.Bit, bool) {
	const p = 0.1
	llr := make([]float64, l.CodeLength)
	baseLLR := math.Log((1 - p) / p)
	for i, b := range received {
		llr[i] = baseLLR * (1 - 2*float64(b))
	}

	converged := false
	for iter := 0; iter < l.MaxIterations; iter++ {
		l.variableNodeUpdate(llr, rng)
		l.checkNodeUpdate(llr)
		if l.checkSyndrome(llr) {
			converged = true
			break
		}
	}

	decoded := make([]quantum.Bit, l.CodeLength)
	for i, v := range llr {
		if v < 0 {
			decoded[i] = 1
		}
	}
	return decoded[:l.infoBits], converged
}

func (l *LDPC) variableNodeUpdate(llr []float64, rng *rand.Rand) {
	for i := range llr {
		llr[i] = llr[i]*0.9 + rng.NormFloat64()*0.01
		if llr[i] > 10 {
			llr[i] = 10
		}
		if llr[i] < -10 {
			llr[i] = -10
		}
	}
}

func (l *LDPC) checkNodeUpdate(llr []float64) {
	hard := make([]float64, len(llr))
	sum := 0.0
	for i, v := range llr {
		if v < 0 {
			hard[i] = 1
		}
		sum += hard[i]
	}
	majority := 0.0
	if sum/float64(len(llr)) >= 0.5 {
		majority = 1
	}
	for i := range llr {
		llr[i] += 0.1 * (majority - hard[i])
	}
}

func (l *LDPC) checkSyndrome(llr []float64) bool {
	codeword := make([]int, len(llr))
	for i, v := range llr {
		if v < 0 {
			codeword[i] = 1
		}
	}
	for i := 0; i < l.parityBits; i++ {
		sum := 0
		for j := 0; j < l.CodeLength; j++ {
			sum += l.matrix[i][j] * codeword[j]
		}
		if sum%2 != 0 {
			return false
		}
	}
	return true
}
