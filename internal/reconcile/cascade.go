// Package reconcile implements the classical error-correction stage of
// BB84 post-processing: Cascade, a simplified LDPC-style belief-propagation
// decoder, and a hybrid combinator.
package reconcile

import (
	"math/rand"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// Result is the outcome of a reconciliation pass, common across methods.
type Result struct {
	CorrectedSender    []quantum.Bit
	CorrectedReceiver  []quantum.Bit
	DiscardedPositions []int
	Method             string
	RoundsRequired     int
	BitsRevealed       int
	SuccessRate        float64
	FinalKeyLength     int
}

// Cascade implements spec 4.7's Cascade protocol.
type Cascade struct {
	InitialBlockSize int
	MaxRounds        int
	ParitySelection  string // "random" or "sequential"
}

func NewCascade() *Cascade {
	return &Cascade{InitialBlockSize: 64, MaxRounds: 4, ParitySelection: "random"}
}

// Reconcile runs up to MaxRounds of block-parity binary search, halving the
// block size each round and stopping early once QBER drops below 0.001.
func (c *Cascade) Reconcile(sender, receiver []quantum.Bit) Result {
	n := len(sender)
	correctedSender := append([]quantum.Bit{}, sender...)
	correctedReceiver := append([]quantum.Bit{}, receiver...)

	revealed := make(map[int]bool)
	blockSize := c.InitialBlockSize
	if blockSize < 2 {
		blockSize = 2
	}
	rounds := 0

	for round := 0; round < c.MaxRounds; round++ {
		rounds++
		blocks := makeBlocks(n, blockSize, round, c.ParitySelection)

		for _, block := range blocks {
			if len(block) < 2 {
				continue
			}
			if parity(correctedSender, block) != parity(correctedReceiver, block) {
				errPos := findErrorInBlock(correctedSender, correctedReceiver, block)
				if errPos >= 0 {
					correctedReceiver[errPos] = correctedSender[errPos]
					if !revealed[errPos] {
						revealed[errPos] = true
					}
				}
			}
		}

		if currentQBER(correctedSender, correctedReceiver) < 0.001 {
			break
		}
		blockSize = blockSize / 2
		if blockSize < 2 {
			blockSize = 2
		}
	}

	discarded := make([]int, 0, len(revealed))
	for idx := range revealed {
		discarded = append(discarded, idx)
	}

	errorsRemaining := countErrors(correctedSender, correctedReceiver)
	successRate := 1.0
	if n > 0 {
		successRate = 1 - float64(errorsRemaining)/float64(n)
	}

	return Result{
		CorrectedSender:    correctedSender,
		CorrectedReceiver:  correctedReceiver,
		DiscardedPositions: discarded,
		Method:             "cascade",
		RoundsRequired:     rounds,
		BitsRevealed:       len(revealed),
		SuccessRate:        successRate,
		FinalKeyLength:     n - len(revealed),
	}
}

// makeBlocks partitions [0,n) into blocks of size blockSize. In "random"
// mode the permutation is seeded with 42+round for reproducibility, per
// spec 4.7.
func makeBlocks(n, blockSize, round int, selection string) [][]int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if selection == "random" {
		r := rand.New(rand.NewSource(int64(42 + round)))
		r.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	var blocks [][]int
	for i := 0; i < n; i += blockSize {
		end := i + blockSize
		if end > n {
			end = n
		}
		block := append([]int{}, indices[i:end]...)
		if len(block) >= 2 {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func parity(key []quantum.Bit, block []int) int {
	sum := 0
	for _, idx := range block {
		sum += int(key[idx])
	}
	return sum % 2
}

// findErrorInBlock recursively binary-searches the block for the single
// position where sender and receiver disagree.
func findErrorInBlock(sender, receiver []quantum.Bit, block []int) int {
	if len(block) == 1 {
		idx := block[0]
		if sender[idx] != receiver[idx] {
			return idx
		}
		return -1
	}

	mid := len(block) / 2
	left := block[:mid]
	right := block[mid:]

	if parity(sender, left) != parity(receiver, left) {
		return findErrorInBlock(sender, receiver, left)
	}
	return findErrorInBlock(sender, receiver, right)
}

func countErrors(a, b []quantum.Bit) int {
	errs := 0
	for i := range a {
		if a[i] != b[i] {
			errs++
		}
	}
	return errs
}

func currentQBER(a, b []quantum.Bit) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(countErrors(a, b)) / float64(len(a))
}
