package reconcile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

func randomKeyWithErrors(n, errors int, rng *rand.Rand) ([]quantum.Bit, []quantum.Bit) {
	sender := make([]quantum.Bit, n)
	for i := range sender {
		if rng.Float64() < 0.5 {
			sender[i] = quantum.One
		}
	}
	receiver := append([]quantum.Bit{}, sender...)
	seen := map[int]bool{}
	for len(seen) < errors {
		idx := rng.Intn(n)
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if receiver[idx] == quantum.Zero {
			receiver[idx] = quantum.One
		} else {
			receiver[idx] = quantum.Zero
		}
	}
	return sender, receiver
}

func TestCascadeMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sender, receiver := randomKeyWithErrors(512, 40, rng)

	initialErrors := 0
	for i := range sender {
		if sender[i] != receiver[i] {
			initialErrors++
		}
	}

	c := NewCascade()
	result := c.Reconcile(sender, receiver)

	residual := 0
	for i := range result.CorrectedSender {
		if result.CorrectedSender[i] != result.CorrectedReceiver[i] {
			residual++
		}
	}
	require.LessOrEqual(t, residual, initialErrors)

	seen := map[int]bool{}
	for _, pos := range result.DiscardedPositions {
		require.False(t, seen[pos], "revealed positions must be unique")
		seen[pos] = true
	}
}

func TestCascadeNoErrorsIsNoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	sender, receiver := randomKeyWithErrors(256, 0, rng)
	c := NewCascade()
	result := c.Reconcile(sender, receiver)
	require.Equal(t, sender, result.CorrectedSender)
	require.Equal(t, 0, result.BitsRevealed)
}

func TestReconcilerFactoryRejectsUnknownMethod(t *testing.T) {
	_, err := New("bogus")
	require.Error(t, err)
}

func TestHybridFallsBackToCascadeWhenGoodEnough(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	sender, receiver := randomKeyWithErrors(512, 2, rng)
	r, err := New(MethodHybrid)
	require.NoError(t, err)
	result := r.Reconcile(sender, receiver, rng)
	require.Equal(t, "hybrid", result.Method)
}
