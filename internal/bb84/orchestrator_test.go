package bb84

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/attack"
	"github.com/jaskrrish/qkdsim/internal/quantum"
)

func perfectConfig(numQubits int) *Config {
	source := quantum.NewPhotonSource(1.0)
	channel := quantum.NewChannel(0, 0, 0.001)
	detector := quantum.NewDetector(1.0, 0, 0, 0)
	return NewConfig(numQubits, source, channel, detector)
}

func TestRunNoNoiseNoAttackQBERZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := perfectConfig(2000)
	result := Run(cfg, rng)

	require.Equal(t, PhaseCompleted, result.Phases[len(result.Phases)-1])
	require.NotEmpty(t, result.SiftedSender)
	require.Equal(t, 0.0, result.SiftedQBER)
}

func TestRunSiftingLengthConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	cfg := perfectConfig(1000)
	result := Run(cfg, rng)

	require.Equal(t, len(result.MatchingIndices), len(result.SiftedSender))
	require.Equal(t, len(result.MatchingIndices), len(result.SiftedReceiver))
	require.LessOrEqual(t, len(result.MatchingIndices), 1000)
}

func TestRunInterceptResendRaisesQBERTowardQuarter(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := perfectConfig(20000)
	cfg.Eavesdropper = attack.New(attack.InterceptResend)
	result := Run(cfg, rng)

	require.InDelta(t, 0.25, result.SiftedQBER, 0.05)
	require.NotEmpty(t, result.AttackHistory)
}

func TestRunEmptySiftedKeyShortCircuits(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	source := quantum.NewPhotonSource(0.0)
	channel := quantum.NewChannel(0, 0, 0.001)
	detector := quantum.NewDetector(1.0, 0, 0, 0)
	cfg := NewConfig(50, source, channel, detector)
	result := Run(cfg, rng)

	require.Equal(t, 0.0, result.SiftedQBER)
	require.Empty(t, result.SiftedSender)
	require.Equal(t, PhaseCompleted, result.Phases[len(result.Phases)-1])
}

func TestFinalKeyLengthAtMostSiftedLength(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	cfg := perfectConfig(1000)
	result := Run(cfg, rng)
	require.LessOrEqual(t, len(result.FinalKey), len(result.SiftedSender))
}
