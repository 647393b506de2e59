package decoy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadProbabilities(t *testing.T) {
	_, err := New(Parameters{SignalProbability: 0.5, DecoyProbability: 0.5, VacuumProbability: 0.5}, 0.1, 1e-6)
	require.Error(t, err)
}

func TestGenerateSequenceRespectsCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p, err := New(DefaultParameters(), 0.1, 1e-6)
	require.NoError(t, err)

	seq := p.GenerateSequence(5000, rng)
	require.Len(t, seq, 5000)

	counts := map[StateType]int{}
	for _, s := range seq {
		counts[s]++
	}
	signalFrac := float64(counts[StateSignal]) / 5000
	require.InDelta(t, 0.7, signalFrac, 0.05)
}

func TestVacuumDistributionIsAllZero(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	p, err := New(DefaultParameters(), 0.1, 1e-6)
	require.NoError(t, err)

	dist := p.PhotonNumberDistribution(StateVacuum, 500, rng)
	require.Equal(t, 500, dist[0])
}

func TestEstimateSinglePhotonParametersFailsWhenIntensitiesEqual(t *testing.T) {
	params := DefaultParameters()
	params.DecoyIntensity = params.SignalIntensity
	p, err := New(params, 0.1, 1e-6)
	require.NoError(t, err)

	result := p.EstimateSinglePhotonParameters(0.1, 0.02, 0.1, 0.02, 0.01, 0.5)
	require.False(t, result.Success)
}

func TestEstimateSinglePhotonParametersSucceeds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p, err := New(DefaultParameters(), 0.1, 1e-6)
	require.NoError(t, err)

	signalGain, signalError := p.GainAndErrorRate(StateSignal, 2000, rng)
	decoyGain, decoyError := p.GainAndErrorRate(StateDecoy, 2000, rng)
	vacuumGain, vacuumError := p.GainAndErrorRate(StateVacuum, 2000, rng)

	result := p.EstimateSinglePhotonParameters(signalGain, signalError, decoyGain, decoyError, vacuumGain, vacuumError)
	require.True(t, result.Success)
	require.GreaterOrEqual(t, result.FinalKeyRate, 0.0)
	require.GreaterOrEqual(t, result.SecurityParameter, 0.0)
	require.LessOrEqual(t, result.SecurityParameter, 1.0)
}

func TestOptimizerFindsNonNegativeBestRate(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	opt := NewOptimizer(50.0, 0.2)
	sweep := opt.OptimizeParameters(0.1, 0.8, 4, rng)
	require.GreaterOrEqual(t, sweep.BestKeyRate, 0.0)
	require.NotEmpty(t, sweep.Results)
}
