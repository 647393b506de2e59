package simulator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/attack"
)

func favorableParameters() Parameters {
	p := DefaultParameters()
	p.NumQubits = 2000
	p.ChannelAttenuationDB = 0.05
	p.ChannelLengthKm = 1
	p.ChannelDepolarization = 0
	p.PhotonSourceEfficiency = 0.95
	p.DetectorEfficiency = 0.95
	return p
}

func TestRunRejectsInvalidParameters(t *testing.T) {
	sim := New(nil)
	p := DefaultParameters()
	p.NumQubits = 2

	_, err := sim.Run(p, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestRunProducesResultAndHistory(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(1))

	result, err := sim.Run(favorableParameters(), rng)
	require.NoError(t, err)
	require.NotEmpty(t, result.SimulationID)
	require.Len(t, sim.History(), 1)

	found, ok := sim.GetSimulationByID(result.SimulationID)
	require.True(t, ok)
	require.Equal(t, result.SimulationID, found.SimulationID)
}

func TestRunWithAdvancedPostProcessingProducesFinalKey(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(2))

	p := favorableParameters()
	p.UseAdvancedReconciliation = true
	p.UseAdvancedPrivacyAmplification = true

	result, err := sim.Run(p, rng)
	require.NoError(t, err)
	require.NotNil(t, result.BB84Result.ReconciliationInfo)
	require.NotNil(t, result.BB84Result.PrivacyAmplificationInfo)
}

func TestRunWithDecoyStatesAttachesDecoyResult(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(3))

	p := favorableParameters()
	p.UseDecoyStates = true

	result, err := sim.Run(p, rng)
	require.NoError(t, err)
	require.NotNil(t, result.DecoyResult)
}

func TestRunWithAttackFlagsDetection(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(4))

	p := favorableParameters()
	p.AttackType = attack.InterceptResend

	result, err := sim.Run(p, rng)
	require.NoError(t, err)
	require.NotNil(t, result.AttackDetection)
}

func TestRunParameterSweepCoversCartesianProduct(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(5))

	sweep := map[string][]float64{
		"channel_attenuation": {0.05, 0.1},
		"detector_efficiency": {0.8, 0.9},
	}

	results, err := sim.RunParameterSweep(favorableParameters(), sweep, rng)
	require.NoError(t, err)
	require.Len(t, results, 4)
}

func TestGenerateKeyForUserMeetsRequestedLength(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(6))

	key, err := sim.GenerateKeyForUser("alice", 128, rng)
	require.NoError(t, err)
	require.Equal(t, 128, key.Length)
	require.Len(t, key.KeyBits, 128)

	cached, ok := sim.GetKey("alice")
	require.True(t, ok)
	require.Equal(t, key.SimulationID, cached.SimulationID)
}

func TestGenerateSharedKeyInstallsMutualEntries(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(7))

	_, err := sim.GenerateSharedKey("alice", "bob", 64, rng)
	require.NoError(t, err)

	aliceKey, ok := sim.GetKey("alice")
	require.True(t, ok)
	bobKey, ok := sim.GetKey("bob")
	require.True(t, ok)

	require.True(t, aliceKey.IsShared)
	require.Equal(t, "bob", aliceKey.SharedWith)
	require.Equal(t, "alice", bobKey.SharedWith)
	require.Equal(t, aliceKey.KeyBits, bobKey.KeyBits)
}

func TestStatisticsAggregatesAcrossRuns(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(8))

	for i := 0; i < 3; i++ {
		_, err := sim.Run(favorableParameters(), rng)
		require.NoError(t, err)
	}

	stats := sim.Statistics()
	require.Equal(t, 3, stats.TotalSimulations)
	require.GreaterOrEqual(t, stats.SuccessRate, 0.0)
}

func TestExportResultsMatchesHistory(t *testing.T) {
	sim := New(nil)
	rng := rand.New(rand.NewSource(9))

	_, err := sim.Run(favorableParameters(), rng)
	require.NoError(t, err)

	require.Equal(t, sim.History(), sim.ExportResults())
}
