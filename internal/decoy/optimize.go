package decoy

import (
	"math"
	"math/rand"
)

// OptimizationResult captures one (signal, decoy) intensity pair's measured
// key rate during a parameter sweep.
type OptimizationResult struct {
	SignalIntensity   float64
	DecoyIntensity    float64
	KeyRate           float64
	SecurityParameter float64
	SinglePhotonYield float64
}

// SweepResult is the outcome of a full grid search.
type SweepResult struct {
	BestParameters      *Parameters
	BestKeyRate         float64
	Results             []OptimizationResult
	TargetDistanceKm    float64
	ChannelTransmission float64
}

// Optimizer sweeps signal/decoy intensities to find the pair maximizing key
// rate. TargetDistanceKm and ChannelLossDBPerKm only set the channel
// transmission reported in the SweepResult; the key-rate evaluation does not
// depend on them.
type Optimizer struct {
	TargetDistanceKm   float64
	ChannelLossDBPerKm float64
}

func NewOptimizer(targetDistanceKm, channelLossDBPerKm float64) *Optimizer {
	return &Optimizer{TargetDistanceKm: targetDistanceKm, ChannelLossDBPerKm: channelLossDBPerKm}
}

// OptimizeParameters performs a grid sweep of (signal, decoy) intensity
// pairs over [minIntensity,maxIntensity] and returns the best key rate
// found, along with every sampled point (no silent truncation of the
// search space).
func (o *Optimizer) OptimizeParameters(minIntensity, maxIntensity float64, numSamples int, rng *rand.Rand) SweepResult {
	transmission := dbTransmission(o.ChannelLossDBPerKm * o.TargetDistanceKm)

	signalIntensities := linspace(minIntensity, maxIntensity, numSamples)
	decoyIntensities := linspace(0.01, maxIntensity*0.5, numSamples)

	var best *Parameters
	bestRate := 0.0
	var results []OptimizationResult

	for _, muSignal := range signalIntensities {
		for _, muDecoy := range decoyIntensities {
			if muDecoy >= muSignal {
				continue
			}

			params := Parameters{
				SignalIntensity:   muSignal,
				DecoyIntensity:    muDecoy,
				VacuumIntensity:   0.0,
				SignalProbability: 0.7,
				DecoyProbability:  0.2,
				VacuumProbability: 0.1,
			}

			protocol, err := New(params, 0.1, 1e-6)
			if err != nil {
				continue
			}

			signalGain, signalError := protocol.GainAndErrorRate(StateSignal, 1000, rng)
			decoyGain, decoyError := protocol.GainAndErrorRate(StateDecoy, 1000, rng)
			vacuumGain, vacuumError := protocol.GainAndErrorRate(StateVacuum, 1000, rng)

			analysis := protocol.EstimateSinglePhotonParameters(signalGain, signalError, decoyGain, decoyError, vacuumGain, vacuumError)

			results = append(results, OptimizationResult{
				SignalIntensity:   muSignal,
				DecoyIntensity:    muDecoy,
				KeyRate:           analysis.FinalKeyRate,
				SecurityParameter: analysis.SecurityParameter,
				SinglePhotonYield: analysis.EstimatedSinglePhotonYield,
			})

			if analysis.FinalKeyRate > bestRate {
				bestRate = analysis.FinalKeyRate
				p := params
				best = &p
			}
		}
	}

	return SweepResult{
		BestParameters:      best,
		BestKeyRate:         bestRate,
		Results:             results,
		TargetDistanceKm:    o.TargetDistanceKm,
		ChannelTransmission: transmission,
	}
}

func dbTransmission(totalLossDB float64) float64 {
	return math.Pow(10, -totalLossDB/10)
}

func linspace(min, max float64, numSamples int) []float64 {
	if numSamples <= 1 {
		return []float64{min}
	}
	out := make([]float64, numSamples)
	step := (max - min) / float64(numSamples-1)
	for i := range out {
		out[i] = min + step*float64(i)
	}
	return out
}
