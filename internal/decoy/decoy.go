// Package decoy implements the decoy-state protocol used to bound a
// photon-number-splitting eavesdropper's information: signal/decoy/vacuum
// intensity classes, gain and error-rate estimation, and the GLLP
// single-photon key-rate formula.
package decoy

import (
	"fmt"
	"math"
	"math/rand"
)

// StateType classifies a pulse by intensity class.
type StateType string

const (
	StateSignal StateType = "signal"
	StateDecoy  StateType = "decoy"
	StateVacuum StateType = "vacuum"
)

// Parameters configures the intensity and probability of each state class.
type Parameters struct {
	SignalIntensity   float64
	DecoyIntensity    float64
	VacuumIntensity   float64
	SignalProbability float64
	DecoyProbability  float64
	VacuumProbability float64
}

// DefaultParameters mirrors the reference protocol's tuned defaults.
func DefaultParameters() Parameters {
	return Parameters{
		SignalIntensity:   0.5,
		DecoyIntensity:    0.1,
		VacuumIntensity:   0.0,
		SignalProbability: 0.7,
		DecoyProbability:  0.2,
		VacuumProbability: 0.1,
	}
}

// Result is the outcome of single-photon parameter estimation.
type Result struct {
	EstimatedSinglePhotonYield     float64
	EstimatedSinglePhotonErrorRate float64
	EstimatedSinglePhotonGain      float64
	EstimatedMultiPhotonGain       float64
	SecurityParameter              float64
	FinalKeyRate                   float64
	Success                        bool
}

// Protocol runs decoy-state sequence generation and analysis.
type Protocol struct {
	Parameters         Parameters
	DetectorEfficiency float64
	DarkCountRate      float64
}

// New validates that the three state probabilities sum to 1 and returns a
// configured Protocol.
func New(params Parameters, detectorEfficiency, darkCountRate float64) (*Protocol, error) {
	total := params.SignalProbability + params.DecoyProbability + params.VacuumProbability
	if math.Abs(total-1.0) > 1e-6 {
		return nil, fmt.Errorf("decoy: state probabilities must sum to 1.0, got %f", total)
	}
	return &Protocol{Parameters: params, DetectorEfficiency: detectorEfficiency, DarkCountRate: darkCountRate}, nil
}

// GenerateSequence draws numPulses independent state-class assignments.
func (p *Protocol) GenerateSequence(numPulses int, rng *rand.Rand) []StateType {
	states := make([]StateType, numPulses)
	for i := range states {
		r := rng.Float64()
		switch {
		case r < p.Parameters.SignalProbability:
			states[i] = StateSignal
		case r < p.Parameters.SignalProbability+p.Parameters.DecoyProbability:
			states[i] = StateDecoy
		default:
			states[i] = StateVacuum
		}
	}
	return states
}

// PhotonNumberDistribution simulates the Poisson photon-count distribution
// produced by numPulses pulses of the given state class.
func (p *Protocol) PhotonNumberDistribution(state StateType, numPulses int, rng *rand.Rand) map[int]int {
	dist := make(map[int]int)
	if state == StateVacuum {
		dist[0] = numPulses
		return dist
	}

	var intensity float64
	switch state {
	case StateSignal:
		intensity = p.Parameters.SignalIntensity
	case StateDecoy:
		intensity = p.Parameters.DecoyIntensity
	}

	for i := 0; i < numPulses; i++ {
		n := poisson(intensity, rng)
		dist[n]++
	}
	return dist
}

// GainAndErrorRate estimates the detection gain and error rate for a state
// class from its simulated photon-number distribution.
func (p *Protocol) GainAndErrorRate(state StateType, numPulses int, rng *rand.Rand) (gain, errorRate float64) {
	dist := p.PhotonNumberDistribution(state, numPulses, rng)

	totalDetections := 0.0
	totalErrors := 0.0
	for photonCount, count := range dist {
		var detectionProb, errorProb float64
		if photonCount == 0 {
			detectionProb = p.DarkCountRate
			errorProb = 0.5
		} else {
			detectionProb = 1 - math.Pow(1-p.DetectorEfficiency, float64(photonCount))
			errorProb = 0.5
		}
		totalDetections += float64(count) * detectionProb
		totalErrors += float64(count) * detectionProb * errorProb
	}

	gain = totalDetections / float64(numPulses)
	denom := totalDetections
	if denom < 1 {
		denom = 1
	}
	errorRate = totalErrors / denom
	return gain, errorRate
}

// EstimateSinglePhotonParameters applies the standard two-decoy-state GLLP
// estimator to bound the single-photon yield, error rate, and secure key
// rate from the measured gains and error rates of each state class.
func (p *Protocol) EstimateSinglePhotonParameters(signalGain, signalError, decoyGain, decoyError, vacuumGain, vacuumError float64) Result {
	muSignal := p.Parameters.SignalIntensity
	muDecoy := p.Parameters.DecoyIntensity

	if math.Abs(muSignal-muDecoy) < 1e-6 {
		return Result{}
	}

	y0 := vacuumGain
	_ = y0

	y1 := (decoyGain - vacuumGain) / muDecoy

	var e1 float64
	if decoyGain > vacuumGain {
		e1 = (decoyError*decoyGain - vacuumError*vacuumGain) / (decoyGain - vacuumGain)
	} else {
		e1 = 0.5
	}

	singlePhotonGain := y1 * muSignal
	multiPhotonGain := math.Max(0, signalGain-vacuumGain-singlePhotonGain)

	security := securityParameter(singlePhotonGain, multiPhotonGain, signalGain)
	keyRate := finalKeyRate(singlePhotonGain, e1)

	return Result{
		EstimatedSinglePhotonYield:     y1,
		EstimatedSinglePhotonErrorRate: e1,
		EstimatedSinglePhotonGain:      singlePhotonGain,
		EstimatedMultiPhotonGain:       multiPhotonGain,
		SecurityParameter:              security,
		FinalKeyRate:                   keyRate,
		Success:                        true,
	}
}

func securityParameter(singlePhotonGain, multiPhotonGain, totalGain float64) float64 {
	if totalGain <= 0 {
		return 0
	}
	security := singlePhotonGain / totalGain
	if multiPhotonGain > 0 {
		security *= 1 - multiPhotonGain/totalGain
	}
	return math.Max(0, math.Min(1, security))
}

// finalKeyRate applies the GLLP formula: R = Q1(1 - H2(e1) - f·H2(e1)) with
// f=1.1 the error-correction inefficiency.
func finalKeyRate(singlePhotonGain, singlePhotonError float64) float64 {
	if singlePhotonGain <= 0 {
		return 0
	}
	const f = 1.1
	h := binaryEntropy(singlePhotonError)
	rate := singlePhotonGain * (1 - h - f*h)
	return math.Max(0, rate)
}

func binaryEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

// poisson draws from a Poisson(lambda) distribution via Knuth's algorithm,
// matching the quantum package's photon-count emission model.
func poisson(lambda float64, rng *rand.Rand) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}
