package quantum

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// PhotonSource models an imperfect single-photon emitter. Stateless across
// pulses; all randomness is drawn from the caller-supplied simulation PRNG.
type PhotonSource struct {
	Efficiency            float64 // [0,1]
	MultiPhotonProbability float64 // [0,1], informational only; actual multi-photon events come from the Poisson draw
	MeanPhotonsPerPulse   float64 // nominally 3.5
	TimingJitter          float64 // ns
	WavelengthStability   float64 // [0,1]
}

// NewPhotonSource returns a source with the reference defaults.
func NewPhotonSource(efficiency float64) *PhotonSource {
	return &PhotonSource{
		Efficiency:             efficiency,
		MultiPhotonProbability: 0.05,
		MeanPhotonsPerPulse:    3.5,
		TimingJitter:           0.1,
		WavelengthStability:    0.99,
	}
}

// Emit implements spec 4.2. Returns (qubit, ok); ok=false means the slot is
// lost before even reaching the channel.
func (s *PhotonSource) Emit(state Qubit, rng *rand.Rand) (Qubit, bool) {
	if rng.Float64() > s.Efficiency {
		return Qubit{}, false
	}

	n := poisson(s.MeanPhotonsPerPulse, rng)
	if n == 0 {
		return Qubit{}, false
	}

	out := s.applyImperfections(state, rng)
	if n > 1 {
		out.IsMultiPhoton = true
		out.PhotonCount = n
	} else {
		out.PhotonCount = 1
	}
	return out, true
}

func (s *PhotonSource) applyImperfections(q Qubit, rng *rand.Rand) Qubit {
	if rng.Float64() < 1-s.WavelengthStability {
		phaseShift := rng.NormFloat64() * 0.1
		q.Beta = q.Beta * cmplx.Exp(complex(0, phaseShift))
	}
	q.TimingOffset = rng.NormFloat64() * s.TimingJitter
	return q
}

// poisson draws from a Poisson(lambda) distribution via Knuth's algorithm.
// No ecosystem library in the example pack provides distribution sampling,
// so this is implemented directly on math/rand.
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
