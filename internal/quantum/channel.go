package quantum

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// Channel models the lossy, dispersive, birefringent quantum channel a
// qubit travels through between source and detector.
type Channel struct {
	AttenuationDBPerKm        float64
	DepolarizationRate        float64 // [0,1]
	LengthKm                  float64
	WavelengthNm              float64
	TemperatureC              float64
	ChromaticDispersion       float64 // ps/(nm*km)
	PolarizationModeDispersion float64 // ps/km^0.5
	NonlinearCoefficient      float64 // m^2/W
}

// NewChannel returns a channel with the reference defaults for dispersion
// and nonlinearity, overriding only the commonly-tuned parameters.
func NewChannel(attenuation, depolarization, length float64) *Channel {
	return &Channel{
		AttenuationDBPerKm:         attenuation,
		DepolarizationRate:         depolarization,
		LengthKm:                   length,
		WavelengthNm:               1550.0,
		TemperatureC:               20.0,
		ChromaticDispersion:        17.0,
		PolarizationModeDispersion: 0.1,
		NonlinearCoefficient:       2.6e-20,
	}
}

func (c *Channel) temperatureCorrectedAttenuation() float64 {
	return c.AttenuationDBPerKm * (1 + 0.001*(c.TemperatureC-20))
}

// Transmit implements spec 4.3: drop the qubit probabilistically according
// to attenuation (with loss floors), otherwise apply depolarization,
// chromatic-dispersion jitter, PMD rotation, Kerr phase, and wavelength
// penalty, in that order.
func (c *Channel) Transmit(q Qubit, rng *rand.Rand) (Qubit, bool) {
	attenuationDB := c.temperatureCorrectedAttenuation() * c.LengthKm
	p := math.Pow(10, -attenuationDB/10)

	switch {
	case attenuationDB > 30:
		p = math.Max(p, 0.01)
	case attenuationDB > 20:
		p = math.Max(p, 0.05)
	case attenuationDB > 10:
		p = math.Max(p, 0.1)
	}

	if rng.Float64() > p {
		return Qubit{}, false
	}

	q = ApplyDepolarization(q, c.DepolarizationRate, rng)

	dispersionSigma := 0.1 * c.ChromaticDispersion * c.LengthKm * 1e-12
	q.TimingOffset += rng.NormFloat64() * dispersionSigma

	if rng.Float64() < 0.1 {
		pmdDelay := c.PolarizationModeDispersion * math.Sqrt(c.LengthKm) * 1e-12
		rotationAngle := rng.NormFloat64() * pmdDelay * 1e9
		q = rotate(q, rotationAngle)
	}

	if rng.Float64() < 0.05 {
		kerrPhase := rng.NormFloat64() * 0.05
		q.Beta = q.Beta * cmplx.Exp(complex(0, kerrPhase))
	}

	if math.Abs(c.WavelengthNm-1550) > 10 {
		wavelengthFactor := 1 + math.Abs(c.WavelengthNm-1550)/100
		if rng.Float64() < (wavelengthFactor-1)*0.1 {
			q.Beta = q.Beta * cmplx.Exp(complex(0, rng.NormFloat64()*0.02))
		}
	}

	return q, true
}

// rotate applies an SU(2) rotation by angle theta around an arbitrary axis
// fixed by the PMD model: a simple real rotation mixing alpha and beta.
func rotate(q Qubit, theta float64) Qubit {
	cos := complex(math.Cos(theta), 0)
	sin := complex(math.Sin(theta), 0)
	newAlpha := cos*q.Alpha - sin*q.Beta
	newBeta := sin*q.Alpha + cos*q.Beta
	q.Alpha, q.Beta = newAlpha, newBeta
	return q
}
