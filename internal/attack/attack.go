// Package attack implements the three canonical BB84 eavesdropping
// strategies and the statistical detector that flags them from QBER and
// error-clustering evidence.
package attack

import (
	"math"
	"math/rand"
	"sort"

	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// Type tags the family of eavesdropping strategy in play.
type Type string

const (
	NoAttack              Type = "no_attack"
	InterceptResend       Type = "intercept_resend"
	PhotonNumberSplitting Type = "photon_number_splitting"
	DetectorBlinding      Type = "detector_blinding"
)

// Intercept is a single eavesdropping event against one qubit slot.
type Intercept struct {
	Index       int
	MeasuredBit quantum.Bit
	Basis       quantum.Basis
}

// Context carries the per-slot information an eavesdropper variant needs
// beyond the qubit itself (photon count for PNS, detector id for blinding).
type Context struct {
	PhotonCount int
	DetectorID  string
}

// Eavesdropper is the uniform interface behind the three attack variants.
type Eavesdropper interface {
	Intercept(q quantum.Qubit, ctx Context, rng *rand.Rand) quantum.Qubit
	History() []Intercept
}

// InterceptResendEavesdropper picks a random basis, measures, and with probability
// ResendError flips the bit before re-emitting.
type InterceptResendEavesdropper struct {
	MeasurementError float64
	ResendError      float64
	history          []Intercept
}

func NewInterceptResend() *InterceptResendEavesdropper {
	return &InterceptResendEavesdropper{MeasurementError: 0.1, ResendError: 0.05}
}

func (e *InterceptResendEavesdropper) Intercept(q quantum.Qubit, ctx Context, rng *rand.Rand) quantum.Qubit {
	basis := quantum.Computational
	if rng.Float64() < 0.5 {
		basis = quantum.Hadamard
	}
	result := quantum.Measure(q, basis, rng)
	bit := result.Bit
	if rng.Float64() < e.ResendError {
		bit = flip(bit)
	}
	e.history = append(e.history, Intercept{Index: len(e.history), MeasuredBit: bit, Basis: basis})
	return quantum.FromBasisState(basis, bit)
}

func (e *InterceptResendEavesdropper) History() []Intercept { return e.history }

// PhotonNumberSplittingEavesdropper exploits multi-photon pulses: if
// photon_count is at least MultiPhotonThreshold and a draw succeeds, the
// eavesdropper measures in a random basis, records the bit, and re-emits the
// corresponding basis state; otherwise it falls back to plain intercept-resend.
type PhotonNumberSplittingEavesdropper struct {
	SplittingEfficiency   float64
	MultiPhotonThreshold  int
	SuccessfulSplits      int
	fallback              *InterceptResendEavesdropper
	history               []Intercept
}

func NewPhotonNumberSplitting() *PhotonNumberSplittingEavesdropper {
	return &PhotonNumberSplittingEavesdropper{
		SplittingEfficiency:  0.8,
		MultiPhotonThreshold: 2,
		fallback:             NewInterceptResend(),
	}
}

func (e *PhotonNumberSplittingEavesdropper) Intercept(q quantum.Qubit, ctx Context, rng *rand.Rand) quantum.Qubit {
	if ctx.PhotonCount >= e.MultiPhotonThreshold && rng.Float64() < e.SplittingEfficiency {
		e.SuccessfulSplits++
		basis := quantum.Computational
		if rng.Float64() < 0.5 {
			basis = quantum.Hadamard
		}
		result := quantum.Measure(q, basis, rng)
		e.history = append(e.history, Intercept{Index: len(e.history), MeasuredBit: result.Bit, Basis: basis})
		return quantum.FromBasisState(basis, result.Bit)
	}
	out := e.fallback.Intercept(q, ctx, rng)
	e.history = append(e.history, e.fallback.History()[len(e.fallback.History())-1])
	return out
}

func (e *PhotonNumberSplittingEavesdropper) History() []Intercept { return e.history }

// detectorProfile is the blinding attacker's per-victim simulated state,
// lazily created the first time a given detector id is seen.
type detectorProfile struct {
	biasVoltage          float64
	temperature          float64
	darkCountRate        float64
	deadTime             float64
	efficiency           float64
	blindingSusceptibility float64
}

// DetectorBlindingEavesdropper attempts to force a detector into a state the
// attacker controls, degrading it on partial success.
type DetectorBlindingEavesdropper struct {
	BlindingEfficiency float64
	BlindingPower      float64
	DetectorControl    float64
	SuccessfulBlinds   int

	detectors map[string]*detectorProfile
	fallback  *InterceptResendEavesdropper
	history   []Intercept
}

func NewDetectorBlinding() *DetectorBlindingEavesdropper {
	return &DetectorBlindingEavesdropper{
		BlindingEfficiency: 0.9,
		BlindingPower:      0.8,
		DetectorControl:    0.7,
		detectors:          make(map[string]*detectorProfile),
		fallback:           NewInterceptResend(),
	}
}

func (e *DetectorBlindingEavesdropper) profileFor(id string, rng *rand.Rand) *detectorProfile {
	if p, ok := e.detectors[id]; ok {
		return p
	}
	p := &detectorProfile{
		biasVoltage:            0.8 + rng.Float64()*0.4,
		temperature:            20 + rng.Float64()*60,
		darkCountRate:          1 + rng.Float64()*999,
		deadTime:               0.001 + rng.Float64()*0.999,
		efficiency:             0.1 + rng.Float64()*0.8,
		blindingSusceptibility: 0.1 + rng.Float64()*0.8,
	}
	e.detectors[id] = p
	return p
}

func (e *DetectorBlindingEavesdropper) Intercept(q quantum.Qubit, ctx Context, rng *rand.Rand) quantum.Qubit {
	if rng.Float64() >= e.BlindingEfficiency {
		out := e.fallback.Intercept(q, ctx, rng)
		e.history = append(e.history, e.fallback.History()[len(e.fallback.History())-1])
		return out
	}
	e.SuccessfulBlinds++
	profile := e.profileFor(ctx.DetectorID, rng)

	if rng.Float64() < e.DetectorControl {
		if profile.blindingSusceptibility > 0.7 && rng.Float64() < e.BlindingPower {
			bit := quantum.Zero
			if rng.Float64() < 0.5 {
				bit = quantum.One
			}
			basis := quantum.Computational
			if rng.Float64() < 0.5 {
				basis = quantum.Hadamard
			}
			e.history = append(e.history, Intercept{Index: len(e.history), MeasuredBit: bit, Basis: basis})
			return quantum.FromBasisState(basis, bit)
		}
		profile.efficiency *= 0.5 + rng.Float64()*0.4
		profile.darkCountRate *= 1.2 + rng.Float64()*0.8
		profile.deadTime *= 0.8 + rng.Float64()*0.7
	}

	out := e.fallback.Intercept(q, ctx, rng)
	e.history = append(e.history, e.fallback.History()[len(e.fallback.History())-1])
	return out
}

func (e *DetectorBlindingEavesdropper) History() []Intercept { return e.history }

func flip(b quantum.Bit) quantum.Bit {
	if b == quantum.Zero {
		return quantum.One
	}
	return quantum.Zero
}

// New returns the eavesdropper variant for the given attack type, or nil for NoAttack.
func New(t Type) Eavesdropper {
	switch t {
	case InterceptResend:
		return NewInterceptResend()
	case PhotonNumberSplitting:
		return NewPhotonNumberSplitting()
	case DetectorBlinding:
		return NewDetectorBlinding()
	default:
		return nil
	}
}

// Detection is the statistical-detector verdict on a completed run.
type Detection struct {
	AttackDetected bool
	AttackType     Type
	Confidence     float64
	Indicators     []string
}

// Detector flags likely eavesdropping from QBER, error clustering, and any
// declared attack strength.
type Detector struct {
	QBERThreshold         float64
	StatisticalThreshold  float64
}

func NewDetector() *Detector {
	return &Detector{QBERThreshold: 0.10, StatisticalThreshold: 0.03}
}

// Detect implements spec 4.6's attack detector.
func (d *Detector) Detect(qber float64, keyLength int, errorPositions []int, declaredStrength float64) Detection {
	var confidence float64
	var indicators []string
	detected := false

	if qber > d.QBERThreshold {
		detected = true
		confidence = math.Min(0.9, (qber-d.QBERThreshold)/0.05)
		indicators = append(indicators, "qber_above_threshold")
	}

	clustering := errorClustering(errorPositions)
	if clustering > d.StatisticalThreshold {
		detected = true
		if clustering > confidence {
			confidence = clustering
		}
		indicators = append(indicators, "error_clustering")
	}

	if declaredStrength > 0.3 {
		detected = true
		if declaredStrength > confidence {
			confidence = declaredStrength
		}
		indicators = append(indicators, "declared_attack_strength")
	}

	attackType := classify(qber, clustering, detected)

	return Detection{
		AttackDetected: detected,
		AttackType:     attackType,
		Confidence:     confidence,
		Indicators:     indicators,
	}
}

func classify(qber, clustering float64, detected bool) Type {
	switch {
	case qber > 0.25:
		return InterceptResend
	case qber > 0.15 && clustering > 0.3:
		return PhotonNumberSplitting
	case qber > 0.15:
		return InterceptResend
	case detected:
		return "unknown"
	default:
		return NoAttack
	}
}

// errorClustering computes max(0, 1 - avg_gap) over sorted error positions,
// with an expected uniform gap of 1.0.
func errorClustering(positions []int) float64 {
	if len(positions) < 2 {
		return 0
	}
	sorted := append([]int{}, positions...)
	sort.Ints(sorted)
	totalGap := 0.0
	for i := 1; i < len(sorted); i++ {
		totalGap += float64(sorted[i] - sorted[i-1])
	}
	avgGap := totalGap / float64(len(sorted)-1)
	v := 1 - avgGap
	if v < 0 {
		return 0
	}
	return v
}
