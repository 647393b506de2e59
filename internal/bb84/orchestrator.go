package bb84

import (
	"math/rand"

	"github.com/jaskrrish/qkdsim/internal/attack"
	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// Config bundles the subsystem configuration an orchestrated run wires
// together. The facade in internal/simulator constructs one per run from
// validated SimulationParameters.
type Config struct {
	NumQubits int

	Source  *quantum.PhotonSource
	Channel *quantum.Channel
	Detector *quantum.Detector

	Eavesdropper attack.Eavesdropper

	ReconciliationEfficiency       float64 // built-in fallback, default 0.6
	PrivacyAmplificationFraction   float64 // built-in fallback, default 0.98
}

// NewConfig returns a Config with the built-in reconciliation/privacy-amp
// fallback fractions set per spec 4.5.
func NewConfig(numQubits int, source *quantum.PhotonSource, channel *quantum.Channel, detector *quantum.Detector) *Config {
	return &Config{
		NumQubits:                    numQubits,
		Source:                       source,
		Channel:                      channel,
		Detector:                     detector,
		ReconciliationEfficiency:     0.6,
		PrivacyAmplificationFraction: 0.98,
	}
}

// Run executes one full BB84 phased exchange and returns the immutable
// result record. rng drives all stochastic operations within the run
// (simulation PRNG, per spec 5's PRNG/CSPRNG split).
func Run(cfg *Config, rng *rand.Rand) Result {
	var result Result
	result.Phases = append(result.Phases, PhaseInitialization)

	n := cfg.NumQubits
	result.SenderBases = make([]quantum.Basis, n)
	result.SenderBits = make([]quantum.Bit, n)
	states := make([]quantum.Qubit, n)

	for i := 0; i < n; i++ {
		basis := quantum.Computational
		if rng.Float64() < 0.5 {
			basis = quantum.Hadamard
		}
		bit := quantum.Zero
		if rng.Float64() < 0.5 {
			bit = quantum.One
		}
		result.SenderBases[i] = basis
		result.SenderBits[i] = bit
		states[i] = quantum.FromBasisState(basis, bit)
	}

	result.Phases = append(result.Phases, PhaseQuantumTransmission)
	transmitted := make([]*quantum.Qubit, n)
	for i, st := range states {
		emitted, ok := cfg.Source.Emit(st, rng)
		if !ok {
			continue
		}
		survived, ok := cfg.Channel.Transmit(emitted, rng)
		if !ok {
			continue
		}
		q := survived
		transmitted[i] = &q
	}

	if cfg.Eavesdropper != nil {
		for i, q := range transmitted {
			if q == nil {
				continue
			}
			ctx := attack.Context{PhotonCount: maxInt(1, q.PhotonCount), DetectorID: "receiver-detector"}
			intercepted := cfg.Eavesdropper.Intercept(*q, ctx, rng)
			transmitted[i] = &intercepted
		}
		result.AttackHistory = cfg.Eavesdropper.History()
	}

	result.Phases = append(result.Phases, PhaseBasisAnnouncement)
	result.ReceiverBases = make([]quantum.Basis, n)
	result.ReceiverBits = make([]quantum.Bit, n)
	result.Detected = make([]bool, n)

	for i, q := range transmitted {
		basis := quantum.Computational
		if rng.Float64() < 0.5 {
			basis = quantum.Hadamard
		}
		result.ReceiverBases[i] = basis

		present := q != nil
		var qubit quantum.Qubit
		if present {
			qubit = *q
		}
		info := cfg.Detector.Detect(&qubit, present, float64(i), rng)
		if !info.Detected {
			continue
		}

		bit := quantum.Measure(qubit, basis, rng).Bit
		bit = applyDetectionCorrections(bit, info, rng)

		result.Detected[i] = true
		result.ReceiverBits[i] = bit
	}

	result.Phases = append(result.Phases, PhaseSifting)
	for i := 0; i < n; i++ {
		if result.Detected[i] && result.SenderBases[i] == result.ReceiverBases[i] {
			result.MatchingIndices = append(result.MatchingIndices, i)
			result.SiftedSender = append(result.SiftedSender, result.SenderBits[i])
			result.SiftedReceiver = append(result.SiftedReceiver, result.ReceiverBits[i])
		}
	}

	result.Phases = append(result.Phases, PhaseErrorEstimation)
	if len(result.SiftedSender) == 0 {
		result.SiftedQBER = 0
		result.RawQBER = 0
		result.Phases = append(result.Phases, PhaseCompleted)
		return result
	}

	for i := range result.SiftedSender {
		if result.SiftedSender[i] != result.SiftedReceiver[i] {
			result.ErrorPositions = append(result.ErrorPositions, i)
		}
	}
	result.SiftedQBER = float64(len(result.ErrorPositions)) / float64(len(result.SiftedSender))
	result.RawQBER = result.SiftedQBER

	result.Phases = append(result.Phases, PhaseReconciliation)
	result.ReconciledSender, result.ReconciledReceiver = builtinReconcile(result.SiftedSender, result.SiftedReceiver, cfg.ReconciliationEfficiency, rng)
	result.ReconciliationInfo = map[string]any{
		"method":     "builtin",
		"efficiency": cfg.ReconciliationEfficiency,
	}

	result.Phases = append(result.Phases, PhasePrivacyAmplification)
	result.FinalKey = builtinPrivacyAmplify(result.ReconciledSender, cfg.PrivacyAmplificationFraction)
	result.PrivacyAmplificationInfo = map[string]any{
		"method":   "builtin",
		"fraction": cfg.PrivacyAmplificationFraction,
	}

	errs := 0
	for i := range result.ReconciledSender {
		if result.ReconciledSender[i] != result.ReconciledReceiver[i] {
			errs++
		}
	}
	if len(result.ReconciledSender) > 0 {
		result.FinalQBER = float64(errs) / float64(len(result.ReconciledSender))
	}

	result.Phases = append(result.Phases, PhaseCompleted)
	return result
}

// applyDetectionCorrections implements spec 4.5's post-hoc detection bit
// corrections (dark count replaces with a uniform bit; crosstalk flips;
// afterpulse leaves the measured bit unchanged and does not substitute the
// previous detection's bit; large timing jitter adds an additional 10% flip
// chance).
func applyDetectionCorrections(bit quantum.Bit, info quantum.DetectionInfo, rng *rand.Rand) quantum.Bit {
	switch {
	case info.DarkCount:
		if rng.Float64() < 0.5 {
			return quantum.One
		}
		return quantum.Zero
	case info.Crosstalk:
		return flipBit(bit)
	case info.Afterpulse:
		return bit
	}
	if abs(info.TimingJitter) > 0.1 && rng.Float64() < 0.1 {
		return flipBit(bit)
	}
	return bit
}

func flipBit(b quantum.Bit) quantum.Bit {
	if b == quantum.Zero {
		return quantum.One
	}
	return quantum.Zero
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// builtinReconcile is the non-advanced reconciliation fallback: it corrects
// a fixed fraction of the known error positions by copying the sender's
// bit over the receiver's, leaving the rest untouched.
func builtinReconcile(sender, receiver []quantum.Bit, efficiency float64, rng *rand.Rand) ([]quantum.Bit, []quantum.Bit) {
	correctedSender := append([]quantum.Bit{}, sender...)
	correctedReceiver := append([]quantum.Bit{}, receiver...)

	var errors []int
	for i := range sender {
		if sender[i] != receiver[i] {
			errors = append(errors, i)
		}
	}

	toCorrect := int(float64(len(errors)) * efficiency)
	rng.Shuffle(len(errors), func(i, j int) { errors[i], errors[j] = errors[j], errors[i] })
	for _, idx := range errors[:toCorrect] {
		correctedReceiver[idx] = correctedSender[idx]
	}

	return correctedSender, correctedReceiver
}

// builtinPrivacyAmplify is the non-advanced privacy-amplification fallback:
// truncate to a fixed fraction of the reconciled key length.
func builtinPrivacyAmplify(key []quantum.Bit, fraction float64) []quantum.Bit {
	outLen := int(float64(len(key)) * fraction)
	if outLen > len(key) {
		outLen = len(key)
	}
	return append([]quantum.Bit{}, key[:outLen]...)
}
