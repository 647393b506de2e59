// Package bb84 implements the phased BB84 quantum key distribution
// protocol: qubit generation, transmission through source/channel/attacker,
// detection, sifting, error estimation, and the built-in (non-advanced)
// reconciliation and privacy-amplification fallbacks.
package bb84

import (
	"github.com/jaskrrish/qkdsim/internal/attack"
	"github.com/jaskrrish/qkdsim/internal/quantum"
)

// Phase names the protocol state machine's stages, in run order.
type Phase string

const (
	PhaseInitialization     Phase = "INITIALIZATION"
	PhaseQuantumTransmission Phase = "QUANTUM_TRANSMISSION"
	PhaseBasisAnnouncement   Phase = "BASIS_ANNOUNCEMENT"
	PhaseSifting             Phase = "SIFTING"
	PhaseErrorEstimation     Phase = "ERROR_ESTIMATION"
	PhaseReconciliation      Phase = "RECONCILIATION"
	PhasePrivacyAmplification Phase = "PRIVACY_AMPLIFICATION"
	PhaseCompleted           Phase = "COMPLETED"
)

// TransmittedSlot is one channel-transmission outcome: either a surviving
// qubit, or "lost" (nil Qubit) meaning the photon never reached the
// receiver.
type TransmittedSlot struct {
	Qubit *quantum.Qubit
}

// DetectionOutcome pairs the receiver's chosen basis with whatever the
// detector reported for that slot.
type DetectionOutcome struct {
	Basis     quantum.Basis
	Detected  bool
	Bit       quantum.Bit
	Info      quantum.DetectionInfo
}

// Result is the immutable record of one completed (or short-circuited)
// BB84 run, per spec's "BB84 run record".
type Result struct {
	SenderBases  []quantum.Basis
	SenderBits   []quantum.Bit
	ReceiverBases []quantum.Basis
	ReceiverBits  []quantum.Bit
	Detected      []bool

	MatchingIndices []int
	SiftedSender    []quantum.Bit
	SiftedReceiver  []quantum.Bit

	ErrorPositions []int
	SiftedQBER     float64

	ReconciledSender   []quantum.Bit
	ReconciledReceiver []quantum.Bit
	ReconciliationInfo map[string]any

	FinalKey                []quantum.Bit
	PrivacyAmplificationInfo map[string]any

	AttackType      attack.Type
	AttackHistory   []attack.Intercept

	Phases []Phase

	RawQBER   float64
	FinalQBER float64
}
