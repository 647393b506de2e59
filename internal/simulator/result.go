package simulator

import (
	"github.com/jaskrrish/qkdsim/internal/attack"
	"github.com/jaskrrish/qkdsim/internal/bb84"
	"github.com/jaskrrish/qkdsim/internal/decoy"
)

// PerformanceMetrics is computed once a run completes, per spec 4.11.
type PerformanceMetrics struct {
	KeyRate           float64 // final/sifted
	SiftingEfficiency float64 // sifted/raw
	FinalEfficiency   float64 // final/raw
	SecurityLevel     float64 // max(0, 1-qber)
	RawToFinalRatio   float64
}

// Result is SimulationResult from spec 6.
type Result struct {
	SimulationID string
	Timestamp    string
	Parameters   Parameters

	BB84Result bb84.Result

	AttackDetection *attack.Detection
	DecoyResult     *decoy.Result

	PerformanceMetrics PerformanceMetrics
	SimulationTimeMs   int64
}

func computeMetrics(r bb84.Result) PerformanceMetrics {
	raw := len(r.SenderBits)
	sifted := len(r.SiftedSender)
	final := len(r.FinalKey)

	m := PerformanceMetrics{}
	if sifted > 0 {
		m.KeyRate = float64(final) / float64(sifted)
	}
	if raw > 0 {
		m.SiftingEfficiency = float64(sifted) / float64(raw)
		m.FinalEfficiency = float64(final) / float64(raw)
		m.RawToFinalRatio = float64(final) / float64(raw)
	}
	m.SecurityLevel = 1 - r.FinalQBER
	if m.SecurityLevel < 0 {
		m.SecurityLevel = 0
	}
	return m
}
