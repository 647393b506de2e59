package quantum

import "math/rand"

const detectionHistoryCap = 1000
const detectionHistoryTrimTo = 500

// DetectionInfo records which mechanism produced (or refused) a detection
// event, for downstream bit-correction in the BB84 receiver.
type DetectionInfo struct {
	Detected    bool
	DarkCount   bool
	Crosstalk   bool
	Afterpulse  bool
	DeadTime    bool
	TimingJitter float64 // ns
}

// Detector models a single-photon detector with dead-time, dark counts,
// afterpulsing, and crosstalk.
type Detector struct {
	Efficiency          float64
	DarkCountRate       float64 // counts/s
	DeadTime            float64 // microseconds
	TimingJitter        float64 // ns
	AfterpulseProbability float64
	CrosstalkProbability  float64

	isDead           bool
	deadUntil        float64
	detectionHistory []float64
}

// NewDetector returns a detector with the given physical parameters.
func NewDetector(efficiency, darkCountRate, deadTime, timingJitter float64) *Detector {
	return &Detector{
		Efficiency:    efficiency,
		DarkCountRate: darkCountRate,
		DeadTime:      deadTime,
		TimingJitter:  timingJitter,
	}
}

// Detect implements spec 4.4's state machine, keyed by `now` (seconds).
func (d *Detector) Detect(q *Qubit, present bool, now float64, rng *rand.Rand) DetectionInfo {
	if d.isDead && now < d.deadUntil {
		return DetectionInfo{DeadTime: true}
	}

	if rng.Float64() < d.DarkCountRate*1e-6 {
		d.record(now)
		return DetectionInfo{Detected: true, DarkCount: true}
	}

	if rng.Float64() < d.CrosstalkProbability {
		d.record(now)
		return DetectionInfo{Detected: true, Crosstalk: true}
	}

	if len(d.detectionHistory) > 0 && rng.Float64() < d.AfterpulseProbability {
		d.record(now)
		return DetectionInfo{Detected: true, Afterpulse: true}
	}

	if present && rng.Float64() < d.Efficiency {
		d.record(now)
		jitter := rng.NormFloat64() * d.TimingJitter
		return DetectionInfo{Detected: true, TimingJitter: jitter}
	}

	return DetectionInfo{Detected: false}
}

func (d *Detector) record(now float64) {
	d.detectionHistory = append(d.detectionHistory, now)
	if len(d.detectionHistory) > detectionHistoryCap {
		d.detectionHistory = append([]float64{}, d.detectionHistory[len(d.detectionHistory)-detectionHistoryTrimTo:]...)
	}
	d.isDead = true
	d.deadUntil = now + d.DeadTime*1e-6
}

// HistoryLen reports the current number of retained detection timestamps.
func (d *Detector) HistoryLen() int {
	return len(d.detectionHistory)
}
