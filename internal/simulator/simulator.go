package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jaskrrish/qkdsim/internal/attack"
	"github.com/jaskrrish/qkdsim/internal/bb84"
	"github.com/jaskrrish/qkdsim/internal/decoy"
	"github.com/jaskrrish/qkdsim/internal/privacyamp"
	"github.com/jaskrrish/qkdsim/internal/quantum"
	"github.com/jaskrrish/qkdsim/internal/reconcile"
)

const defaultKeyTTL = 3600 * time.Second

// CachedKey is a per-user key-cache entry, per spec 3's "Per-user key
// cache" data model.
type CachedKey struct {
	KeyBits       []quantum.Bit
	Length        int
	GeneratedAt   time.Time
	ExpiresAt     time.Time
	SimulationID  string
	QBER          float64
	SecurityLevel float64
	IsShared      bool
	SharedWith    string
	IsSynthetic   bool
}

// Simulator is the facade described by spec 4.11: it owns simulation
// history and the per-user key cache, both guarded by a single RWMutex in
// the teacher's SessionManager idiom.
type Simulator struct {
	mu      sync.RWMutex
	history []Result
	keys    map[string]*CachedKey

	log *logrus.Entry
}

// New returns an empty Simulator ready to run simulations.
func New(log *logrus.Logger) *Simulator {
	if log == nil {
		log = logrus.New()
	}
	return &Simulator{
		keys: make(map[string]*CachedKey),
		log:  log.WithField("component", "simulator"),
	}
}

// Run implements spec 4.11's run(params, id?): wires a photon source,
// channel, detector, and orchestrator, optionally applies an attack and
// advanced post-processing, computes performance metrics, and appends the
// result to history.
func (s *Simulator) Run(params Parameters, rng *rand.Rand) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()

	source := quantum.NewPhotonSource(params.PhotonSourceEfficiency)
	channel := quantum.NewChannel(params.ChannelAttenuationDB, params.ChannelDepolarization, params.ChannelLengthKm)
	if params.WavelengthNm != 0 {
		channel.WavelengthNm = params.WavelengthNm
	}
	if params.TemperatureC != 0 {
		channel.TemperatureC = params.TemperatureC
	}
	detector := quantum.NewDetector(params.DetectorEfficiency, params.DetectorDarkCountRate, params.DetectorDeadTime, params.DetectorTimingJitter)

	cfg := bb84.NewConfig(params.NumQubits, source, channel, detector)
	cfg.Eavesdropper = attack.New(params.AttackType)

	bb84Result := bb84.Run(cfg, rng)

	if params.UseAdvancedReconciliation && len(bb84Result.SiftedSender) > 0 {
		s.applyAdvancedReconciliation(&bb84Result, params, rng)
	}
	if params.UseAdvancedPrivacyAmplification && len(bb84Result.ReconciledSender) > 0 {
		s.applyAdvancedPrivacyAmplification(&bb84Result, params)
	}

	var decoyResult *decoy.Result
	if params.UseDecoyStates {
		decoyResult = s.applyDecoyStates(params, rng)
	}

	var detection *attack.Detection
	if params.AttackType != attack.NoAttack || bb84Result.SiftedQBER > 0 {
		det := attack.NewDetector()
		strength := params.AttackParameters["strength"]
		verdict := det.Detect(bb84Result.SiftedQBER, len(bb84Result.SiftedSender), bb84Result.ErrorPositions, strength)
		detection = &verdict
	}

	result := Result{
		SimulationID:       uuid.NewString(),
		Timestamp:          time.Now().Format(time.RFC3339),
		Parameters:         params,
		BB84Result:         bb84Result,
		AttackDetection:    detection,
		DecoyResult:        decoyResult,
		PerformanceMetrics: computeMetrics(bb84Result),
		SimulationTimeMs:   time.Since(start).Milliseconds(),
	}

	s.mu.Lock()
	s.history = append(s.history, result)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"simulation_id": result.SimulationID,
		"sifted_qber":   bb84Result.SiftedQBER,
		"final_key_len": len(bb84Result.FinalKey),
	}).Info("simulation run completed")

	return result, nil
}

// applyAdvancedReconciliation wires §4.7's Cascade/LDPC/Hybrid reconciler
// in place of the BB84 orchestrator's built-in fallback, then recomputes
// the run's reconciled keys and final QBER from its output.
func (s *Simulator) applyAdvancedReconciliation(r *bb84.Result, params Parameters, rng *rand.Rand) {
	reconciler, err := reconcile.New(params.ReconciliationMethod)
	if err != nil {
		return
	}
	out := reconciler.Reconcile(r.SiftedSender, r.SiftedReceiver, rng)
	r.ReconciledSender = out.CorrectedSender
	r.ReconciledReceiver = out.CorrectedReceiver
	r.ReconciliationInfo = map[string]any{
		"method":          out.Method,
		"rounds_required": out.RoundsRequired,
		"bits_revealed":   out.BitsRevealed,
		"success_rate":    out.SuccessRate,
	}

	errs := 0
	for i := range r.ReconciledSender {
		if i < len(r.ReconciledReceiver) && r.ReconciledSender[i] != r.ReconciledReceiver[i] {
			errs++
		}
	}
	if len(r.ReconciledSender) > 0 {
		r.FinalQBER = float64(errs) / float64(len(r.ReconciledSender))
	}
}

// applyAdvancedPrivacyAmplification wires §4.8's Toeplitz/Universal/Hybrid
// amplifier in place of the orchestrator's built-in truncation fallback.
func (s *Simulator) applyAdvancedPrivacyAmplification(r *bb84.Result, params Parameters) {
	amp, err := privacyamp.New(params.PrivacyAmplificationMethod, len(r.ReconciledSender))
	if err != nil {
		return
	}
	out, err := amp.Amplify(r.ReconciledSender)
	if err != nil {
		return
	}
	r.FinalKey = out.FinalKey
	r.PrivacyAmplificationInfo = map[string]any{
		"method":             out.Method,
		"compression_ratio":  out.CompressionRatio,
		"security_parameter": out.SecurityParameter,
		"entropy_estimate":   out.EntropyEstimate,
	}
}

// applyDecoyStates runs a standalone decoy-state analysis alongside the
// main BB84 run, per spec 4.9/4.11 ("(6) runs alongside (3)").
func (s *Simulator) applyDecoyStates(params Parameters, rng *rand.Rand) *decoy.Result {
	protocol, err := decoy.New(params.DecoyStateParameters, params.DetectorEfficiency, params.DetectorDarkCountRate*1e-6)
	if err != nil {
		return nil
	}

	signalGain, signalErr := protocol.GainAndErrorRate(decoy.StateSignal, 1000, rng)
	decoyGain, decoyErr := protocol.GainAndErrorRate(decoy.StateDecoy, 1000, rng)
	vacuumGain, vacuumErr := protocol.GainAndErrorRate(decoy.StateVacuum, 1000, rng)

	result := protocol.EstimateSinglePhotonParameters(signalGain, signalErr, decoyGain, decoyErr, vacuumGain, vacuumErr)
	return &result
}

// RunParameterSweep implements spec 4.11's run_parameter_sweep: Cartesian
// product over sweepMap, one full Run per combination. Sweeps are
// independent and may run concurrently; this implementation serializes
// insertion into history via Run's own locking.
func (s *Simulator) RunParameterSweep(base Parameters, sweepMap map[string][]float64, rng *rand.Rand) ([]Result, error) {
	combinations := generateCombinations(base, sweepMap)
	results := make([]Result, 0, len(combinations))
	for _, combo := range combinations {
		result, err := s.Run(combo, rng)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func generateCombinations(base Parameters, sweepMap map[string][]float64) []Parameters {
	combos := []Parameters{base}
	for field, values := range sweepMap {
		var next []Parameters
		for _, combo := range combos {
			for _, v := range values {
				next = append(next, setSweepField(combo, field, v))
			}
		}
		combos = next
	}
	return combos
}

func setSweepField(p Parameters, field string, value float64) Parameters {
	switch field {
	case "num_qubits":
		p.NumQubits = int(value)
	case "channel_length":
		p.ChannelLengthKm = value
	case "channel_attenuation":
		p.ChannelAttenuationDB = value
	case "channel_depolarization":
		p.ChannelDepolarization = value
	case "photon_source_efficiency":
		p.PhotonSourceEfficiency = value
	case "detector_efficiency":
		p.DetectorEfficiency = value
	case "wavelength":
		p.WavelengthNm = value
	}
	return p
}

// GenerateKeyForUser implements spec 4.11: run a simulation sized for the
// desired key length, retry once with more favorable parameters if the
// final key is short, and fall back to a deterministic synthetic key
// (tiled from whatever bits were produced) rather than fail outright.
func (s *Simulator) GenerateKeyForUser(userID string, keyLength int, rng *rand.Rand) (*CachedKey, error) {
	params := keyGenerationParameters(keyLength)
	result, err := s.Run(params, rng)
	if err != nil {
		return nil, err
	}

	finalKey := result.BB84Result.FinalKey
	if len(finalKey) < keyLength {
		retryParams := params
		retryParams.NumQubits = minInt(10000, params.NumQubits*2)
		retryParams.ChannelAttenuationDB = 0.05
		retryParams.ChannelLengthKm = 1.0
		result, err = s.Run(retryParams, rng)
		if err != nil {
			return nil, err
		}
		finalKey = result.BB84Result.FinalKey
	}

	entry := &CachedKey{
		GeneratedAt:   time.Now(),
		ExpiresAt:     time.Now().Add(defaultKeyTTL),
		SimulationID:  result.SimulationID,
		QBER:          result.BB84Result.FinalQBER,
		SecurityLevel: result.PerformanceMetrics.SecurityLevel,
	}

	if len(finalKey) >= keyLength {
		entry.KeyBits = finalKey[:keyLength]
		entry.Length = keyLength
	} else {
		entry.KeyBits = tileBits(finalKey, keyLength)
		entry.Length = keyLength
		entry.IsSynthetic = true
		entry.SecurityLevel = 0.85
	}

	s.mu.Lock()
	s.keys[userID] = entry
	s.mu.Unlock()

	return entry, nil
}

// keyGenerationParameters sizes a favorable, low-loss channel run for
// direct key provisioning, per spec 4.11's user key generation path.
func keyGenerationParameters(keyLength int) Parameters {
	p := DefaultParameters()
	p.NumQubits = maxInt(keyLength*50, 2000)
	p.ChannelLengthKm = 2
	p.ChannelAttenuationDB = 0.1
	p.ChannelDepolarization = 0.001
	p.PhotonSourceEfficiency = 0.95
	p.DetectorEfficiency = 0.95
	p.AttackType = attack.NoAttack
	p.UseAdvancedReconciliation = true
	p.ReconciliationMethod = reconcile.MethodCascade
	p.UseAdvancedPrivacyAmplification = true
	p.PrivacyAmplificationMethod = privacyamp.MethodToeplitz
	return p
}

func tileBits(key []quantum.Bit, length int) []quantum.Bit {
	if len(key) == 0 {
		key = []quantum.Bit{quantum.Zero, quantum.One}
	}
	out := make([]quantum.Bit, length)
	for i := range out {
		out[i] = key[i%len(key)]
	}
	return out
}

// GenerateSharedKey implements spec 4.11/E2E-5: one generation, installed
// into both users' cache entries with mutual shared_with pointers.
func (s *Simulator) GenerateSharedKey(userA, userB string, keyLength int, rng *rand.Rand) (*CachedKey, error) {
	entry, err := s.GenerateKeyForUser(userA, keyLength, rng)
	if err != nil {
		return nil, err
	}

	shared := *entry
	shared.IsShared = true
	shared.SharedWith = userB
	entryA := shared
	entryA.SharedWith = userB
	entryB := shared
	entryB.SharedWith = userA

	s.mu.Lock()
	s.keys[userA] = &entryA
	s.keys[userB] = &entryB
	s.mu.Unlock()

	return &entryA, nil
}

// GetKey evicts expired entries on access (spec 3 invariant) and returns
// the remaining cached key, if any.
func (s *Simulator) GetKey(userID string) (*CachedKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.keys[userID]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(s.keys, userID)
		return nil, false
	}
	return entry, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// History returns a snapshot of completed simulation results.
func (s *Simulator) History() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Result{}, s.history...)
}

// GetSimulationByID looks up a single historical result.
func (s *Simulator) GetSimulationByID(id string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.history {
		if r.SimulationID == id {
			return r, true
		}
	}
	return Result{}, false
}

// Statistics implements spec 4.11/2's get_statistics.
type Statistics struct {
	TotalSimulations     int
	SuccessRate          float64
	AverageQBER          float64
	AverageKeyLength     float64
	AverageSimulationMs  float64
	AttackSimulations    int
	AttackDetectionStats map[attack.Type]int
}

func (s *Simulator) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Statistics{AttackDetectionStats: make(map[attack.Type]int)}
	if len(s.history) == 0 {
		return stats
	}

	var totalQBER, totalKeyLen, totalMs float64
	successes := 0
	for _, r := range s.history {
		totalQBER += r.BB84Result.FinalQBER
		totalKeyLen += float64(len(r.BB84Result.FinalKey))
		totalMs += float64(r.SimulationTimeMs)
		if len(r.BB84Result.FinalKey) > 0 {
			successes++
		}
		if r.Parameters.AttackType != attack.NoAttack {
			stats.AttackSimulations++
		}
		if r.AttackDetection != nil && r.AttackDetection.AttackDetected {
			stats.AttackDetectionStats[r.AttackDetection.AttackType]++
		}
	}

	n := float64(len(s.history))
	stats.TotalSimulations = len(s.history)
	stats.SuccessRate = float64(successes) / n
	stats.AverageQBER = totalQBER / n
	stats.AverageKeyLength = totalKeyLen / n
	stats.AverageSimulationMs = totalMs / n
	return stats
}

// ExportResults returns a copy of the full simulation history (the same
// data as History); serializing it is left to the caller.
func (s *Simulator) ExportResults() []Result {
	return s.History()
}
