// Package httpapi is the thin gin-based driver layer: it owns QKD session
// bookkeeping (initiate/join/execute/status/key retrieval) and delegates
// the actual protocol run to internal/simulator. The core orchestrator
// (internal/bb84) has no session concept; sessions are purely a driver
// concern, per spec §10.
package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaskrrish/qkdsim/internal/attack"
	qkdmodels "github.com/jaskrrish/qkdsim/internal/models/qkd"
	"github.com/jaskrrish/qkdsim/internal/quantum"
	"github.com/jaskrrish/qkdsim/internal/simulator"
)

// SessionManager owns the in-memory session and key stores, guarded by a
// single RWMutex in the teacher's SessionManager idiom.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*qkdmodels.QKDSession
	keys     map[uuid.UUID]*qkdmodels.QuantumKey

	sim *simulator.Simulator
}

// NewSessionManager returns an empty manager backed by sim.
func NewSessionManager(sim *simulator.Simulator) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*qkdmodels.QKDSession),
		keys:     make(map[uuid.UUID]*qkdmodels.QuantumKey),
		sim:      sim,
	}
}

// InitiateSession creates a new session awaiting Bob, per spec §10.
func (m *SessionManager) InitiateSession(req *qkdmodels.SessionCreateRequest) (*qkdmodels.QKDSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &qkdmodels.QKDSession{
		SessionID:  uuid.New(),
		AliceID:    req.AliceID,
		Status:     qkdmodels.SessionWaitingForBob,
		AttackType: req.AttackType,
		KeyLength:  req.KeyLength,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(req.TTLMinutes) * time.Minute),
	}

	m.mu.Lock()
	m.sessions[session.SessionID] = session
	m.mu.Unlock()

	return session, nil
}

// JoinSession attaches Bob to a waiting session.
func (m *SessionManager) JoinSession(req *qkdmodels.SessionJoinRequest) (*qkdmodels.QKDSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, qkdmodels.ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, qkdmodels.ErrSessionNotFound
	}
	if time.Now().After(session.ExpiresAt) {
		session.Status = qkdmodels.SessionAborted
		return nil, qkdmodels.ErrSessionExpired
	}
	if session.Status != qkdmodels.SessionWaitingForBob {
		return nil, qkdmodels.ErrSessionInProgress
	}

	session.BobID = req.BobID
	session.Status = qkdmodels.SessionActive
	return session, nil
}

// ExecuteKeyExchange runs the underlying simulation for an active session
// and, on success, mints and stores a QuantumKey.
func (m *SessionManager) ExecuteKeyExchange(sessionID uuid.UUID, attackParams map[string]float64) (*qkdmodels.QKDSession, *qkdmodels.QuantumKey, error) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, nil, qkdmodels.ErrSessionNotFound
	}

	m.mu.RLock()
	status := session.Status
	m.mu.RUnlock()
	if status != qkdmodels.SessionActive {
		return nil, nil, qkdmodels.ErrSessionInProgress
	}

	params := simulator.DefaultParameters()
	params.AttackType = toAttackType(session.AttackType)
	params.AttackParameters = attackParams
	params.NumQubits = keySizeToNumQubits(session.KeyLength)
	params.UseAdvancedReconciliation = true
	params.UseAdvancedPrivacyAmplification = true

	rng, err := seededRand()
	if err != nil {
		return nil, nil, err
	}

	result, err := m.sim.Run(params, rng)
	if err != nil {
		m.mu.Lock()
		session.Status = qkdmodels.SessionFailed
		session.Message = err.Error()
		m.mu.Unlock()
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	completedAt := time.Now()
	session.QBER = result.BB84Result.FinalQBER
	session.RawKeyLength = len(result.BB84Result.SenderBits)
	session.FinalKeyLength = len(result.BB84Result.FinalKey)
	session.IsSecure = result.AttackDetection == nil || !result.AttackDetection.AttackDetected
	session.CompletedAt = &completedAt

	if len(result.BB84Result.FinalKey) == 0 {
		session.Status = qkdmodels.SessionFailed
		session.Message = "key exchange produced no final key"
		return session, nil, nil
	}

	session.Status = qkdmodels.SessionCompleted

	key := &qkdmodels.QuantumKey{
		KeyID:       uuid.New(),
		SessionID:   sessionID,
		KeyMaterial: quantum.BitsToBytes(result.BB84Result.FinalKey),
		KeyLength:   len(result.BB84Result.FinalKey),
		GeneratedAt: completedAt,
		ExpiresAt:   session.ExpiresAt,
		IsActive:    true,
	}
	m.keys[key.KeyID] = key

	return session, key, nil
}

// GetSession looks up a session by ID.
func (m *SessionManager) GetSession(sessionID uuid.UUID) (*qkdmodels.QKDSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, qkdmodels.ErrSessionNotFound
	}
	return session, nil
}

// GetKey returns a key for its session's Alice or Bob, or ErrUnauthorized
// otherwise; expired or inactive keys are evicted on access.
func (m *SessionManager) GetKey(keyID uuid.UUID, requestingUserID string) (*qkdmodels.QuantumKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[keyID]
	if !ok {
		return nil, qkdmodels.ErrKeyNotFound
	}
	session, ok := m.sessions[key.SessionID]
	if !ok {
		return nil, qkdmodels.ErrKeyNotFound
	}
	if requestingUserID != session.AliceID && requestingUserID != session.BobID {
		return nil, qkdmodels.ErrUnauthorized
	}
	if time.Now().After(key.ExpiresAt) || !key.IsActive {
		delete(m.keys, keyID)
		return nil, qkdmodels.ErrKeyExpired
	}

	now := time.Now()
	key.UsedAt = &now
	return key, nil
}

// RevokeKey marks a key inactive, requiring the caller to be a party to
// its session.
func (m *SessionManager) RevokeKey(keyID uuid.UUID, requestingUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[keyID]
	if !ok {
		return qkdmodels.ErrKeyNotFound
	}
	session, ok := m.sessions[key.SessionID]
	if !ok {
		return qkdmodels.ErrKeyNotFound
	}
	if requestingUserID != session.AliceID && requestingUserID != session.BobID {
		return qkdmodels.ErrUnauthorized
	}
	key.IsActive = false
	return nil
}

// KeyHex renders a key's material as hex. It is included in the exchange
// response and in every key retrieval; nothing limits it to a single display.
func KeyHex(key *qkdmodels.QuantumKey) string {
	return hex.EncodeToString(key.KeyMaterial)
}

// toAttackType maps the driver-facing session attack type onto the
// simulator's attack.Type, both of which name the same three strategies.
func toAttackType(t qkdmodels.AttackType) attack.Type {
	switch t {
	case qkdmodels.AttackInterceptResend:
		return attack.InterceptResend
	case qkdmodels.AttackPhotonNumberSplitting:
		return attack.PhotonNumberSplitting
	case qkdmodels.AttackDetectorBlinding:
		return attack.DetectorBlinding
	default:
		return attack.NoAttack
	}
}

func keySizeToNumQubits(keyLengthBits int) int {
	n := keyLengthBits * 20
	if n < 8 {
		n = 8
	}
	if n > 10000 {
		n = 10000
	}
	return n
}

// seededRand derives a PRNG seed from a CSPRNG source per spec 5's split:
// each run gets an unpredictable but self-consistent seed.
func seededRand() (*mathrand.Rand, error) {
	max := big.NewInt(1 << 62)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	return mathrand.New(mathrand.NewSource(n.Int64())), nil
}
