package httpapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	qkdmodels "github.com/jaskrrish/qkdsim/internal/models/qkd"
	"github.com/jaskrrish/qkdsim/internal/simulator"
)

func TestInitiateAndJoinSession(t *testing.T) {
	manager := NewSessionManager(simulator.New(nil))

	session, err := manager.InitiateSession(&qkdmodels.SessionCreateRequest{
		AliceID:   "alice",
		KeyLength: 256,
	})
	require.NoError(t, err)
	require.Equal(t, qkdmodels.SessionWaitingForBob, session.Status)

	joined, err := manager.JoinSession(&qkdmodels.SessionJoinRequest{
		SessionID: session.SessionID.String(),
		BobID:     "bob",
	})
	require.NoError(t, err)
	require.Equal(t, qkdmodels.SessionActive, joined.Status)
	require.Equal(t, "bob", joined.BobID)
}

func TestJoinSessionRejectsUnknownID(t *testing.T) {
	manager := NewSessionManager(simulator.New(nil))

	_, err := manager.JoinSession(&qkdmodels.SessionJoinRequest{
		SessionID: "00000000-0000-0000-0000-000000000000",
		BobID:     "bob",
	})
	require.ErrorIs(t, err, qkdmodels.ErrSessionNotFound)
}

func TestExecuteKeyExchangeProducesKey(t *testing.T) {
	manager := NewSessionManager(simulator.New(nil))

	session, err := manager.InitiateSession(&qkdmodels.SessionCreateRequest{
		AliceID:   "alice",
		KeyLength: 256,
	})
	require.NoError(t, err)

	_, err = manager.JoinSession(&qkdmodels.SessionJoinRequest{
		SessionID: session.SessionID.String(),
		BobID:     "bob",
	})
	require.NoError(t, err)

	completed, key, err := manager.ExecuteKeyExchange(session.SessionID, nil)
	require.NoError(t, err)
	require.Equal(t, qkdmodels.SessionCompleted, completed.Status)
	require.NotNil(t, key)

	fetched, err := manager.GetKey(key.KeyID, "alice")
	require.NoError(t, err)
	require.Equal(t, key.KeyID, fetched.KeyID)

	_, err = manager.GetKey(key.KeyID, "eve")
	require.ErrorIs(t, err, qkdmodels.ErrUnauthorized)
}

func TestRevokeKeyRequiresSessionParty(t *testing.T) {
	manager := NewSessionManager(simulator.New(nil))

	session, err := manager.InitiateSession(&qkdmodels.SessionCreateRequest{
		AliceID:   "alice",
		KeyLength: 256,
	})
	require.NoError(t, err)
	_, err = manager.JoinSession(&qkdmodels.SessionJoinRequest{
		SessionID: session.SessionID.String(),
		BobID:     "bob",
	})
	require.NoError(t, err)
	_, key, err := manager.ExecuteKeyExchange(session.SessionID, nil)
	require.NoError(t, err)

	err = manager.RevokeKey(key.KeyID, "eve")
	require.ErrorIs(t, err, qkdmodels.ErrUnauthorized)

	err = manager.RevokeKey(key.KeyID, "bob")
	require.NoError(t, err)

	_, err = manager.GetKey(key.KeyID, "bob")
	require.ErrorIs(t, err, qkdmodels.ErrKeyExpired)
}
