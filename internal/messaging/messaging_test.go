package messaging

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/qkdsim/internal/simulator"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	sim := simulator.New(nil)
	svc, err := New(sim)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	msg, err := svc.Send("alice", "bob", "hello bob", 128, rng)
	require.NoError(t, err)
	require.Equal(t, StatusSent, msg.Status)

	decrypted, err := svc.Receive("bob", msg.MessageID)
	require.NoError(t, err)
	require.Equal(t, "hello bob", decrypted)

	details, ok := svc.GetMessageDetails(msg.MessageID, "bob")
	require.True(t, ok)
	require.Equal(t, StatusDelivered, details.Status)
}

func TestReceiveRejectsWrongReceiver(t *testing.T) {
	sim := simulator.New(nil)
	svc, err := New(sim)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	msg, err := svc.Send("alice", "bob", "secret", 128, rng)
	require.NoError(t, err)

	_, err = svc.Receive("eve", msg.MessageID)
	require.Error(t, err)
}

func TestGetUserMessagesFiltersAndOrders(t *testing.T) {
	sim := simulator.New(nil)
	svc, err := New(sim)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	_, err = svc.Send("alice", "bob", "first", 128, rng)
	require.NoError(t, err)
	_, err = svc.Send("bob", "alice", "second", 128, rng)
	require.NoError(t, err)

	sent := svc.GetUserMessages("alice", FilterSent)
	require.Len(t, sent, 1)
	require.Equal(t, "alice", sent[0].SenderID)

	all := svc.GetUserMessages("alice", FilterAll)
	require.Len(t, all, 2)
}

func TestGetMessagingStatistics(t *testing.T) {
	sim := simulator.New(nil)
	svc, err := New(sim)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))

	_, err = svc.Send("alice", "bob", "hi", 128, rng)
	require.NoError(t, err)

	stats := svc.GetMessagingStatistics()
	require.Equal(t, 1, stats.TotalMessages)
	require.Equal(t, 1, stats.SentMessages)
	require.Equal(t, 2, stats.ActiveUsers)
}

func TestClearExpiredMessages(t *testing.T) {
	sim := simulator.New(nil)
	svc, err := New(sim)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))

	msg, err := svc.Send("alice", "bob", "old message", 128, rng)
	require.NoError(t, err)

	svc.mu.Lock()
	svc.messages[msg.MessageID].Timestamp = time.Now().Add(-48 * time.Hour)
	svc.mu.Unlock()

	cleared := svc.ClearExpiredMessages(24 * time.Hour)
	require.Equal(t, 1, cleared)
}
