// Package messaging implements quantum-key-backed secure messaging:
// messages are encrypted with a key drawn from the simulator's per-user
// key cache (generating or sharing one on demand) rather than a
// caller-supplied secret.
package messaging

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaskrrish/qkdsim/internal/aesqkd"
	"github.com/jaskrrish/qkdsim/internal/simulator"
)

// Status names a message's delivery lifecycle stage.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
)

// Message is one encrypted message record.
type Message struct {
	MessageID        string
	SenderID         string
	ReceiverID       string
	OriginalMessage  string
	EncryptedMessage string
	Timestamp        time.Time
	KeyUsed          string
	Status           Status
	SecurityMetrics  aesqkd.SecurityMetrics
}

// Service is the secure-messaging facade described by spec 4.10, wired
// against a Simulator for on-demand quantum key provisioning.
type Service struct {
	mu       sync.RWMutex
	messages map[string]*Message

	sim *simulator.Simulator
	aes *aesqkd.Integration
}

// New returns a Service backed by sim, using AES-256-GCM for message
// encryption per spec default.
func New(sim *simulator.Simulator) (*Service, error) {
	aes, err := aesqkd.New(aesqkd.ModeGCM, 256)
	if err != nil {
		return nil, err
	}
	return &Service{
		messages: make(map[string]*Message),
		sim:      sim,
		aes:      aes,
	}, nil
}

// Send implements spec 4.10's send_secure_message: ensures both parties
// hold a shared quantum key (provisioning one if necessary), encrypts the
// message under it, and records the result.
func (s *Service) Send(senderID, receiverID, message string, keyLength int, rng *rand.Rand) (*Message, error) {
	senderKey, ok := s.sim.GetKey(senderID)
	if !ok {
		if _, err := s.sim.GenerateKeyForUser(senderID, keyLength, rng); err != nil {
			return nil, fmt.Errorf("messaging: generating sender key: %w", err)
		}
		senderKey, _ = s.sim.GetKey(senderID)
	}

	receiverKey, ok := s.sim.GetKey(receiverID)
	if !ok {
		if _, err := s.sim.GenerateKeyForUser(receiverID, keyLength, rng); err != nil {
			return nil, fmt.Errorf("messaging: generating receiver key: %w", err)
		}
		receiverKey, _ = s.sim.GetKey(receiverID)
	}

	keyBits := senderKey.KeyBits
	switch {
	case senderKey.IsShared && senderKey.SharedWith == receiverID:
		keyBits = senderKey.KeyBits
	case receiverKey.IsShared && receiverKey.SharedWith == senderID:
		keyBits = receiverKey.KeyBits
	default:
		shared, err := s.sim.GenerateSharedKey(senderID, receiverID, keyLength, rng)
		if err != nil {
			return nil, fmt.Errorf("messaging: generating shared key: %w", err)
		}
		keyBits = shared.KeyBits
	}

	encryption := s.aes.Encrypt(message, keyBits)
	if !encryption.EncryptionSuccess {
		return nil, fmt.Errorf("messaging: message encryption failed")
	}

	msg := &Message{
		MessageID:        uuid.NewString(),
		SenderID:         senderID,
		ReceiverID:       receiverID,
		OriginalMessage:  message,
		EncryptedMessage: encryption.EncryptedMessage,
		Timestamp:        time.Now(),
		KeyUsed:          encryption.KeyUsed,
		Status:           StatusSent,
		SecurityMetrics:  encryption.SecurityMetrics,
	}

	s.mu.Lock()
	s.messages[msg.MessageID] = msg
	s.mu.Unlock()

	return msg, nil
}

// Receive implements spec 4.10's receive_secure_message: only the
// original receiver may decrypt, using whatever key is currently cached
// under their ID.
func (s *Service) Receive(receiverID, messageID string) (string, error) {
	s.mu.Lock()
	msg, ok := s.messages[messageID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("messaging: message not found")
	}
	if msg.ReceiverID != receiverID {
		return "", fmt.Errorf("messaging: unauthorized access to message")
	}

	receiverKey, ok := s.sim.GetKey(receiverID)
	if !ok {
		return "", fmt.Errorf("messaging: no valid quantum key found for receiver")
	}

	decrypted, err := s.aes.Decrypt(msg.EncryptedMessage, receiverKey.KeyBits)
	if err != nil {
		return "", fmt.Errorf("messaging: decryption failed: %w", err)
	}

	s.mu.Lock()
	msg.Status = StatusDelivered
	s.mu.Unlock()

	return decrypted, nil
}

// MessageSummary is the listing view returned by GetUserMessages.
type MessageSummary struct {
	MessageID   string
	SenderID    string
	ReceiverID  string
	Timestamp   time.Time
	Status      Status
	PreviewText string
}

// Filter selects which side of a conversation GetUserMessages returns.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterSent     Filter = "sent"
	FilterReceived Filter = "received"
)

// GetUserMessages implements spec 4.10's get_user_messages, newest first.
func (s *Service) GetUserMessages(userID string, filter Filter) []MessageSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []MessageSummary
	for _, msg := range s.messages {
		matches := (filter == FilterAll && (msg.SenderID == userID || msg.ReceiverID == userID)) ||
			(filter == FilterSent && msg.SenderID == userID) ||
			(filter == FilterReceived && msg.ReceiverID == userID)
		if !matches {
			continue
		}
		out = append(out, MessageSummary{
			MessageID:   msg.MessageID,
			SenderID:    msg.SenderID,
			ReceiverID:  msg.ReceiverID,
			Timestamp:   msg.Timestamp,
			Status:      msg.Status,
			PreviewText: preview(msg.OriginalMessage),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func preview(message string) string {
	const maxLen = 50
	if len(message) <= maxLen {
		return message
	}
	return message[:maxLen] + "..."
}

// GetMessageDetails implements spec 4.10's get_message_details, visible
// only to the sender or receiver.
func (s *Service) GetMessageDetails(messageID, userID string) (*Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return nil, false
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		return nil, false
	}
	return msg, true
}

// Statistics is the aggregate view returned by GetMessagingStatistics.
type Statistics struct {
	TotalMessages         int
	SentMessages          int
	DeliveredMessages     int
	AverageMessageLength  float64
	ActiveUsers           int
}

// GetMessagingStatistics implements spec 4.10's get_messaging_statistics.
func (s *Service) GetMessagingStatistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Statistics{TotalMessages: len(s.messages)}
	if stats.TotalMessages == 0 {
		return stats
	}

	users := make(map[string]struct{})
	var totalLen int
	for _, msg := range s.messages {
		switch msg.Status {
		case StatusSent:
			stats.SentMessages++
		case StatusDelivered:
			stats.DeliveredMessages++
		}
		totalLen += len(msg.OriginalMessage)
		users[msg.SenderID] = struct{}{}
		users[msg.ReceiverID] = struct{}{}
	}

	stats.AverageMessageLength = float64(totalLen) / float64(stats.TotalMessages)
	stats.ActiveUsers = len(users)
	return stats
}

// ClearExpiredMessages implements spec 4.10's clear_expired_messages,
// removing messages older than maxAge and returning how many were purged.
func (s *Service) ClearExpiredMessages(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var expired []string
	for id, msg := range s.messages {
		if now.Sub(msg.Timestamp) > maxAge {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.messages, id)
	}
	return len(expired)
}
