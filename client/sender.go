//go:generate go run go.uber.org/mock/mockgen -source=sender.go -destination=../mocks/mock_transport.go -package=mocks
package client

import (
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Delivered is what a transport learns about a stored message.
type Delivered struct {
	MessageID string
	ClientID  string
}

// Transport sends one message attempt. clientID is the correlation id shared
// by every attempt of the same logical send.
type Transport interface {
	Send(ctx context.Context, roomID, content, clientID string) (Delivered, error)
}

// RejectedError is a structured refusal from the server. Trying another
// path would be refused the same way.
type RejectedError struct {
	Code    errors.Code
	Message string
}

func (e *RejectedError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// PendingSend is one entry of the local send table.
type PendingSend struct {
	CorrelationID string
	RoomID        string
	Content       string
	Status        Status
	MessageID     string
	Err           error
	CreatedAt     time.Time
}

// Sender sends through the primary path first and falls back to the
// synchronous path when no acknowledgment arrives within ackTimeout. Every
// send is tracked until it is either sent or failed; a failed send stays in
// the table for a manual retry with the same correlation id.
type Sender struct {
	log        *slog.Logger
	primary    Transport
	fallback   Transport
	ackTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*PendingSend
}

func NewSender(log *slog.Logger, primary, fallback Transport, ackTimeout time.Duration) *Sender {
	return &Sender{
		log:        log,
		primary:    primary,
		fallback:   fallback,
		ackTimeout: ackTimeout,
		pending:    make(map[string]*PendingSend),
	}
}

// Send starts a new logical send and blocks until it settles.
func (s *Sender) Send(ctx context.Context, roomID, content string) PendingSend {
	entry := &PendingSend{
		CorrelationID: uuid.NewString(),
		RoomID:        roomID,
		Content:       content,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	s.pending[entry.CorrelationID] = entry
	s.mu.Unlock()

	return s.attempt(ctx, entry.CorrelationID, roomID, content)
}

// Retry sends a failed entry again under its original correlation id, so a
// first attempt that did reach the server is not duplicated.
func (s *Sender) Retry(ctx context.Context, correlationID string) (PendingSend, error) {
	s.mu.Lock()
	entry, ok := s.pending[correlationID]
	if !ok || entry.Status != StatusFailed {
		s.mu.Unlock()
		return PendingSend{}, fmt.Errorf("no failed send %s", correlationID)
	}
	entry.Status, entry.Err = StatusPending, nil
	roomID, content := entry.RoomID, entry.Content
	s.mu.Unlock()

	return s.attempt(ctx, correlationID, roomID, content), nil
}

func (s *Sender) attempt(ctx context.Context, correlationID, roomID, content string) PendingSend {
	primaryCtx, cancel := context.WithTimeout(ctx, s.ackTimeout)
	delivered, err := s.primary.Send(primaryCtx, roomID, content, correlationID)
	cancel()
	if err == nil {
		return s.settle(correlationID, delivered.MessageID, nil)
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return s.settle(correlationID, "", err)
	}
	// The broadcast may have beaten the acknowledgment.
	if entry, ok := s.Get(correlationID); ok && entry.Status == StatusSent {
		return entry
	}

	s.log.Warn("Primary send not acknowledged, using fallback", "client_id", correlationID, "error", err)
	delivered, err = s.fallback.Send(ctx, roomID, content, correlationID)
	if err != nil {
		s.log.Warn("Fallback send failed", "client_id", correlationID, "error", err)
		return s.settle(correlationID, "", err)
	}
	return s.settle(correlationID, delivered.MessageID, nil)
}

// settle records the outcome unless the entry was already reconciled.
func (s *Sender) settle(correlationID, messageID string, err error) PendingSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.pending[correlationID]
	if entry.Status == StatusSent {
		return *entry
	}
	if err != nil {
		entry.Status, entry.Err = StatusFailed, err
		return *entry
	}
	entry.Status, entry.MessageID = StatusSent, messageID
	return *entry
}

// Reconcile marks the send carrying clientID as sent when its broadcast is
// observed. It reports whether a local entry matched.
func (s *Sender) Reconcile(clientID, messageID string) bool {
	if clientID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[clientID]
	if !ok {
		return false
	}
	entry.Status, entry.MessageID, entry.Err = StatusSent, messageID, nil
	return true
}

func (s *Sender) Get(correlationID string) (PendingSend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[correlationID]
	if !ok {
		return PendingSend{}, false
	}
	return *entry, true
}

// Failed lists the sends waiting for a manual retry, oldest first.
func (s *Sender) Failed() []PendingSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []PendingSend
	for _, entry := range s.pending {
		if entry.Status == StatusFailed {
			failed = append(failed, *entry)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].CreatedAt.Before(failed[j].CreatedAt) })
	return failed
}
