package client_test

import (
	"chat-relay/client"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const ackTimeout = 50 * time.Millisecond

func newSender(t *testing.T) (*client.Sender, *mocks.MockTransport, *mocks.MockTransport) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockTransport(ctrl)
	fallback := mocks.NewMockTransport(ctrl)
	return client.NewSender(logs.GetLoggerFromLevel(slog.LevelDebug), primary, fallback, ackTimeout), primary, fallback
}

// unacknowledged blocks like a primary path whose ack never comes.
func unacknowledged(ctx context.Context, _, _, _ string) (client.Delivered, error) {
	<-ctx.Done()
	return client.Delivered{}, ctx.Err()
}

func TestSender_Primary_Ack(t *testing.T) {
	req := require.New(t)
	sender, primary, _ := newSender(t)
	primary.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, clientID string) (client.Delivered, error) {
			return client.Delivered{MessageID: "m1", ClientID: clientID}, nil
		})

	sent := sender.Send(context.Background(), "room-1", "hello")

	req.Equal(client.StatusSent, sent.Status)
	req.Equal("m1", sent.MessageID)
	req.NotEmpty(sent.CorrelationID)
	req.Empty(sender.Failed())
}

func TestSender_Falls_Back_With_Same_Correlation_ID(t *testing.T) {
	req := require.New(t)
	sender, primary, fallback := newSender(t)
	var primaryID string
	primary.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).
		DoAndReturn(func(ctx context.Context, roomID, content, clientID string) (client.Delivered, error) {
			primaryID = clientID
			return unacknowledged(ctx, roomID, content, clientID)
		})
	fallback.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, clientID string) (client.Delivered, error) {
			return client.Delivered{MessageID: "m1", ClientID: clientID}, nil
		})

	// When the primary path never acknowledges
	start := time.Now()
	sent := sender.Send(context.Background(), "room-1", "hello")

	// Then the fallback carries the same logical send
	req.GreaterOrEqual(time.Since(start), ackTimeout)
	req.Equal(client.StatusSent, sent.Status)
	req.Equal(primaryID, sent.CorrelationID)
	req.Equal("m1", sent.MessageID)
}

func TestSender_Rejection_Does_Not_Fall_Back(t *testing.T) {
	req := require.New(t)
	sender, primary, _ := newSender(t)
	primary.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).
		Return(client.Delivered{}, &client.RejectedError{Code: errors.CodeForbiddenRoom, Message: "no"})

	sent := sender.Send(context.Background(), "room-1", "hello")

	req.Equal(client.StatusFailed, sent.Status)
	var rejected *client.RejectedError
	req.ErrorAs(sent.Err, &rejected)
	req.Equal(errors.CodeForbiddenRoom, rejected.Code)
	req.Len(sender.Failed(), 1)
}

func TestSender_Failed_Send_Is_Retried_Manually(t *testing.T) {
	req := require.New(t)
	sender, primary, fallback := newSender(t)
	unavailable := errors.New("unavailable")

	// Given both paths fail
	primary.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).DoAndReturn(unacknowledged)
	fallback.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).Return(client.Delivered{}, unavailable)
	failed := sender.Send(context.Background(), "room-1", "hello")
	req.Equal(client.StatusFailed, failed.Status)
	req.ErrorIs(failed.Err, unavailable)

	// When the user retries
	primary.EXPECT().Send(gomock.Any(), "room-1", "hello", failed.CorrelationID).
		Return(client.Delivered{MessageID: "m1", ClientID: failed.CorrelationID}, nil)
	retried, err := sender.Retry(context.Background(), failed.CorrelationID)

	// Then the entry settles under its original correlation id
	req.NoError(err)
	req.Equal(client.StatusSent, retried.Status)
	req.Equal(failed.CorrelationID, retried.CorrelationID)
	req.Empty(sender.Failed())

	_, err = sender.Retry(context.Background(), failed.CorrelationID)
	req.Error(err)
}

func TestSender_Broadcast_Reconciles_Before_Ack(t *testing.T) {
	req := require.New(t)
	sender, primary, _ := newSender(t)
	primary.EXPECT().Send(gomock.Any(), "room-1", "hello", gomock.Any()).
		DoAndReturn(func(ctx context.Context, roomID, content, clientID string) (client.Delivered, error) {
			// The broadcast arrives, then the ack is lost
			req.True(sender.Reconcile(clientID, "m1"))
			return unacknowledged(ctx, roomID, content, clientID)
		})

	sent := sender.Send(context.Background(), "room-1", "hello")

	// Then no fallback happens and the entry is sent
	req.Equal(client.StatusSent, sent.Status)
	req.Equal("m1", sent.MessageID)
	req.False(sender.Reconcile("unknown", "m2"))
	req.False(sender.Reconcile("", "m2"))
}
