package client

import (
	"chat-relay/errors"
	pb "chat-relay/proto/chatrelay"
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCTransport is the fallback path.
type GRPCTransport struct {
	client pb.ChatRelayServiceClient
}

func NewGRPCTransport(client pb.ChatRelayServiceClient) GRPCTransport {
	return GRPCTransport{client: client}
}

func (t GRPCTransport) Send(ctx context.Context, roomID, content, clientID string) (Delivered, error) {
	resp, err := t.client.SendMessage(ctx, &pb.SendMessageRequest{RoomID: roomID, Content: content, ClientID: clientID})
	if err != nil {
		return Delivered{}, classify(err)
	}
	return Delivered{MessageID: resp.Message.ID, ClientID: resp.Message.ClientID}, nil
}

// classify keeps transport failures as they are and turns application
// statuses into a RejectedError.
func classify(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Unknown:
		return err
	}
	code, message := errors.FromGRPCError(err)
	return &RejectedError{Code: code, Message: message}
}
