package client

import (
	pb "chat-relay/proto/chatrelay"
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ChatRelayClient is the typed client of the fallback surface. The bearer
// token is attached to every call.
type ChatRelayClient struct {
	pb.ChatRelayServiceClient
	conn *grpc.ClientConn
}

func NewChatRelayClient(address, token string, opts ...grpc.DialOption) (*ChatRelayClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(bearer(token)),
	}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client for %s: %w", address, err)
	}
	return &ChatRelayClient{ChatRelayServiceClient: pb.NewChatRelayServiceClient(conn), conn: conn}, nil
}

// Send posts a message through the fallback path. clientID is the
// correlation id of the logical send.
func (c *ChatRelayClient) Send(ctx context.Context, roomID, content, clientID string) (*pb.Message, error) {
	resp, err := c.SendMessage(ctx, &pb.SendMessageRequest{RoomID: roomID, Content: content, ClientID: clientID})
	if err != nil {
		return nil, err
	}
	return resp.Message, nil
}

func (c *ChatRelayClient) Close() error {
	return c.conn.Close()
}

type bearer string

func (b bearer) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (bearer) RequireTransportSecurity() bool { return false }
