package chatrelay

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "chatrelay.v1.ChatRelayService"

const (
	SendMessageMethod              = "SendMessage"
	ListMessagesMethod             = "ListMessages"
	MarkReadMethod                 = "MarkRead"
	ListNotificationsMethod        = "ListNotifications"
	MarkNotificationReadMethod     = "MarkNotificationRead"
	MarkAllNotificationsReadMethod = "MarkAllNotificationsRead"
	CreateRoomMethod               = "CreateRoom"
	ListRoomsMethod                = "ListRooms"
	InviteMemberMethod             = "InviteMember"
	DeleteRoomMethod               = "DeleteRoom"
	TopActiveRoomsMethod           = "TopActiveRooms"
)

func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

type ChatRelayServiceServer interface {
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error)
	MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*MarkNotificationReadResponse, error)
	MarkAllNotificationsRead(context.Context, *MarkAllNotificationsReadRequest) (*MarkAllNotificationsReadResponse, error)
	CreateRoom(context.Context, *CreateRoomRequest) (*CreateRoomResponse, error)
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	InviteMember(context.Context, *InviteMemberRequest) (*InviteMemberResponse, error)
	DeleteRoom(context.Context, *DeleteRoomRequest) (*DeleteRoomResponse, error)
	TopActiveRooms(context.Context, *TopActiveRoomsRequest) (*TopActiveRoomsResponse, error)
}

func RegisterChatRelayServiceServer(s grpc.ServiceRegistrar, srv ChatRelayServiceServer) {
	s.RegisterService(&ChatRelayServiceDesc, srv)
}

var ChatRelayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatRelayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: SendMessageMethod, Handler: unary(SendMessageMethod, ChatRelayServiceServer.SendMessage)},
		{MethodName: ListMessagesMethod, Handler: unary(ListMessagesMethod, ChatRelayServiceServer.ListMessages)},
		{MethodName: MarkReadMethod, Handler: unary(MarkReadMethod, ChatRelayServiceServer.MarkRead)},
		{MethodName: ListNotificationsMethod, Handler: unary(ListNotificationsMethod, ChatRelayServiceServer.ListNotifications)},
		{MethodName: MarkNotificationReadMethod, Handler: unary(MarkNotificationReadMethod, ChatRelayServiceServer.MarkNotificationRead)},
		{MethodName: MarkAllNotificationsReadMethod, Handler: unary(MarkAllNotificationsReadMethod, ChatRelayServiceServer.MarkAllNotificationsRead)},
		{MethodName: CreateRoomMethod, Handler: unary(CreateRoomMethod, ChatRelayServiceServer.CreateRoom)},
		{MethodName: ListRoomsMethod, Handler: unary(ListRoomsMethod, ChatRelayServiceServer.ListRooms)},
		{MethodName: InviteMemberMethod, Handler: unary(InviteMemberMethod, ChatRelayServiceServer.InviteMember)},
		{MethodName: DeleteRoomMethod, Handler: unary(DeleteRoomMethod, ChatRelayServiceServer.DeleteRoom)},
		{MethodName: TopActiveRoomsMethod, Handler: unary(TopActiveRoomsMethod, ChatRelayServiceServer.TopActiveRooms)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatrelay/chat_relay.proto",
}

func unary[Req, Resp any](method string,
	call func(ChatRelayServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatRelayServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChatRelayServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type ChatRelayServiceClient interface {
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*MarkNotificationReadResponse, error)
	MarkAllNotificationsRead(ctx context.Context, in *MarkAllNotificationsReadRequest, opts ...grpc.CallOption) (*MarkAllNotificationsReadResponse, error)
	CreateRoom(ctx context.Context, in *CreateRoomRequest, opts ...grpc.CallOption) (*CreateRoomResponse, error)
	ListRooms(ctx context.Context, in *ListRoomsRequest, opts ...grpc.CallOption) (*ListRoomsResponse, error)
	InviteMember(ctx context.Context, in *InviteMemberRequest, opts ...grpc.CallOption) (*InviteMemberResponse, error)
	DeleteRoom(ctx context.Context, in *DeleteRoomRequest, opts ...grpc.CallOption) (*DeleteRoomResponse, error)
	TopActiveRooms(ctx context.Context, in *TopActiveRoomsRequest, opts ...grpc.CallOption) (*TopActiveRoomsResponse, error)
}

type chatRelayServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatRelayServiceClient(cc grpc.ClientConnInterface) ChatRelayServiceClient {
	return &chatRelayServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any,
	opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatRelayServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, SendMessageMethod, in, opts)
}

func (c *chatRelayServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, ListMessagesMethod, in, opts)
}

func (c *chatRelayServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, MarkReadMethod, in, opts)
}

func (c *chatRelayServiceClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsResponse](ctx, c.cc, ListNotificationsMethod, in, opts)
}

func (c *chatRelayServiceClient) MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*MarkNotificationReadResponse, error) {
	return invoke[MarkNotificationReadResponse](ctx, c.cc, MarkNotificationReadMethod, in, opts)
}

func (c *chatRelayServiceClient) MarkAllNotificationsRead(ctx context.Context, in *MarkAllNotificationsReadRequest, opts ...grpc.CallOption) (*MarkAllNotificationsReadResponse, error) {
	return invoke[MarkAllNotificationsReadResponse](ctx, c.cc, MarkAllNotificationsReadMethod, in, opts)
}

func (c *chatRelayServiceClient) CreateRoom(ctx context.Context, in *CreateRoomRequest, opts ...grpc.CallOption) (*CreateRoomResponse, error) {
	return invoke[CreateRoomResponse](ctx, c.cc, CreateRoomMethod, in, opts)
}

func (c *chatRelayServiceClient) ListRooms(ctx context.Context, in *ListRoomsRequest, opts ...grpc.CallOption) (*ListRoomsResponse, error) {
	return invoke[ListRoomsResponse](ctx, c.cc, ListRoomsMethod, in, opts)
}

func (c *chatRelayServiceClient) InviteMember(ctx context.Context, in *InviteMemberRequest, opts ...grpc.CallOption) (*InviteMemberResponse, error) {
	return invoke[InviteMemberResponse](ctx, c.cc, InviteMemberMethod, in, opts)
}

func (c *chatRelayServiceClient) DeleteRoom(ctx context.Context, in *DeleteRoomRequest, opts ...grpc.CallOption) (*DeleteRoomResponse, error) {
	return invoke[DeleteRoomResponse](ctx, c.cc, DeleteRoomMethod, in, opts)
}

func (c *chatRelayServiceClient) TopActiveRooms(ctx context.Context, in *TopActiveRoomsRequest, opts ...grpc.CallOption) (*TopActiveRoomsResponse, error) {
	return invoke[TopActiveRoomsResponse](ctx, c.cc, TopActiveRoomsMethod, in, opts)
}
