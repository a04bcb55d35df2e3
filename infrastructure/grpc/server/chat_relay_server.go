package server

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	pb "chat-relay/proto/chatrelay"
	"chat-relay/repositories"
	"chat-relay/services"
	"chat-relay/validation"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

// ChatRelayServer is the synchronous fallback surface. Every call goes
// through the same services as the websocket frames, so the events it
// produces reach the same broadcast groups.
type ChatRelayServer struct {
	log           *slog.Logger
	users         repositories.IUserRepository
	coordinator   services.IDeliveryCoordinator
	receipts      *services.ReceiptAggregator
	notifications *services.NotificationService
	rooms         *services.RoomService
	analytics     *services.AnalyticsService
}

func NewChatRelayServer(
	log *slog.Logger,
	users repositories.IUserRepository,
	coordinator services.IDeliveryCoordinator,
	receipts *services.ReceiptAggregator,
	notifications *services.NotificationService,
	rooms *services.RoomService,
	analytics *services.AnalyticsService,
) *ChatRelayServer {
	return &ChatRelayServer{
		log:           log,
		users:         users,
		coordinator:   coordinator,
		receipts:      receipts,
		notifications: notifications,
		rooms:         rooms,
		analytics:     analytics,
	}
}

// caller returns the profile of the authenticated user. A subject missing
// from the directory is an invalid credential.
func (s *ChatRelayServer) caller(ctx context.Context) (domain.Profile, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	user, err := s.users.GetUser(domain.UserID(claims.UserID))
	if errors.Is(err, errors.ErrUserNotFound) {
		return domain.Profile{}, fmt.Errorf("%w: unknown subject", errors.ErrInvalidToken)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *ChatRelayServer) fail(method string, err error) error {
	if errors.IsInternal(err) {
		s.log.Error("Call failed", "method", method, "error", err)
	}
	return errors.MapToGRPCError(err)
}

func (s *ChatRelayServer) SendMessage(ctx context.Context, req *pb.SendMessageRequest) (*pb.SendMessageResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.SendMessageMethod, err)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.SendMessageMethod, err)
	}
	message, err := s.coordinator.PostMessage(ctx, domain.PostMessageCommand{
		Room:          domain.RoomID(req.RoomID),
		Sender:        profile,
		Content:       req.Content,
		CorrelationID: req.ClientID,
	})
	if err != nil {
		return nil, s.fail(pb.SendMessageMethod, err)
	}
	return &pb.SendMessageResponse{Message: toMessage(message, profile.DisplayName)}, nil
}

// ListMessages pages backwards through a room. Display names are resolved
// once per sender of the page.
func (s *ChatRelayServer) ListMessages(ctx context.Context, req *pb.ListMessagesRequest) (*pb.ListMessagesResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.ListMessagesMethod, err)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.ListMessagesMethod, err)
	}
	page, err := s.coordinator.ListMessages(domain.GetMessagesCommand{
		Room:   domain.RoomID(req.RoomID),
		UserID: profile.ID,
		Before: req.Before,
		Limit:  int(req.Limit),
	})
	if err != nil {
		return nil, s.fail(pb.ListMessagesMethod, err)
	}
	names := s.displayNames(lo.Uniq(lo.Map(page.Messages, func(m domain.Message, _ int) domain.UserID { return m.SenderID })))
	return &pb.ListMessagesResponse{
		Messages: lo.Map(page.Messages, func(m domain.Message, _ int) *pb.Message {
			return toMessage(m, names[m.SenderID])
		}),
		NextBefore: page.NextBefore,
	}, nil
}

func (s *ChatRelayServer) displayNames(ids []domain.UserID) map[domain.UserID]string {
	names := make(map[domain.UserID]string, len(ids))
	for _, id := range ids {
		user, err := s.users.GetUser(id)
		if err != nil {
			// A sender removed from the directory keeps their messages.
			names[id] = string(id)
			continue
		}
		names[id] = user.Profile().DisplayName
	}
	return names
}

func (s *ChatRelayServer) MarkRead(ctx context.Context, req *pb.MarkReadRequest) (*pb.MarkReadResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.MarkReadMethod, err)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.MarkReadMethod, err)
	}
	reads, err := s.receipts.MarkRead(ctx, domain.MarkReadCommand{
		Room:      domain.RoomID(req.RoomID),
		UserID:    profile.ID,
		MessageID: (*domain.MessageID)(req.MessageID),
		UpTo:      req.UpToTimestamp,
	})
	if err != nil {
		return nil, s.fail(pb.MarkReadMethod, err)
	}
	return &pb.MarkReadResponse{Updated: int32(len(reads))}, nil
}

func (s *ChatRelayServer) ListNotifications(ctx context.Context, req *pb.ListNotificationsRequest) (*pb.ListNotificationsResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.ListNotificationsMethod, err)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.ListNotificationsMethod, err)
	}
	notifications, err := s.notifications.List(domain.NotificationQuery{
		UserID: profile.ID,
		Before: req.Before,
		Read:   req.Read,
		Limit:  int(req.Limit),
	})
	if err != nil {
		return nil, s.fail(pb.ListNotificationsMethod, err)
	}
	return &pb.ListNotificationsResponse{Notifications: lo.Map(notifications, toNotification)}, nil
}

func (s *ChatRelayServer) MarkNotificationRead(ctx context.Context, req *pb.MarkNotificationReadRequest) (*pb.MarkNotificationReadResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.MarkNotificationReadMethod, err)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.MarkNotificationReadMethod, err)
	}
	notification, err := s.notifications.MarkRead(ctx, profile.ID, domain.NotificationID(req.ID))
	if err != nil {
		return nil, s.fail(pb.MarkNotificationReadMethod, err)
	}
	return &pb.MarkNotificationReadResponse{Notification: toNotification(notification, 0)}, nil
}

func (s *ChatRelayServer) MarkAllNotificationsRead(ctx context.Context, _ *pb.MarkAllNotificationsReadRequest) (*pb.MarkAllNotificationsReadResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.MarkAllNotificationsReadMethod, err)
	}
	count, err := s.notifications.MarkAllRead(ctx, profile.ID)
	if err != nil {
		return nil, s.fail(pb.MarkAllNotificationsReadMethod, err)
	}
	return &pb.MarkAllNotificationsReadResponse{Updated: int32(count)}, nil
}

func (s *ChatRelayServer) CreateRoom(ctx context.Context, req *pb.CreateRoomRequest) (*pb.CreateRoomResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.CreateRoomMethod, err)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.CreateRoomMethod, err)
	}
	room, err := s.rooms.Create(profile.ID, req.Name)
	if err != nil {
		return nil, s.fail(pb.CreateRoomMethod, err)
	}
	return &pb.CreateRoomResponse{Room: toRoom(room, 0)}, nil
}

func (s *ChatRelayServer) ListRooms(ctx context.Context, _ *pb.ListRoomsRequest) (*pb.ListRoomsResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.ListRoomsMethod, err)
	}
	rooms, err := s.rooms.List(profile.ID)
	if err != nil {
		return nil, s.fail(pb.ListRoomsMethod, err)
	}
	return &pb.ListRoomsResponse{Rooms: lo.Map(rooms, toRoom)}, nil
}

func (s *ChatRelayServer) InviteMember(ctx context.Context, req *pb.InviteMemberRequest) (*pb.InviteMemberResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.InviteMemberMethod, err)
	}
	if req.RoomID == "" {
		return nil, s.fail(pb.InviteMemberMethod, errors.ErrInvalidRoomID)
	}
	if err = validation.Struct(req); err != nil {
		return nil, s.fail(pb.InviteMemberMethod, err)
	}
	room, err := s.rooms.Invite(ctx, profile.ID, domain.UserID(req.UserID), domain.RoomID(req.RoomID))
	if err != nil {
		return nil, s.fail(pb.InviteMemberMethod, err)
	}
	return &pb.InviteMemberResponse{Room: toRoom(room, 0)}, nil
}

func (s *ChatRelayServer) DeleteRoom(ctx context.Context, req *pb.DeleteRoomRequest) (*pb.DeleteRoomResponse, error) {
	profile, err := s.caller(ctx)
	if err != nil {
		return nil, s.fail(pb.DeleteRoomMethod, err)
	}
	if req.RoomID == "" {
		return nil, s.fail(pb.DeleteRoomMethod, errors.ErrInvalidRoomID)
	}
	if err = s.rooms.Delete(ctx, profile.ID, domain.RoomID(req.RoomID)); err != nil {
		return nil, s.fail(pb.DeleteRoomMethod, err)
	}
	return &pb.DeleteRoomResponse{Success: true}, nil
}

func (s *ChatRelayServer) TopActiveRooms(ctx context.Context, req *pb.TopActiveRoomsRequest) (*pb.TopActiveRoomsResponse, error) {
	if _, err := s.caller(ctx); err != nil {
		return nil, s.fail(pb.TopActiveRoomsMethod, err)
	}
	if err := validation.Struct(req); err != nil {
		return nil, s.fail(pb.TopActiveRoomsMethod, err)
	}
	activity, err := s.analytics.TopActiveRooms(int(req.Days), int(req.Limit))
	if err != nil {
		return nil, s.fail(pb.TopActiveRoomsMethod, err)
	}
	return &pb.TopActiveRoomsResponse{Rooms: lo.Map(activity, toRoomActivity)}, nil
}
