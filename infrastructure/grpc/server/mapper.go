package server

import (
	"chat-relay/domain"
	pb "chat-relay/proto/chatrelay"

	"github.com/samber/lo"
)

func toMessage(m domain.Message, displayName string) *pb.Message {
	return &pb.Message{
		ID:          string(m.ID),
		RoomID:      string(m.RoomID),
		SenderID:    string(m.SenderID),
		DisplayName: displayName,
		Content:     m.Content,
		ClientID:    m.CorrelationID,
		Mentions:    toStrings(m.Mentions),
		CreatedAt:   m.CreatedAt,
		ReadBy: lo.Map(m.ReadBy, func(r domain.ReadReceipt, _ int) pb.Receipt {
			return pb.Receipt{UserID: string(r.UserID), At: r.At}
		}),
	}
}

func toRoom(r domain.Room, _ int) *pb.Room {
	return &pb.Room{
		ID:            string(r.ID),
		Name:          r.Name,
		CreatedBy:     string(r.CreatedBy),
		Members:       toStrings(r.Members),
		CreatedAt:     r.CreatedAt,
		LastMessageAt: r.LastMessageAt,
	}
}

func toRoomActivity(a domain.RoomActivity, _ int) *pb.RoomActivity {
	return &pb.RoomActivity{
		RoomID:        string(a.RoomID),
		MessageCount:  int32(a.MessageCount),
		LastMessageAt: a.LastMessageAt,
	}
}

func toNotification(n domain.Notification, _ int) *pb.Notification {
	return &pb.Notification{
		ID:         string(n.ID),
		UserID:     string(n.UserID),
		Type:       string(n.Kind),
		RoomID:     string(n.RoomID),
		FromUserID: string(n.FromUserID),
		MessageID:  (*string)(n.MessageID),
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

func toStrings[T ~string](ids []T) []string {
	return lo.Map(ids, func(id T, _ int) string { return string(id) })
}
