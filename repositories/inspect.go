package repositories

import (
	"fmt"
	"strings"
	"time"
)

// Record is a decoded store entry, for the inspection tools.
type Record struct {
	Kind     string
	EntityID string
	At       time.Time
	Detail   string
}

// Describe decodes the entry stored under key. Index entries are reported
// with the key they point to.
func Describe(key string, val []byte) (Record, error) {
	namespace, _, _ := strings.Cut(key, ":")
	switch namespace {
	case "user":
		u, err := decodeUser(val)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: "USER", EntityID: string(u.ID), At: u.CreatedAt,
			Detail: fmt.Sprintf("%s (%s)", u.Username, u.DisplayName)}, nil
	case "room":
		r, err := decodeRoom(val)
		if err != nil {
			return Record{}, err
		}
		at := r.CreatedAt
		if r.LastMessageAt != nil {
			at = *r.LastMessageAt
		}
		return Record{Kind: "ROOM", EntityID: string(r.ID), At: at,
			Detail: fmt.Sprintf("%s, %d members, created by %s", r.Name, len(r.Members), r.CreatedBy)}, nil
	case "msg":
		m, err := decodeMessage(val)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: "MESSAGE", EntityID: string(m.ID), At: m.CreatedAt,
			Detail: fmt.Sprintf("%s: %s (read by %d)", m.SenderID, m.Content, len(m.ReadBy))}, nil
	case "notif":
		n, err := decodeNotification(val)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: "NOTIFICATION", EntityID: string(n.ID), At: n.CreatedAt,
			Detail: fmt.Sprintf("%s for %s in %s, read=%t", n.Kind, n.UserID, n.RoomID, n.Read)}, nil
	case "username", "member", "msgid", "corr", "notifid", "notifroom":
		return Record{Kind: "INDEX", Detail: string(val)}, nil
	}
	return Record{Kind: "UNKNOWN", Detail: fmt.Sprintf("%d bytes", len(val))}, nil
}
