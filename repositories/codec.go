package repositories

import (
	"chat-relay/domain"
	"time"

	"github.com/samber/lo"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored in protobuf wire format. Field numbers follow
// proto/storage/storage.proto so the values stay readable with protoc --decode.

type recordWriter struct {
	buf []byte
}

func (w *recordWriter) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
}

func (w *recordWriter) strings(num protowire.Number, vs []string) {
	for _, v := range vs {
		w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
		w.buf = protowire.AppendString(w.buf, v)
	}
}

func (w *recordWriter) int64(num protowire.Number, v int64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, uint64(v))
}

func (w *recordWriter) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeBool(v))
}

func (w *recordWriter) embedded(num protowire.Number, inner []byte) {
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, inner)
}

type field struct {
	varint uint64
	bytes  []byte
}

func (f field) string() string { return string(f.bytes) }
func (f field) int64() int64   { return int64(f.varint) }
func (f field) bool() bool     { return protowire.DecodeBool(f.varint) }

// readRecord walks every field of b. Unknown wire types are skipped.
func readRecord(b []byte, fn func(num protowire.Number, f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := fn(num, field{varint: v}); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := fn(num, field{bytes: v}); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

func encodeMessage(m domain.Message) []byte {
	w := recordWriter{}
	w.string(1, string(m.ID))
	w.string(2, string(m.RoomID))
	w.string(3, string(m.SenderID))
	w.string(4, m.Content)
	w.int64(5, toUnixNano(m.CreatedAt))
	w.strings(6, lo.Map(m.Mentions, func(id domain.UserID, _ int) string { return string(id) }))
	for _, r := range m.ReadBy {
		inner := recordWriter{}
		inner.string(1, string(r.UserID))
		inner.int64(2, toUnixNano(r.At))
		w.embedded(7, inner.buf)
	}
	w.string(8, m.CorrelationID)
	return w.buf
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := readRecord(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			m.ID = domain.MessageID(f.string())
		case 2:
			m.RoomID = domain.RoomID(f.string())
		case 3:
			m.SenderID = domain.UserID(f.string())
		case 4:
			m.Content = f.string()
		case 5:
			m.CreatedAt = fromUnixNano(f.int64())
		case 6:
			m.Mentions = append(m.Mentions, domain.UserID(f.string()))
		case 7:
			var r domain.ReadReceipt
			err := readRecord(f.bytes, func(num protowire.Number, f field) error {
				switch num {
				case 1:
					r.UserID = domain.UserID(f.string())
				case 2:
					r.At = fromUnixNano(f.int64())
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.ReadBy = append(m.ReadBy, r)
		case 8:
			m.CorrelationID = f.string()
		}
		return nil
	})
	return m, err
}

func encodeRoom(r domain.Room) []byte {
	w := recordWriter{}
	w.string(1, string(r.ID))
	w.string(2, r.Name)
	w.string(3, string(r.CreatedBy))
	w.strings(4, lo.Map(r.Members, func(id domain.UserID, _ int) string { return string(id) }))
	w.int64(5, toUnixNano(r.CreatedAt))
	if r.LastMessageAt != nil {
		w.int64(6, toUnixNano(*r.LastMessageAt))
	}
	return w.buf
}

func decodeRoom(b []byte) (domain.Room, error) {
	var r domain.Room
	err := readRecord(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			r.ID = domain.RoomID(f.string())
		case 2:
			r.Name = f.string()
		case 3:
			r.CreatedBy = domain.UserID(f.string())
		case 4:
			r.Members = append(r.Members, domain.UserID(f.string()))
		case 5:
			r.CreatedAt = fromUnixNano(f.int64())
		case 6:
			r.LastMessageAt = lo.ToPtr(fromUnixNano(f.int64()))
		}
		return nil
	})
	return r, err
}

func encodeNotification(n domain.Notification) []byte {
	w := recordWriter{}
	w.string(1, string(n.ID))
	w.string(2, string(n.UserID))
	w.string(3, string(n.Kind))
	w.string(4, string(n.RoomID))
	w.string(5, string(n.FromUserID))
	if n.MessageID != nil {
		w.string(6, string(*n.MessageID))
	}
	w.bool(7, n.Read)
	w.int64(8, toUnixNano(n.CreatedAt))
	return w.buf
}

func decodeNotification(b []byte) (domain.Notification, error) {
	var n domain.Notification
	err := readRecord(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			n.ID = domain.NotificationID(f.string())
		case 2:
			n.UserID = domain.UserID(f.string())
		case 3:
			n.Kind = domain.NotificationKind(f.string())
		case 4:
			n.RoomID = domain.RoomID(f.string())
		case 5:
			n.FromUserID = domain.UserID(f.string())
		case 6:
			n.MessageID = lo.ToPtr(domain.MessageID(f.string()))
		case 7:
			n.Read = f.bool()
		case 8:
			n.CreatedAt = fromUnixNano(f.int64())
		}
		return nil
	})
	return n, err
}

func encodeUser(u domain.User) []byte {
	w := recordWriter{}
	w.string(1, string(u.ID))
	w.string(2, u.Username)
	w.string(3, u.DisplayName)
	w.int64(4, toUnixNano(u.CreatedAt))
	return w.buf
}

func decodeUser(b []byte) (domain.User, error) {
	var u domain.User
	err := readRecord(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			u.ID = domain.UserID(f.string())
		case 2:
			u.Username = f.string()
		case 3:
			u.DisplayName = f.string()
		case 4:
			u.CreatedAt = fromUnixNano(f.int64())
		}
		return nil
	})
	return u, err
}
