package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Timestamps are zero padded to 19 digits so lexicographical
// order is chronological order; the trailing id breaks ties.
const (
	maxPaddedTimestamp = "9999999999999999999"
	maxTxnRetries      = 10
)

func userKey(id domain.UserID) []byte { return []byte("user:" + string(id)) }

func usernameKey(username string) []byte {
	return []byte("username:" + strings.ToLower(username))
}

func roomKey(id domain.RoomID) []byte { return []byte("room:" + string(id)) }

func memberPrefix(userID domain.UserID) []byte {
	return []byte("member:" + string(userID) + ":")
}

func memberKey(userID domain.UserID, roomID domain.RoomID) []byte {
	return append(memberPrefix(userID), string(roomID)...)
}

const messageNamespace = "msg:"

func messagePrefix(roomID domain.RoomID) []byte {
	return []byte(messageNamespace + string(roomID) + ":")
}

// parseMessageKey reads the room and creation instant back from a message key.
func parseMessageKey(key []byte) (domain.RoomID, time.Time, error) {
	rest := strings.TrimPrefix(string(key), messageNamespace)
	idSep := strings.LastIndexByte(rest, ':')
	if idSep <= 0 {
		return "", time.Time{}, fmt.Errorf("malformed key %q", key)
	}
	tsSep := strings.LastIndexByte(rest[:idSep], ':')
	if tsSep <= 0 {
		return "", time.Time{}, fmt.Errorf("malformed key %q", key)
	}
	roomID := domain.RoomID(rest[:tsSep])
	createdAt, err := timestampOf(key, messagePrefix(roomID))
	return roomID, createdAt, err
}

func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.RoomID, m.CreatedAt.UnixNano(), m.ID))
}

func messageIDKey(id domain.MessageID) []byte { return []byte("msgid:" + string(id)) }

func correlationKey(sender domain.UserID, correlationID string) []byte {
	return []byte("corr:" + string(sender) + ":" + correlationID)
}

func notificationPrefix(userID domain.UserID) []byte {
	return []byte("notif:" + string(userID) + ":")
}

func notificationKey(n domain.Notification) []byte {
	return []byte(fmt.Sprintf("notif:%s:%019d:%s", n.UserID, n.CreatedAt.UnixNano(), n.ID))
}

func notificationIDKey(id domain.NotificationID) []byte {
	return []byte("notifid:" + string(id))
}

func notificationRoomPrefix(roomID domain.RoomID) []byte {
	return []byte("notifroom:" + string(roomID) + ":")
}

func notificationRoomKey(n domain.Notification) []byte {
	return append(notificationRoomPrefix(n.RoomID), string(n.ID)...)
}

func paddedTimestamp(t time.Time) string {
	return fmt.Sprintf("%019d", t.UnixNano())
}

// timestampOf extracts the padded timestamp that follows prefix in key.
func timestampOf(key, prefix []byte) (time.Time, error) {
	rest := string(key[len(prefix):])
	ts, _, _ := strings.Cut(rest, ":")
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed key %q: %w", key, err)
	}
	return time.Unix(0, nanos).UTC(), nil
}

// update runs fn in a read-write transaction and retries it when Badger
// reports a conflict with a concurrent transaction. fn must be idempotent.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt <= maxTxnRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
