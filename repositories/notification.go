//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
package repositories

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type INotificationRepository interface {
	CreateNotifications(notifications ...domain.Notification) error
	ListNotifications(query domain.NotificationQuery) ([]domain.Notification, error)
	MarkRead(userID domain.UserID, id domain.NotificationID) (domain.Notification, error)
	MarkAllRead(userID domain.UserID) (int, error)
	DeleteByRoom(roomID domain.RoomID, kinds ...domain.NotificationKind) (int, error)
}

type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

// CreateNotifications writes the whole batch atomically. Each notification
// is stored under notif:{user}:{ts}:{id} with an id index and a room index.
func (r NotificationRepository) CreateNotifications(notifications ...domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return update(r.db, func(txn *badger.Txn) error {
		for _, n := range notifications {
			key := notificationKey(n)
			if err := txn.Set(key, encodeNotification(n)); err != nil {
				return err
			}
			if err := txn.Set(notificationIDKey(n.ID), key); err != nil {
				return err
			}
			if err := txn.Set(notificationRoomKey(n), key); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListNotifications returns the user's notifications newest first.
func (r NotificationRepository) ListNotifications(query domain.NotificationQuery) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := notificationPrefix(query.UserID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(bytes.Clone(prefix), maxPaddedTimestamp...)
		if query.Before != nil {
			seekKey = append(bytes.Clone(prefix), paddedTimestamp(*query.Before)...)
		}
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if query.Limit > 0 && len(notifications) == query.Limit {
				break
			}
			var n domain.Notification
			err := it.Item().Value(func(val []byte) error {
				var err error
				n, err = decodeNotification(val)
				return err
			})
			if err != nil {
				return err
			}
			if query.Read != nil && n.Read != *query.Read {
				continue
			}
			notifications = append(notifications, n)
		}
		return nil
	})
	return notifications, err
}

// MarkRead flags one notification as read. A notification owned by another
// user is reported as not found.
func (r NotificationRepository) MarkRead(userID domain.UserID, id domain.NotificationID) (domain.Notification, error) {
	var n domain.Notification
	err := update(r.db, func(txn *badger.Txn) error {
		key, err := getValue(txn, notificationIDKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotificationNotFound
		}
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(key, notificationPrefix(userID)) {
			return errors.ErrNotificationNotFound
		}
		val, err := getValue(txn, key)
		if err != nil {
			return err
		}
		if n, err = decodeNotification(val); err != nil {
			return fmt.Errorf("decode notification %s: %w", id, err)
		}
		if n.Read {
			return nil
		}
		n.Read = true
		return txn.Set(key, encodeNotification(n))
	})
	return n, err
}

// MarkAllRead flags every unread notification of the user and returns how
// many changed.
func (r NotificationRepository) MarkAllRead(userID domain.UserID) (int, error) {
	var count int
	err := update(r.db, func(txn *badger.Txn) error {
		count = 0
		var unread []keyedNotification
		prefix := notificationPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			n, err := decodeNotification(val)
			if err != nil {
				it.Close()
				return err
			}
			if !n.Read {
				unread = append(unread, keyedNotification{key: item.KeyCopy(nil), notification: n})
			}
		}
		it.Close()

		for _, u := range unread {
			u.notification.Read = true
			if err := txn.Set(u.key, encodeNotification(u.notification)); err != nil {
				return err
			}
		}
		count = len(unread)
		return nil
	})
	return count, err
}

type keyedNotification struct {
	key          []byte
	notification domain.Notification
}

// DeleteByRoom removes the room's notifications whose kind is in kinds.
// Other kinds are left untouched.
func (r NotificationRepository) DeleteByRoom(roomID domain.RoomID, kinds ...domain.NotificationKind) (int, error) {
	var keys [][]byte
	var count int
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := notificationRoomPrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			primary, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			val, err := getValue(txn, primary)
			if errors.Is(err, badger.ErrKeyNotFound) {
				r.log.Debug("Dangling notification room index", "key", string(item.Key()))
				keys = append(keys, item.KeyCopy(nil))
				continue
			}
			if err != nil {
				return err
			}
			n, err := decodeNotification(val)
			if err != nil {
				return err
			}
			if !lo.Contains(kinds, n.Kind) {
				continue
			}
			keys = append(keys, primary, item.KeyCopy(nil), notificationIDKey(n.ID))
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	batch := r.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err = batch.Delete(key); err != nil {
			return 0, err
		}
	}
	if err = batch.Flush(); err != nil {
		return 0, err
	}
	return count, nil
}
