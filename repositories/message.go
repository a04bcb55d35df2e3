//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) (domain.Message, bool, error)
	GetMessage(id domain.MessageID) (domain.Message, error)
	GetMessages(roomID domain.RoomID, before *time.Time, limit int) ([]domain.Message, error)
	AddReceipts(cmd domain.MarkReadCommand, at time.Time) ([]domain.Message, error)
	DeleteByRoom(roomID domain.RoomID) (int, error)
	RoomActivity(since time.Time) ([]domain.RoomActivity, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the id as a tie breaker if two messages
//     share the same nanosecond.
//
// A message carrying a correlation id already stored for the same sender is
// not written again: the stored message is returned with created=false.
func (m MessageRepository) StoreMessage(message domain.Message) (domain.Message, bool, error) {
	stored := message
	created := true
	err := update(m.db, func(txn *badger.Txn) error {
		stored, created = message, true
		if message.CorrelationID != "" {
			existingID, err := getValue(txn, correlationKey(message.SenderID, message.CorrelationID))
			switch {
			case err == nil:
				stored, err = getMessage(txn, domain.MessageID(existingID))
				created = false
				return err
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			if err = txn.Set(correlationKey(message.SenderID, message.CorrelationID), []byte(message.ID)); err != nil {
				return err
			}
		}
		key := messageKey(message)
		if err := txn.Set(messageIDKey(message.ID), key); err != nil {
			return err
		}
		return txn.Set(key, encodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, false, err
	}
	return stored, created, nil
}

func (m MessageRepository) GetMessage(id domain.MessageID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = getMessage(txn, id)
		return err
	})
	return message, err
}

// GetMessages walks the room backwards from before (exclusive) and returns at
// most limit messages in ascending creation order.
func (m MessageRepository) GetMessages(roomID domain.RoomID, before *time.Time, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse seek lands on the greatest key <= seekKey. Keys of messages
		// created exactly at before are longer than seekKey, so they are skipped.
		seekKey := append(bytes.Clone(prefix), maxPaddedTimestamp...)
		if before != nil {
			seekKey = append(bytes.Clone(prefix), paddedTimestamp(*before)...)
		}

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				var err error
				message, err = decodeMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

// receiptBatch bounds the number of messages read by one receipt transaction.
const receiptBatch = 1000

// AddReceipts appends a receipt for cmd.UserID to every targeted message of
// the room the user has not read yet and did not send. A concurrent writer on
// the same messages forces a retry, which is what keeps the append an
// add-if-absent per (message, user). A long backlog is committed in several
// transactions, oldest first; on error the messages of the transactions
// already committed are returned with it.
// It returns the messages that gained a receipt.
func (m MessageRepository) AddReceipts(cmd domain.MarkReadCommand, at time.Time) ([]domain.Message, error) {
	if cmd.MessageID == nil && cmd.UpTo == nil {
		return nil, errors.ErrInvalidPayload
	}
	var updated []domain.Message
	for from := messagePrefix(cmd.Room); from != nil; {
		var committed []domain.Message
		var next []byte
		err := update(m.db, func(txn *badger.Txn) error {
			committed, next = nil, nil
			targets, resume, err := m.receiptTargets(txn, cmd, from)
			if err != nil {
				return err
			}
			next = resume
			for _, target := range targets {
				message := target.message
				if !message.AddReceipt(cmd.UserID, at) {
					continue
				}
				err = txn.Set(target.key, encodeMessage(message))
				if errors.Is(err, badger.ErrTxnTooBig) && len(committed) > 0 {
					// Commit what fits, the rest goes to the next transaction
					next = target.key
					return nil
				}
				if err != nil {
					return err
				}
				committed = append(committed, message)
			}
			return nil
		})
		if err != nil {
			return updated, err
		}
		updated = append(updated, committed...)
		from = next
	}
	return updated, nil
}

type keyedMessage struct {
	key     []byte
	message domain.Message
}

// receiptTargets reads the messages a mark-read applies to, starting at key
// from. next is the key to resume at when the batch is full, nil otherwise.
func (m MessageRepository) receiptTargets(txn *badger.Txn, cmd domain.MarkReadCommand, from []byte) (targets []keyedMessage, next []byte, err error) {
	prefix := messagePrefix(cmd.Room)
	if cmd.MessageID != nil {
		key, err := getValue(txn, messageIDKey(*cmd.MessageID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, errors.ErrMessageNotFound
		}
		if err != nil {
			return nil, nil, err
		}
		if !bytes.HasPrefix(key, prefix) {
			return nil, nil, errors.ErrMessageNotFound
		}
		val, err := getValue(txn, key)
		if err != nil {
			return nil, nil, err
		}
		message, err := decodeMessage(val)
		if err != nil {
			return nil, nil, err
		}
		return []keyedMessage{{key: key, message: message}}, nil, nil
	}

	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Seek(from); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		createdAt, err := timestampOf(item.Key(), prefix)
		if err != nil {
			return nil, nil, err
		}
		if createdAt.After(*cmd.UpTo) {
			break
		}
		if len(targets) == receiptBatch {
			return targets, item.KeyCopy(nil), nil
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, nil, err
		}
		message, err := decodeMessage(val)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, keyedMessage{key: item.KeyCopy(nil), message: message})
	}
	return targets, nil, nil
}

// DeleteByRoom removes every message of the room with its id and correlation
// index entries. It returns the number of deleted messages.
func (m MessageRepository) DeleteByRoom(roomID domain.RoomID) (int, error) {
	var keys [][]byte
	var count int
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				message, err := decodeMessage(val)
				if err != nil {
					return err
				}
				keys = append(keys, item.KeyCopy(nil), messageIDKey(message.ID))
				if message.CorrelationID != "" {
					keys = append(keys, correlationKey(message.SenderID, message.CorrelationID))
				}
				return nil
			})
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	batch := m.db.NewWriteBatch()
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

func getMessage(txn *badger.Txn, id domain.MessageID) (domain.Message, error) {
	key, err := getValue(txn, messageIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	val, err := getValue(txn, key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	message, err := decodeMessage(val)
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message %s: %w", id, err)
	}
	return message, nil
}

// RoomActivity counts the messages created at or after since, per room.
// Only keys are read: the room and the creation instant are part of them.
// Rooms are returned in key order.
func (m MessageRepository) RoomActivity(since time.Time) ([]domain.RoomActivity, error) {
	var activity []domain.RoomActivity
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(messageNamespace)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			roomID, createdAt, err := parseMessageKey(it.Item().Key())
			if err != nil {
				return err
			}
			if createdAt.Before(since) {
				continue
			}
			last := len(activity) - 1
			if last < 0 || activity[last].RoomID != roomID {
				activity = append(activity, domain.RoomActivity{RoomID: roomID})
				last++
			}
			activity[last].MessageCount++
			// Keys of a room are sorted by creation instant
			activity[last].LastMessageAt = createdAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}
