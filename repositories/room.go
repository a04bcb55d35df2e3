//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(room domain.Room) error
	GetRoom(id domain.RoomID) (domain.Room, error)
	AddMembers(id domain.RoomID, userIDs ...domain.UserID) (domain.Room, []domain.UserID, error)
	Touch(id domain.RoomID, at time.Time) error
	DeleteRoom(id domain.RoomID) error
	ListRoomsForUser(userID domain.UserID) ([]domain.Room, error)
}

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

// CreateRoom stores the room and one member:{user}:{room} index entry per member,
// which backs ListRoomsForUser.
func (r RoomRepository) CreateRoom(room domain.Room) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := txn.Set(roomKey(room.ID), encodeRoom(room)); err != nil {
			return err
		}
		for _, member := range room.Members {
			if err := txn.Set(memberKey(member, room.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		return err
	})
	return room, err
}

// AddMembers grows the member set in a single transaction and returns the
// users that were not members before. Concurrent growth is serialized by
// Badger conflict detection, so no addition is lost.
func (r RoomRepository) AddMembers(id domain.RoomID, userIDs ...domain.UserID) (domain.Room, []domain.UserID, error) {
	var (
		room  domain.Room
		added []domain.UserID
	)
	err := update(r.db, func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		if err != nil {
			return err
		}
		added = room.AddMembers(userIDs...)
		if len(added) == 0 {
			return nil
		}
		for _, member := range added {
			if err = txn.Set(memberKey(member, id), nil); err != nil {
				return err
			}
		}
		return txn.Set(roomKey(id), encodeRoom(room))
	})
	if err != nil {
		return domain.Room{}, nil, err
	}
	return room, added, nil
}

// Touch moves the room's last activity marker forward.
func (r RoomRepository) Touch(id domain.RoomID, at time.Time) error {
	return update(r.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, id)
		if err != nil {
			return err
		}
		room.Touch(at)
		return txn.Set(roomKey(id), encodeRoom(room))
	})
}

func (r RoomRepository) DeleteRoom(id domain.RoomID) error {
	return update(r.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, id)
		if err != nil {
			return err
		}
		for _, member := range room.Members {
			if err = txn.Delete(memberKey(member, id)); err != nil {
				return err
			}
		}
		return txn.Delete(roomKey(id))
	})
}

// ListRoomsForUser returns the rooms userID belongs to, most recently active
// first, then most recently created first.
func (r RoomRepository) ListRoomsForUser(userID domain.UserID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := memberPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			roomID := domain.RoomID(it.Item().Key()[len(prefix):])
			room, err := getRoom(txn, roomID)
			if errors.Is(err, errors.ErrRoomNotFound) {
				r.log.Debug("Dangling membership index", "room_id", roomID, "user_id", userID)
				continue
			}
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		ai, aj := rooms[i].Activity(), rooms[j].Activity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func getRoom(txn *badger.Txn, id domain.RoomID) (domain.Room, error) {
	val, err := getValue(txn, roomKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	room, err := decodeRoom(val)
	if err != nil {
		return domain.Room{}, fmt.Errorf("decode room %s: %w", id, err)
	}
	return room, nil
}
