//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// IUserRepository is the user directory consumed by the delivery core.
type IUserRepository interface {
	CreateUser(username, displayName string) (domain.User, error)
	GetUser(id domain.UserID) (domain.User, error)
	FindByUsernames(usernames []string) ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a directory entry. Usernames are unique, case-insensitively.
func (u UserRepository) CreateUser(username, displayName string) (domain.User, error) {
	user := domain.User{
		ID:          domain.UserID(uuid.New().String()),
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}

	err := update(u.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(user.ID), encodeUser(user)); err != nil {
			return err
		}
		return txn.Set(usernameKey(username), []byte(user.ID))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUser(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

// FindByUsernames resolves usernames to users. Unknown usernames are skipped.
func (u UserRepository) FindByUsernames(usernames []string) ([]domain.User, error) {
	var users []domain.User
	unique := lo.Uniq(lo.Map(usernames, func(s string, _ int) string { return strings.ToLower(s) }))

	err := u.db.View(func(txn *badger.Txn) error {
		for _, username := range unique {
			id, err := getValue(txn, usernameKey(username))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			user, err := getUser(txn, domain.UserID(id))
			if errors.Is(err, errors.ErrUserNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

func getUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	val, err := getValue(txn, userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	user, err := decodeUser(val)
	if err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return user, nil
}
