package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const (
	DefaultActivityDays  = 7
	MaxActivityDays      = 90
	DefaultActivityLimit = 10
	MaxActivityLimit     = 50
)

// AnalyticsService ranks rooms by recent traffic across the whole directory.
type AnalyticsService struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	now      func() time.Time
}

func NewAnalyticsService(log *slog.Logger, messages repositories.IMessageRepository) *AnalyticsService {
	return &AnalyticsService{log: log, messages: messages, now: time.Now}
}

// TopActiveRooms returns the rooms with the most messages over the last
// days, busiest first. Zero days or limit take the default. Rooms with the
// same count are ordered by their latest message, most recent first.
func (s *AnalyticsService) TopActiveRooms(days, limit int) ([]domain.RoomActivity, error) {
	if days == 0 {
		days = DefaultActivityDays
	}
	if limit == 0 {
		limit = DefaultActivityLimit
	}
	if days < 1 || days > MaxActivityDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", errors.ErrInvalidPayload, MaxActivityDays)
	}
	if limit < 1 || limit > MaxActivityLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", errors.ErrInvalidPayload, MaxActivityLimit)
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	activity, err := s.messages.RoomActivity(since)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(activity, func(a, b domain.RoomActivity) int {
		if a.MessageCount != b.MessageCount {
			return b.MessageCount - a.MessageCount
		}
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
	if len(activity) > limit {
		activity = activity[:limit]
	}
	s.log.Debug("Room activity ranked", "days", days, "rooms", len(activity))
	return activity, nil
}
