package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/store"
)

// Poll limit bounds. The ceiling lives here, not in the store: the store
// contract only promises "up to limit", the service is the boundary that
// rejects out-of-range requests.
const (
	DefaultPollLimit = 10
	MaxPollLimit     = 50
)

// NotificationService is the thin layer between the poll API and the
// notification store. Polling is destructive: entries returned once are
// gone.
type NotificationService struct {
	store  store.Store
	logger *zap.Logger
}

func NewNotificationService(st store.Store, logger *zap.Logger) *NotificationService {
	return &NotificationService{store: st, logger: logger}
}

// Poll consumes up to limit pending notifications for the subject.
// hasMore reflects the count remaining after the take; with concurrent
// appenders it is a best-effort snapshot, not a promise.
func (s *NotificationService) Poll(ctx context.Context, subjectID int64, limit int) (*domain.PollResult, error) {
	if subjectID <= 0 {
		return nil, domain.ErrInvalidServiceProvider
	}
	if limit < 1 || limit > MaxPollLimit {
		return nil, domain.ErrInvalidLimit
	}

	taken, err := s.store.TakeUpTo(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("take notifications: %w", err)
	}
	if taken == nil {
		// Clients iterate the notifications array; an empty poll must
		// serialize as [] rather than null.
		taken = []domain.Notification{}
	}

	remaining, err := s.store.Count(ctx, subjectID)
	if err != nil {
		// The take already happened; losing the hasMore hint is not worth
		// failing the poll and dropping consumed entries on the floor.
		s.logger.Warn("count after take failed",
			zap.Int64("subject_id", subjectID), zap.Error(err))
		remaining = 0
	}

	result := &domain.PollResult{
		Notifications: taken,
		Count:         len(taken),
		HasMore:       remaining > 0,
	}
	for i := range taken {
		if result.LastNotificationTime == nil || taken[i].CreatedAt.After(*result.LastNotificationTime) {
			result.LastNotificationTime = &taken[i].CreatedAt
		}
	}
	return result, nil
}

// Count reports pending notifications without consuming them.
func (s *NotificationService) Count(ctx context.Context, subjectID int64) (int, error) {
	if subjectID <= 0 {
		return 0, domain.ErrInvalidServiceProvider
	}
	return s.store.Count(ctx, subjectID)
}

// Ingest appends a notification arriving over the internal HTTP ingress,
// the at-least-once alternative to the broker path.
func (s *NotificationService) Ingest(ctx context.Context, n domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if err := s.store.Append(ctx, n); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}
