package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/domain"
)

// DefaultRetention is how long an untouched subject key lives before the
// backend expires it. Every append resets the clock.
const DefaultRetention = 7 * 24 * time.Hour

// RedisStore keeps each subject's pending notifications in a server-side
// list under "notifications:{subjectID}". Appends RPUSH to the tail and
// takes LPOP from the head, which realizes FIFO; entries are JSON in the
// wire encoding shared with the broker. Because LPOP with a count is a
// single command, concurrent takes for one subject partition the list with
// no duplicates.
//
// Unlike MemoryStore, contents survive a process restart, and abandoned
// subjects self-clean through the rolling key expiry instead of explicit
// bookkeeping removal.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
	logger    *zap.Logger
}

func NewRedisStore(client *redis.Client, retention time.Duration, logger *zap.Logger) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, retention: retention, logger: logger}
}

func subjectKey(subjectID int64) string {
	return fmt.Sprintf("notifications:%d", subjectID)
}

func (s *RedisStore) Append(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	key := subjectKey(n.ServiceProviderID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append notification for subject %d: %w", n.ServiceProviderID, err)
	}
	return nil
}

func (s *RedisStore) TakeUpTo(ctx context.Context, subjectID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		return nil, nil
	}

	key := subjectKey(subjectID)
	raw, err := s.client.LPopCount(ctx, key, limit).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take notifications for subject %d: %w", subjectID, err)
	}

	taken := make([]domain.Notification, 0, len(raw))
	for _, entry := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			// A corrupt stored entry must not poison the rest of the
			// batch; it is already removed from the list, so log and move on.
			s.logger.Warn("skipping malformed stored notification",
				zap.Int64("subject_id", subjectID),
				zap.Error(err),
			)
			continue
		}
		taken = append(taken, n)
	}
	return taken, nil
}

func (s *RedisStore) Count(ctx context.Context, subjectID int64) (int, error) {
	n, err := s.client.LLen(ctx, subjectKey(subjectID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count notifications for subject %d: %w", subjectID, err)
	}
	return int(n), nil
}

var _ Store = (*RedisStore)(nil)
