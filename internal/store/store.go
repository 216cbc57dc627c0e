package store

import (
	"context"

	"github.com/ratehub/rating-notifications/internal/domain"
)

// Store holds pending notifications per subject (service provider) until a
// poller consumes them. Two implementations exist: MemoryStore
// (process-local, lost on restart) and RedisStore (shared, survives
// restarts, self-cleans via TTL). The service layer depends only on this
// interface; the backend is chosen at wire-up time.
type Store interface {
	// Append inserts the notification at the tail of its subject's queue.
	// Duplicates from broker redelivery are stored as separate entries;
	// deduplication is explicitly not this layer's job.
	Append(ctx context.Context, n domain.Notification) error

	// TakeUpTo atomically removes and returns up to limit entries from the
	// head of the subject's queue in FIFO order. An empty subject yields an
	// empty slice, not an error. Entries handed out here are gone for good.
	// Callers are responsible for keeping limit within the service ceiling.
	TakeUpTo(ctx context.Context, subjectID int64, limit int) ([]domain.Notification, error)

	// Count reports the number of pending entries without consuming them.
	// The value is only guaranteed to have been true at some instant
	// during the call.
	Count(ctx context.Context, subjectID int64) (int, error)
}
