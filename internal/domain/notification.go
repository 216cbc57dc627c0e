package domain

import "time"

// Kind tags the event type carried by a notification.
type Kind string

const KindRatingCreated Kind = "RatingCreated"

func (k Kind) IsValid() bool {
	return k == KindRatingCreated
}

// Notification is the immutable event record moved from the rating writer
// to a polling service provider. The JSON field names are the wire contract
// shared with the broker queue and the Redis-backed store; do not rename.
type Notification struct {
	ID                string    `json:"Id"`
	ServiceProviderID int64     `json:"ServiceProviderId"`
	CustomerID        int64     `json:"CustomerId"`
	Score             int       `json:"Score"`
	Comment           string    `json:"Comment,omitempty"`
	CreatedAt         time.Time `json:"CreatedAt"`
	Kind              Kind      `json:"Type"`
}

// Validate checks a notification arriving over the internal HTTP ingress.
// Broker deliveries skip this: anything that deserializes was produced by
// our own writer and is stored as-is.
func (n *Notification) Validate() error {
	if n.ID == "" {
		return ErrInvalidNotificationID
	}
	if n.ServiceProviderID <= 0 {
		return ErrInvalidServiceProvider
	}
	if n.CustomerID <= 0 {
		return ErrInvalidCustomer
	}
	if n.Score < MinScore || n.Score > MaxScore {
		return ErrInvalidScore
	}
	if len(n.Comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	if !n.Kind.IsValid() {
		return ErrInvalidKind
	}
	return nil
}

// PollResult is the response of a destructive poll against the
// notification store.
type PollResult struct {
	Notifications        []Notification `json:"notifications"`
	Count                int            `json:"count"`
	HasMore              bool           `json:"hasMore"`
	LastNotificationTime *time.Time     `json:"lastNotificationTime,omitempty"`
}
