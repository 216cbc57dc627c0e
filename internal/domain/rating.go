package domain

import "time"

const (
	MinScore = 1
	MaxScore = 5

	MaxCommentLength = 1000
)

// Rating is the primary record. It is persisted before any notification
// is published; the publish outcome never changes it.
type Rating struct {
	ID                string    `json:"id"`
	ServiceProviderID int64     `json:"service_provider_id"`
	CustomerID        int64     `json:"customer_id"`
	Score             int       `json:"score"`
	Comment           string    `json:"comment,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Notification builds the event record announcing this rating.
func (r *Rating) Notification() Notification {
	return Notification{
		ID:                r.ID,
		ServiceProviderID: r.ServiceProviderID,
		CustomerID:        r.CustomerID,
		Score:             r.Score,
		Comment:           r.Comment,
		CreatedAt:         r.CreatedAt,
		Kind:              KindRatingCreated,
	}
}

// CreateRatingRequest is the inbound payload for a new rating.
type CreateRatingRequest struct {
	ServiceProviderID int64  `json:"service_provider_id"`
	CustomerID        int64  `json:"customer_id"`
	Score             int    `json:"score"`
	Comment           string `json:"comment"`
}

func (r *CreateRatingRequest) Validate() error {
	if r.ServiceProviderID <= 0 {
		return ErrInvalidServiceProvider
	}
	if r.CustomerID <= 0 {
		return ErrInvalidCustomer
	}
	if r.Score < MinScore || r.Score > MaxScore {
		return ErrInvalidScore
	}
	if len(r.Comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// AverageRating is the aggregation result for one service provider.
type AverageRating struct {
	ServiceProviderID int64   `json:"service_provider_id"`
	AverageScore      float64 `json:"averageScore"`
	RatingCount       int     `json:"ratingCount"`
}
