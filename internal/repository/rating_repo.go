package repository

import (
	"context"

	"github.com/ratehub/rating-notifications/internal/domain"
)

// RatingRepository defines all persistence operations for ratings.
// The pgx implementation is in pg_rating_repo.go.
// Tests use a hand-written mock (mock_rating_repo.go).
type RatingRepository interface {
	Create(ctx context.Context, r *domain.Rating) error
	GetByID(ctx context.Context, id string) (*domain.Rating, error)
	AverageForProvider(ctx context.Context, serviceProviderID int64) (*domain.AverageRating, error)
}
