package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/broker"
	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/repository"
)

// RatingService owns the fault-isolated write path: the rating is
// persisted first and is the operation's outcome; the notification publish
// that follows is best-effort and cannot fail the caller. A broker outage
// therefore costs notifications, never ratings.
type RatingService struct {
	repo   repository.RatingRepository
	pub    broker.Publisher
	logger *zap.Logger
}

func NewRatingService(
	repo repository.RatingRepository,
	pub broker.Publisher,
	logger *zap.Logger,
) *RatingService {
	return &RatingService{repo: repo, pub: pub, logger: logger}
}

// Create validates and persists a rating, then announces it.
// An error here always means the primary write failed; publish failures
// only surface as a warning log and the publish-failure counter.
func (s *RatingService) Create(ctx context.Context, req domain.CreateRatingRequest) (*domain.Rating, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rating := &domain.Rating{
		ID:                uuid.New().String(),
		ServiceProviderID: req.ServiceProviderID,
		CustomerID:        req.CustomerID,
		Score:             req.Score,
		Comment:           req.Comment,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, rating); err != nil {
		return nil, fmt.Errorf("persist rating: %w", err)
	}

	if err := s.pub.Publish(ctx, rating.Notification()); err != nil {
		// Already logged and counted by the publisher; the warning here
		// ties the loss to the rating that still succeeded.
		s.logger.Warn("rating persisted but notification publish failed",
			zap.String("rating_id", rating.ID),
			zap.Int64("service_provider_id", rating.ServiceProviderID),
			zap.Error(err),
		)
	}

	return rating, nil
}

func (s *RatingService) GetByID(ctx context.Context, id string) (*domain.Rating, error) {
	return s.repo.GetByID(ctx, id)
}

// AverageForProvider returns the aggregated score for one service provider.
func (s *RatingService) AverageForProvider(ctx context.Context, serviceProviderID int64) (*domain.AverageRating, error) {
	if serviceProviderID <= 0 {
		return nil, domain.ErrInvalidServiceProvider
	}
	return s.repo.AverageForProvider(ctx, serviceProviderID)
}
