package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ratehub/rating-notifications/internal/domain"
)

type pgRatingRepository struct {
	pool *pgxpool.Pool
}

// NewPgRatingRepository returns a RatingRepository backed by PostgreSQL.
func NewPgRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &pgRatingRepository{pool: pool}
}

func (r *pgRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ratings
			(id, service_provider_id, customer_id, score, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rating.ID, rating.ServiceProviderID, rating.CustomerID,
		rating.Score, rating.Comment, rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (r *pgRatingRepository) GetByID(ctx context.Context, id string) (*domain.Rating, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, service_provider_id, customer_id, score, comment, created_at
		FROM ratings WHERE id = $1`, id)

	var rating domain.Rating
	err := row.Scan(
		&rating.ID, &rating.ServiceProviderID, &rating.CustomerID,
		&rating.Score, &rating.Comment, &rating.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &rating, nil
}

func (r *pgRatingRepository) AverageForProvider(ctx context.Context, serviceProviderID int64) (*domain.AverageRating, error) {
	// COALESCE keeps a provider with no ratings a valid zero-result
	// instead of a NULL scan error.
	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(score), 0), COUNT(*)
		FROM ratings WHERE service_provider_id = $1`, serviceProviderID)

	avg := domain.AverageRating{ServiceProviderID: serviceProviderID}
	if err := row.Scan(&avg.AverageScore, &avg.RatingCount); err != nil {
		return nil, fmt.Errorf("average for provider %d: %w", serviceProviderID, err)
	}
	return &avg, nil
}
