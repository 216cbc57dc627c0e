package repository

import (
	"context"
	"sync"

	"github.com/ratehub/rating-notifications/internal/domain"
)

// MockRatingRepository is an in-memory RatingRepository for tests.
// Set FailCreate to force the primary-write path to fail.
type MockRatingRepository struct {
	mu      sync.Mutex
	ratings map[string]*domain.Rating

	FailCreate error
}

func NewMockRatingRepository() *MockRatingRepository {
	return &MockRatingRepository{ratings: make(map[string]*domain.Rating)}
}

func (m *MockRatingRepository) Create(_ context.Context, r *domain.Rating) error {
	if m.FailCreate != nil {
		return m.FailCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *r
	m.ratings[r.ID] = &stored
	return nil
}

func (m *MockRatingRepository) GetByID(_ context.Context, id string) (*domain.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *MockRatingRepository) AverageForProvider(_ context.Context, serviceProviderID int64) (*domain.AverageRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg := domain.AverageRating{ServiceProviderID: serviceProviderID}
	sum := 0
	for _, r := range m.ratings {
		if r.ServiceProviderID == serviceProviderID {
			sum += r.Score
			avg.RatingCount++
		}
	}
	if avg.RatingCount > 0 {
		avg.AverageScore = float64(sum) / float64(avg.RatingCount)
	}
	return &avg, nil
}

var _ RatingRepository = (*MockRatingRepository)(nil)
