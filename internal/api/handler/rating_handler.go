package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/ratehub/rating-notifications/internal/api/middleware"
	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/service"
)

// RatingHandler handles the producer-side endpoints: creating a rating
// and reading a provider's average.
type RatingHandler struct {
	svc      *service.RatingService
	logger   *zap.Logger
	onCreate func()
}

// NewRatingHandler constructs the handler. onCreate is an optional
// metrics hook (nil = no-op) incremented per persisted rating.
func NewRatingHandler(svc *service.RatingService, logger *zap.Logger, onCreate func()) *RatingHandler {
	if onCreate == nil {
		onCreate = func() {}
	}
	return &RatingHandler{svc: svc, logger: logger, onCreate: onCreate}
}

// Create handles POST /api/v1/ratings
//
// @Summary     Create a rating
// @Tags        ratings
// @Accept      json
// @Produce     json
// @Param       body  body      domain.CreateRatingRequest  true  "Rating payload"
// @Success     201   {object}  domain.Rating
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/ratings [post]
func (h *RatingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rating, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create rating failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	h.onCreate()
	respondJSON(w, http.StatusCreated, rating)
}

// GetByID handles GET /api/v1/ratings/{id}
//
// @Summary  Get a rating by ID
// @Tags     ratings
// @Produce  json
// @Param    id   path      string  true  "Rating UUID"
// @Success  200  {object}  domain.Rating
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/ratings/{id} [get]
func (h *RatingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rating, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rating)
}

// Average handles GET /api/v1/ratings/average
//
// @Summary  Average score for a service provider
// @Tags     ratings
// @Produce  json
// @Param    serviceProviderId  query     int  true  "Service provider ID"
// @Success  200                {object}  domain.AverageRating
// @Failure  422                {object}  map[string]string
// @Router   /api/v1/ratings/average [get]
func (h *RatingHandler) Average(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get("serviceProviderId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "serviceProviderId must be an integer")
		return
	}

	avg, err := h.svc.AverageForProvider(r.Context(), providerID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, avg)
}
