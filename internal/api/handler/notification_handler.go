package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apimw "github.com/ratehub/rating-notifications/internal/api/middleware"
	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/ratelimiter"
	"github.com/ratehub/rating-notifications/internal/service"
)

// NotificationHandler serves the poll API consumed by service-provider
// clients, plus the internal ingress used by the HTTP transport variant.
type NotificationHandler struct {
	svc      *service.NotificationService
	limiter  *ratelimiter.SubjectLimiters
	logger   *zap.Logger
	onPolled func(count int)
}

// NewNotificationHandler constructs the handler. onPolled is an optional
// metrics hook (nil = no-op) receiving the number of consumed entries.
func NewNotificationHandler(
	svc *service.NotificationService,
	limiter *ratelimiter.SubjectLimiters,
	logger *zap.Logger,
	onPolled func(count int),
) *NotificationHandler {
	if onPolled == nil {
		onPolled = func(int) {}
	}
	return &NotificationHandler{svc: svc, limiter: limiter, logger: logger, onPolled: onPolled}
}

// Poll handles GET /api/v1/notifications
//
// Polling is destructive: returned notifications are removed from the
// store and cannot be retrieved again.
//
// @Summary  Consume pending notifications for a subject
// @Tags     notifications
// @Produce  json
// @Param    subjectId  query     int  true   "Service provider ID"
// @Param    limit      query     int  false  "Max entries to consume (1-50, default 10)"
// @Success  200        {object}  domain.PollResult
// @Failure  422        {object}  map[string]string
// @Failure  429        {object}  map[string]string
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) Poll(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := parseSubjectID(w, r)
	if !ok {
		return
	}
	if !h.limiter.Allow(subjectID) {
		respondError(w, http.StatusTooManyRequests, "poll rate limit exceeded")
		return
	}

	limit := service.DefaultPollLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, domain.ErrInvalidLimit.Error())
			return
		}
		limit = parsed
	}

	result, err := h.svc.Poll(r.Context(), subjectID, limit)
	if err != nil {
		h.logger.Warn("poll failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int64("subject_id", subjectID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	h.onPolled(result.Count)
	respondJSON(w, http.StatusOK, result)
}

// Count handles GET /api/v1/notifications/count
//
// @Summary  Pending notification count for a subject, without consuming
// @Tags     notifications
// @Produce  json
// @Param    subjectId  query     int  true  "Service provider ID"
// @Success  200        {object}  map[string]int
// @Failure  422        {object}  map[string]string
// @Router   /api/v1/notifications/count [get]
func (h *NotificationHandler) Count(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := parseSubjectID(w, r)
	if !ok {
		return
	}

	count, err := h.svc.Count(r.Context(), subjectID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Ingest handles POST /internal/notifications
//
// Alternate at-least-once transport: internal callers append a
// notification directly, bypassing the broker. Unlike broker deliveries
// the body is validated, since HTTP callers are not necessarily our own
// writer.
//
// @Summary  Internal notification ingress
// @Tags     notifications
// @Accept   json
// @Param    body  body  domain.Notification  true  "Notification payload"
// @Success  204
// @Failure  422   {object}  map[string]string
// @Router   /internal/notifications [post]
func (h *NotificationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.Ingest(r.Context(), n); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseSubjectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	subjectID, err := strconv.ParseInt(r.URL.Query().Get("subjectId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "subjectId must be an integer")
		return 0, false
	}
	return subjectID, true
}
