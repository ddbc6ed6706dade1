// Пакет handlers — HTTP-обработчики Registration Gateway.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/arturkryukov/stacreg/internal/api/errors"
	"github.com/arturkryukov/stacreg/internal/api/middleware"
	"github.com/arturkryukov/stacreg/internal/domain/model"
	"github.com/arturkryukov/stacreg/internal/repository"
	"github.com/arturkryukov/stacreg/internal/service"
)

// GrantProvider — источник прав пользователя на коллекцию.
// В бою — service.GrantService поверх repository.GrantRepository.
type GrantProvider interface {
	Grant(ctx context.Context, userID int64, collection string) (*model.Grant, error)
}

// Handler — обработчики операций регистрации и удаления.
type Handler struct {
	ingestor *service.Ingestor
	deleter  *service.Deleter
	grants   GrantProvider
	health   *HealthHandler
	logger   *slog.Logger
}

// NewHandler создаёт обработчик API.
func NewHandler(
	ingestor *service.Ingestor,
	deleter *service.Deleter,
	grants GrantProvider,
	health *HealthHandler,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ingestor: ingestor,
		deleter:  deleter,
		grants:   grants,
		health:   health,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// authorizedGrant извлекает пользователя из контекста запроса и ищет
// его права на коллекцию. Отсутствие прав — 401, ответ уже записан.
func (h *Handler) authorizedGrant(w http.ResponseWriter, r *http.Request, collectionID string) (*model.Grant, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Not authenticated")
		return nil, false
	}

	grant, err := h.grants.Grant(r.Context(), userID, collectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Unauthorized(w, "User is not authorized to this collection")
			return nil, false
		}
		h.logger.Error("не удалось получить права на коллекцию",
			slog.Int64("user_id", userID),
			slog.String("collection", collectionID),
			slog.String("error", err.Error()),
		)
		apierrors.WriteJSON(w, http.StatusInternalServerError,
			map[string]string{"detail": "Internal server error"})
		return nil, false
	}
	return grant, true
}
