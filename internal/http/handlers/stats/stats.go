// Package stats реализует HTTP-обработчик сводной статистики.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/raminazmi/RoseDye-backend/internal/http/response"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// Handler управляет HTTP-запросами статистики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики статистики.
type Service interface {
	Get(ctx context.Context) (*models.Statistics, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сводная статистика
// @Description Возвращает количество клиентов, подписок по статусам, счетов и суммарную выручку.
// @Tags Statistics
// @Produce  json
// @Success 200 {object} map[string]any "Статистика"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /statistics [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.Get(r.Context())
	if err != nil {
		log.Error("failed to get statistics", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get statistics"))
		return
	}

	log.Info("statistics collected")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"statistics": res,
	}))
}
