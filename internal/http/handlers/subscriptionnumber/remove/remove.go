// Package remove реализует HTTP-обработчик удаления номера из реестра.
// Номер, закреплённый за клиентом, удалить нельзя.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/raminazmi/RoseDye-backend/internal/http/response"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	services "github.com/raminazmi/RoseDye-backend/internal/services/registry"
	"github.com/raminazmi/RoseDye-backend/internal/storage/repository"
)

// Handler управляет HTTP-запросами удаления номеров.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления номера.
type Service interface {
	Remove(ctx context.Context, id int64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить номер
// @Description Удаляет свободный номер из реестра. Закреплённый за клиентом номер не удаляется.
// @Tags SubscriptionNumbers
// @Produce  json
// @Param id path int true "ID номера"
// @Success 200 {object} response.Response "Успешное удаление"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Номер не найден"
// @Failure 409 {object} response.ErrorResponse "Номер закреплён за клиентом"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription-numbers/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptionnumber.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("invalid id format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	if err := h.service.Remove(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSubscriptionNumberNotFound):
			log.Error("subscription number not found", slog.Int64("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription number not found"))
		case errors.Is(err, services.ErrNumberLinked):
			log.Error("number is linked to a client", slog.Int64("id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("number is linked to a client"))
		default:
			log.Error("failed to delete number", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to delete number"))
		}
		return
	}

	log.Info("number removed", slog.Int64("id", id))
	render.JSON(w, r, response.OK())
}
