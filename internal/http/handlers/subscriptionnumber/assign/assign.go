// Package assign реализует HTTP-обработчик закрепления абонентского номера
// за клиентом. Номер держателя с отменённой подпиской может быть передан
// другому клиенту; активный держатель не вытесняется. Nil client_id
// освобождает номер.
package assign

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/raminazmi/RoseDye-backend/internal/http/response"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	services "github.com/raminazmi/RoseDye-backend/internal/services/registry"
	"github.com/raminazmi/RoseDye-backend/internal/storage/repository"
)

// Handler управляет HTTP-запросами закрепления номеров.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики закрепления номера.
type Service interface {
	Assign(ctx context.Context, numberID int64, clientID *int64) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Закрепить номер за клиентом
// @Description Закрепляет номер за клиентом или освобождает его. Номер с активным держателем не передаётся.
// @Tags SubscriptionNumbers
// @Accept  json
// @Produce  json
// @Param id path int true "ID номера"
// @Param request body models.DummyAssignClient true "ID клиента (null — освободить номер)"
// @Success 200 {object} response.Response "Успешное закрепление"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ID"
// @Failure 404 {object} response.ErrorResponse "Номер или клиент не найден"
// @Failure 409 {object} response.ErrorResponse "Номер занят активным держателем"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription-numbers/{id}/assign-client [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptionnumber.assign"

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

	var req models.DummyAssignClient
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.service.Assign(r.Context(), id, req.ClientID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSubscriptionNumberNotFound):
			log.Error("subscription number not found", slog.Int64("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription number not found"))
		case errors.Is(err, repository.ErrClientNotFound):
			log.Error("client not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("client not found"))
		case errors.Is(err, services.ErrNumberTaken):
			log.Error("number held by active client", slog.Int64("id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("number is held by a client with an active subscription"))
		default:
			log.Error("failed to assign number", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to assign number"))
		}
		return
	}

	log.Info("number assignment updated", slog.Int64("id", id))
	render.JSON(w, r, response.OK())
}
