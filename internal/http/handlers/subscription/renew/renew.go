// Package renew реализует HTTP-обработчик продления подписки.
//
// Платёж продления сначала гасит накопленный долг подарочным кредитом,
// остаток долга удерживается из платежа. Продление, не покрывающее долг,
// отклоняется целиком.
package renew

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
	"github.com/go-playground/validator"

	"github.com/raminazmi/RoseDye-backend/internal/http/response"
	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	services "github.com/raminazmi/RoseDye-backend/internal/services/subscription"
	"github.com/raminazmi/RoseDye-backend/internal/storage/repository"
)

// Handler управляет HTTP-запросами продления подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики продления подписки.
type Service interface {
	Renew(ctx context.Context, subID int64, req models.DummyRenewal) (*models.Client, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Продлить подписку
// @Description Продлевает подписку на новый период, погашая долг и начисляя бонусный кредит.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param id path int true "ID подписки"
// @Param request body models.DummyRenewal true "Стоимость продления и бонусный кредит"
// @Success 200 {object} map[string]any "Клиент с обновлёнными балансами"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ID"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 422 {object} response.ErrorResponse "Платёж не покрывает долг или превышен подарочный лимит"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/{id}/renew [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.renew"

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

	var req models.DummyRenewal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	client, err := h.service.Renew(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSubscriptionNotFound):
			log.Error("subscription not found", slog.Int64("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		case errors.Is(err, ledger.ErrInsufficientFunds):
			log.Error("renewal does not cover debt", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("renewal payment does not cover the debt"))
		case errors.Is(err, ledger.ErrGiftCapExceeded):
			log.Error("gift cap exceeded", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("gift top-up exceeds the original gift cap"))
		case errors.Is(err, services.ErrInvalidDuration):
			log.Error("invalid duration", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("subscription has no valid duration"))
		default:
			log.Error("failed to renew subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to renew subscription"))
		}
		return
	}

	log.Info("subscription renewed", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"client": client,
	}))
}
