// Package create реализует HTTP-обработчик для создания новых клиентов.
//
// Вместе с клиентом закрепляется абонентский номер, открывается стартовая
// подписка и создаётся аккаунт портала.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/raminazmi/RoseDye-backend/internal/http/response"
	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	"github.com/raminazmi/RoseDye-backend/internal/storage/repository"
)

// Handler управляет HTTP-запросами на создание клиентов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания клиента.
type Service interface {
	Create(ctx context.Context, req models.DummyClient) (int64, error)
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
// @Summary Создать нового клиента
// @Description Создает клиента с балансами, абонентским номером, стартовой подпиской и аккаунтом портала.
// @Tags Clients
// @Accept  json
// @Produce  json
// @Param request body models.DummyClient true "Данные нового клиента"
// @Success 200 {object} map[string]any "Успешное создание клиента"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Телефон или номер уже заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании клиента"
// @Router /clients [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.client.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyClient
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

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			log.Error("client already exists", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("phone or subscription number already taken"))
		case errors.Is(err, ledger.ErrInvalidBuckets):
			log.Error("invalid balance values", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("invalid balance values"))
		default:
			log.Error("failed to create client", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create client"))
		}
		return
	}

	log.Info("client created", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id": id,
	}))
}
