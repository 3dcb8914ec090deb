// Package bulkcreate реализует HTTP-обработчик массового пополнения реестра
// абонентских номеров по числовому диапазону. Существующие номера пропускаются.
package bulkcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/raminazmi/RoseDye-backend/internal/http/response"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// Handler управляет HTTP-запросами массового создания номеров.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики массового создания номеров.
type Service interface {
	BulkCreate(ctx context.Context, start, end int) (int, error)
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
// @Summary Массово создать номера
// @Description Добавляет в реестр свободные номера из диапазона. Уже существующие пропускаются.
// @Tags SubscriptionNumbers
// @Accept  json
// @Produce  json
// @Param request body models.DummyNumberRange true "Диапазон номеров"
// @Success 200 {object} map[string]any "Количество добавленных номеров"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription-numbers [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptionnumber.bulkcreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyNumberRange
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

	created, err := h.service.BulkCreate(r.Context(), req.StartNumber, req.EndNumber)
	if err != nil {
		log.Error("failed to bulk create numbers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create numbers"))
		return
	}

	log.Info("numbers created", slog.Int("count", created))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"created_count": created,
	}))
}
