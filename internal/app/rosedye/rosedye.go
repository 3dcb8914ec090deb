package rosedye

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/raminazmi/RoseDye-backend/internal/cache"
	"github.com/raminazmi/RoseDye-backend/internal/config"
	"github.com/raminazmi/RoseDye-backend/internal/lib/jwt"
	"github.com/raminazmi/RoseDye-backend/internal/migrations"
	"github.com/raminazmi/RoseDye-backend/internal/notifier"
	authservice "github.com/raminazmi/RoseDye-backend/internal/services/auth"
	clientservice "github.com/raminazmi/RoseDye-backend/internal/services/client"
	invoiceservice "github.com/raminazmi/RoseDye-backend/internal/services/invoice"
	registryservice "github.com/raminazmi/RoseDye-backend/internal/services/registry"
	statsservice "github.com/raminazmi/RoseDye-backend/internal/services/stats"
	subservice "github.com/raminazmi/RoseDye-backend/internal/services/subscription"
	"github.com/raminazmi/RoseDye-backend/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер API и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New собирает приложение: подключает базу, прогоняет миграции, поднимает
// кеш, строит сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	whatsapp := notifier.NewUltraMsgClient(
		cfg.UltraMsgBaseURL, cfg.UltraMsgInstance, cfg.UltraMsgToken)
	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	svc := Services{
		Auth:         authservice.NewAuthService(db, jwtMaker),
		Client:       clientservice.NewClientService(db, cacheRedis, logger),
		Invoice:      invoiceservice.NewInvoiceService(db, whatsapp, logger),
		Subscription: subservice.NewSubscriptionService(db, whatsapp, logger, cfg.Location()),
		Registry:     registryservice.NewRegistryService(db, logger),
		Stats:        statsservice.NewStatsService(db, cacheRedis, logger),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, svc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает сервер и ждёт отмены контекста для graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
