// Package rosedye собирает HTTP-приложение API и его маршруты.
package rosedye

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/auth/login"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/auth/register"
	clientcreate "github.com/raminazmi/RoseDye-backend/internal/http/handlers/client/create"
	clientlist "github.com/raminazmi/RoseDye-backend/internal/http/handlers/client/list"
	clientread "github.com/raminazmi/RoseDye-backend/internal/http/handlers/client/read"
	clientremove "github.com/raminazmi/RoseDye-backend/internal/http/handlers/client/remove"
	clientupdate "github.com/raminazmi/RoseDye-backend/internal/http/handlers/client/update"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/health"
	invoicecreate "github.com/raminazmi/RoseDye-backend/internal/http/handlers/invoice/create"
	invoicelist "github.com/raminazmi/RoseDye-backend/internal/http/handlers/invoice/list"
	invoiceremove "github.com/raminazmi/RoseDye-backend/internal/http/handlers/invoice/remove"
	invoiceupdate "github.com/raminazmi/RoseDye-backend/internal/http/handlers/invoice/update"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/stats"
	sublist "github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscription/list"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscription/notify"
	subread "github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscription/read"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscription/renew"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscription/updatestatus"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscriptionnumber/assign"
	"github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscriptionnumber/bulkcreate"
	numberlist "github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscriptionnumber/list"
	numberremove "github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscriptionnumber/remove"
	numberupdate "github.com/raminazmi/RoseDye-backend/internal/http/handlers/subscriptionnumber/update"
	"github.com/raminazmi/RoseDye-backend/internal/http/middlewarectx"

	authservice "github.com/raminazmi/RoseDye-backend/internal/services/auth"
	clientservice "github.com/raminazmi/RoseDye-backend/internal/services/client"
	invoiceservice "github.com/raminazmi/RoseDye-backend/internal/services/invoice"
	registryservice "github.com/raminazmi/RoseDye-backend/internal/services/registry"
	statsservice "github.com/raminazmi/RoseDye-backend/internal/services/stats"
	subservice "github.com/raminazmi/RoseDye-backend/internal/services/subscription"
)

// Services объединяет сервисы, которые обслуживают HTTP-маршруты.
type Services struct {
	Auth         *authservice.AuthService
	Client       *clientservice.ClientService
	Invoice      *invoiceservice.InvoiceService
	Subscription *subservice.SubscriptionService
	Registry     *registryservice.RegistryService
	Stats        *statsservice.StatsService
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/clients", clientcreate.New(logger, svc.Client).ServeHTTP)
			r.Get("/clients", clientlist.New(logger, svc.Client).ServeHTTP)
			r.Get("/clients/{id}", clientread.New(logger, svc.Client).ServeHTTP)
			r.Put("/clients/{id}", clientupdate.New(logger, svc.Client).ServeHTTP)
			r.Delete("/clients/{id}", clientremove.New(logger, svc.Client).ServeHTTP)

			r.Post("/invoices", invoicecreate.New(logger, svc.Invoice).ServeHTTP)
			r.Get("/invoices", invoicelist.New(logger, svc.Invoice).ServeHTTP)
			r.Put("/invoices/{id}", invoiceupdate.New(logger, svc.Invoice).ServeHTTP)
			r.Delete("/invoices/{id}", invoiceremove.New(logger, svc.Invoice).ServeHTTP)

			r.Get("/subscriptions", sublist.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/subscriptions/{id}", subread.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/subscriptions/{id}/renew", renew.New(logger, svc.Subscription).ServeHTTP)
			r.Patch("/subscriptions/{id}/status", updatestatus.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/subscriptions/{id}/notify", notify.New(logger, svc.Subscription).ServeHTTP)

			r.Get("/subscription-numbers", numberlist.New(logger, svc.Registry).ServeHTTP)
			r.Post("/subscription-numbers", bulkcreate.New(logger, svc.Registry).ServeHTTP)
			r.Put("/subscription-numbers/{id}", numberupdate.New(logger, svc.Registry).ServeHTTP)
			r.Delete("/subscription-numbers/{id}", numberremove.New(logger, svc.Registry).ServeHTTP)
			r.Patch("/subscription-numbers/{id}/assign-client", assign.New(logger, svc.Registry).ServeHTTP)

			r.Get("/statistics", stats.New(logger, svc.Stats).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
