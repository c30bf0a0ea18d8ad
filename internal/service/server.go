package service

import (
	"game_shop/internal/app"
	"game_shop/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// Service encapsulates the HTTP server configuration, including the application's business logic,
// HTTP handlers, the server's run address, and a logger for event and error logging.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
// It sets up the handlers using the provided application and logger,
// and configures the server's run address.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter sets up and returns a new chi.Router instance with the necessary middleware and routes.
// Every route is stateless: operations identify the account by username, so no
// route is gated on the login token.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())
	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", service.handlers.registerHandler)
		r.Post("/login", service.handlers.loginHandler)
		r.Get("/users", service.handlers.usersHandler)
	})
	router.Route("/api/shop", func(r chi.Router) {
		r.Get("/items", service.handlers.itemsHandler)
		r.Post("/buy/{itemId}", service.handlers.buyItemHandler)
		r.Get("/coins/{username}", service.handlers.coinsHandler)
		r.Get("/ranking", service.handlers.rankingHandler)
		r.Get("/profile/{username}", service.handlers.profileHandler)
		r.Get("/inventory/{username}", service.handlers.inventoryHandler)
		r.Get("/score/{username}", service.handlers.scoreHandler)
	})
	return router
}
