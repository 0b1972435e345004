// internal/wire/wire.go
package wire

import (
	"net/http"

	"companion-booking/internal/adaptor"
	"companion-booking/internal/data/repository"
	"companion-booking/internal/usecase"
	"companion-booking/pkg/middleware"
	"companion-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds everything main needs after wiring.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds the services, handlers and router.
func Wiring(repo *repository.Repository, deps usecase.Dependencies, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, logger)
	handler := adaptor.NewHandler(service, logger)
	verifier := middleware.NewTokenVerifier(config.JWT.Secret, config.JWT.Issuer)

	router := setupRouter(handler, verifier, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter configures the chi router
func setupRouter(handler *adaptor.Handler, verifier *middleware.TokenVerifier, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier, logger, "client", "professional"))

		wireBooking(r, handler.Booking)
		wireReview(r, handler.Review)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
