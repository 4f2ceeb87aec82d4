package rest

import (
	"net/http"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/rest/middleware"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter wires the public and authenticated routes. Reads are public;
// every write needs a bearer token.
func NewRouter(h *Handler, resolver domain.IdentityResolver, m *metrics.Metrics, log *logger.Logger, serviceName string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(log.Named("http")))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	auth := middleware.Auth(resolver, log.Named("auth"), h.writeError)

	r.Route("/api/places", func(r chi.Router) {
		r.Get("/{pid}", h.GetListing)
		r.Get("/user/{uid}", h.GetListingsByUser)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/", h.CreateListing)
			r.Patch("/{pid}", h.UpdateListing)
			r.Delete("/{pid}", h.DeleteListing)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Patch("/me/image", h.UpdateAccountImage)
		})
	})

	return otelhttp.NewHandler(r, serviceName)
}
