package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/MrJamesThe3rd/conciliador/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliador/internal/http/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/http/run"
	"github.com/MrJamesThe3rd/conciliador/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/http/transaction"
)

type Options struct {
	Log            zerolog.Logger
	AllowedOrigins []string
}

func New(
	opts Options,
	uploadsV1 *statement.Handler,
	runsV1 *run.Handler,
	transactionsV1 *transaction.Handler,
	rulesV1 *rules.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(requestLogger(opts.Log))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/uploads", uploadsV1.Routes)

		r.Route("/runs", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			runsV1.Routes(r)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/clients/{clientID}/rules", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			rulesV1.Routes(r)
		})
	})

	return router
}
