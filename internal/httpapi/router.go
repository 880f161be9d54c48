package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediabridge/internal/httpapi/handlers"
	"mediabridge/internal/httpkit"
	"mediabridge/internal/pkg/middleware"
)

type Deps struct {
	Handlers       handlers.Deps
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	h := handlers.New(d.Handlers)
	log := h.Log()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	if len(d.AllowedOrigins) > 0 {
		r.Use(httpkit.CORS(httpkit.CORSOptions{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAgeSeconds:  600,
		}))
	}

	r.Get("/health", h.Health)

	r.Post("/run", middleware.WrapHandler(log, h.Run))
	r.Post("/runsync", middleware.WrapHandler(log, h.RunSync))
	r.Get("/status/{jobId}", middleware.WrapHandler(log, h.Status))

	return r
}
