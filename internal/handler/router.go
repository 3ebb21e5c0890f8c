package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/kdduha/detection-api/internal/metrics"
)

type RouterConfig struct {
	ThrottleLimit int
	Timeout       time.Duration
}

// NewRouter mounts the detection API together with /metrics and /swagger.
func NewRouter(h *DetectHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Throttle(cfg.ThrottleLimit),
		middleware.Timeout(cfg.Timeout),
		metrics.Middleware,
	}...)

	r.Post("/detect", h.Detect)
	r.Post("/detect/annotated", h.DetectAnnotated)
	r.Get("/download/{filename}", h.Download)
	r.Post("/switch-model/{model_name}", h.SwitchModel)
	r.Get("/models", h.Models)
	r.Get("/health", h.Health)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	return r
}
