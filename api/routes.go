package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreybb/consumo/config"
	rh "github.com/coreybb/consumo/route-handlers"
	"github.com/coreybb/consumo/webutil"
)

const (
	consumptionBasePath = "/consumo"
	searchSubPath       = "/buscar"
)

const (
	healthPath  = "/healthz"
	readyPath   = "/readyz"
	metricsPath = "/metrics"
)

func SetupRoutes(cfg config.Config, handler *rh.ConsumptionHandler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(Metrics)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{webutil.HeaderBatchID},
		MaxAge:         300,
	}))
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	r.Route(consumptionBasePath, func(r chi.Router) {
		r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8)) // Default Content-Type
		configureConsumptionRoutes(r, cfg.RateLimit, handler)
	})

	r.Get(healthPath, handleHealthCheck)
	r.Get(readyPath, webutil.MakeHandler(handler.HandleReady))
	r.Handle(metricsPath, promhttp.Handler())

	r.NotFound(webutil.MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		return webutil.ErrNotFound("")
	}))

	return r
}

func configureConsumptionRoutes(r chi.Router, limit config.RateLimitConfig, handler *rh.ConsumptionHandler) {
	ingest := http.Handler(webutil.MakeHandler(handler.HandleIngest))
	if limit.Requests > 0 {
		ingest = httprate.LimitByIP(limit.Requests, limit.Window)(ingest)
	}

	r.Method(http.MethodPost, "/", ingest)
	r.Get(searchSubPath, webutil.MakeHandler(handler.HandleSearch))
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
