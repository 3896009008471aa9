package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	c "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	dashboardhandler "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dashboard/handler"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/interceptors"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/observability"
)

const requestIDHeader = "X-Request-ID"

// SetupRouter wires the dashboard service, its interceptors and the utility
// routes behind CORS.
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	tracer := otel.GetTracerProvider().Tracer("sales-dashboard/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor(requestIDHeader),
		interceptors.NewTracingInterceptor(tracer),
	}
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}
	chain = append(chain,
		interceptors.NewRecoveryInterceptor(deps.Logger),
		interceptors.NewLoggingInterceptor(deps.Logger),
		observability.NewMetricsInterceptor(),
	)

	registerConnectRoutes(mux, deps, connect.WithInterceptors(chain...))
	registerUtilityRoutes(mux, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: c.AllowedMethods(),
		AllowedHeaders: append(c.AllowedHeaders(), requestIDHeader),
		ExposedHeaders: append(c.ExposedHeaders(), requestIDHeader),
		MaxAge:         7200,
	})

	return corsHandler.Handler(mux)
}

func registerConnectRoutes(mux *http.ServeMux, deps *Dependencies, opts connect.HandlerOption) {
	path, handler := dashboardhandler.NewDashboardServiceHandler(
		deps.DashboardHandler,
		opts,
		connect.WithReadMaxBytes(int(deps.Config.Server.MaxBodyBytes)),
	)
	mux.Handle(path, limitBody(handler, deps.Config.Server.MaxBodyBytes))
	deps.Logger.Info("registered Connect RPC service", "path", path)
}

func limitBody(next http.Handler, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Body != nil && maxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		next.ServeHTTP(w, r)
	})
}

// registerUtilityRoutes mounts the probes and, when enabled, the Prometheus
// scrape endpoint.
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	h := &healthRoutes{deps: deps}
	routes := map[string]http.HandlerFunc{
		"/health":         h.liveness,
		"/health/details": h.details,
		"/ready":          h.readiness,
	}
	for path, fn := range routes {
		mux.HandleFunc(path, fn)
		deps.Logger.Info("registered utility route", "path", path)
	}

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		deps.Logger.Info("registered utility route", "path", "/metrics")
	}
}

type healthRoutes struct {
	deps *Dependencies
}

type componentHealth struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (h *healthRoutes) liveness(w http.ResponseWriter, _ *http.Request) {
	if err := h.dbErr(); err != nil {
		h.text(w, http.StatusServiceUnavailable, "database unhealthy")
		return
	}
	h.text(w, http.StatusOK, "ok")
}

func (h *healthRoutes) readiness(w http.ResponseWriter, _ *http.Request) {
	h.text(w, http.StatusOK, "ready")
}

// details degrades on persistence warnings but only fails when the
// database is unreachable; the store keeps serving from memory.
func (h *healthRoutes) details(w http.ResponseWriter, _ *http.Request) {
	report := map[string]componentHealth{
		"store":    {Status: "ok"},
		"snapshot": {Status: "ok", Detail: h.deps.Config.Snapshot.Backend},
		"insight":  {Status: "ok"},
	}
	if warning := h.deps.Store.Status().PersistWarning; warning != "" {
		report["snapshot"] = componentHealth{Status: "warn", Detail: warning}
	}
	if h.deps.Config.Insight.APIKey == "" {
		report["insight"] = componentHealth{Status: "warn", Detail: "insight API key missing"}
	}

	code := http.StatusOK
	if err := h.dbErr(); err != nil {
		report["store"] = componentHealth{Status: "fail", Detail: err.Error()}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.deps.Logger.Warn("health details not written", slog.Any("error", err))
	}
}

func (h *healthRoutes) dbErr() error {
	if h.deps.DB == nil {
		return nil
	}
	return h.deps.DB.Health()
}

func (h *healthRoutes) text(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		h.deps.Logger.Warn("probe response not written", slog.Any("error", err))
	}
}
