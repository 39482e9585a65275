package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	httpmiddleware "github.com/cwal8202/chill-tuna-web/internal/http/middleware"
	"github.com/cwal8202/chill-tuna-web/internal/webchat"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	ChatHandler    *webchat.Handler
	MetricsHandler http.Handler

	// HealthChecks are run by /health; any failure answers 503.
	HealthChecks map[string]HealthCheck

	CORSAllowedOrigins []string

	// Per-IP limits for chat routes. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler == nil {
		return r
	}

	// POST turns and websocket message frames draw from one per-IP limiter.
	chatHandler := cfg.ChatHandler
	limited := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		limiter := httpmiddleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		limited = httpmiddleware.Limit(limiter)
		chatHandler = chatHandler.WithTurnLimiter(limiter)
	}

	r.Route("/api", func(api chi.Router) {
		api.With(limited).Post("/chat", chatHandler.HandleSend)
		api.With(middleware.Compress(5)).Get("/chat/threads/{threadID}/messages", chatHandler.HandleThreadMessages)
		api.Get("/personas/{personaID}", chatHandler.HandlePersona)
	})
	r.Get("/ws/chat", chatHandler.HandleWebSocket)

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				resp[name] = err.Error()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
