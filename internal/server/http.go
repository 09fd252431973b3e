package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/auth"
	"github.com/gokatarajesh/classroom-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/classroom-quiz/internal/config"
	"github.com/gokatarajesh/classroom-quiz/internal/gateway"
	"github.com/gokatarajesh/classroom-quiz/internal/logging"
	httperrors "github.com/gokatarajesh/classroom-quiz/pkg/http/errors"
)

// NewWSUpgrader builds the WebSocket upgrader. An empty origin list accepts any origin.
func NewWSUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[strings.ToLower(origin)]
			return ok
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Routes carries the feature handlers mounted by NewHTTPServer.
type Routes struct {
	Auth        func(http.Handler) http.Handler
	WebSocket   http.HandlerFunc
	Sessions    *gateway.RESTHandlers
	Leaderboard http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) and the session API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if err := pingDependencies(ctx, pool, redis); err != nil {
			logging.FromContext(ctx).Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]bool{"pong": true})
	})

	if routes.WebSocket != nil {
		mux.HandleFunc("/ws/sessions", routes.WebSocket)
	}

	authed := routes.Auth
	if authed == nil {
		authed = func(next http.Handler) http.Handler { return next }
	}
	professor := func(h http.HandlerFunc) http.Handler {
		return authed(auth.RequireRole(jwt.RoleProfessor, h))
	}

	if rest := routes.Sessions; rest != nil {
		mux.Handle("POST /v1/sessions", professor(rest.OpenSession))
		mux.Handle("GET /v1/sessions/{id}", authed(http.HandlerFunc(rest.GetSession)))
		mux.Handle("GET /v1/sessions/{id}/summary", authed(http.HandlerFunc(rest.GetSummary)))
		mux.Handle("GET /v1/sessions/{id}/export", professor(rest.ExportLeaderboard))
		mux.Handle("POST /v1/quizzes/{id}/questions/generate", professor(rest.GenerateQuestions))
	}

	if routes.Leaderboard != nil {
		mux.Handle("GET /v1/sessions/{id}/leaderboard", authed(routes.Leaderboard))
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
