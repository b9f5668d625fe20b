// Command authkit-demo is a small web app that signs users in with AuthKit
// and calls the WorkOS API on their behalf.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/workos-client/pkg/authkit"
	"github.com/Sternrassler/workos-client/pkg/logging"
	"github.com/Sternrassler/workos-client/pkg/metrics"
	"github.com/Sternrassler/workos-client/pkg/organizations"
	"github.com/Sternrassler/workos-client/pkg/pagination"
	"github.com/Sternrassler/workos-client/pkg/ratelimit"
	"github.com/Sternrassler/workos-client/pkg/sessionstore"
	"github.com/Sternrassler/workos-client/pkg/workos"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type config struct {
	Port           string
	LogLevel       logging.LogLevel
	LogPretty      bool
	RedisURL       string
	CookiePassword string
	RedirectURI    string
	ReturnTo       string
	RequestsPerSec float64
}

func loadConfig() (config, error) {
	level, err := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return config{}, err
	}

	cfg := config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       level,
		LogPretty:      os.Getenv("LOG_PRETTY") == "true",
		RedisURL:       os.Getenv("REDIS_URL"),
		CookiePassword: os.Getenv("WORKOS_COOKIE_PASSWORD"),
		RedirectURI:    getEnv("WORKOS_REDIRECT_URI", "http://localhost:8080/callback"),
		ReturnTo:       getEnv("WORKOS_RETURN_TO", "http://localhost:8080/"),
	}

	if rps := os.Getenv("WORKOS_REQUESTS_PER_SECOND"); rps != "" {
		cfg.RequestsPerSec, err = strconv.ParseFloat(rps, 64)
		if err != nil {
			return config{}, fmt.Errorf("parse WORKOS_REQUESTS_PER_SECOND: %w", err)
		}
	}
	return cfg, nil
}

type server struct {
	wos    *workos.WorkOS
	kit    *authkit.AuthKit
	redis  *redis.Client
	logger zerolog.Logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables from OS")
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "authkit-demo",
	})

	srv, err := newServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start")
	}
	if srv.redis != nil {
		defer srv.redis.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(srv),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting AuthKit demo server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
}

func newServer(ctx context.Context, cfg config, logger zerolog.Logger) (*server, error) {
	srv := &server{logger: logger}

	var opts []workos.Option
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		srv.redis = redis.NewClient(redisOpts)
		if err := srv.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis")

		// Replicas share 429 windows through Redis.
		opts = append(opts, workos.WithLimiter(ratelimit.NewTracker(srv.redis, logging.NewLogger(logging.ComponentRateLimit))))
	} else if cfg.RequestsPerSec > 0 {
		opts = append(opts, workos.WithLimiter(ratelimit.NewLocal(cfg.RequestsPerSec, 1)))
	}

	wos, err := workos.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}
	srv.wos = wos

	kitCfg := authkit.DefaultConfig(wos.Client.ClientID(), cfg.CookiePassword, cfg.RedirectURI)
	kitCfg.LoginPath = "/login"
	kitCfg.ReturnTo = cfg.ReturnTo

	var kitOpts []authkit.Option
	if srv.redis != nil {
		store, err := authkit.NewRedisStore(kitCfg, sessionstore.NewManager(srv.redis))
		if err != nil {
			return nil, err
		}
		kitOpts = append(kitOpts, authkit.WithStore(store))
	}

	srv.kit, err = authkit.New(kitCfg, wos.UserManagement, kitOpts...)
	if err != nil {
		return nil, fmt.Errorf("configure authkit: %w", err)
	}
	return srv, nil
}

func newRouter(srv *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(srv.redis))
	r.Handle("/metrics", metrics.Handler())

	r.Method(http.MethodGet, "/login", srv.kit.LoginHandler())
	r.Method(http.MethodGet, "/callback", srv.kit.CallbackHandler())
	r.Method(http.MethodGet, "/logout", srv.kit.SignOutHandler())

	r.Group(func(r chi.Router) {
		r.Use(srv.kit.RequireAuth)
		r.Get("/me", meHandler)
		r.Get("/organizations", srv.organizationsHandler)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	auth, ok := authkit.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":            auth.User(),
		"organization_id": auth.Session.OrganizationID,
		"session_id":      auth.SessionID(),
		"impersonator":    auth.Session.Impersonator,
	})
}

func (s *server) organizationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	page, err := s.wos.Organizations.ListOrganizations(ctx, organizations.ListOrganizationsOpts{
		Params: pagination.Params{Limit: 20, After: r.URL.Query().Get("after")},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("List organizations failed")
		http.Error(w, fmt.Sprintf("WorkOS request failed: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, page.List)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
