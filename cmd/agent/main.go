package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"

	"mail_agent/internal/assistant"
	"mail_agent/internal/assistant/connector"
	openaiassistant "mail_agent/internal/assistant/openai"
	"mail_agent/internal/auth"
	"mail_agent/internal/config"
	"mail_agent/internal/http_server/handlers/fetchemail"
	"mail_agent/internal/http_server/handlers/login"
	"mail_agent/internal/http_server/handlers/logout"
	"mail_agent/internal/http_server/handlers/me"
	"mail_agent/internal/http_server/handlers/refresh"
	"mail_agent/internal/http_server/handlers/register"
	"mail_agent/internal/http_server/handlers/sendemail"
	"mail_agent/internal/http_server/handlers/settings"
	"mail_agent/internal/http_server/handlers/summarizeemail"
	"mail_agent/internal/http_server/middleware/authn"
	rateLimit "mail_agent/internal/http_server/middleware/ratelimit"
	sl "mail_agent/internal/lib/logger"
	"mail_agent/internal/rabbitmq"
	"mail_agent/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting mail agent", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	actions := connector.New(cfg.Connector)

	asst := openaiassistant.New(openaiassistant.Config{
		APIKey:  cfg.Assistant.APIKey,
		BaseURL: cfg.Assistant.BaseURL,
		Model:   cfg.Assistant.Model,
	}, actions, log)

	authService := auth.New(
		log,
		storage,
		storage,
		cfg.Tokens.Secret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)

	router := setupRouter(log, cfg, authService, storage, asst, msgBroker)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	storage *postgres.PostgresRepo,
	asst assistant.Assistant,
	msgBroker *rabbitmq.RabbitMQClient,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(rateLimit.Register()).Post("/register",
		register.New(log, validate, authService),
	)
	r.With(rateLimit.Login()).Post("/login",
		login.New(log, validate, authService),
	)
	r.With(rateLimit.Refresh()).Post("/refresh",
		refresh.New(log, validate, authService),
	)
	r.With(rateLimit.Logout()).Post("/logout",
		logout.New(log, validate, authService),
	)

	r.Group(func(pr chi.Router) {
		pr.Use(authn.New(log, authService))

		pr.Get("/users/me", me.New(log))

		pr.Post("/ai-agent-settings", settings.Update(log, storage))
		pr.Get("/ai-agent-settings", settings.Get(log, storage))

		pr.With(rateLimit.Pipeline()).Post("/fetch-email",
			fetchemail.New(log, storage, asst),
		)
		pr.Post("/summarize-email",
			summarizeemail.New(log, storage),
		)
		pr.With(rateLimit.Pipeline()).Post("/send-email",
			sendemail.New(log, validate, storage, asst, msgBroker, sendemail.Defaults{
				Recipient: cfg.Pipeline.DefaultRecipient,
				Subject:   cfg.Pipeline.DefaultSubject,
			}),
		)
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
