package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql (goose)
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres"
	cardrepo "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/card"
	deckrepo "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/deck"
	reviewlogrepo "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/reviewlog"
	sessionrepo "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/session"
	tokenrepo "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/token"
	userrepo "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/flashdeck-backend/internal/adapter/provider/openai"
	jwtauth "github.com/heartmarshall/flashdeck-backend/internal/auth"
	"github.com/heartmarshall/flashdeck-backend/internal/config"
	authsvc "github.com/heartmarshall/flashdeck-backend/internal/service/auth"
	decksvc "github.com/heartmarshall/flashdeck-backend/internal/service/deck"
	studysvc "github.com/heartmarshall/flashdeck-backend/internal/service/study"
	usersvc "github.com/heartmarshall/flashdeck-backend/internal/service/user"
	"github.com/heartmarshall/flashdeck-backend/internal/transport/middleware"
	"github.com/heartmarshall/flashdeck-backend/internal/transport/rest"
	"github.com/heartmarshall/flashdeck-backend/migrations"
)

// Run is the application entry point. It loads configuration, connects to
// the database, applies migrations, wires repositories and services, and
// serves HTTP until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("app: connect database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrate(ctx, cfg.Database.DSN); err != nil {
			return fmt.Errorf("app: migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	txm := postgres.NewTxManager(pool)
	users := userrepo.New(pool)
	tokens := tokenrepo.New(pool)
	decks := deckrepo.New(pool)
	cards := cardrepo.New(pool)
	sessions := sessionrepo.New(pool)
	reviews := reviewlogrepo.New(pool)

	jwt := jwtauth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	authService := authsvc.NewService(logger, users, tokens, jwt, cfg.Auth)
	userService := usersvc.NewService(logger, users)

	var deckService *decksvc.Service
	var studyService *studysvc.Service
	if cfg.AI.Enabled() {
		provider := openai.New(cfg.AI)
		deckService = decksvc.NewService(logger, decks, cards, provider, txm, cfg.SRS, cfg.AI)
		studyService = studysvc.NewService(logger, decks, cards, sessions, reviews, provider, txm, cfg.SRS, cfg.AI)
	} else {
		logger.Info("AI provider disabled, falling back to exact answer matching")
		deckService = decksvc.NewService(logger, decks, cards, nil, txm, cfg.SRS, cfg.AI)
		studyService = studysvc.NewService(logger, decks, cards, sessions, reviews, nil, txm, cfg.SRS, cfg.AI)
	}

	mux := rest.NewRouter(rest.Handlers{
		Auth:    rest.NewAuthHandler(authService, logger),
		Deck:    rest.NewDeckHandler(deckService, logger),
		Session: rest.NewSessionHandler(studyService, logger),
		User:    rest.NewUserHandler(userService, studyService, logger),
		Health:  rest.NewHealthHandler(pool, BuildVersion()),
	})

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	handler := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		limiter.Limit(cfg.Server.RateLimitRPS),
		middleware.Auth(authService),
	)(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}

	return nil
}

// migrate applies embedded goose migrations. goose requires database/sql,
// so a separate short-lived connection is opened next to the pgx pool.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
