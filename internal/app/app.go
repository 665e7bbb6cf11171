package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres"
	reminderrepo "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/reminder"
	storerepo "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/store"
	"github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/triggerlog"
	"github.com/miyakawa-dev/yorimichi-backend/internal/auth"
	"github.com/miyakawa-dev/yorimichi-backend/internal/config"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/catalog"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/reminder"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/trigger"
	"github.com/miyakawa-dev/yorimichi-backend/internal/transport/middleware"
	"github.com/miyakawa-dev/yorimichi-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires repositories, services and the HTTP transport, and
// serves until the context is cancelled.
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

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	storeRepo := storerepo.New(pool)
	reminderRepo := reminderrepo.New(pool)
	eventRepo := triggerlog.New(pool)

	catalogSvc := catalog.NewService(logger, storeRepo, catalog.Config{
		SearchRadiusKm:   cfg.Geo.SearchRadiusKm,
		NearbyMaxResults: cfg.Geo.NearbyMaxResults,
	})
	reminderSvc := reminder.NewService(logger, reminderRepo, reminder.Config{
		DefaultTriggerRadiusM: cfg.Reminders.DefaultTriggerRadiusM,
		MaxTriggerRadiusM:     cfg.Reminders.MaxTriggerRadiusM,
	})
	triggerSvc := trigger.NewService(logger, reminderRepo, eventRepo, catalogSvc, txManager, cfg.Reminders.RefireCooldown)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTTL)

	router := rest.NewRouter(rest.Handlers{
		Health:   rest.NewHealthHandler(pool, BuildVersion()),
		Position: rest.NewPositionHandler(triggerSvc, logger),
		Reminder: rest.NewReminderHandler(reminderSvc, logger),
		Store:    rest.NewStoreHandler(catalogSvc, logger),
	}, middleware.Auth(jwtManager))

	handler := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
	)(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down http server",
			slog.Duration("timeout", cfg.Server.ShutdownTimeout))
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("application stopped")
	return err
}
