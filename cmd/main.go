// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server and, when
// configured, the outbox publisher.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/rueidis"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/config"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/database"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/handler"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/logger"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/metrics"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/outbox"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/service"
)

// stores groups the persistence layer selected by configuration.
type stores struct {
	events        repository.EventStore
	users         repository.UserStore
	registrations repository.RegistrationStore
	outbox        repository.OutboxStore
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ───────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	m := metrics.New()
	eventSvc := service.NewEventService(st.events, st.users, st.registrations, log)
	regSvc := service.NewRegistrationService(st.events, st.users, st.registrations, m, log)
	userSvc := service.NewUserService(st.users, st.registrations, log)

	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc, regSvc, log),
		handler.NewUserHandler(userSvc, log),
		m.Handler(),
		log,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// ── 3. Run until a shutdown signal ───────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", slog.String("addr", srv.Addr), slog.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if cfg.PublisherEnabled() {
		client, err := rueidis.NewClient(rueidis.ClientOption{InitAddress: []string{cfg.RedisAddr}})
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()

		pub := outbox.NewPublisher(st.outbox, outbox.NewRedisStream(client), m, outbox.Options{
			Stream:       cfg.Outbox.Stream,
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
		}, log)
		g.Go(func() error { return pub.Run(gctx) })
	} else {
		log.Info("outbox publisher disabled")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		mem := repository.NewMemoryStore()
		log.Warn("using in-memory store; data is lost on restart")
		return &stores{
			events:        mem,
			users:         mem.Users(),
			registrations: mem,
			close:         func() {},
		}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to PostgreSQL")

	return &stores{
		events:        repository.NewEventRepository(pool),
		users:         repository.NewUserRepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
		outbox:        repository.NewOutboxRepository(pool),
		close:         pool.Close,
	}, nil
}
