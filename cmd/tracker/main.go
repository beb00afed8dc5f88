// Command tracker serves the issue tracker API, the live-update channel and
// the daily snapshot scheduler from one process.
//
// @title                       Issue Tracker API
// @version                     1.0
// @description                 Issue tracking with role-based access, live updates and daily status snapshots.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/insights/issue-tracker/internal/api"
	"github.com/insights/issue-tracker/internal/core/service"
	"github.com/insights/issue-tracker/internal/infrastructure/db/redis"
	"github.com/insights/issue-tracker/internal/infrastructure/queue"
	"github.com/insights/issue-tracker/internal/pkg/config"
	"github.com/insights/issue-tracker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	migrateOnly := pflag.Bool("migrate-only", false, "apply storage migrations and indexes, then exit")
	port := pflag.String("port", "", "listen port, overrides PORT")
	pflag.Parse()

	if err := run(*migrateOnly, *port); err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		os.Exit(1)
	}
}

func run(migrateOnly bool, portOverride string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration and logging
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if portOverride != "" {
		cfg.Port = portOverride
	}

	instanceID := uuid.NewString()
	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.LogPretty,
		InstanceID: instanceID,
		Env:        cfg.Env,
	})
	log.Info().
		Str("storage", cfg.StorageDriver).
		Bool("redis", cfg.Redis.Enabled).
		Msg("issue tracker starting")

	// 2. Storage
	store, err := openStorage(ctx, cfg, migrateOnly, logger.Component(log, "storage"))
	if err != nil {
		return err
	}
	defer store.close()

	if migrateOnly {
		log.Info().Msg("migrations applied, exiting")
		return nil
	}

	// 3. Live-update fan-out, optionally relayed through Redis
	liveLog := logger.Component(log, "live")
	broadcaster := service.NewBroadcaster(cfg.Live.Buffer, liveLog)
	aggregator := service.NewAggregator(store.issues, store.snapshots, cfg.AggregationInterval, logger.Component(log, "aggregator"))

	var dispatcher *queue.Dispatcher
	bgCtx, cancelBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBackground()

	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store.addHealth("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

		relay := redis.NewEventRelay(rdb, redis.DefaultEventChannel, instanceID, liveLog)
		dispatcher = queue.NewDispatcher(relay, 0, liveLog)
		dispatcher.Start(bgCtx)
		broadcaster.WithRelay(dispatcher)

		go func() {
			if err := relay.Listen(bgCtx, broadcaster.Deliver); err != nil {
				liveLog.Error().Err(err).Msg("event relay listener stopped")
			}
		}()

		aggregator.WithLock(redis.NewSnapshotLock(rdb, instanceID, redis.DefaultLockTTL))
	}

	// 4. Services
	authSvc := service.NewAuthService(store.users, cfg.JWTSecret, cfg.TokenTTL, logger.Component(log, "auth"))
	userSvc := service.NewUserService(store.users, logger.Component(log, "users"))
	issueSvc := service.NewIssueService(store.issues, broadcaster, logger.Component(log, "issues"))
	dashboardSvc := service.NewDashboardService(store.issues, store.snapshots)

	if cfg.Bootstrap.AdminEmail != "" {
		admin, err := userSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info().Str("user_id", admin.ID).Str("email", admin.Email).Msg("bootstrap admin ready")
	}

	// 5. Background aggregation
	aggregator.Start(bgCtx)

	// 6. HTTP server
	e := api.NewRouter(api.Dependencies{
		Auth:           authSvc,
		Users:          userSvc,
		Issues:         issueSvc,
		Dashboard:      dashboardSvc,
		Live:           broadcaster,
		Health:         store.health,
		AllowedOrigins: cfg.Live.AllowedOrigins,
		Log:            logger.Component(log, "http"),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	// 7. Graceful shutdown: stop accepting requests, then background work
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}

	shutdownBackground(log, aggregator, broadcaster, dispatcher, cancelBackground)
	log.Info().Msg("issue tracker stopped")
	return nil
}

func shutdownBackground(log zerolog.Logger, agg *service.Aggregator, b *service.Broadcaster, d *queue.Dispatcher, cancel context.CancelFunc) {
	agg.Stop()
	b.Close()
	cancel()
	if d != nil {
		d.Wait()
	}
	log.Debug().Msg("background tasks stopped")
}
