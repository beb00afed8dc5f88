package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/ports"
	"github.com/insights/issue-tracker/internal/infrastructure/db/mongo"
	"github.com/insights/issue-tracker/internal/infrastructure/db/postgres"
	"github.com/insights/issue-tracker/internal/infrastructure/http/handlers"
	"github.com/insights/issue-tracker/internal/pkg/config"
)

// storage bundles the repositories of the selected driver.
type storage struct {
	users     ports.UserRepository
	issues    ports.IssueRepository
	snapshots ports.SnapshotRepository
	health    []handlers.Dependency
	close     func()
}

func (s *storage) addHealth(name string, ping handlers.Pinger) {
	s.health = append(s.health, handlers.Dependency{Name: name, Ping: ping})
}

func openStorage(ctx context.Context, cfg *config.Config, migrateOnly bool, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		return openMongo(ctx, cfg, log)
	default:
		return openPostgres(ctx, cfg, migrateOnly, log)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, migrateOnly bool, log zerolog.Logger) (*storage, error) {
	if cfg.Postgres.MigrateOnStart || migrateOnly {
		if err := postgres.Migrate(cfg.Postgres.URL, log); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to postgres")

	s := &storage{
		users:     postgres.NewUserRepository(pool),
		issues:    postgres.NewIssueRepository(pool),
		snapshots: postgres.NewSnapshotRepository(pool),
		close:     pool.Close,
	}
	s.addHealth("postgres", pool.Ping)
	return s, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	s := &storage{
		users:     mongo.NewUserRepository(db),
		issues:    mongo.NewIssueRepository(db),
		snapshots: mongo.NewSnapshotRepository(db),
		close: func() {
			_ = client.Disconnect(context.Background())
		},
	}
	s.addHealth("mongodb", func(ctx context.Context) error { return client.Ping(ctx, nil) })
	return s, nil
}
