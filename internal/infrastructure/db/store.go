// Package db opens the persistence backend selected by configuration.
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/globalbi/admin-api/internal/core/ports"
	"github.com/globalbi/admin-api/internal/infrastructure/db/mongo"
	"github.com/globalbi/admin-api/internal/infrastructure/db/postgres"
	"github.com/globalbi/admin-api/internal/pkg/config"
)

// Open connects to the configured store and brings its schema up to date:
// goose migrations for postgres, unique indexes for mongo.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		sqlDB, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.URL})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		log.Info().Str("driver", cfg.StoreDriver).Msg("store connected, migrations applied")
		return postgres.NewStore(sqlDB), nil

	case config.StoreDriverMongo:
		client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, mdb); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("driver", cfg.StoreDriver).Str("database", cfg.Mongo.Database).Msg("store connected, indexes ensured")
		return mongo.NewStore(client, mdb), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
