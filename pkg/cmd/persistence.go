package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/persistence/file"
	"github.com/braidhq/braid/pkg/persistence/postgresql"
	"github.com/braidhq/braid/pkg/persistence/redis"
)

// NewPersistence selects a persistence backend from the database URL scheme:
// postgres:// and postgresql:// for PostgreSQL, redis:// for Redis, anything
// else falls back to file-based persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	case "redis":
		p, err := redis.NewPersistence(databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
