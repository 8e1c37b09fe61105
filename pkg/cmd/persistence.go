// Package cmd provides common initialization for the series binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/talkbase/series/pkg/persistence"
	"github.com/talkbase/series/pkg/persistence/file"
	"github.com/talkbase/series/pkg/persistence/sqlite"
)

// NewPersistence builds a persistence backend from a database URL. SQLite
// URLs (sqlite://path) get the embedded store; anything else is treated as a
// directory path for the JSON file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, rest := splitURL(databaseURL)

	switch scheme {
	case "sqlite":
		store, err := sqlite.NewSQLitePersistence(rest, logger)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to open sqlite persistence", "error", err)
			panic(err)
		}

		return store
	default:
		store, err := file.NewFilePersistence(rest)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to open file persistence", "error", err)
			panic(err)
		}

		return store
	}
}

func splitURL(databaseURL string) (string, string) {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file", databaseURL
	}

	return parts[0], parts[1]
}
