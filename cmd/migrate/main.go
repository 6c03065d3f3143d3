// Oppretter databaseskjemaet. Kjøres én gang før serveren startes;
// trygt å kjøre på nytt.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/kittinan/git-soul/internal/logger"
	"github.com/kittinan/git-soul/internal/storage"
)

func main() {
	_ = godotenv.Load()
	logger.SetupLogger()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		slog.Error("❌ POSTGRES_DSN ikke satt")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Kunne ikke koble til Postgres", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("Klarte ikke å lukke databasen", "error", err)
		}
	}()

	ctx := context.Background()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		slog.Error("Migrering feilet", "error", err)
		os.Exit(1)
	}

	slog.Info("✅ Skjema er på plass")
}
