package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/kittinan/git-soul/internal/analyzer"
	"github.com/kittinan/git-soul/internal/api"
	"github.com/kittinan/git-soul/internal/bqwriter"
	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/fetcher"
	"github.com/kittinan/git-soul/internal/logger"
	"github.com/kittinan/git-soul/internal/scheduler"
	"github.com/kittinan/git-soul/internal/storage"
	"github.com/kittinan/git-soul/internal/zai"
)

func main() {
	// .env er valgfri; i drift kommer alt fra prosessmiljøet.
	_ = godotenv.Load()

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger.SetupLogger()

	cfg, err := config.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Ugyldig konfigurasjon", "error", err)
		os.Exit(1)
	}
	logger.SetDebug(cfg.Debug)

	if cfg.PostgresDSN == "" {
		slog.Error("POSTGRES_DSN må være satt for serveren")
		os.Exit(1)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		slog.Error("Kunne ikke åpne databasen", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Klarte ikke å lukke databasen", "error", err)
		}
	}()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := store.Ping(pingCtx); err != nil {
		slog.Error("Klarte ikke å nå databasen", "error", err)
		os.Exit(1)
	}

	github, err := fetcher.NewClient(cfg)
	if err != nil {
		slog.Error("Kunne ikke sette opp GitHub-klient", "error", err)
		os.Exit(1)
	}
	inference := zai.NewClient(cfg)

	var exporter analyzer.Exporter
	if cfg.BQExport {
		bq, err := bqwriter.NewBigQueryWriter(ctx, &cfg)
		if err != nil {
			slog.Error("Kunne ikke sette opp BigQuery-eksport", "error", err)
			os.Exit(1)
		}
		exporter = bq
		slog.Info("BigQuery-eksport aktivert", "project", cfg.BQProjectID, "dataset", cfg.BQDataset)
	}

	orchestrator := analyzer.NewOrchestrator(cfg, store, github, inference, exporter)

	sched := scheduler.New(orchestrator, cfg.Workers, cfg.QueueSize)
	sched.Start(ctx)

	handler := api.NewHandler(store, sched, store.Ping)
	server := api.NewServer(cfg.Addr, api.NewMux(handler))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Stoppsignal mottatt – rydder opp...")
	case err := <-errCh:
		if err != nil {
			slog.Error("API-serveren feilet", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Kontrollert stans av serveren feilet", "error", err)
	}
	if err := sched.Stop(); err != nil {
		slog.Warn("Kontrollert stans av arbeiderne feilet", "error", err)
	}
	slog.Info("✅ Ferdig")
}
