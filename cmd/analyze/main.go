// Engangsanalyse fra kommandolinjen: henter, analyserer og skriver
// resultatet som JSON til stdout. Ingen database kreves.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kittinan/git-soul/internal/analyzer"
	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/fetcher"
	"github.com/kittinan/git-soul/internal/logger"
	"github.com/kittinan/git-soul/internal/models"
	"github.com/kittinan/git-soul/internal/storage"
	"github.com/kittinan/git-soul/internal/zai"
)

func main() {
	_ = godotenv.Load()

	repoURL := flag.String("repo", "", "GitHub-URL som skal analyseres")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger.SetupLogger()

	cfg, err := config.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Ugyldig konfigurasjon", "error", err)
		os.Exit(1)
	}
	logger.SetDebug(cfg.Debug)

	if *repoURL == "" {
		slog.Error("Bruk: analyze -repo https://github.com/owner/repo")
		os.Exit(1)
	}

	parsed, err := fetcher.ParseRepoURL(*repoURL)
	if err != nil {
		slog.Error("Ugyldig repo-URL", "repo_url", *repoURL, "error", err)
		os.Exit(1)
	}

	github, err := fetcher.NewClient(cfg)
	if err != nil {
		slog.Error("Kunne ikke sette opp GitHub-klient", "error", err)
		os.Exit(1)
	}

	store := storage.NewMemoryStore()
	orchestrator := analyzer.NewOrchestrator(cfg, store, github, zai.NewClient(cfg), nil)

	repo, _, err := store.GetOrCreateRepository(ctx, storage.RepoRefParams{
		RepoURL:  *repoURL,
		Owner:    parsed.Owner,
		RepoName: parsed.Repo,
		Platform: "github",
	})
	if err != nil {
		slog.Error("Kunne ikke registrere repository", "error", err)
		os.Exit(1)
	}
	analysis, err := store.CreateAnalysis(ctx, repo.ID)
	if err != nil {
		slog.Error("Kunne ikke opprette analyse", "error", err)
		os.Exit(1)
	}

	if err := orchestrator.Run(ctx, analysis.ID, *repoURL); err != nil {
		slog.Error("Analysen feilet", "repo", parsed.FullName, "error", err)
		os.Exit(1)
	}

	personality, insights, err := store.GetPersonality(ctx, analysis.ID)
	if err != nil {
		slog.Error("Kunne ikke hente resultatet", "error", err)
		os.Exit(1)
	}
	finished, err := store.GetAnalysis(ctx, analysis.ID)
	if err != nil {
		slog.Error("Kunne ikke hente analysen", "error", err)
		os.Exit(1)
	}

	out := struct {
		Analysis    *models.Analysis    `json:"analysis"`
		Personality *models.Personality `json:"personality"`
		Insights    []models.Insight    `json:"insights"`
	}{finished, personality, insights}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("Kunne ikke skrive resultatet", "error", err)
		os.Exit(1)
	}
}
