package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kittinan/git-soul/internal/fetcher"
	"github.com/kittinan/git-soul/internal/models"
	"github.com/kittinan/git-soul/internal/scheduler"
	"github.com/kittinan/git-soul/internal/storage"
)

// TaskQueue er planleggeren sett fra API-et.
type TaskQueue interface {
	Submit(analysisID, repoURL string) error
	Status(analysisID string) scheduler.TaskStatus
}

// Handler holder avhengighetene til HTTP-endepunktene. Ping er valgfri
// og brukes av /healthz for å sjekke databasen.
type Handler struct {
	Store storage.Store
	Tasks TaskQueue
	Ping  func(ctx context.Context) error
}

func NewHandler(store storage.Store, tasks TaskQueue, ping func(ctx context.Context) error) *Handler {
	return &Handler{Store: store, Tasks: tasks, Ping: ping}
}

type analyzeRequest struct {
	RepoURL string `json:"repo_url"`
}

type analyzeResponse struct {
	AnalysisID string        `json:"analysis_id"`
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Repository repositoryRef `json:"repository"`
}

type repositoryRef struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	URL   string `json:"url"`
}

// AnalyzeRepository tar imot en repo-URL, registrerer en ny analyse og
// legger den i kø. Svarer 202 med analyse-id-en klienten skal polle på.
func (h *Handler) AnalyzeRepository(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Repository URL is required")
		return
	}
	repoURL := strings.TrimSpace(req.RepoURL)
	if repoURL == "" {
		writeError(w, http.StatusBadRequest, "Repository URL is required")
		return
	}
	if !strings.Contains(repoURL, "github.com") {
		writeError(w, http.StatusBadRequest, "Only GitHub repositories are supported")
		return
	}

	parsed, err := fetcher.ParseRepoURL(repoURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid repository URL")
		return
	}

	repo, created, err := h.Store.GetOrCreateRepository(r.Context(), storage.RepoRefParams{
		RepoURL:  repoURL,
		Owner:    parsed.Owner,
		RepoName: parsed.Repo,
		Platform: "github",
	})
	if err != nil {
		slog.Error("Kunne ikke registrere repository", "repo_url", repoURL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start analysis")
		return
	}
	if created {
		slog.Info("Nytt repository registrert", "repo", parsed.FullName)
	}

	analysis, err := h.Store.CreateAnalysis(r.Context(), repo.ID)
	if err != nil {
		slog.Error("Kunne ikke opprette analyse", "repo", parsed.FullName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start analysis")
		return
	}

	if err := h.Tasks.Submit(analysis.ID, repoURL); err != nil {
		// Analysen må ikke bli liggende som pending når den aldri kom
		// i kø.
		if mErr := h.Store.MarkAnalysisFailed(r.Context(), analysis.ID, "analysekøen er full"); mErr != nil {
			slog.Error("Kunne ikke markere avvist analyse som feilet", "analysis_id", analysis.ID, "error", mErr)
		}
		if errors.Is(err, scheduler.ErrQueueFull) {
			slog.Warn("Analysekøen er full, avviser", "repo", parsed.FullName)
			writeError(w, http.StatusServiceUnavailable, "Analysis queue is full, try again later")
			return
		}
		slog.Error("Kunne ikke legge analyse i kø", "analysis_id", analysis.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start analysis")
		return
	}

	slog.Info("🔁 Analyse startet", "analysis_id", analysis.ID, "repo", parsed.FullName)
	writeJSON(w, http.StatusAccepted, analyzeResponse{
		AnalysisID: analysis.ID,
		Status:     analysis.Status,
		Message:    "Repository analysis started",
		Repository: repositoryRef{
			Name:  repo.RepoName,
			Owner: repo.Owner,
			URL:   repo.RepoURL,
		},
	})
}

type analysisResponse struct {
	models.Analysis
	Repository *models.Repository `json:"repository,omitempty"`
	Progress   int                `json:"progress"`
}

// GetAnalysis returnerer analysen med et grovt fremdriftsestimat
// utledet av status.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	analysis, err := h.Store.GetAnalysis(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}
	if err != nil {
		slog.Error("Kunne ikke hente analyse", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get analysis")
		return
	}

	resp := analysisResponse{Analysis: *analysis, Progress: progressFor(analysis.Status)}
	if repo, err := h.Store.GetRepository(r.Context(), analysis.RepositoryID); err == nil {
		resp.Repository = repo
	}
	writeJSON(w, http.StatusOK, resp)
}

func progressFor(status string) int {
	switch status {
	case models.StatusCompleted:
		return 100
	case models.StatusProcessing:
		return 50
	case models.StatusPending:
		return 10
	default:
		return 0
	}
}

type personalityResponse struct {
	models.Personality
	Insights []models.Insight `json:"insights"`
}

// GetPersonality returnerer profilen med innsikter for en fullført
// analyse.
func (h *Handler) GetPersonality(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	personality, insights, err := h.Store.GetPersonality(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Personality not found for this analysis")
		return
	}
	if err != nil {
		slog.Error("Kunne ikke hente personlighet", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get personality")
		return
	}
	if insights == nil {
		insights = []models.Insight{}
	}
	writeJSON(w, http.StatusOK, personalityResponse{Personality: *personality, Insights: insights})
}

type taskResponse struct {
	AnalysisID     string               `json:"analysis_id"`
	AnalysisStatus string               `json:"analysis_status"`
	Task           scheduler.TaskStatus `json:"task"`
}

// GetTaskStatus svarer med kø-tilstanden for analysen. Ferdige kjøringer
// er ikke lenger sporet av planleggeren; da er task.status not_found og
// analysis_status det varige svaret.
func (h *Handler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	analysis, err := h.Store.GetAnalysis(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}
	if err != nil {
		slog.Error("Kunne ikke hente analyse", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get task status")
		return
	}

	writeJSON(w, http.StatusOK, taskResponse{
		AnalysisID:     analysis.ID,
		AnalysisStatus: analysis.Status,
		Task:           h.Tasks.Status(id),
	})
}

// ListRepositories returnerer alle kjente repositorier, nyeste først.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.Store.ListRepositories(r.Context())
	if err != nil {
		slog.Error("Kunne ikke liste repositorier", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list repositories")
		return
	}
	if repos == nil {
		repos = []models.Repository{}
	}
	writeJSON(w, http.StatusOK, repos)
}

type repositoryResponse struct {
	Repository models.Repository `json:"repository"`
	Analyses   []models.Analysis `json:"analyses"`
}

// GetRepository returnerer ett repository med analysehistorikken.
func (h *Handler) GetRepository(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	repo, err := h.Store.GetRepository(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Repository not found")
		return
	}
	if err != nil {
		slog.Error("Kunne ikke hente repository", "repository_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get repository")
		return
	}

	analyses, err := h.Store.GetAnalysesForRepository(r.Context(), id)
	if err != nil {
		slog.Error("Kunne ikke hente analysehistorikk", "repository_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get repository")
		return
	}
	if analyses == nil {
		analyses = []models.Analysis{}
	}
	writeJSON(w, http.StatusOK, repositoryResponse{Repository: *repo, Analyses: analyses})
}

// Healthz er liveness pluss databaseping når et ping er konfigurert.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			slog.Error("Databaseping feilet", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Kunne ikke skrive JSON-svar", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
