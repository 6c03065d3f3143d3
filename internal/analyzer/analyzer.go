package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/models"
	"github.com/kittinan/git-soul/internal/storage"
)

// ErrConfiguration betyr at en nødvendig hemmelighet mangler. Feilen er
// fatal for den aktuelle analysen.
var ErrConfiguration = errors.New("konfigurasjonsfeil")

// Orchestrator driver tilstandsmaskinen pending → processing →
// completed/failed for én analyse om gangen. Alle trinnfeil unntatt
// kodeprøve-henting er terminale og registreres som analysens
// feilårsak før de returneres til kalleren.
type Orchestrator struct {
	Cfg       config.Config
	Store     storage.Store
	GitHub    GitHubAPI
	Inference InferenceAPI
	Exporter  Exporter // kan være nil
}

func NewOrchestrator(cfg config.Config, store storage.Store, github GitHubAPI, inference InferenceAPI, exporter Exporter) *Orchestrator {
	return &Orchestrator{
		Cfg:       cfg,
		Store:     store,
		GitHub:    github,
		Inference: inference,
		Exporter:  exporter,
	}
}

// Run kjører hele pipelinen for én analyse. Finnes ikke analysen
// avbrytes det uten synlig tilstandsendring; et tapt claim (en annen
// arbeider var først) avbrytes også uten å røre tilstanden.
func (o *Orchestrator) Run(ctx context.Context, analysisID, repoURL string) error {
	start := time.Now()

	analysis, err := o.Store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return err
	}

	if err := o.Store.ClaimAnalysis(ctx, analysisID); err != nil {
		if errors.Is(err, storage.ErrAlreadyClaimed) {
			slog.Warn("Analysen er allerede tatt – avbryter", "analysis_id", analysisID)
		}
		return err
	}

	slog.Info("🔁 Starter analyse", "analysis_id", analysisID, "repo_url", repoURL)

	if err := o.checkCredentials(); err != nil {
		return o.fail(ctx, analysisID, err)
	}

	// Trinn 1: hent repository-fakta fra GitHub.
	facts, err := o.GitHub.FetchRepository(ctx, repoURL)
	if err != nil {
		return o.fail(ctx, analysisID, fmt.Errorf("GitHub-henting feilet: %w", err))
	}

	if err := o.Store.UpdateRepositoryFacts(ctx, storage.RepoFactsParams{
		RepositoryID: analysis.RepositoryID,
		Description:  facts.Repo.Description,
		Stars:        facts.Repo.Stars,
		Forks:        facts.Repo.Forks,
		Language:     facts.Repo.Language,
	}); err != nil {
		return o.fail(ctx, analysisID, err)
	}

	if err := o.Store.SetAnalysisFetchResults(ctx, storage.FetchResultsParams{
		AnalysisID:   analysisID,
		FileCount:    facts.FileCount,
		CommitCount:  facts.CommitCount,
		TopLanguages: facts.TopLanguages,
		Metadata:     facts.Metadata,
	}); err != nil {
		return o.fail(ctx, analysisID, err)
	}

	// Trinn 2: kodeprøver. Feil her er ikke fatale – analysen fortsetter
	// med tomt prøvesett.
	samples, err := o.GitHub.SampleFiles(ctx, repoURL, o.Cfg.SampleFiles)
	if err != nil {
		slog.Warn("Klarte ikke å hente kodeprøver – fortsetter uten", "analysis_id", analysisID, "error", err)
		samples = map[string]string{}
	}

	// Trinn 3: inferens. Dekker også skjemabrudd i svaret.
	result, err := o.Inference.AnalyzeRepository(ctx, facts, samples)
	if err != nil {
		return o.fail(ctx, analysisID, fmt.Errorf("AI-analyse feilet: %w", err))
	}

	// Trinn 4: skriv profil og innsikter i samme transaksjon.
	personality, insights := BuildPersonality(analysisID, result)
	if err := o.Store.CreatePersonality(ctx, personality, insights); err != nil {
		return o.fail(ctx, analysisID, err)
	}

	if err := o.Store.MarkAnalysisCompleted(ctx, analysisID); err != nil {
		return o.fail(ctx, analysisID, err)
	}

	o.export(ctx, analysisID, personality, insights)

	slog.Info("✅ Analyse fullført",
		"analysis_id", analysisID,
		"repo", facts.Repo.FullName,
		"varighet", time.Since(start).Truncate(time.Millisecond).String())
	return nil
}

func (o *Orchestrator) checkCredentials() error {
	if o.Cfg.GitHubToken == "" && !o.Cfg.HasGitHubApp() {
		return fmt.Errorf("%w: GITHUB_TOKEN er ikke satt", ErrConfiguration)
	}
	if o.Cfg.ZAIKey == "" {
		return fmt.Errorf("%w: ZAI_API_KEY er ikke satt", ErrConfiguration)
	}
	return nil
}

// fail registrerer feilårsaken på analysen og returnerer feilen til
// kalleren for logging. Klarer vi ikke å registrere den, logger vi og
// returnerer den opprinnelige feilen likevel.
func (o *Orchestrator) fail(ctx context.Context, analysisID string, err error) error {
	if markErr := o.Store.MarkAnalysisFailed(ctx, analysisID, err.Error()); markErr != nil {
		slog.Warn("Klarte ikke å registrere feilet analyse", "analysis_id", analysisID, "error", markErr)
	}
	slog.Error("Analyse feilet", "analysis_id", analysisID, "error", err)
	return err
}

func (o *Orchestrator) export(ctx context.Context, analysisID string, personality *models.Personality, insights []models.Insight) {
	if o.Exporter == nil {
		return
	}
	analysis, err := o.Store.GetAnalysis(ctx, analysisID)
	if err != nil {
		slog.Warn("Eksport hoppet over – fikk ikke lest analysen", "analysis_id", analysisID, "error", err)
		return
	}
	if err := o.Exporter.ExportAnalysis(ctx, analysis, personality, insights); err != nil {
		slog.Warn("Eksport feilet", "analysis_id", analysisID, "error", err)
	}
}

// BuildPersonality oversetter det validerte inferens-resultatet til
// lagringsmodellen. Manglende shape-felter får de faste standardene;
// innsikter uten kategori/alvorlighet får patterns/info.
func BuildPersonality(analysisID string, result *models.PersonalityResult) (*models.Personality, []models.Insight) {
	personality := &models.Personality{
		AnalysisID:      analysisID,
		ShapeType:       models.ShapeSphere,
		ComplexityLevel: 5,
		RotationSpeed:   1.0,
		ParticleCount:   50,
		Tags:            result.Tags,
	}

	personality.ComplexityScore, _ = result.Trait("complexity")
	personality.CreativityScore, _ = result.Trait("creativity")
	personality.MaintainabilityScore, _ = result.Trait("maintainability")
	personality.InnovationScore, _ = result.Trait("innovation")
	personality.OrganizationScore, _ = result.Trait("organization")
	personality.PerformanceScore, _ = result.Trait("performance")

	if result.Description != nil {
		personality.Description = *result.Description
	}
	if result.Visualization != nil {
		if colors := result.Visualization.Colors; colors != nil {
			personality.PrimaryColor = colors["primary"]
			personality.SecondaryColor = colors["secondary"]
			personality.AccentColor = colors["accent"]
		}
		if shape := result.Visualization.Shape; shape != nil {
			if shape.Type != "" {
				personality.ShapeType = shape.Type
			}
			if shape.Complexity != 0 {
				personality.ComplexityLevel = shape.Complexity
			}
			if shape.RotationSpeed != 0 {
				personality.RotationSpeed = shape.RotationSpeed
			}
			if shape.ParticleCount != 0 {
				personality.ParticleCount = shape.ParticleCount
			}
		}
	}

	insights := make([]models.Insight, 0, len(result.Insights))
	for _, in := range result.Insights {
		category := in.Category
		if category == "" {
			category = "patterns"
		}
		severity := in.Severity
		if severity == "" {
			severity = "info"
		}
		insights = append(insights, models.Insight{
			Category:    category,
			Text:        in.Text,
			Severity:    severity,
			FilePath:    in.FilePath,
			LineNumbers: in.Lines,
		})
	}

	return personality, insights
}
