package analyzer

import (
	"context"

	"github.com/kittinan/git-soul/internal/models"
)

// GitHubAPI er hentetrinnet sett fra orkestratoren.
type GitHubAPI interface {
	FetchRepository(ctx context.Context, repoURL string) (*models.RepoFacts, error)
	SampleFiles(ctx context.Context, repoURL string, maxFiles int) (map[string]string, error)
}

// InferenceAPI er inferenstrinnet sett fra orkestratoren. Resultatet
// skal allerede ha bestått skjemavalideringen.
type InferenceAPI interface {
	AnalyzeRepository(ctx context.Context, facts *models.RepoFacts, samples map[string]string) (*models.PersonalityResult, error)
}

// Exporter er valgfri etterbehandling av fullførte analyser, f.eks.
// BigQuery-eksport. Feil her endrer aldri analysens tilstand.
type Exporter interface {
	ExportAnalysis(ctx context.Context, analysis *models.Analysis, personality *models.Personality, insights []models.Insight) error
}
