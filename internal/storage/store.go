package storage

import (
	"context"
	"errors"

	"github.com/kittinan/git-soul/internal/models"
)

var (
	// ErrNotFound betyr at raden ikke finnes.
	ErrNotFound = errors.New("ikke funnet")
	// ErrAlreadyClaimed betyr at en annen arbeider allerede har flyttet
	// analysen ut av pending. Taperen av kappløpet skal avbryte uten å
	// røre tilstanden.
	ErrAlreadyClaimed = errors.New("analysen er allerede under behandling")
)

type RepoRefParams struct {
	RepoURL  string
	Owner    string
	RepoName string
	Platform string
}

type RepoFactsParams struct {
	RepositoryID string
	Description  string
	Stars        int64
	Forks        int64
	Language     string
}

type FetchResultsParams struct {
	AnalysisID   string
	FileCount    int64
	CommitCount  int64
	TopLanguages []models.LanguageShare
	Metadata     map[string]any
}

// Store er den varige lagringen pipelinen og API-et deler. Postgres er
// produksjonsimplementasjonen; minnevarianten brukes av cmd/analyze og
// i tester.
type Store interface {
	// GetOrCreateRepository slår opp på kanonisk URL; created er true
	// når raden ble opprettet nå.
	GetOrCreateRepository(ctx context.Context, params RepoRefParams) (repo *models.Repository, created bool, err error)
	GetRepository(ctx context.Context, id string) (*models.Repository, error)
	ListRepositories(ctx context.Context) ([]models.Repository, error)
	// UpdateRepositoryFacts oppdaterer de muterbare feltene og stempler
	// last_analyzed_at.
	UpdateRepositoryFacts(ctx context.Context, params RepoFactsParams) error

	CreateAnalysis(ctx context.Context, repositoryID string) (*models.Analysis, error)
	// GetAnalysesForRepository lister kjøringer for ett repository,
	// nyeste først.
	GetAnalysesForRepository(ctx context.Context, repositoryID string) ([]models.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	// ClaimAnalysis er compare-and-swap pending→processing. Returnerer
	// ErrNotFound for ukjent id og ErrAlreadyClaimed når noen andre vant.
	ClaimAnalysis(ctx context.Context, id string) error
	SetAnalysisFetchResults(ctx context.Context, params FetchResultsParams) error
	MarkAnalysisFailed(ctx context.Context, id, reason string) error
	// MarkAnalysisCompleted setter completed_at nøyaktig én gang.
	MarkAnalysisCompleted(ctx context.Context, id string) error

	// CreatePersonality skriver profilen og innsiktene i én transaksjon;
	// enten blir alt varig eller ingenting.
	CreatePersonality(ctx context.Context, personality *models.Personality, insights []models.Insight) error
	GetPersonality(ctx context.Context, analysisID string) (*models.Personality, []models.Insight, error)
}
