package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kittinan/git-soul/internal/models"
)

// MemoryStore er en trådsikker in-memory Store for cmd/analyze og
// tester. Ingen varighet; alt lever i prosessen.
type MemoryStore struct {
	mu            sync.Mutex
	repos         map[string]*models.Repository // id → repo
	reposByURL    map[string]string             // url → id
	analyses      map[string]*models.Analysis
	personalities map[string]*models.Personality // analysisID → personlighet
	insights      map[string][]models.Insight    // personalityID → innsikter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repos:         map[string]*models.Repository{},
		reposByURL:    map[string]string{},
		analyses:      map[string]*models.Analysis{},
		personalities: map[string]*models.Personality{},
		insights:      map[string][]models.Insight{},
	}
}

func (m *MemoryStore) GetOrCreateRepository(_ context.Context, params RepoRefParams) (*models.Repository, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.reposByURL[params.RepoURL]; ok {
		repo := *m.repos[id]
		return &repo, false, nil
	}

	now := time.Now().UTC()
	repo := &models.Repository{
		ID:        uuid.NewString(),
		Platform:  params.Platform,
		Owner:     params.Owner,
		RepoName:  params.RepoName,
		RepoURL:   params.RepoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.repos[repo.ID] = repo
	m.reposByURL[params.RepoURL] = repo.ID
	out := *repo
	return &out, true, nil
}

func (m *MemoryStore) GetRepository(_ context.Context, id string) (*models.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *repo
	return &out, nil
}

func (m *MemoryStore) ListRepositories(_ context.Context) ([]models.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Repository, 0, len(m.repos))
	for _, repo := range m.repos {
		out = append(out, *repo)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateRepositoryFacts(_ context.Context, params RepoFactsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[params.RepositoryID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	repo.Description = params.Description
	repo.Stars = params.Stars
	repo.Forks = params.Forks
	repo.Language = params.Language
	repo.LastAnalyzedAt = &now
	repo.UpdatedAt = now
	return nil
}

func (m *MemoryStore) CreateAnalysis(_ context.Context, repositoryID string) (*models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[repositoryID]; !ok {
		return nil, ErrNotFound
	}
	a := &models.Analysis{
		ID:           uuid.NewString(),
		RepositoryID: repositoryID,
		Status:       models.StatusPending,
		TopLanguages: []models.LanguageShare{},
		Metadata:     map[string]any{},
		CreatedAt:    time.Now().UTC(),
	}
	m.analyses[a.ID] = a
	out := *a
	return &out, nil
}

func (m *MemoryStore) GetAnalysesForRepository(_ context.Context, repositoryID string) ([]models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Analysis
	for _, a := range m.analyses {
		if a.RepositoryID == repositoryID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetAnalysis(_ context.Context, id string) (*models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analyse %s: %w", id, ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (m *MemoryStore) ClaimAnalysis(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return fmt.Errorf("analyse %s: %w", id, ErrNotFound)
	}
	if a.Status != models.StatusPending {
		return fmt.Errorf("analyse %s: %w", id, ErrAlreadyClaimed)
	}
	a.Status = models.StatusProcessing
	return nil
}

func (m *MemoryStore) SetAnalysisFetchResults(_ context.Context, params FetchResultsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[params.AnalysisID]
	if !ok {
		return ErrNotFound
	}
	fileCount, commitCount := params.FileCount, params.CommitCount
	a.FileCount = &fileCount
	a.CommitCount = &commitCount
	a.TopLanguages = params.TopLanguages
	a.Metadata = params.Metadata
	return nil
}

func (m *MemoryStore) MarkAnalysisFailed(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = models.StatusFailed
	a.ErrorMessage = reason
	return nil
}

func (m *MemoryStore) MarkAnalysisCompleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = models.StatusCompleted
	if a.CompletedAt == nil {
		now := time.Now().UTC()
		a.CompletedAt = &now
	}
	return nil
}

func (m *MemoryStore) CreatePersonality(_ context.Context, personality *models.Personality, insights []models.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if personality.ID == "" {
		personality.ID = uuid.NewString()
	}
	if personality.CreatedAt.IsZero() {
		personality.CreatedAt = time.Now().UTC()
	}
	stored := *personality
	m.personalities[personality.AnalysisID] = &stored

	kept := make([]models.Insight, 0, len(insights))
	for _, insight := range insights {
		if insight.ID == "" {
			insight.ID = uuid.NewString()
		}
		insight.PersonalityID = personality.ID
		kept = append(kept, insight)
	}
	m.insights[personality.ID] = kept
	return nil
}

func (m *MemoryStore) GetPersonality(_ context.Context, analysisID string) (*models.Personality, []models.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personalities[analysisID]
	if !ok {
		return nil, nil, fmt.Errorf("personlighet for analyse %s: %w", analysisID, ErrNotFound)
	}
	out := *p
	insights := append([]models.Insight(nil), m.insights[p.ID]...)
	return &out, insights, nil
}
