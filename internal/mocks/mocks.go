// Package mocks inneholder testify-mocker for grensesnittene som
// orkestratoren, planleggeren og API-et avhenger av.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kittinan/git-soul/internal/models"
	"github.com/kittinan/git-soul/internal/scheduler"
	"github.com/kittinan/git-soul/internal/storage"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetOrCreateRepository(ctx context.Context, params storage.RepoRefParams) (*models.Repository, bool, error) {
	args := m.Called(ctx, params)
	repo, _ := args.Get(0).(*models.Repository)
	return repo, args.Bool(1), args.Error(2)
}

func (m *MockStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	args := m.Called(ctx, id)
	repo, _ := args.Get(0).(*models.Repository)
	return repo, args.Error(1)
}

func (m *MockStore) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	args := m.Called(ctx)
	repos, _ := args.Get(0).([]models.Repository)
	return repos, args.Error(1)
}

func (m *MockStore) UpdateRepositoryFacts(ctx context.Context, params storage.RepoFactsParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockStore) CreateAnalysis(ctx context.Context, repositoryID string) (*models.Analysis, error) {
	args := m.Called(ctx, repositoryID)
	analysis, _ := args.Get(0).(*models.Analysis)
	return analysis, args.Error(1)
}

func (m *MockStore) GetAnalysesForRepository(ctx context.Context, repositoryID string) ([]models.Analysis, error) {
	args := m.Called(ctx, repositoryID)
	analyses, _ := args.Get(0).([]models.Analysis)
	return analyses, args.Error(1)
}

func (m *MockStore) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	args := m.Called(ctx, id)
	analysis, _ := args.Get(0).(*models.Analysis)
	return analysis, args.Error(1)
}

func (m *MockStore) ClaimAnalysis(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) SetAnalysisFetchResults(ctx context.Context, params storage.FetchResultsParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockStore) MarkAnalysisFailed(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockStore) MarkAnalysisCompleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) CreatePersonality(ctx context.Context, personality *models.Personality, insights []models.Insight) error {
	return m.Called(ctx, personality, insights).Error(0)
}

func (m *MockStore) GetPersonality(ctx context.Context, analysisID string) (*models.Personality, []models.Insight, error) {
	args := m.Called(ctx, analysisID)
	personality, _ := args.Get(0).(*models.Personality)
	insights, _ := args.Get(1).([]models.Insight)
	return personality, insights, args.Error(2)
}

type MockGitHub struct {
	mock.Mock
}

func (m *MockGitHub) FetchRepository(ctx context.Context, repoURL string) (*models.RepoFacts, error) {
	args := m.Called(ctx, repoURL)
	facts, _ := args.Get(0).(*models.RepoFacts)
	return facts, args.Error(1)
}

func (m *MockGitHub) SampleFiles(ctx context.Context, repoURL string, maxFiles int) (map[string]string, error) {
	args := m.Called(ctx, repoURL, maxFiles)
	samples, _ := args.Get(0).(map[string]string)
	return samples, args.Error(1)
}

type MockInference struct {
	mock.Mock
}

func (m *MockInference) AnalyzeRepository(ctx context.Context, facts *models.RepoFacts, samples map[string]string) (*models.PersonalityResult, error) {
	args := m.Called(ctx, facts, samples)
	result, _ := args.Get(0).(*models.PersonalityResult)
	return result, args.Error(1)
}

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) ExportAnalysis(ctx context.Context, analysis *models.Analysis, personality *models.Personality, insights []models.Insight) error {
	return m.Called(ctx, analysis, personality, insights).Error(0)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, analysisID, repoURL string) error {
	return m.Called(ctx, analysisID, repoURL).Error(0)
}

type MockTaskQueue struct {
	mock.Mock
}

func (m *MockTaskQueue) Submit(analysisID, repoURL string) error {
	return m.Called(analysisID, repoURL).Error(0)
}

func (m *MockTaskQueue) Status(analysisID string) scheduler.TaskStatus {
	args := m.Called(analysisID)
	status, _ := args.Get(0).(scheduler.TaskStatus)
	return status
}
