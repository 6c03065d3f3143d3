package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kittinan/git-soul/internal/models"
)

// PostgresStore implementerer Store over database/sql med lib/pq.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Kunne ikke åpne PostgreSQL-database", "error", err)
		return nil, fmt.Errorf("kunne ikke åpne PostgreSQL-database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &PostgresStore{DB: db}, nil
}

func (p *PostgresStore) Close() error {
	return p.DB.Close()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

func (p *PostgresStore) GetOrCreateRepository(ctx context.Context, params RepoRefParams) (*models.Repository, bool, error) {
	repo, err := p.getRepositoryByURL(ctx, params.RepoURL)
	if err == nil {
		return repo, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = p.DB.ExecContext(ctx, `
		INSERT INTO repositories (id, platform, repo_name, repo_url, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (repo_url) DO NOTHING`,
		id, params.Platform, params.RepoName, params.RepoURL, params.Owner, now)
	if err != nil {
		return nil, false, fmt.Errorf("InsertRepository feilet: %w", err)
	}

	// Ved konflikt vant et samtidig kall; les uansett raden på nytt.
	repo, err = p.getRepositoryByURL(ctx, params.RepoURL)
	if err != nil {
		return nil, false, err
	}
	return repo, repo.ID == id, nil
}

func (p *PostgresStore) getRepositoryByURL(ctx context.Context, repoURL string) (*models.Repository, error) {
	row := p.DB.QueryRowContext(ctx, `
		SELECT id, platform, repo_name, repo_url, owner, description, stars_count,
		       forks_count, language, created_at, updated_at, last_analyzed_at
		FROM repositories WHERE repo_url = $1`, repoURL)
	return scanRepository(row)
}

func (p *PostgresStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	row := p.DB.QueryRowContext(ctx, `
		SELECT id, platform, repo_name, repo_url, owner, description, stars_count,
		       forks_count, language, created_at, updated_at, last_analyzed_at
		FROM repositories WHERE id = $1`, id)
	return scanRepository(row)
}

func (p *PostgresStore) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, platform, repo_name, repo_url, owner, description, stars_count,
		       forks_count, language, created_at, updated_at, last_analyzed_at
		FROM repositories ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListRepositories feilet: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("Klarte ikke å lukke rows", "error", cerr)
		}
	}()

	var repos []models.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, *repo)
	}
	return repos, rows.Err()
}

func (p *PostgresStore) UpdateRepositoryFacts(ctx context.Context, params RepoFactsParams) error {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE repositories
		SET description = $2, stars_count = $3, forks_count = $4, language = $5,
		    last_analyzed_at = now(), updated_at = now()
		WHERE id = $1`,
		params.RepositoryID, nullString(params.Description), params.Stars, params.Forks, nullString(params.Language))
	if err != nil {
		return fmt.Errorf("UpdateRepositoryFacts feilet: %w", err)
	}
	return requireRow(res)
}

func (p *PostgresStore) CreateAnalysis(ctx context.Context, repositoryID string) (*models.Analysis, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO analyses (id, repository_id, status, created_at)
		VALUES ($1, $2, $3, $4)`,
		id, repositoryID, models.StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("InsertAnalysis feilet: %w", err)
	}

	return &models.Analysis{
		ID:           id,
		RepositoryID: repositoryID,
		Status:       models.StatusPending,
		TopLanguages: []models.LanguageShare{},
		Metadata:     map[string]any{},
		CreatedAt:    now,
	}, nil
}

func (p *PostgresStore) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	row := p.DB.QueryRowContext(ctx, `
		SELECT id, repository_id, status, error_message, file_count, line_count,
		       commit_count, top_languages, analysis_metadata, created_at, completed_at
		FROM analyses WHERE id = $1`, id)

	a, err := scanAnalysis(row)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("analyse %s: %w", id, ErrNotFound)
	}
	return a, err
}

func (p *PostgresStore) GetAnalysesForRepository(ctx context.Context, repositoryID string) ([]models.Analysis, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, repository_id, status, error_message, file_count, line_count,
		       commit_count, top_languages, analysis_metadata, created_at, completed_at
		FROM analyses WHERE repository_id = $1 ORDER BY created_at DESC`, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("GetAnalysesForRepository feilet: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("Klarte ikke å lukke rows", "error", cerr)
		}
	}()

	var analyses []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

func scanAnalysis(row rowScanner) (*models.Analysis, error) {
	var (
		a           models.Analysis
		errMsg      sql.NullString
		fileCount   sql.NullInt64
		lineCount   sql.NullInt64
		commitCount sql.NullInt64
		topLangs    []byte
		metadata    []byte
		completedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.RepositoryID, &a.Status, &errMsg, &fileCount, &lineCount,
		&commitCount, &topLangs, &metadata, &a.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanAnalysis feilet: %w", err)
	}

	a.ErrorMessage = errMsg.String
	a.FileCount = nullableInt(fileCount)
	a.LineCount = nullableInt(lineCount)
	a.CommitCount = nullableInt(commitCount)
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	if err := json.Unmarshal(topLangs, &a.TopLanguages); err != nil {
		return nil, fmt.Errorf("ugyldig top_languages for %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
		return nil, fmt.Errorf("ugyldig analysis_metadata for %s: %w", a.ID, err)
	}
	return &a, nil
}

func (p *PostgresStore) ClaimAnalysis(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE analyses SET status = $2 WHERE id = $1 AND status = $3`,
		id, models.StatusProcessing, models.StatusPending)
	if err != nil {
		return fmt.Errorf("ClaimAnalysis feilet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ClaimAnalysis feilet: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Skill ukjent id fra tapt CAS.
	var exists bool
	if err := p.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM analyses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("ClaimAnalysis feilet: %w", err)
	}
	if !exists {
		return fmt.Errorf("analyse %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("analyse %s: %w", id, ErrAlreadyClaimed)
}

func (p *PostgresStore) SetAnalysisFetchResults(ctx context.Context, params FetchResultsParams) error {
	topLangs, err := json.Marshal(params.TopLanguages)
	if err != nil {
		return fmt.Errorf("kunne ikke serialisere top_languages: %w", err)
	}
	metadata, err := json.Marshal(params.Metadata)
	if err != nil {
		return fmt.Errorf("kunne ikke serialisere analysis_metadata: %w", err)
	}

	res, err := p.DB.ExecContext(ctx, `
		UPDATE analyses
		SET file_count = $2, commit_count = $3, top_languages = $4, analysis_metadata = $5
		WHERE id = $1`,
		params.AnalysisID, params.FileCount, params.CommitCount, topLangs, metadata)
	if err != nil {
		return fmt.Errorf("SetAnalysisFetchResults feilet: %w", err)
	}
	return requireRow(res)
}

func (p *PostgresStore) MarkAnalysisFailed(ctx context.Context, id, reason string) error {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE analyses SET status = $2, error_message = $3 WHERE id = $1`,
		id, models.StatusFailed, reason)
	if err != nil {
		return fmt.Errorf("MarkAnalysisFailed feilet: %w", err)
	}
	return requireRow(res)
}

func (p *PostgresStore) MarkAnalysisCompleted(ctx context.Context, id string) error {
	// COALESCE gjør completed_at skrive-én-gang.
	res, err := p.DB.ExecContext(ctx, `
		UPDATE analyses SET status = $2, completed_at = COALESCE(completed_at, now())
		WHERE id = $1`,
		id, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("MarkAnalysisCompleted feilet: %w", err)
	}
	return requireRow(res)
}

func (p *PostgresStore) CreatePersonality(ctx context.Context, personality *models.Personality, insights []models.Insight) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start tx: %w", err)
	}

	tags, err := json.Marshal(personality.Tags)
	if err != nil {
		return rollback(tx, fmt.Errorf("kunne ikke serialisere tags: %w", err))
	}

	if personality.ID == "" {
		personality.ID = uuid.NewString()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO personalities (id, analysis_id, complexity_score, creativity_score,
			maintainability_score, innovation_score, organization_score, performance_score,
			primary_color, secondary_color, accent_color, shape_type, complexity_level,
			rotation_speed, particle_count, description, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		personality.ID, personality.AnalysisID,
		personality.ComplexityScore, personality.CreativityScore, personality.MaintainabilityScore,
		personality.InnovationScore, personality.OrganizationScore, personality.PerformanceScore,
		personality.PrimaryColor, personality.SecondaryColor, personality.AccentColor,
		personality.ShapeType, personality.ComplexityLevel, personality.RotationSpeed,
		personality.ParticleCount, personality.Description, tags)
	if err != nil {
		return rollback(tx, fmt.Errorf("InsertPersonality feilet: %w", err))
	}

	for _, insight := range insights {
		id := insight.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO code_insights (id, personality_id, category, insight_text, severity, file_path, line_numbers)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, personality.ID, insight.Category, insight.Text, insight.Severity,
			nullString(insight.FilePath), nullString(insight.LineNumbers))
		if err != nil {
			return rollback(tx, fmt.Errorf("InsertInsight feilet: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("Commit-feil for personlighet", "analysis_id", personality.AnalysisID, "error", err)
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetPersonality(ctx context.Context, analysisID string) (*models.Personality, []models.Insight, error) {
	row := p.DB.QueryRowContext(ctx, `
		SELECT id, analysis_id, complexity_score, creativity_score, maintainability_score,
		       innovation_score, organization_score, performance_score, primary_color,
		       secondary_color, accent_color, shape_type, complexity_level, rotation_speed,
		       particle_count, description, tags, created_at
		FROM personalities WHERE analysis_id = $1`, analysisID)

	var (
		pers        models.Personality
		primary     sql.NullString
		secondary   sql.NullString
		accent      sql.NullString
		description sql.NullString
		tags        []byte
	)
	err := row.Scan(&pers.ID, &pers.AnalysisID,
		&pers.ComplexityScore, &pers.CreativityScore, &pers.MaintainabilityScore,
		&pers.InnovationScore, &pers.OrganizationScore, &pers.PerformanceScore,
		&primary, &secondary, &accent, &pers.ShapeType, &pers.ComplexityLevel,
		&pers.RotationSpeed, &pers.ParticleCount, &description, &tags, &pers.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("personlighet for analyse %s: %w", analysisID, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("GetPersonality feilet: %w", err)
	}

	pers.PrimaryColor = primary.String
	pers.SecondaryColor = secondary.String
	pers.AccentColor = accent.String
	pers.Description = description.String
	if err := json.Unmarshal(tags, &pers.Tags); err != nil {
		return nil, nil, fmt.Errorf("ugyldige tags for %s: %w", analysisID, err)
	}

	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, personality_id, category, insight_text, severity, file_path, line_numbers, created_at
		FROM code_insights WHERE personality_id = $1 ORDER BY category, severity`, pers.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("GetInsights feilet: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("Klarte ikke å lukke rows", "error", cerr)
		}
	}()

	var insights []models.Insight
	for rows.Next() {
		var (
			insight  models.Insight
			filePath sql.NullString
			lines    sql.NullString
		)
		if err := rows.Scan(&insight.ID, &insight.PersonalityID, &insight.Category,
			&insight.Text, &insight.Severity, &filePath, &lines, &insight.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("GetInsights feilet: %w", err)
		}
		insight.FilePath = filePath.String
		insight.LineNumbers = lines.String
		insights = append(insights, insight)
	}
	return &pers, insights, rows.Err()
}

// ==== hjelpere ====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*models.Repository, error) {
	var (
		repo         models.Repository
		description  sql.NullString
		language     sql.NullString
		lastAnalyzed sql.NullTime
	)
	err := row.Scan(&repo.ID, &repo.Platform, &repo.RepoName, &repo.RepoURL, &repo.Owner,
		&description, &repo.Stars, &repo.Forks, &language,
		&repo.CreatedAt, &repo.UpdatedAt, &lastAnalyzed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanRepository feilet: %w", err)
	}
	repo.Description = description.String
	repo.Language = language.String
	if lastAnalyzed.Valid {
		t := lastAnalyzed.Time
		repo.LastAnalyzedAt = &t
	}
	return &repo, nil
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("%v (rollback feilet: %w)", err, rbErr)
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
