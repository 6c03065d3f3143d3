package bqwriter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type BigQueryWriter struct {
	Client  *bigquery.Client
	Dataset string
}

func NewBigQueryWriter(ctx context.Context, cfg *config.Config) (*BigQueryWriter, error) {
	var client *bigquery.Client

	client, err := bigquery.NewClient(ctx, cfg.BQProjectID, option.WithCredentialsFile(cfg.BQCredentials))
	if err != nil {
		return nil, fmt.Errorf("kan ikke opprette BigQuery-klient: %w", err)
	}

	// Sørg for at hver tabell finnes
	tables := map[string]any{
		"analyses":           BGAnalysis{},
		"personality_traits": BGTrait{},
		"code_insights":      BGInsight{},
	}

	for tableName, schemaExample := range tables {
		if err := ensureTableExists(ctx, client, cfg.BQDataset, tableName, schemaExample); err != nil {
			return nil, fmt.Errorf("kunne ikke sikre tabell %s: %w", tableName, err)
		}
	}

	return &BigQueryWriter{
		Client:  client,
		Dataset: cfg.BQDataset,
	}, nil
}

// ExportAnalysis skriver en fullført analyse til BigQuery. Feil her
// skal bare logges av kalleren; analysen er allerede fullført.
func (w *BigQueryWriter) ExportAnalysis(ctx context.Context, analysis *models.Analysis, personality *models.Personality, insights []models.Insight) error {
	row := ConvertAnalysis(analysis, personality)
	traits := ConvertTraits(analysis.ID, personality)
	insightRows := ConvertInsights(analysis.ID, insights)

	if err := insert(ctx, w.Client, w.Dataset, "analyses", []BGAnalysis{row}); err != nil {
		return fmt.Errorf("analyses insert failed: %w", err)
	}
	if err := insert(ctx, w.Client, w.Dataset, "personality_traits", traits); err != nil {
		return fmt.Errorf("personality_traits insert failed: %w", err)
	}
	if err := insert(ctx, w.Client, w.Dataset, "code_insights", insightRows); err != nil {
		return fmt.Errorf("code_insights insert failed: %w", err)
	}

	return nil
}

func insert[T any](ctx context.Context, client *bigquery.Client, dataset, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := client.Dataset(dataset).Table(table).Inserter()
	return inserter.Put(ctx, rows)
}

// ==== Data-strukturer ====

type BGAnalysis struct {
	AnalysisID   string    `bigquery:"analysis_id"`
	RepositoryID string    `bigquery:"repository_id"`
	Status       string    `bigquery:"status"`
	FileCount    int64     `bigquery:"file_count"`
	CommitCount  int64     `bigquery:"commit_count"`
	TopLanguages string    `bigquery:"top_languages"`
	ShapeType    string    `bigquery:"shape_type"`
	Description  string    `bigquery:"description"`
	Tags         string    `bigquery:"tags"`
	CreatedAt    time.Time `bigquery:"created_at"`
	CompletedAt  time.Time `bigquery:"completed_at"`
}

type BGTrait struct {
	AnalysisID string  `bigquery:"analysis_id"`
	Trait      string  `bigquery:"trait"`
	Score      float64 `bigquery:"score"`
}

type BGInsight struct {
	AnalysisID string `bigquery:"analysis_id"`
	Category   string `bigquery:"category"`
	Text       string `bigquery:"insight_text"`
	Severity   string `bigquery:"severity"`
	FilePath   string `bigquery:"file_path"`
}

// ==== Mapping-funksjoner ====

func ConvertAnalysis(analysis *models.Analysis, personality *models.Personality) BGAnalysis {
	var langs []string
	for _, l := range analysis.TopLanguages {
		langs = append(langs, fmt.Sprintf("%s:%.2f", l.Language, l.Percentage))
	}

	return BGAnalysis{
		AnalysisID:   analysis.ID,
		RepositoryID: analysis.RepositoryID,
		Status:       analysis.Status,
		FileCount:    derefInt(analysis.FileCount),
		CommitCount:  derefInt(analysis.CommitCount),
		TopLanguages: strings.Join(langs, ","),
		ShapeType:    personality.ShapeType,
		Description:  personality.Description,
		Tags:         strings.Join(personality.Tags, ","),
		CreatedAt:    analysis.CreatedAt,
		CompletedAt:  derefTime(analysis.CompletedAt),
	}
}

func ConvertTraits(analysisID string, personality *models.Personality) []BGTrait {
	scores := map[string]float64{
		"complexity":      personality.ComplexityScore,
		"creativity":      personality.CreativityScore,
		"maintainability": personality.MaintainabilityScore,
		"innovation":      personality.InnovationScore,
		"organization":    personality.OrganizationScore,
		"performance":     personality.PerformanceScore,
	}

	var result []BGTrait
	for _, name := range models.TraitNames {
		result = append(result, BGTrait{
			AnalysisID: analysisID,
			Trait:      name,
			Score:      scores[name],
		})
	}
	return result
}

func ConvertInsights(analysisID string, insights []models.Insight) []BGInsight {
	var result []BGInsight
	for _, in := range insights {
		result = append(result, BGInsight{
			AnalysisID: analysisID,
			Category:   in.Category,
			Text:       in.Text,
			Severity:   in.Severity,
			FilePath:   in.FilePath,
		})
	}
	return result
}

// ==== Hjelpefunksjoner ====

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func ensureTableExists(ctx context.Context, client *bigquery.Client, dataset, table string, exampleStruct any) error {
	tbl := client.Dataset(dataset).Table(table)
	_, err := tbl.Metadata(ctx)
	if err == nil {
		return nil // tabellen finnes
	}

	if gErr, ok := err.(*googleapi.Error); !ok || gErr.Code != 404 {
		return fmt.Errorf("feil ved henting av tabell-metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(exampleStruct)
	if err != nil {
		return fmt.Errorf("klarte ikke å generere schema for %s: %w", table, err)
	}

	if err := tbl.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("klarte ikke å opprette tabell %s: %w", table, err)
	}

	return nil
}
