package models

import "time"

// Analysestatus – terminale tilstander er Completed og Failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	ShapeSphere  = "sphere"
	ShapeCube    = "cube"
	ShapeComplex = "complex"
)

// TraitNames er de seks obligatoriske personlighetstrekkene, alle
// normalisert til [0,1].
var TraitNames = []string{
	"complexity", "creativity", "maintainability",
	"innovation", "organization", "performance",
}

// Repository identifiseres unikt av RepoURL. De muterbare feltene
// (beskrivelse, stjerner, forks, språk) oppdateres ved hver analyse.
type Repository struct {
	ID             string     `json:"id"`
	Platform       string     `json:"platform"`
	Owner          string     `json:"owner"`
	RepoName       string     `json:"repo_name"`
	RepoURL        string     `json:"repo_url"`
	Description    string     `json:"description,omitempty"`
	Stars          int64      `json:"stars_count"`
	Forks          int64      `json:"forks_count"`
	Language       string     `json:"language,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
}

// LanguageShare er én post i topp-språk-listen. Rekkefølgen (synkende
// etter bytes) bevares ved å lagre listen som JSON-array.
type LanguageShare struct {
	Language   string  `json:"language"`
	Percentage float64 `json:"percentage"`
}

type Analysis struct {
	ID           string          `json:"id"`
	RepositoryID string          `json:"repository_id"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	FileCount    *int64          `json:"file_count,omitempty"`
	LineCount    *int64          `json:"line_count,omitempty"`
	CommitCount  *int64          `json:"commit_count,omitempty"`
	TopLanguages []LanguageShare `json:"top_languages"`
	Metadata     map[string]any  `json:"analysis_metadata"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Personality er én-til-én med en fullført analyse og endres aldri
// etter at den er skrevet.
type Personality struct {
	ID         string `json:"id"`
	AnalysisID string `json:"analysis_id"`

	ComplexityScore      float64 `json:"complexity_score"`
	CreativityScore      float64 `json:"creativity_score"`
	MaintainabilityScore float64 `json:"maintainability_score"`
	InnovationScore      float64 `json:"innovation_score"`
	OrganizationScore    float64 `json:"organization_score"`
	PerformanceScore     float64 `json:"performance_score"`

	PrimaryColor    string  `json:"primary_color"`
	SecondaryColor  string  `json:"secondary_color"`
	AccentColor     string  `json:"accent_color"`
	ShapeType       string  `json:"shape_type"`
	ComplexityLevel int     `json:"complexity_level"`
	RotationSpeed   float64 `json:"rotation_speed"`
	ParticleCount   int     `json:"particle_count"`

	Description string    `json:"personality_description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

type Insight struct {
	ID            string    `json:"id"`
	PersonalityID string    `json:"personality_id"`
	Category      string    `json:"category"`
	Text          string    `json:"insight_text"`
	Severity      string    `json:"severity"`
	FilePath      string    `json:"file_path,omitempty"`
	LineNumbers   string    `json:"line_numbers,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RepoMeta er delmengden av GitHub sitt repository-svar vi bryr oss om.
type RepoMeta struct {
	Name          string   `json:"name"`
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	Stars         int64    `json:"stargazers_count"`
	Forks         int64    `json:"forks_count"`
	Language      string   `json:"language"`
	DefaultBranch string   `json:"default_branch"`
	Size          int64    `json:"size"`
	OpenIssues    int64    `json:"open_issues_count"`
	HtmlURL       string   `json:"html_url"`
	License       *License `json:"license"`
}

type License struct {
	Name   string `json:"name"`
	SpdxID string `json:"spdx_id"`
}

type Commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// RepoFacts er resultatet av hentetrinnet og grunnlaget for både
// databaseoppdateringen og AI-prompten.
type RepoFacts struct {
	Repo          RepoMeta
	CommitCount   int64
	FileCount     int64
	TopLanguages  []LanguageShare
	LanguagesRaw  map[string]int64
	CommitsSample []Commit
	Metadata      map[string]any
}

// PersonalityResult er det validerte svaret fra inferens-API-et.
type PersonalityResult struct {
	Traits        map[string]float64 `json:"traits"`
	Visualization *Visualization     `json:"visualization"`
	Description   *string            `json:"description"`
	Tags          []string           `json:"tags"`
	Insights      []InsightResult    `json:"insights"`
}

type Visualization struct {
	Colors map[string]string `json:"colors"`
	Shape  *Shape            `json:"shape"`
}

type Shape struct {
	Type          string  `json:"type"`
	Complexity    int     `json:"complexity"`
	RotationSpeed float64 `json:"rotation_speed"`
	ParticleCount int     `json:"particle_count"`
}

type InsightResult struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Severity string `json:"severity"`
	FilePath string `json:"file_path"`
	Lines    string `json:"line_numbers"`
}

// Trait henter ut ett trekk; ok er false hvis det mangler.
func (r *PersonalityResult) Trait(name string) (float64, bool) {
	if r.Traits == nil {
		return 0, false
	}
	v, ok := r.Traits[name]
	return v, ok
}
