package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"

	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/models"
)

const githubAPI = "https://api.github.com"

// Injecter en klient (for testbarhet)
var HttpClient = http.DefaultClient

// Client snakker med GitHub REST API for ett repo om gangen.
type Client struct {
	Token   string
	BaseURL string
	Retry   config.RetryPolicy

	httpc *http.Client
}

// NewClient bygger en klient fra konfigurasjonen. Når GitHub App-felter
// er satt brukes en installation-transport i stedet for PAT, og
// Authorization-headeren settes da av transporten.
func NewClient(cfg config.Config) (*Client, error) {
	c := &Client{
		Token:   cfg.GitHubToken,
		BaseURL: githubAPI,
		Retry:   cfg.Retry,
		httpc:   HttpClient,
	}

	if cfg.HasGitHubApp() {
		itr, err := ghinstallation.NewKeyFromFile(
			http.DefaultTransport, cfg.GitHubAppID, cfg.GitHubAppInstallationID, cfg.GitHubAppPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("kunne ikke lage GitHub App-transport: %w", err)
		}
		c.Token = ""
		c.httpc = &http.Client{Transport: itr}
		slog.Info("Bruker GitHub App-autentisering", "app_id", cfg.GitHubAppID)
	}

	return c, nil
}

func (c *Client) client() *http.Client {
	if c.httpc != nil {
		return c.httpc
	}
	return HttpClient
}

// ParsedRepo er resultatet av URL-parsing.
type ParsedRepo struct {
	Owner    string
	Repo     string
	FullName string
}

// ParseRepoURL plukker owner og repo ut av en GitHub-URL. Et avsluttende
// ".git"-suffiks strippes. Mindre enn to path-segmenter er ugyldig.
func ParseRepoURL(repoURL string) (ParsedRepo, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return ParsedRepo{}, fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
	}

	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ParsedRepo{}, fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
	}

	owner, repo := parts[0], strings.TrimSuffix(parts[1], ".git")
	return ParsedRepo{
		Owner:    owner,
		Repo:     repo,
		FullName: owner + "/" + repo,
	}, nil
}

// DoRequest gjør ett kall mot GitHub og dekoder JSON-svaret inn i out.
// Antall forsøk styres av retry-policyen; standard er ett forsøk, så
// enhver feil er terminal for analysen.
func (c *Client) DoRequest(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	attempts := c.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			slog.Debug("Prøver på nytt mot GitHub", "url", reqURL, "forsøk", attempt)
			time.Sleep(c.Retry.Backoff)
		}

		lastErr = c.doOnce(ctx, method, reqURL, body, out)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "git-soul")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("Klarte ikke å lukke body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// classifyStatus mapper GitHub-statuskoder til taksonomien. 403 dekker
// også rate limit; vi venter aldri på reset (ingen retry i pipelinen).
func classifyStatus(status int, body string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d – %s", ErrRepoNotFound, status, body)
	case http.StatusForbidden, http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d – %s", ErrRateLimited, status, body)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d – %s", ErrBadCredential, status, body)
	default:
		return fmt.Errorf("%w: status %d – %s", ErrUpstream, status, body)
	}
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type treeResponse struct {
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// FetchRepository henter metadata, commits, språk og filtre for ett
// repo og regner ut fakta-grunnlaget for analysen.
func (c *Client) FetchRepository(ctx context.Context, repoURL string) (*models.RepoFacts, error) {
	parsed, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	slog.Info("Henter repository-metadata", "repo", parsed.FullName)

	var meta models.RepoMeta
	if err := c.DoRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s", c.BaseURL, parsed.Owner, parsed.Repo), nil, &meta); err != nil {
		return nil, err
	}

	var commits []models.Commit
	if err := c.DoRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s/commits?per_page=10", c.BaseURL, parsed.Owner, parsed.Repo), nil, &commits); err != nil {
		return nil, err
	}

	var languages map[string]int64
	if err := c.DoRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s/languages", c.BaseURL, parsed.Owner, parsed.Repo), nil, &languages); err != nil {
		return nil, err
	}

	branch := meta.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	var tree treeResponse
	if err := c.DoRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.BaseURL, parsed.Owner, parsed.Repo, branch), nil, &tree); err != nil {
		return nil, err
	}

	fileCount := int64(0)
	for _, entry := range tree.Tree {
		if entry.Type == "blob" {
			fileCount++
		}
	}

	sample := commits
	if len(sample) > 3 {
		sample = sample[:3]
	}

	facts := &models.RepoFacts{
		Repo:          meta,
		CommitCount:   int64(len(commits)),
		FileCount:     fileCount,
		TopLanguages:  TopLanguages(languages),
		LanguagesRaw:  languages,
		CommitsSample: sample,
		Metadata: map[string]any{
			"full_name":         meta.FullName,
			"default_branch":    meta.DefaultBranch,
			"size":              meta.Size,
			"open_issues_count": meta.OpenIssues,
			"license":           licenseName(meta.License),
		},
	}

	slog.Debug("Repository hentet",
		"repo", parsed.FullName,
		"filer", facts.FileCount,
		"commits", facts.CommitCount,
		"språk", len(languages))

	return facts, nil
}

// TopLanguages gjør bytehistogrammet om til maks fem prosentandeler,
// sortert synkende etter bytes og avrundet til to desimaler. Tomt
// histogram gir tom liste.
func TopLanguages(langs map[string]int64) []models.LanguageShare {
	total := int64(0)
	for _, b := range langs {
		total += b
	}
	if total == 0 {
		return []models.LanguageShare{}
	}

	type kv struct {
		name  string
		bytes int64
	}
	sorted := make([]kv, 0, len(langs))
	for name, b := range langs {
		sorted = append(sorted, kv{name, b})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].bytes != sorted[j].bytes {
			return sorted[i].bytes > sorted[j].bytes
		}
		return sorted[i].name < sorted[j].name
	})

	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	out := make([]models.LanguageShare, 0, len(sorted))
	for _, entry := range sorted {
		pct := math.Round(float64(entry.bytes)/float64(total)*100*100) / 100
		out = append(out, models.LanguageShare{Language: entry.name, Percentage: pct})
	}
	return out
}

func licenseName(lic *models.License) any {
	if lic == nil {
		return nil
	}
	return lic.Name
}
