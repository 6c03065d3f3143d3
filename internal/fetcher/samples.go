package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Gjenkjente kodefil-endelser for AI-kontekst.
var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true,
	".cpp": true, ".c": true, ".go": true, ".rs": true,
	".php": true, ".rb": true, ".swift": true, ".kt": true,
	".scala": true, ".hs": true, ".clj": true,
}

const (
	maxSampleChars   = 2000
	truncationMarker = "\n\n... (truncated)"
	maxSamplePathLen = 100
)

// IsSampleCandidate avgjør om en fil i treet kan brukes som kodeprøve:
// kjent endelse, ikke skjult fil, og kort nok sti.
func IsSampleCandidate(path string) bool {
	if path == "" || strings.HasPrefix(path, ".") {
		return false
	}
	if len(path) >= maxSamplePathLen {
		return false
	}
	lower := strings.ToLower(path)
	for ext := range codeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SampleFiles henter inntil maxFiles kodefiler fra repoet, i tre-
// rekkefølge. Enkeltfiler som ikke lar seg hente eller dekode hoppes
// stille over – bare feil på selve tre-/metadata-hentingen feiler kallet.
func (c *Client) SampleFiles(ctx context.Context, repoURL string, maxFiles int) (map[string]string, error) {
	parsed, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	var meta struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.DoRequest(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s", c.BaseURL, parsed.Owner, parsed.Repo), nil, &meta); err != nil {
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

	samples := map[string]string{}
	for _, entry := range tree.Tree {
		if len(samples) >= maxFiles {
			break
		}
		if entry.Type != "blob" || !IsSampleCandidate(entry.Path) {
			continue
		}

		content, ok := c.fetchFileContent(ctx, parsed.Owner, parsed.Repo, branch, entry.Path)
		if !ok {
			continue
		}
		samples[entry.Path] = Truncate(content)
	}

	slog.Debug("Kodeprøver hentet", "repo", parsed.FullName, "antall", len(samples))
	return samples, nil
}

// Truncate kutter innholdet ved 2000 tegn og legger på en synlig markør.
func Truncate(content string) string {
	if len(content) <= maxSampleChars {
		return content
	}
	return content[:maxSampleChars] + truncationMarker
}

func (c *Client) fetchFileContent(ctx context.Context, owner, repo, ref, path string) (string, bool) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", c.BaseURL, owner, repo, path, ref)

	var file struct {
		Type     string `json:"type"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.DoRequest(ctx, http.MethodGet, reqURL, nil, &file); err != nil {
		slog.Debug("Hopper over fil som ikke lot seg hente", "path", path, "error", err)
		return "", false
	}
	if file.Type != "file" || file.Encoding != "base64" {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		slog.Debug("Hopper over fil med ugyldig base64", "path", path, "error", err)
		return "", false
	}
	if !utf8.Valid(decoded) {
		// Binærfiler gir ingen mening som prompt-kontekst.
		return "", false
	}
	return string(decoded), true
}
