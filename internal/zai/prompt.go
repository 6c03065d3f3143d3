package zai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kittinan/git-soul/internal/models"
)

// Prompt-teksten er på engelsk siden den er modellens instruks, ikke
// loggtekst. Skjemaet her er fasiten valideringen håndhever.
const systemPrompt = `You analyze Git repositories and extract personality traits based on code structure, patterns, and quality.
Provide analysis in JSON format with the following structure:
{
    "traits": {
        "complexity": 0.0-1.0,
        "creativity": 0.0-1.0,
        "maintainability": 0.0-1.0,
        "innovation": 0.0-1.0,
        "organization": 0.0-1.0,
        "performance": 0.0-1.0
    },
    "visualization": {
        "colors": {
            "primary": "#hex_color",
            "secondary": "#hex_color",
            "accent": "#hex_color"
        },
        "shape": {
            "type": "sphere|cube|complex",
            "complexity": 1-10,
            "rotation_speed": 0.1-2.0,
            "particle_count": 10-200
        }
    },
    "description": "Brief description of repository personality",
    "tags": ["tag1", "tag2", "tag3"],
    "insights": [
        {
            "category": "patterns|issues|strengths",
            "text": "Insight description",
            "severity": "info|low|medium|high"
        }
    ]
}

Scoring guidelines:
- Complexity: 0-1 (higher for intricate code, many abstractions)
- Creativity: 0-1 (higher for unique solutions, novel approaches)
- Maintainability: 0-1 (higher for clean code, good docs, consistency)
- Innovation: 0-1 (higher for cutting-edge tech, unique features)
- Organization: 0-1 (higher for good structure, clear separation)
- Performance: 0-1 (higher for optimized code, good algorithms)`

// Maks antall tegn per kodeprøve i prompten. Prøvene er allerede
// trunkert til 2000 tegn ved henting; her kuttes de videre.
const maxPromptSampleChars = 1000

// BuildUserPrompt rendrer repo-fakta og kodeprøver til analyse-prompten.
// Prøvene sorteres på sti så prompten blir deterministisk for samme input.
func BuildUserPrompt(facts *models.RepoFacts, samples map[string]string) string {
	var b strings.Builder

	langs := make([]string, 0, len(facts.TopLanguages))
	for _, l := range facts.TopLanguages {
		langs = append(langs, fmt.Sprintf("%s: %.2f%%", l.Language, l.Percentage))
	}

	fmt.Fprintf(&b, `Analyze this repository:

Repository: %s
Description: %s
Language: %s
Stars: %d
Forks: %d
File Count: %d
Commit Count: %d
Top Languages: %s
`,
		defaultStr(facts.Repo.FullName, "Unknown"),
		defaultStr(facts.Repo.Description, "No description"),
		defaultStr(facts.Repo.Language, "Unknown"),
		facts.Repo.Stars,
		facts.Repo.Forks,
		facts.FileCount,
		facts.CommitCount,
		strings.Join(langs, ", "))

	if len(facts.CommitsSample) > 0 {
		b.WriteString("\nRecent Commits:\n")
		for _, commit := range facts.CommitsSample {
			fmt.Fprintf(&b, "- %s\n", firstLine(commit.Commit.Message))
		}
	}

	b.WriteString("\nSample Files:\n")

	paths := make([]string, 0, len(samples))
	for path := range samples {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		content := samples[path]
		if len(content) > maxPromptSampleChars {
			content = content[:maxPromptSampleChars]
		}
		fmt.Fprintf(&b, "\n\n--- %s ---\n%s...", path, content)
	}

	b.WriteString("\n\nProvide a comprehensive personality analysis of this codebase.")
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
