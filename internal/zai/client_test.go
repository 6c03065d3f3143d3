package zai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/models"
	"github.com/kittinan/git-soul/internal/zai"
)

func demoFacts() *models.RepoFacts {
	return &models.RepoFacts{
		Repo: models.RepoMeta{
			FullName:    "navikt/demo",
			Description: "Testrepo",
			Language:    "Go",
			Stars:       12,
			Forks:       3,
		},
		CommitCount: 4,
		FileCount:   2,
		TopLanguages: []models.LanguageShare{
			{Language: "Go", Percentage: 90},
			{Language: "Shell", Percentage: 10},
		},
	}
}

// envelope pakker et resultat inn i chat completions-konvolutten.
func envelope(content string) string {
	msg := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(msg)
	return string(b)
}

func validResultJSON() string {
	b, _ := json.Marshal(validResult())
	return string(b)
}

var _ = Describe("AnalyzeRepository", func() {
	var originalClient *http.Client

	BeforeEach(func() {
		originalClient = zai.HttpClient
	})

	AfterEach(func() {
		zai.HttpClient = originalClient
	})

	newClient := func(url string) *zai.Client {
		return &zai.Client{
			APIKey:  "zai-key",
			APIURL:  url,
			Model:   "glm-4-plus",
			Timeout: 5 * time.Second,
			Retry:   config.RetryPolicy{Attempts: 1},
		}
	}

	It("skal returnere validert resultat fra et gyldig svar", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer zai-key"))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

			var req map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req["model"]).To(Equal("glm-4-plus"))
			Expect(req["temperature"]).To(BeNumerically("~", 0.3, 0.001))

			_, _ = fmt.Fprint(w, envelope(validResultJSON()))
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		result, err := newClient(ts.URL).AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(BeNil())
		Expect(result.Traits["organization"]).To(BeNumerically("~", 0.8, 0.001))
		Expect(*result.Description).To(Equal("Ryddig kodebase"))
	})

	It("skal gi ErrMalformed når innholdet ikke er JSON", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, envelope("dette er ikke JSON"))
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		_, err := newClient(ts.URL).AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(MatchError(zai.ErrMalformed))
		Expect(err.Error()).To(ContainSubstring("dette er ikke JSON"))
	})

	It("skal gi ErrMalformed når choices mangler", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `{"choices": []}`)
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		_, err := newClient(ts.URL).AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(MatchError(zai.ErrMalformed))
	})

	It("skal gi ErrSchemaViolation når JSON bryter skjemaet", func() {
		bad := validResult()
		bad.Traits["innovation"] = 1.5
		b, _ := json.Marshal(bad)

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, envelope(string(b)))
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		_, err := newClient(ts.URL).AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(MatchError(zai.ErrSchemaViolation))
	})

	It("skal gi ErrUpstream med status og body for ikke-2xx", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprint(w, `{"error": "overloaded"}`)
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		_, err := newClient(ts.URL).AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(MatchError(zai.ErrUpstream))
		Expect(err.Error()).To(ContainSubstring("502"))
		Expect(err.Error()).To(ContainSubstring("overloaded"))
	})

	It("skal gi ErrTimeout når svaret drøyer forbi fristen", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = fmt.Fprint(w, envelope(validResultJSON()))
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		c := newClient(ts.URL)
		c.Timeout = 50 * time.Millisecond

		_, err := c.AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(MatchError(zai.ErrTimeout))
	})

	It("skal prøve på nytt når policyen tillater det", func() {
		callCount := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++
			if callCount == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = fmt.Fprint(w, envelope(validResultJSON()))
		}))
		defer ts.Close()
		zai.HttpClient = ts.Client()

		c := newClient(ts.URL)
		c.Retry = config.RetryPolicy{Attempts: 2}

		result, err := c.AnalyzeRepository(context.Background(), demoFacts(), nil)
		Expect(err).To(BeNil())
		Expect(result).NotTo(BeNil())
		Expect(callCount).To(Equal(2))
	})
})

var _ = Describe("BuildUserPrompt", func() {
	It("skal rendre fakta og sortere kodeprøvene på sti", func() {
		samples := map[string]string{
			"b.go": "package b",
			"a.go": "package a",
		}
		prompt := zai.BuildUserPrompt(demoFacts(), samples)

		Expect(prompt).To(ContainSubstring("Repository: navikt/demo"))
		Expect(prompt).To(ContainSubstring("Top Languages: Go: 90.00%, Shell: 10.00%"))
		Expect(prompt).To(ContainSubstring("--- a.go ---"))
		Expect(strings.Index(prompt, "--- a.go ---")).To(BeNumerically("<", strings.Index(prompt, "--- b.go ---")))
	})

	It("skal bruke plassholdere for manglende metadata", func() {
		facts := &models.RepoFacts{}
		prompt := zai.BuildUserPrompt(facts, nil)
		Expect(prompt).To(ContainSubstring("Repository: Unknown"))
		Expect(prompt).To(ContainSubstring("Description: No description"))
	})

	It("skal ta med de siste commit-meldingene", func() {
		facts := demoFacts()
		var commit models.Commit
		commit.Commit.Message = "fiks race i planleggeren\n\nlang forklaring"
		facts.CommitsSample = []models.Commit{commit}

		prompt := zai.BuildUserPrompt(facts, nil)
		Expect(prompt).To(ContainSubstring("Recent Commits:"))
		Expect(prompt).To(ContainSubstring("- fiks race i planleggeren"))
		Expect(prompt).NotTo(ContainSubstring("lang forklaring"))
	})

	It("skal kutte lange prøver til promptgrensen", func() {
		long := make([]byte, 2000)
		for i := range long {
			long[i] = 'x'
		}
		prompt := zai.BuildUserPrompt(demoFacts(), map[string]string{"big.go": string(long)})
		Expect(len(prompt)).To(BeNumerically("<", 2500))
	})
})
