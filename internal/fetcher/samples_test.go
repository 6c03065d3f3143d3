package fetcher_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/fetcher"
)

var _ = Describe("IsSampleCandidate", func() {
	It("skal godta kjente kodefil-endelser", func() {
		Expect(fetcher.IsSampleCandidate("cmd/main.go")).To(BeTrue())
		Expect(fetcher.IsSampleCandidate("src/app.py")).To(BeTrue())
		Expect(fetcher.IsSampleCandidate("lib/Parser.RS")).To(BeTrue())
	})

	It("skal avvise andre filtyper", func() {
		Expect(fetcher.IsSampleCandidate("README.md")).To(BeFalse())
		Expect(fetcher.IsSampleCandidate("assets/logo.png")).To(BeFalse())
	})

	It("skal avvise skjulte filer og tomme stier", func() {
		Expect(fetcher.IsSampleCandidate(".github/workflows/ci.js")).To(BeFalse())
		Expect(fetcher.IsSampleCandidate("")).To(BeFalse())
	})

	It("skal avvise for lange stier", func() {
		long := strings.Repeat("a/", 60) + "main.go"
		Expect(fetcher.IsSampleCandidate(long)).To(BeFalse())
	})
})

var _ = Describe("Truncate", func() {
	It("skal la korte innhold være i fred", func() {
		Expect(fetcher.Truncate("kort")).To(Equal("kort"))
	})

	It("skal kutte ved 2000 tegn og legge på markør", func() {
		long := strings.Repeat("x", 3000)
		got := fetcher.Truncate(long)
		Expect(got).To(HaveSuffix("... (truncated)"))
		Expect(len(got)).To(Equal(2000 + len("\n\n... (truncated)")))
	})
})

var _ = Describe("SampleFiles", func() {
	var originalClient *http.Client

	BeforeEach(func() {
		originalClient = fetcher.HttpClient
	})

	AfterEach(func() {
		fetcher.HttpClient = originalClient
	})

	b64 := func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}

	It("skal hente inntil maxFiles kodefiler og hoppe stille over feil", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/navikt/demo", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `{"default_branch": "main"}`)
		})
		mux.HandleFunc("/repos/navikt/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `{"tree": [
				{"path": "main.go", "type": "blob"},
				{"path": "README.md", "type": "blob"},
				{"path": "broken.py", "type": "blob"},
				{"path": "app.js", "type": "blob"},
				{"path": "extra.rb", "type": "blob"}
			]}`)
		})
		mux.HandleFunc("/repos/navikt/demo/contents/", func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimPrefix(r.URL.Path, "/repos/navikt/demo/contents/")
			switch path {
			case "main.go":
				_, _ = fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`, b64("package main"))
			case "broken.py":
				w.WriteHeader(http.StatusInternalServerError)
			case "app.js":
				_, _ = fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`, b64("console.log('hei')"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()
		fetcher.HttpClient = ts.Client()

		c := &fetcher.Client{Token: "t", BaseURL: ts.URL, Retry: config.RetryPolicy{Attempts: 1}}
		samples, err := c.SampleFiles(context.Background(), "https://github.com/navikt/demo", 2)
		Expect(err).To(BeNil())

		// README.md er ikke kandidat, broken.py hoppes over
		Expect(samples).To(HaveLen(2))
		Expect(samples).To(HaveKeyWithValue("main.go", "package main"))
		Expect(samples).To(HaveKeyWithValue("app.js", "console.log('hei')"))
	})

	It("skal hoppe over binært innhold", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/navikt/demo", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `{"default_branch": "main"}`)
		})
		mux.HandleFunc("/repos/navikt/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `{"tree": [{"path": "blob.go", "type": "blob"}]}`)
		})
		mux.HandleFunc("/repos/navikt/demo/contents/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`,
				base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00}))
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()
		fetcher.HttpClient = ts.Client()

		c := &fetcher.Client{Token: "t", BaseURL: ts.URL, Retry: config.RetryPolicy{Attempts: 1}}
		samples, err := c.SampleFiles(context.Background(), "https://github.com/navikt/demo", 3)
		Expect(err).To(BeNil())
		Expect(samples).To(BeEmpty())
	})

	It("skal feile når treet ikke kan hentes", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/navikt/demo", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `{"default_branch": "main"}`)
		})
		mux.HandleFunc("/repos/navikt/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()
		fetcher.HttpClient = ts.Client()

		c := &fetcher.Client{Token: "t", BaseURL: ts.URL, Retry: config.RetryPolicy{Attempts: 1}}
		_, err := c.SampleFiles(context.Background(), "https://github.com/navikt/demo", 3)
		Expect(err).To(MatchError(fetcher.ErrUpstream))
	})
})
