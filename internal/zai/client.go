package zai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kittinan/git-soul/internal/config"
	"github.com/kittinan/git-soul/internal/models"
)

// Injecter en klient (for testbarhet)
var HttpClient = http.DefaultClient

// Client kaller Z AI sitt chat completions-API og oversetter svaret til
// et validert personlighetsresultat.
type Client struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
	Retry   config.RetryPolicy
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		APIKey:  cfg.ZAIKey,
		APIURL:  cfg.ZAIURL,
		Model:   cfg.ZAIModel,
		Timeout: 60 * time.Second,
		Retry:   cfg.Retry,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// AnalyzeRepository sender repo-fakta og kodeprøver til modellen og
// returnerer et resultat som har bestått skjemavalideringen.
func (c *Client) AnalyzeRepository(ctx context.Context, facts *models.RepoFacts, samples map[string]string) (*models.PersonalityResult, error) {
	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildUserPrompt(facts, samples)},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("kunne ikke serialisere forespørsel: %w", err)
	}

	slog.Info("Sender analyse til inferens-API", "repo", facts.Repo.FullName, "model", c.Model, "samples", len(samples))

	attempts := c.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			slog.Debug("Prøver inferens på nytt", "forsøk", attempt)
			time.Sleep(c.Retry.Backoff)
		}

		var content string
		content, lastErr = c.complete(ctx, body)
		if lastErr != nil {
			continue
		}
		return parseAndValidate(content)
	}
	return nil, lastErr
}

// complete gjør selve API-kallet og returnerer modellens tekstsvar
// (choices[0].message.content).
func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := HttpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("Klarte ikke å lukke body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d – %s", ErrUpstream, resp.StatusCode, string(bodyBytes))
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: tomt svar uten choices", ErrMalformed)
	}

	return envelope.Choices[0].Message.Content, nil
}

// parseAndValidate tolker modellens tekst som strikt JSON og håndhever
// skjemaet. Ved parse-feil tas et utdrag av innholdet med i feilen for
// diagnostikk.
func parseAndValidate(content string) (*models.PersonalityResult, error) {
	var result models.PersonalityResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("%w: %v – innhold: %s", ErrMalformed, err, excerpt(content, 500))
	}

	if err := Validate(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
