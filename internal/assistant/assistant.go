// Package assistant proxies wellness questions and article summarization to
// an OpenAI-compatible completion API. The server never exposes the API key
// to clients; requests carry only the question or article reference.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"hygge/internal/config"
	"hygge/internal/database"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	// articleFetchLimit bounds how much of an article body we read.
	articleFetchLimit = 256 * 1024
	// promptTextLimit bounds how much extracted text goes into the prompt.
	promptTextLimit = 12000
)

// Service answers questions and summarizes articles through the upstream
// completion API. Summaries are cached in sqlite keyed by article ID.
type Service struct {
	cfg    *config.AssistantConfig
	db     *database.Database
	logger *logrus.Logger
	apiKey string
	client *http.Client
}

// NewService creates the assistant service, loading the API key from the
// environment. Returns nil when disabled.
func NewService(cfg *config.AssistantConfig, db *database.Database, logger *logrus.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	// Load .env file if it exists (for the API key)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}
	}

	apiKey := os.Getenv("HYGGE_ASSISTANT_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("assistant API key not found. Set HYGGE_ASSISTANT_KEY in .env file or environment")
	}

	return &Service{
		cfg:    cfg,
		db:     db,
		logger: logger,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends one chat completion request and returns the reply text.
func (s *Service) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: s.cfg.MaxTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("completion API error: %s", msg)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Ask answers a free-form wellness question.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	system := "You are a calm, supportive wellness companion. Answer briefly and kindly. Do not give medical diagnoses; suggest professional help for serious concerns."

	answer, err := s.complete(ctx, system, question)
	if err != nil {
		s.logger.WithError(err).Warn("Assistant question failed")
		return "", err
	}
	return answer, nil
}

// Summarize returns a short summary of the article at url, serving from the
// sqlite cache when the article was summarized before.
func (s *Service) Summarize(ctx context.Context, articleURL, articleID string) (string, error) {
	if cached, err := s.db.GetSummary(articleID); err == nil && cached != "" {
		return cached, nil
	}

	text, err := s.fetchArticleText(ctx, articleURL)
	if err != nil {
		s.logger.WithError(err).WithField("url", articleURL).Warn("Failed to fetch article")
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}

	system := "You summarize wellness articles in 3 to 5 plain sentences for a reading list. No headings, no bullet points."
	summary, err := s.complete(ctx, system, text)
	if err != nil {
		s.logger.WithError(err).WithField("article_id", articleID).Warn("Article summarization failed")
		return "", err
	}

	if err := s.db.SaveSummary(articleID, articleURL, summary); err != nil {
		s.logger.WithError(err).WithField("article_id", articleID).Warn("Failed to cache summary")
	}

	return summary, nil
}

// fetchArticleText downloads the article and strips markup down to prompt
// sized plain text.
func (s *Service) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "hygge-companion/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article fetch returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, articleFetchLimit))
	if err != nil {
		return "", err
	}

	text := stripHTML(string(body))
	if len(text) > promptTextLimit {
		text = text[:promptTextLimit]
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("article produced no readable text")
	}

	return text, nil
}

// stripHTML reduces an HTML document to whitespace-normalized text. Script
// and style bodies are dropped entirely.
func stripHTML(html string) string {
	var b strings.Builder
	inTag := false
	skipDepth := 0
	i := 0

	lower := strings.ToLower(html)
	for i < len(html) {
		c := html[i]
		switch {
		case c == '<':
			inTag = true
			rest := lower[i:]
			if strings.HasPrefix(rest, "<script") || strings.HasPrefix(rest, "<style") {
				skipDepth++
			} else if strings.HasPrefix(rest, "</script") || strings.HasPrefix(rest, "</style") {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case c == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag && skipDepth == 0:
			b.WriteByte(c)
		}
		i++
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
