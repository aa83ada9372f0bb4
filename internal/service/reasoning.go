package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"cognicare/internal/config"
)

// ErrNoProvider is returned when no reasoning provider is configured or
// every configured provider failed. Call sites must treat it like any
// other provider failure and fall through to their deterministic path.
var ErrNoProvider = errors.New("no reasoning provider available")

// Provider is the reasoning-service capability: a single free-text
// completion for a prompt
type Provider interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// GeminiProvider calls the Gemini generateContent endpoint
type GeminiProvider struct {
	cfg    *config.AIConfig
	client *http.Client
}

// NewGeminiProvider creates the primary provider
func NewGeminiProvider(cfg *config.AIConfig) *GeminiProvider {
	return &GeminiProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": maxTokens,
			"temperature":     temperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", p.cfg.GeminiEndpoint(), p.cfg.GeminiAPIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		text := geminiResp.Candidates[0].Content.Parts[0].Text
		if text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("empty response from gemini")
}

// ChatProvider calls an OpenAI-compatible chat-completions endpoint;
// the secondary path when Gemini is down or unconfigured
type ChatProvider struct {
	cfg    *config.AIConfig
	client *resty.Client
}

// NewChatProvider creates the secondary provider
func NewChatProvider(cfg *config.AIConfig) *ChatProvider {
	client := resty.New().
		SetBaseURL(cfg.ChatBaseURL).
		SetTimeout(time.Duration(cfg.TimeoutMS) * time.Millisecond).
		SetHeader("Authorization", "Bearer "+cfg.ChatAPIKey)
	return &ChatProvider{cfg: cfg, client: client}
}

func (p *ChatProvider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model": p.cfg.ChatModel,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"max_tokens":  maxTokens,
			"temperature": temperature,
		}).
		SetResult(&chatResp).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat endpoint returned status %d", resp.StatusCode())
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from chat endpoint")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// ReasoningClient runs the primary/secondary provider chain with a
// bounded timeout per attempt. It never retries beyond the single
// secondary attempt; callers substitute their rule-based fallback on
// any error.
type ReasoningClient struct {
	cfg       *config.AIConfig
	primary   Provider
	secondary Provider
	logger    *zap.Logger
}

// NewReasoningClient wires the configured providers
func NewReasoningClient(cfg *config.AIConfig, logger *zap.Logger) *ReasoningClient {
	c := &ReasoningClient{cfg: cfg, logger: logger}
	if cfg.PrimaryEnabled() {
		c.primary = NewGeminiProvider(cfg)
	}
	if cfg.SecondaryEnabled() {
		c.secondary = NewChatProvider(cfg)
	}
	return c
}

// newClientWithProviders exists for tests to inject fake providers
func newClientWithProviders(cfg *config.AIConfig, primary, secondary Provider, logger *zap.Logger) *ReasoningClient {
	return &ReasoningClient{cfg: cfg, primary: primary, secondary: secondary, logger: logger}
}

// Complete tries the primary provider, then the secondary once. Timeout
// is treated identically to any other provider failure.
func (c *ReasoningClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	timeout := time.Duration(c.cfg.TimeoutMS) * time.Millisecond

	if c.primary != nil {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := c.primary.Complete(callCtx, prompt, maxTokens, temperature)
		cancel()
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			c.logger.Warn("primary reasoning provider failed", zap.Error(err))
		}
	}

	if c.secondary != nil {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := c.secondary.Complete(callCtx, prompt, maxTokens, temperature)
		cancel()
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			c.logger.Warn("secondary reasoning provider failed", zap.Error(err))
		}
	}

	return "", ErrNoProvider
}

// extractJSON pulls the JSON object out of a free-text model response:
// fenced code-block content first, then the first brace-to-matching-brace
// substring
func extractJSON(text string) (string, error) {
	if fenced := extractFenced(text); fenced != "" {
		return fenced, nil
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

func extractFenced(text string) string {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		rest := text[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if strings.HasPrefix(candidate, "{") {
			return candidate
		}
	}
	return ""
}
