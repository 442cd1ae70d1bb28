package ai

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
)

// GeminiProvider talks to the hosted Gemini service. The first attempt is a
// direct call to the native generateContent endpoint; if that errors, it
// degrades once to the service's OpenAI-compatible surface before giving up.
type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *GeminiProvider) Name() ProviderName { return ProviderGemini }

func (p *GeminiProvider) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

type geminiGenerateReq struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type geminiCompatReq struct {
	Model    string            `json:"model"`
	Messages []geminiCompatMsg `json:"messages"`
}

type geminiCompatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type geminiCompatResp struct {
	Choices []struct {
		Message geminiCompatMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) Generate(ctx context.Context, message string) (string, error) {
	if p.Client == nil {
		return "", fmt.Errorf("%w: gemini: http client is nil", ErrProviderUnavailable)
	}
	if !p.Configured() {
		return "", fmt.Errorf("%w: gemini: api key is required", ErrProviderUnavailable)
	}

	text, directErr := p.generateContent(ctx, message)
	if directErr == nil {
		return text, nil
	}

	// Direct endpoint errored; one degraded attempt against the
	// OpenAI-compatible surface of the same service.
	text, compatErr := p.chatCompletions(ctx, message)
	if compatErr == nil {
		return text, nil
	}
	return "", errors.Join(directErr, compatErr)
}

func (p *GeminiProvider) generateContent(ctx context.Context, message string) (string, error) {
	reqBody := geminiGenerateReq{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: message}}}},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrGenerationFailed, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(p.BaseURL, "/"), p.Model, p.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: gemini: %s", ErrGenerationFailed, httpErrorDetail(resp))
	}

	var decoded geminiGenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrGenerationFailed, err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", fmt.Errorf("%w: gemini: %s", ErrGenerationFailed, decoded.Error.Message)
	}
	// No candidates is a successful empty generation; the gateway decides
	// what to do with empty text.
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func (p *GeminiProvider) chatCompletions(ctx context.Context, message string) (string, error) {
	reqBody := geminiCompatReq{
		Model:    p.Model,
		Messages: []geminiCompatMsg{{Role: "user", Content: message}},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: gemini compat: %v", ErrGenerationFailed, err)
	}

	url := fmt.Sprintf("%s/v1beta/openai/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: gemini compat: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gemini compat: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: gemini compat: %s", ErrGenerationFailed, httpErrorDetail(resp))
	}

	var decoded geminiCompatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: gemini compat: %v", ErrGenerationFailed, err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", fmt.Errorf("%w: gemini compat: %s", ErrGenerationFailed, decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return decoded.Choices[0].Message.Content, nil
}

func httpErrorDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
}
