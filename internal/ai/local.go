package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const promptStop = "\nAssistant:"

// LocalProvider runs sequence generation against a local Ollama instance.
// Sampling is tuned for dialogue: nucleus filtering, moderate temperature,
// a repetition penalty, and a bounded output length; looping output is cut
// at the first repeated trigram.
type LocalProvider struct {
	BaseURL   string
	Model     string
	MaxTokens int
	Client    *http.Client
}

func NewLocalProvider(baseURL, model string, maxTokens int) *LocalProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	if maxTokens <= 0 {
		maxTokens = 150
	}
	return &LocalProvider{
		BaseURL:   baseURL,
		Model:     model,
		MaxTokens: maxTokens,
		Client:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *LocalProvider) Name() ProviderName { return ProviderLocal }

// Configured is always true: the local pipeline needs no credential, and
// reachability only shows at call time.
func (p *LocalProvider) Configured() bool { return true }

type localGenerateReq struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	Stream  bool         `json:"stream"`
	Options localOptions `json:"options"`
}

type localOptions struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	NumPredict    int     `json:"num_predict"`
}

type localGenerateResp struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (p *LocalProvider) Generate(ctx context.Context, message string) (string, error) {
	if p.Client == nil {
		return "", fmt.Errorf("%w: local: http client is nil", ErrProviderUnavailable)
	}

	reqBody := localGenerateReq{
		Model:  p.Model,
		Prompt: fmt.Sprintf("User: %s%s", message, promptStop),
		Stream: false,
		Options: localOptions{
			Temperature:   0.7,
			TopP:          0.9,
			RepeatPenalty: 1.2,
			NumPredict:    p.MaxTokens,
		},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: local: %v", ErrGenerationFailed, err)
	}

	url := fmt.Sprintf("%s/api/generate", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: local: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: local: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: local: %s", ErrGenerationFailed, httpErrorDetail(resp))
	}

	var decoded localGenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: local: %v", ErrGenerationFailed, err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("%w: local: %s", ErrGenerationFailed, decoded.Error)
	}

	out := stripEchoedPrompt(decoded.Response)
	return cutRepeatedNgram(out, 3), nil
}

// stripEchoedPrompt drops everything up to and including the last
// "Assistant:" marker when the model echoes the prompt back.
func stripEchoedPrompt(text string) string {
	if i := strings.LastIndex(text, strings.TrimSpace(promptStop)); i >= 0 {
		text = text[i+len(strings.TrimSpace(promptStop)):]
	}
	return strings.TrimSpace(text)
}

// cutRepeatedNgram truncates the output at the first word n-gram that
// immediately repeats itself, which is how small local models loop.
func cutRepeatedNgram(text string, n int) string {
	words := strings.Fields(text)
	if len(words) < 2*n {
		return text
	}
	for i := 0; i+2*n <= len(words); i++ {
		match := true
		for j := 0; j < n; j++ {
			if words[i+j] != words[i+n+j] {
				match = false
				break
			}
		}
		if match {
			return strings.Join(words[:i+n], " ")
		}
	}
	return text
}
