package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiProvider_DirectCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		_ = json.NewEncoder(w).Encode(geminiGenerateResp{
			Candidates: []struct {
				Content geminiContent `json:"content"`
			}{
				{Content: geminiContent{Parts: []geminiPart{{Text: "direct answer"}}}},
			},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "gemini-2.0-flash")
	out, err := p.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "direct answer" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGeminiProvider_DegradesToCompatEndpoint(t *testing.T) {
	var compatCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ":generateContent") {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/chat/completions") {
			compatCalled = true
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				t.Errorf("compat call missing bearer auth")
			}
			_ = json.NewEncoder(w).Encode(geminiCompatResp{
				Choices: []struct {
					Message geminiCompatMsg `json:"message"`
				}{
					{Message: geminiCompatMsg{Role: "assistant", Content: "compat answer"}},
				},
			})
			return
		}
		t.Errorf("unexpected path: %s", r.URL.Path)
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "gemini-2.0-flash")
	out, err := p.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !compatCalled {
		t.Fatalf("expected degrade to the compat endpoint")
	}
	if out != "compat answer" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGeminiProvider_NoKeyIsUnavailable(t *testing.T) {
	p := NewGeminiProvider("", "", "")
	if p.Configured() {
		t.Fatalf("provider without key must not report configured")
	}
	_, err := p.Generate(context.Background(), "hello")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestGeminiProvider_BothEndpointsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "")
	_, err := p.Generate(context.Background(), "hello")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGeminiProvider_EmptyCandidatesIsEmptySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiGenerateResp{})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "")
	out, err := p.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("empty candidates must not be an error, got %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
