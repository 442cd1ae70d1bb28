package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocalProvider_GenerateStripsEchoedPrompt(t *testing.T) {
	var got localGenerateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// Model echoes the prompt back before answering.
		_ = json.NewEncoder(w).Encode(localGenerateResp{
			Response: got.Prompt + " Hi! How can I help?",
		})
	}))
	defer srv.Close()

	p := NewLocalProvider(srv.URL, "test-model", 150)
	out, err := p.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "Hi! How can I help?" {
		t.Fatalf("prompt echo not stripped: %q", out)
	}

	if got.Model != "test-model" || got.Stream {
		t.Fatalf("unexpected request: model=%q stream=%v", got.Model, got.Stream)
	}
	if got.Options.Temperature != 0.7 || got.Options.TopP != 0.9 ||
		got.Options.RepeatPenalty != 1.2 || got.Options.NumPredict != 150 {
		t.Fatalf("unexpected sampling options: %+v", got.Options)
	}
}

func TestLocalProvider_ErrorPayloadIsGenerationFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(localGenerateResp{Error: "model not loaded"})
	}))
	defer srv.Close()

	p := NewLocalProvider(srv.URL, "", 0)
	_, err := p.Generate(context.Background(), "hello")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestLocalProvider_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	p := NewLocalProvider(srv.URL, "", 0)
	_, err := p.Generate(context.Background(), "hello")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCutRepeatedNgram(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"the cat sat on the mat", "the cat sat on the mat"},
		{"I am here I am here I am here", "I am here"},
		{"well anyway stop it now stop it now", "well anyway stop it now"},
		{"too short", "too short"},
	}
	for _, tc := range cases {
		if got := cutRepeatedNgram(tc.in, 3); got != tc.want {
			t.Fatalf("cutRepeatedNgram(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
