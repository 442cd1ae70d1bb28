package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProviderName is the closed set of generation backends. Client-supplied
// hints are parsed into this type once at the channel boundary; internal
// logic never threads free-form strings.
type ProviderName string

const (
	// ProviderGemini is the hosted primary backend.
	ProviderGemini ProviderName = "gemini"
	// ProviderLocal is the local-inference fallback backend.
	ProviderLocal ProviderName = "local"
)

var (
	// ErrProviderUnavailable: the backend could not be reached or is not
	// configured for use.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrGenerationFailed: the backend answered but could not produce a
	// generation. Distinct from a successful empty generation, which is
	// ("", nil).
	ErrGenerationFailed = errors.New("generation failed")
	// ErrNoProviderAvailable: every provider in the fallback chain was
	// exhausted. Fatal for the request.
	ErrNoProviderAvailable = errors.New("no provider available")
	// ErrUnknownProvider: the requested name is outside the closed set.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ParseProviderName resolves a client hint. An empty hint selects the
// primary provider; both channels share this default.
func ParseProviderName(s string) (ProviderName, error) {
	switch ProviderName(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ProviderGemini, nil
	case ProviderGemini:
		return ProviderGemini, nil
	case ProviderLocal:
		return ProviderLocal, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, s)
	}
}

// Provider is one generation backend. Generate performs a single blocking
// call and returns the raw generated text; it never persists anything.
type Provider interface {
	Name() ProviderName
	// Configured reports whether the provider has what it needs (e.g. a
	// credential) to be attempted at all.
	Configured() bool
	Generate(ctx context.Context, message string) (string, error)
}
