package ai

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// EmptyReplyPlaceholder replaces an empty or whitespace-only generation so
// that persisted exchanges always carry a non-empty response.
const EmptyReplyPlaceholder = "I apologize, but I couldn't generate a proper response. Could you please rephrase your question?"

// Gateway owns the provider table and the fallback policy. It carries no
// state beyond the handles; the table is built once at startup and is
// read-only afterwards.
type Gateway struct {
	providers   map[ProviderName]Provider
	order       []ProviderName
	callTimeout time.Duration
}

// NewGateway builds the gateway with providers in preference order. The
// first entry is the primary; fallback walks the order exactly once.
func NewGateway(callTimeout time.Duration, providers ...Provider) *Gateway {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	g := &Gateway{
		providers:   make(map[ProviderName]Provider, len(providers)),
		order:       make([]ProviderName, 0, len(providers)),
		callTimeout: callTimeout,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
		g.order = append(g.order, p.Name())
	}
	return g
}

// Available returns the names of currently configured providers in
// preference order.
func (g *Gateway) Available() []ProviderName {
	out := make([]ProviderName, 0, len(g.order))
	for _, name := range g.order {
		if p := g.providers[name]; p != nil && p.Configured() {
			out = append(out, name)
		}
	}
	return out
}

// Reply generates a response for message, preferring requested and falling
// back through the remaining providers at most once each. It returns the
// text together with the provider that actually produced it, which may
// differ from requested. Empty output is substituted, never propagated.
func (g *Gateway) Reply(ctx context.Context, message string, requested ProviderName) (string, ProviderName, error) {
	for _, name := range g.attemptOrder(requested) {
		p := g.providers[name]
		if p == nil || !p.Configured() {
			continue
		}

		text, err := g.generate(ctx, p, message)
		if err != nil {
			if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrGenerationFailed) {
				log.Printf("gateway: provider=%s failed, falling back: %v", name, err)
				continue
			}
			// Caller cancellation and other faults are not retried.
			return "", "", err
		}

		if strings.TrimSpace(text) == "" {
			text = EmptyReplyPlaceholder
		}
		return text, name, nil
	}
	return "", "", ErrNoProviderAvailable
}

// attemptOrder puts the requested provider first, then the rest of the
// preference order. Each provider is attempted at most once.
func (g *Gateway) attemptOrder(requested ProviderName) []ProviderName {
	out := make([]ProviderName, 0, len(g.order))
	if _, ok := g.providers[requested]; ok {
		out = append(out, requested)
	}
	for _, name := range g.order {
		if name != requested {
			out = append(out, name)
		}
	}
	return out
}

func (g *Gateway) generate(ctx context.Context, p Provider, message string) (string, error) {
	// A hung provider call must not hold the request forever.
	cctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	return p.Generate(cctx, message)
}
