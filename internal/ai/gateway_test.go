package ai

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	name       ProviderName
	configured bool
	text       string
	err        error
	calls      int
}

func (p *fakeProvider) Name() ProviderName { return p.name }
func (p *fakeProvider) Configured() bool   { return p.configured }

func (p *fakeProvider) Generate(ctx context.Context, message string) (string, error) {
	_ = ctx
	_ = message
	p.calls++
	return p.text, p.err
}

func TestReply_PrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: ProviderGemini, configured: true, text: "hello there"}
	secondary := &fakeProvider{name: ProviderLocal, configured: true, text: "fallback"}
	g := NewGateway(0, primary, secondary)

	text, used, err := g.Reply(context.Background(), "hi", ProviderGemini)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("unexpected text: %q", text)
	}
	if used != ProviderGemini {
		t.Fatalf("expected provider %q, got %q", ProviderGemini, used)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary should not be called, got %d calls", secondary.calls)
	}
}

func TestReply_FallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: ProviderGemini, configured: true, err: ErrGenerationFailed}
	secondary := &fakeProvider{name: ProviderLocal, configured: true, text: "from local"}
	g := NewGateway(0, primary, secondary)

	text, used, err := g.Reply(context.Background(), "hi", ProviderGemini)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if text != "from local" {
		t.Fatalf("unexpected text: %q", text)
	}
	if used != ProviderLocal {
		t.Fatalf("expected fallback provider %q, got %q", ProviderLocal, used)
	}
	if primary.calls != 1 {
		t.Fatalf("primary must be attempted exactly once, got %d", primary.calls)
	}
	if secondary.calls != 1 {
		t.Fatalf("secondary must be attempted exactly once, got %d", secondary.calls)
	}
}

func TestReply_UnconfiguredPrimarySkipped(t *testing.T) {
	primary := &fakeProvider{name: ProviderGemini, configured: false, text: "never"}
	secondary := &fakeProvider{name: ProviderLocal, configured: true, text: "from local"}
	g := NewGateway(0, primary, secondary)

	_, used, err := g.Reply(context.Background(), "hi", ProviderGemini)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if used != ProviderLocal {
		t.Fatalf("expected %q, got %q", ProviderLocal, used)
	}
	if primary.calls != 0 {
		t.Fatalf("unconfigured primary must not be called, got %d", primary.calls)
	}
}

func TestReply_EmptyOutputSubstituted(t *testing.T) {
	for _, out := range []string{"", "   \n\t "} {
		p := &fakeProvider{name: ProviderGemini, configured: true, text: out}
		g := NewGateway(0, p)

		text, used, err := g.Reply(context.Background(), "hi", ProviderGemini)
		if err != nil {
			t.Fatalf("reply with output %q: %v", out, err)
		}
		if text != EmptyReplyPlaceholder {
			t.Fatalf("expected placeholder for output %q, got %q", out, text)
		}
		if used != ProviderGemini {
			t.Fatalf("placeholder must still report the producing provider, got %q", used)
		}
	}
}

func TestReply_NoProviderAvailable(t *testing.T) {
	primary := &fakeProvider{name: ProviderGemini, configured: false}
	secondary := &fakeProvider{name: ProviderLocal, configured: true, err: ErrProviderUnavailable}
	g := NewGateway(0, primary, secondary)

	_, _, err := g.Reply(context.Background(), "hi", ProviderGemini)
	if !errors.Is(err, ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}

func TestReply_RequestedSecondaryAttemptedFirst(t *testing.T) {
	primary := &fakeProvider{name: ProviderGemini, configured: true, text: "from gemini"}
	secondary := &fakeProvider{name: ProviderLocal, configured: true, text: "from local"}
	g := NewGateway(0, primary, secondary)

	text, used, err := g.Reply(context.Background(), "hi", ProviderLocal)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if used != ProviderLocal || text != "from local" {
		t.Fatalf("requested provider not honored: used=%q text=%q", used, text)
	}
	if primary.calls != 0 {
		t.Fatalf("primary should not be called when secondary was requested and succeeded")
	}
}

func TestAvailable_ListsConfiguredInOrder(t *testing.T) {
	primary := &fakeProvider{name: ProviderGemini, configured: false}
	secondary := &fakeProvider{name: ProviderLocal, configured: true}
	g := NewGateway(0, primary, secondary)

	got := g.Available()
	if len(got) != 1 || got[0] != ProviderLocal {
		t.Fatalf("unexpected available providers: %v", got)
	}
}

func TestParseProviderName(t *testing.T) {
	cases := []struct {
		in      string
		want    ProviderName
		wantErr bool
	}{
		{"", ProviderGemini, false},
		{"gemini", ProviderGemini, false},
		{" Local ", ProviderLocal, false},
		{"gpt5", "", true},
	}
	for _, tc := range cases {
		got, err := ParseProviderName(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownProvider) {
				t.Fatalf("parse %q: expected ErrUnknownProvider, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
