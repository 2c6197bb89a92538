package llm

import (
	"context"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{"dry", Config{Provider: ProviderDry}, ProviderDry, false},
		{"anthropic with key", Config{Provider: ProviderAnthropic, APIKey: "test-key"}, ProviderAnthropic, false},
		{"empty defaults to anthropic", Config{APIKey: "test-key"}, ProviderAnthropic, false},
		{"unknown", Config{Provider: "openai"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}

func TestNewClient_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("NewClient should fail without API key")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Model() != string(anthropic.ModelClaudeSonnet4_20250514) {
		t.Errorf("Model = %q, want default sonnet", client.Model())
	}
	if client.maxTokens != defaultMaxTokens {
		t.Errorf("maxTokens = %d, want %d", client.maxTokens, defaultMaxTokens)
	}
	if client.Tracker() == nil {
		t.Error("Tracker should not be nil")
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		in   anthropic.Model
		want anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_20250514, "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{"us.anthropic.custom-v1:0", "us.anthropic.custom-v1:0"},
		{"my-custom-model", "my-custom-model"},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := translateModelForBedrock(tt.in); got != tt.want {
				t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDry_Complete(t *testing.T) {
	d := NewDry("")
	if d.Model() != "dry-run" {
		t.Errorf("Model() = %q, want dry-run", d.Model())
	}

	c, err := d.Complete(context.Background(), "", "abcdefgh")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !c.Estimated {
		t.Error("dry completions should be estimated")
	}
	if c.PromptTokens != 2 {
		t.Errorf("PromptTokens = %d, want 2", c.PromptTokens)
	}
	if c.CompletionTokens == 0 {
		t.Error("CompletionTokens should be non-zero")
	}

	in, out := d.Tracker().Total()
	if in != c.PromptTokens || out != c.CompletionTokens {
		t.Errorf("tracker totals = (%d, %d), want (%d, %d)", in, out, c.PromptTokens, c.CompletionTokens)
	}
	if d.Tracker().Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", d.Tracker().Calls())
	}
}

func TestDry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewDry("m").Complete(ctx, "", "x"); err == nil {
		t.Error("expected error for canceled context")
	}
}
