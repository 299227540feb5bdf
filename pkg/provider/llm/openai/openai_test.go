package openai

import (
	"testing"

	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Fatal("New with empty apiKey should fail")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("New with empty model should fail")
	}
	if _, err := New("sk-test", "gpt-4o-mini"); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestBuildParams(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "bye"},
	}
	params, err := p.buildParams("persona", history)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if got := len(params.Messages); got != 4 {
		t.Fatalf("messages = %d, want 4 (system + 3 turns)", got)
	}
	if string(params.Model) != "gpt-4o-mini" {
		t.Errorf("model = %q", params.Model)
	}
	if !params.MaxCompletionTokens.Valid() || params.MaxCompletionTokens.Value != 512 {
		t.Errorf("MaxCompletionTokens = %+v, want 512", params.MaxCompletionTokens)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.7 {
		t.Errorf("Temperature = %+v, want 0.7", params.Temperature)
	}
}

func TestBuildParams_UnknownRole(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.buildParams("", []llm.Message{{Role: "tool", Content: "x"}}); err == nil {
		t.Fatal("unknown role should fail")
	}
}
