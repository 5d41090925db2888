package providers

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/material-question-service/internal/validator"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"questions":`), genai.Text(`[]}`)}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	if got := extractText(resp); got != `{"questions":[]}` {
		t.Errorf("extractText() = %q", got)
	}

	if got := extractText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := extractText(nil); got != "" {
		t.Errorf("expected empty text for nil response, got %q", got)
	}
}

func TestIsGeminiRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rest 429", &googleapi.Error{Code: 429, Message: "quota"}, true},
		{"rest 500", &googleapi.Error{Code: 500}, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGeminiRateLimit(tt.err); got != tt.want {
				t.Errorf("isGeminiRateLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeminiProviderWithoutKey(t *testing.T) {
	p, err := NewGeminiProvider(context.Background(), GeminiConfig{}, validator.New(), slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Available() {
		t.Fatal("expected provider without key to be unavailable")
	}
	if _, err := p.Generate(context.Background(), Request{Count: 1}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestGeminiSchemaRequiresQuestions(t *testing.T) {
	schema := geminiQuestionSchema()
	items := schema.Properties["questions"].Items
	if items == nil || len(items.Required) != 4 {
		t.Fatalf("unexpected item schema %+v", items)
	}
	if got := items.Properties["correct_answer"].Enum; len(got) != 4 {
		t.Errorf("expected 4 answer labels, got %v", got)
	}
}
