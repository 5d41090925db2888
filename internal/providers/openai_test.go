package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SAP-F-2025/material-question-service/internal/validator"
	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
	}, validator.New(), logger)
}

func toolCallResponse(args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call_1",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      submitQuestionsFn,
						Arguments: args,
					},
				}},
			},
			FinishReason: openai.FinishReasonToolCalls,
		}},
	}
}

func TestOpenAIProviderGenerate(t *testing.T) {
	var gotRequest openai.ChatCompletionRequest
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toolCallResponse(payloadJSON(2, 4, "C")))
	})

	questions, err := p.Generate(context.Background(), Request{Text: "cells divide", Count: 2, ExcludedTexts: []string{"Old question?"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 2 || questions[1].Answer != "C" || questions[0].Options["D"] != "option 3" {
		t.Fatalf("unexpected questions %+v", questions)
	}

	if len(gotRequest.Tools) != 1 || gotRequest.Tools[0].Function.Name != submitQuestionsFn {
		t.Errorf("expected submit_questions tool, got %+v", gotRequest.Tools)
	}
	if len(gotRequest.Messages) != 2 || !strings.Contains(gotRequest.Messages[1].Content, "Old question?") {
		t.Error("expected exclusions in the user prompt")
	}
}

func TestOpenAIProviderCountMismatch(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toolCallResponse(payloadJSON(1, 4, "A")))
	})

	_, err := p.Generate(context.Background(), Request{Text: "x", Count: 2})
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_error","code":"rate_limit_exceeded"}}`, ErrRateLimited},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"internal secret detail","type":"server_error"}}`, ErrUpstream},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Generate(context.Background(), Request{Text: "x", Count: 1})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if strings.Contains(err.Error(), "secret") {
				t.Errorf("upstream message leaked: %v", err)
			}
		})
	}
}

func TestOpenAIProviderWithoutKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{}, validator.New(), slog.Default())
	if p.Available() {
		t.Fatal("expected provider without key to be unavailable")
	}
	if _, err := p.Generate(context.Background(), Request{Count: 1}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
