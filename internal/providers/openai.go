package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
	openai "github.com/sashabaranov/go-openai"
)

const (
	OpenAIName         = "openai"
	submitQuestionsFn  = "submit_questions"
	defaultOpenAIModel = openai.GPT4oMini
)

type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxSourceChars int
}

type OpenAIProvider struct {
	client         *openai.Client
	model          string
	maxSourceChars int
	validator      *validator.BusinessValidator
	logger         *slog.Logger
}

func NewOpenAIProvider(cfg OpenAIConfig, v *validator.Validator, logger *slog.Logger) *OpenAIProvider {
	p := &OpenAIProvider{
		model:          cfg.Model,
		maxSourceChars: cfg.MaxSourceChars,
		validator:      v.GetBusinessValidator(),
		logger:         logger,
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		p.client = openai.NewClientWithConfig(clientCfg)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return OpenAIName }

func (p *OpenAIProvider) Available() bool { return p.client != nil }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) ([]models.CandidateQuestion, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req, p.maxSourceChars)},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitQuestionsFn,
					Description: "Submit generated multiple choice questions",
					Parameters:  questionSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: submitQuestionsFn},
		},
	})
	if err != nil {
		return nil, p.mapError(ctx, err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: no tool call in response", ErrProtocolViolation)
	}

	call := resp.Choices[0].Message.ToolCalls[0]
	if call.Function.Name != submitQuestionsFn {
		return nil, fmt.Errorf("%w: unexpected tool call %s", ErrProtocolViolation, call.Function.Name)
	}

	candidates, err := decodePayload(call.Function.Arguments)
	if err != nil {
		return nil, err
	}
	if err := checkShape(p.validator, candidates, req.Count); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (p *OpenAIProvider) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	p.logger.Warn("OpenAI request failed", "status", status, "error", err)
	if status == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return ErrUpstream
}
