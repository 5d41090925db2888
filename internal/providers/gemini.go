package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	GeminiName         = "gemini"
	defaultGeminiModel = "gemini-1.5-flash"
)

type GeminiConfig struct {
	APIKey         string
	Model          string
	MaxSourceChars int
}

type GeminiProvider struct {
	client         *genai.Client
	model          *genai.GenerativeModel
	maxSourceChars int
	validator      *validator.BusinessValidator
	logger         *slog.Logger
}

// NewGeminiProvider builds the adapter. Without an API key the provider is
// returned unavailable instead of failing.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, v *validator.Validator, logger *slog.Logger) (*GeminiProvider, error) {
	p := &GeminiProvider{
		maxSourceChars: cfg.MaxSourceChars,
		validator:      v.GetBusinessValidator(),
		logger:         logger,
	}
	if cfg.APIKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0.4)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = geminiQuestionSchema()

	p.client = client
	p.model = model
	return p, nil
}

func (p *GeminiProvider) Name() string { return GeminiName }

func (p *GeminiProvider) Available() bool { return p.model != nil }

func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) ([]models.CandidateQuestion, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	resp, err := p.model.GenerateContent(ctx, genai.Text(buildPrompt(req, p.maxSourceChars)))
	if err != nil {
		return nil, p.mapError(ctx, err)
	}

	raw := extractText(resp)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response", ErrProtocolViolation)
	}

	candidates, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	if err := checkShape(p.validator, candidates, req.Count); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (p *GeminiProvider) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.logger.Warn("Gemini request failed", "error", err)
	if isGeminiRateLimit(err) {
		return ErrRateLimited
	}
	return ErrUpstream
}

func isGeminiRateLimit(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}
	return status.Code(err) == codes.ResourceExhausted
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

func geminiQuestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text":           {Type: genai.TypeString},
						"options":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
						"correct_answer": {Type: genai.TypeString, Enum: models.OptionLabels},
						"explanation":    {Type: genai.TypeString},
						"difficulty":     {Type: genai.TypeString, Enum: []string{"easy", "medium", "hard"}},
					},
					Required: []string{"text", "options", "correct_answer", "explanation"},
				},
			},
		},
		Required: []string{"questions"},
	}
}
