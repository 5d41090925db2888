// Package providers adapts external text-generation endpoints to a single
// "generate N multiple-choice questions" contract.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/SAP-F-2025/material-question-service/internal/models"
)

var (
	// ErrRateLimited is returned when the upstream reports a rate limit.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUpstream hides any other upstream failure; the raw message is only logged.
	ErrUpstream = errors.New("provider request failed")
	// ErrProtocolViolation is returned when a response has the wrong count or shape.
	ErrProtocolViolation = errors.New("provider protocol violation")
	// ErrTimeout is returned when a call outlives its per-attempt budget.
	ErrTimeout = errors.New("provider call timed out")
	// ErrUnavailable is returned when a provider has no credential configured.
	ErrUnavailable = errors.New("provider not configured")
)

type Request struct {
	Text          string
	CourseLabel   string
	TopicLabel    string
	Difficulty    models.DifficultyLevel
	Count         int
	ExcludedTexts []string
}

// Provider generates exactly Request.Count shape-valid questions or fails.
type Provider interface {
	Name() string
	// Available reports whether the provider has the credential it needs.
	Available() bool
	Generate(ctx context.Context, req Request) ([]models.CandidateQuestion, error)
}

// SelectOrdered returns the providers named in order. Unknown names are an
// error. Providers left out are closed when they hold a client.
func SelectOrdered(order []string, all ...Provider) ([]Provider, error) {
	byName := make(map[string]Provider, len(all))
	for _, p := range all {
		byName[p.Name()] = p
	}

	selected := make([]Provider, 0, len(order))
	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		selected = append(selected, p)
	}

	for _, p := range all {
		if slices.Contains(selected, p) {
			continue
		}
		if closer, ok := p.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				return nil, fmt.Errorf("failed to close unused provider %q: %w", p.Name(), err)
			}
		}
	}
	return selected, nil
}
