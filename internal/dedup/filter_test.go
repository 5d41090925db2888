package dedup

import (
	"testing"

	"github.com/SAP-F-2025/material-question-service/internal/models"
)

func candidate(text string) models.CandidateQuestion {
	return models.CandidateQuestion{
		Text:    text,
		Options: map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		corpus   []string
		input    []string
		expected []string
	}{
		{
			name:     "empty corpus keeps distinct stems",
			input:    []string{"What is Go?", "What is Rust?"},
			expected: []string{"What is Go?", "What is Rust?"},
		},
		{
			name:     "corpus duplicates dropped",
			corpus:   []string{"what is go"},
			input:    []string{"What is Go?", "What is Rust?"},
			expected: []string{"What is Rust?"},
		},
		{
			name:     "within batch duplicates keep first",
			input:    []string{"What is Go?", "  WHAT is   go ", "What is Go!!!"},
			expected: []string{"What is Go?"},
		},
		{
			name:     "blank stems dropped",
			input:    []string{"???", "", "Real question"},
			expected: []string{"Real question"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input []models.CandidateQuestion
			for _, text := range tt.input {
				input = append(input, candidate(text))
			}

			got := Filter(input, NewSeenSet(tt.corpus...))
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d survivors, got %d (%v)", len(tt.expected), len(got), models.CandidateTexts(got))
			}
			for i := range got {
				if got[i].Text != tt.expected[i] {
					t.Errorf("survivor %d = %q, want %q", i, got[i].Text, tt.expected[i])
				}
			}
		})
	}
}

func TestFilterAccumulatesAcrossPasses(t *testing.T) {
	seen := NewSeenSet()

	first := Filter([]models.CandidateQuestion{candidate("Define entropy.")}, seen)
	second := Filter([]models.CandidateQuestion{candidate("define entropy"), candidate("Define enthalpy.")}, seen)

	if len(first) != 1 {
		t.Fatalf("expected first pass to keep 1, got %d", len(first))
	}
	if len(second) != 1 || second[0].Text != "Define enthalpy." {
		t.Fatalf("expected only the new stem on the second pass, got %v", models.CandidateTexts(second))
	}
	if seen.Len() != 2 {
		t.Errorf("expected 2 seen stems, got %d", seen.Len())
	}
	if !seen.Contains("DEFINE ENTROPY!") {
		t.Error("expected seen set to match by normalized stem")
	}
}

func TestFilterNeverEmitsDuplicateStems(t *testing.T) {
	stems := []string{"A b c", "a, b, c", "A-B-C", "abc", "a  b c.", "x y"}
	var input []models.CandidateQuestion
	for _, s := range stems {
		input = append(input, candidate(s))
	}

	got := Filter(input, NewSeenSet())
	keys := NewSeenSet()
	for _, c := range got {
		if !keys.Add(c.Text) {
			t.Errorf("duplicate normalized stem survived: %q", c.Text)
		}
	}
}
