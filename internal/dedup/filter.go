// Package dedup suppresses candidate questions whose normalized stem has
// already been stored or accepted.
package dedup

import (
	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/utils"
)

// SeenSet holds normalized stems. The zero value is not usable; use NewSeenSet.
type SeenSet struct {
	keys map[string]struct{}
}

func NewSeenSet(texts ...string) *SeenSet {
	s := &SeenSet{keys: make(map[string]struct{}, len(texts))}
	for _, text := range texts {
		s.Add(text)
	}
	return s
}

// Add records text and reports whether it was new. Blank stems are never added.
func (s *SeenSet) Add(text string) bool {
	key := utils.NormalizeText(text)
	if key == "" {
		return false
	}
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *SeenSet) Contains(text string) bool {
	_, ok := s.keys[utils.NormalizeText(text)]
	return ok
}

func (s *SeenSet) Len() int {
	return len(s.keys)
}

// Filter keeps candidates whose stem is new to seen, in input order, and
// adds each survivor to seen.
func Filter(candidates []models.CandidateQuestion, seen *SeenSet) []models.CandidateQuestion {
	survivors := make([]models.CandidateQuestion, 0, len(candidates))
	for _, c := range candidates {
		if seen.Add(c.Text) {
			survivors = append(survivors, c)
		}
	}
	return survivors
}
