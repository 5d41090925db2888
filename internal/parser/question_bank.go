// Package parser recognizes documents that already are formatted
// multiple-choice question banks.
package parser

import (
	"regexp"
	"strings"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/utils"
)

// MinQuestionBankSize is the number of valid blocks needed to call a document a bank.
const MinQuestionBankSize = 2

var (
	// "1.", "2)", "Q3:", "Question 4 -" followed by whitespace or end of line.
	// Outline numbering such as "1.1" is not a block start.
	questionStartPattern = regexp.MustCompile(`(?i)^\s*(?:q|question)?\s*(\d+)\s*[.):\-](?:\s+(.*))?$`)

	optionPattern = regexp.MustCompile(`^\s*\(?([A-Da-d])\s*[).:\-]\s*(\S.*)$`)

	answerMarkerPattern = regexp.MustCompile(`(?i)^\s*(?:correct\s+answer|correct|answer|ans)\s*[:\-=]`)
	answerPattern       = regexp.MustCompile(`(?i)^\s*(?:correct\s+answer|correct|answer|ans)\s*[:\-=]\s*\(?([A-D])\)?(?:[\s.)]|$)`)
)

type Result struct {
	IsQuestionBank bool
	Questions      []models.CandidateQuestion
	MissingAnswers int
}

type block struct {
	stem    []string
	options map[string]string
	answer  string
}

func newBlock(firstLine string) *block {
	b := &block{options: make(map[string]string, len(models.OptionLabels))}
	if strings.TrimSpace(firstLine) != "" {
		b.stem = append(b.stem, firstLine)
	}
	return b
}

func (b *block) candidate() (models.CandidateQuestion, bool) {
	c := models.CandidateQuestion{
		Text:    utils.CollapseWhitespace(strings.Join(b.stem, " ")),
		Options: b.options,
		Answer:  b.answer,
	}
	if c.Text == "" || !c.HasAllOptions() {
		return models.CandidateQuestion{}, false
	}
	return c, true
}

// Parse splits text into question blocks and keeps the ones carrying a stem
// and all four options. It never fails; unrecognized input yields an empty result.
func Parse(text string) Result {
	var (
		blocks  []*block
		current *block
	)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := questionStartPattern.FindStringSubmatch(line); m != nil {
			current = newBlock(m[2])
			blocks = append(blocks, current)
			continue
		}

		// Preamble before the first question is ignored
		if current == nil {
			continue
		}

		if answerMarkerPattern.MatchString(line) {
			// A marker without a valid label leaves the block unanswered
			if m := answerPattern.FindStringSubmatch(line); m != nil {
				current.answer = strings.ToUpper(m[1])
			}
			continue
		}

		if m := optionPattern.FindStringSubmatch(line); m != nil {
			label := strings.ToUpper(m[1])
			if _, exists := current.options[label]; !exists {
				current.options[label] = utils.CollapseWhitespace(m[2])
			}
			continue
		}

		current.stem = append(current.stem, line)
	}

	var result Result
	for _, b := range blocks {
		c, ok := b.candidate()
		if !ok {
			continue
		}
		if c.Answer == "" {
			result.MissingAnswers++
		}
		result.Questions = append(result.Questions, c)
	}
	result.IsQuestionBank = len(result.Questions) >= MinQuestionBankSize
	return result
}
