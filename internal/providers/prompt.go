package providers

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert assessment author. Generate high-quality multiple choice questions with exactly 4 options each, labeled A to D, grounded only in the supplied course material."

func buildPrompt(req Request, maxSourceChars int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple choice questions", req.Count))
	if req.CourseLabel != "" {
		sb.WriteString(fmt.Sprintf(" for the course %q", req.CourseLabel))
	}
	if req.TopicLabel != "" {
		sb.WriteString(fmt.Sprintf(", topic %q", req.TopicLabel))
	}
	sb.WriteString(".\n\n")

	if req.Difficulty != "" {
		sb.WriteString(fmt.Sprintf("Difficulty level: %s\n\n", req.Difficulty))
	}

	sb.WriteString("Source material:\n")
	sb.WriteString(truncateRunes(req.Text, maxSourceChars))
	sb.WriteString("\n\n")

	if len(req.ExcludedTexts) > 0 {
		sb.WriteString("Do not repeat or paraphrase any of these existing questions:\n")
		for _, text := range req.ExcludedTexts {
			sb.WriteString("- ")
			sb.WriteString(text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Return exactly %d questions\n", req.Count))
	sb.WriteString("- Each question must have exactly 4 options in order A, B, C, D\n")
	sb.WriteString("- correct_answer is the label of the single correct option\n")
	sb.WriteString("- Incorrect options should be plausible but clearly wrong\n")
	sb.WriteString("- Provide a brief explanation for the correct answer\n")

	return sb.String()
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
