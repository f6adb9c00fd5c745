package utils

import (
	"fmt"
	"strings"
)

// InterviewSystemPrompt frames the model as the interviewer persona.
func InterviewSystemPrompt(persona string) string {
	if persona == "" {
		persona = "a friendly but thorough professional interviewer"
	}
	return fmt.Sprintf("You are %s conducting a mock job interview. Ask one clear question at a time. Never answer on behalf of the candidate.", persona)
}

// QuestionSetPrompt asks for a numbered list so the reply can be split
// back into individual questions.
func QuestionSetPrompt(jobRole, seniority string, count int) string {
	role := jobRole
	if seniority != "" {
		role = seniority + " " + jobRole
	}
	return fmt.Sprintf(
		"Generate exactly %d interview questions for a %s candidate. Return them as a numbered list, one question per line, with no preamble and no commentary.",
		count, role,
	)
}

// SplitNumberedList breaks a numbered-list completion back into items,
// stripping the leading "1." / "2)" markers the model was asked to emit.
func SplitNumberedList(raw string) []string {
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Drop a leading "12." or "12)" marker.
		i := 0
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
			line = strings.TrimSpace(line[i+1:])
		}
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
