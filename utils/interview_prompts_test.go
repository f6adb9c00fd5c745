package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitNumberedList(t *testing.T) {
	raw := "1. Tell me about yourself.\n2) Why this role?\n\n3. Describe a conflict you resolved."

	items := SplitNumberedList(raw)

	assert.Equal(t, []string{
		"Tell me about yourself.",
		"Why this role?",
		"Describe a conflict you resolved.",
	}, items)
}

func TestSplitNumberedListHandlesUnnumberedLines(t *testing.T) {
	items := SplitNumberedList("Tell me about yourself.\n   \nWhy this role?")

	assert.Equal(t, []string{"Tell me about yourself.", "Why this role?"}, items)
}

func TestQuestionSetPromptIncludesSeniority(t *testing.T) {
	prompt := QuestionSetPrompt("backend engineer", "senior", 5)

	assert.Contains(t, prompt, "senior backend engineer")
	assert.Contains(t, prompt, "exactly 5")
}
