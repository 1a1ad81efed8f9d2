package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orishlabs/orish/core/question"
)

func TestFallbackQuestionsRoundRobin(t *testing.T) {
	fb := NewFallback()

	first := fb.Questions(question.CategoryVocabulary, 1)
	require.Len(t, first, 1)
	second := fb.Questions(question.CategoryVocabulary, 1)
	require.Len(t, second, 1)
	third := fb.Questions(question.CategoryVocabulary, 1)
	require.Len(t, third, 1)
	fourth := fb.Questions(question.CategoryVocabulary, 1)
	require.Len(t, fourth, 1)

	assert.NotEqual(t, first[0].Word, second[0].Word)
	assert.NotEqual(t, second[0].Word, third[0].Word)
	// pool of 3 wraps around
	assert.Equal(t, first[0].Word, fourth[0].Word)
}

func TestFallbackQuestionsPerCategory(t *testing.T) {
	fb := NewFallback()

	for _, cat := range []question.Category{
		question.CategoryVocabulary, question.CategoryGrammar, question.CategoryTranslation,
	} {
		qs := fb.Questions(cat, 3)
		require.NotEmpty(t, qs, "category %s", cat)
		for _, q := range qs {
			assert.Equal(t, cat, q.Category)
		}
	}

	assert.Empty(t, fb.Questions(question.Category("history"), 3))
}

func TestFallbackExamTemplates(t *testing.T) {
	fb := NewFallback()

	// no category: round-robin across categories for variety
	first := fb.Exam("", 0, "")
	second := fb.Exam("", 0, "")
	assert.NotEqual(t, first.Title, second.Title)
	assert.NotEmpty(t, first.Questions)

	withPrompt := fb.Exam(question.CategoryVocabulary, 0, "focus on past tenses")
	assert.Contains(t, withPrompt.Description, "focus on past tenses")
	assert.LessOrEqual(t, len(withPrompt.Description), 200)
}

func TestFallbackExamHonorsCategoryAndCount(t *testing.T) {
	fb := NewFallback()

	ne := fb.Exam(question.CategoryGrammar, 5, "")
	assert.Equal(t, question.CategoryGrammar, ne.Category)
	assert.Equal(t, 5, ne.QuestionCount)
	require.Len(t, ne.Questions, 5)
	seen := make(map[string]bool, len(ne.Questions))
	for _, q := range ne.Questions {
		assert.Equal(t, question.AnswerMCQ, q.AnswerType)
		assert.NotEmpty(t, q.Prompt)
		assert.False(t, seen[q.Prompt], "duplicate prompt %q", q.Prompt)
		seen[q.Prompt] = true
	}

	tr := fb.Exam(question.CategoryTranslation, 4, "")
	assert.Equal(t, question.CategoryTranslation, tr.Category)
	require.Len(t, tr.Questions, 4)
	for _, q := range tr.Questions {
		assert.Equal(t, question.AnswerText, q.AnswerType)
		assert.NotEmpty(t, q.Reference)
	}
}

func TestFallbackGradeTranslation(t *testing.T) {
	fb := NewFallback()
	ref := "I learn new words every day."

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"exact match", ref, true},
		{"case insensitive", "i learn new words every day.", true},
		{"close enough", "I learn new words every day", true},
		{"wrong", "The weather is nice today.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fb.GradeTranslation(tt.answer, ref)
			assert.Equal(t, tt.correct, v.Correct)
			if !tt.correct && tt.answer != "" {
				assert.Contains(t, v.Feedback, "Expected: "+ref)
			}
		})
	}

	// deterministic: repeated grading gives identical verdicts
	v1 := fb.GradeTranslation("I learn new words daily.", ref)
	v2 := fb.GradeTranslation("I learn new words daily.", ref)
	assert.Equal(t, v1, v2)
}

func TestFallbackAnalyzeText(t *testing.T) {
	fb := NewFallback()

	text := "Learning languages takes patience. Practice every single day. " +
		"Reading short stories builds vocabulary quickly. Vocabulary grows with steady reading practice."
	a := fb.AnalyzeText(text, "")

	assert.Contains(t, a.Summary, "sentences")
	assert.Contains(t, a.Summary, "Learning languages takes patience")
	assert.True(t, strings.HasPrefix(a.Vocabulary, "Frequently used terms:"))
	assert.NotEmpty(t, a.ActionPoints)
	assert.NotEmpty(t, a.Difficulty)

	empty := fb.AnalyzeText("   ", "custom step")
	assert.Equal(t, "No text supplied for analysis.", empty.Summary)
	assert.Equal(t, "custom step", empty.ActionPoints)
}

func TestFallbackAnswer(t *testing.T) {
	fb := NewFallback()
	assert.NotEmpty(t, fb.Answer(""))
	assert.Contains(t, fb.Answer("help me with grammar"), "could not reach the AI tutor")
}
