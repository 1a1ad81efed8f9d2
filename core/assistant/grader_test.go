package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/exam"
)

func newTestGrader(client ai.Client) *Grader {
	return NewGrader(client, NewFallback(), nopLogger{})
}

func TestGradeTextModelVerdict(t *testing.T) {
	client := &cannedClient{
		reply: "```json\n{\"is_correct\": true, \"feedback\": \"Well done.\", \"explanation\": \"Meaning preserved.\"}\n```",
	}
	g := newTestGrader(client)

	v := g.GradeText(context.Background(), "Translate: Hallo", "Hello", "Hello!")
	assert.True(t, v.Correct)
	assert.Equal(t, "Well done.", v.Feedback)
	assert.Equal(t, "Meaning preserved.", v.Explanation)
}

func TestGradeTextEmptyAnswerSkipsModel(t *testing.T) {
	g := newTestGrader(&cannedClient{err: ai.ErrUnavailable})

	v := g.GradeText(context.Background(), "Translate: Hallo", "Hello", "   ")
	assert.False(t, v.Correct)
	assert.Equal(t, "No answer submitted.", v.Feedback)
}

func TestGradeTextFallsBackOnModelFailure(t *testing.T) {
	tests := []struct {
		name   string
		client ai.Client
	}{
		{"unavailable", &cannedClient{err: ai.ErrUnavailable}},
		{"off schema", &cannedClient{reply: "Nice try! I think this is correct."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGrader(tt.client)

			v := g.GradeText(context.Background(), "Translate: Hallo", "Hello", "Hello")
			assert.True(t, v.Correct)

			v = g.GradeText(context.Background(), "Translate: Hallo", "Hello", "Goodbye friend")
			assert.False(t, v.Correct)
			assert.Contains(t, v.Feedback, "Expected: Hello")
		})
	}
}

func TestSummarizeAttempt(t *testing.T) {
	details := []exam.AttemptDetail{
		{Prompt: "Pick the meaning of serene.", Selected: "Calm and peaceful", IsCorrect: true},
		{Prompt: "Pick the meaning of versatile.", Selected: "Very expensive", IsCorrect: false},
	}

	g := newTestGrader(&cannedClient{reply: "Good effort. Review adjectives next."})
	feedback, err := g.SummarizeAttempt(context.Background(), "Vocabulary Check", details)
	require.NoError(t, err)
	assert.Equal(t, "Good effort. Review adjectives next.", feedback)

	g = newTestGrader(&cannedClient{err: ai.ErrUnavailable})
	_, err = g.SummarizeAttempt(context.Background(), "Vocabulary Check", details)
	require.Error(t, err)
	assert.True(t, ai.IsUnavailable(err))
}
