package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
)

const gradeSystemPrompt = `You grade a language learner's free-text answer.
Reply with a single JSON object and nothing else. Schema:
{"is_correct": true, "feedback": "one short sentence", "explanation": "one short sentence"}
Accept answers that convey the reference meaning even with small wording differences.`

const summarySystemPrompt = `You are a supportive language teacher reviewing a finished exam attempt.
Write at most 4 sentences: overall impression, one strength, one area to work on, one next step.
Plain text only.`

// Grader judges free-text answers and summarizes exam attempts. It satisfies
// question.TextGrader and exam.Summarizer so the domain services stay unaware
// of where verdicts come from.
type Grader struct {
	client   ai.Client
	fallback *Fallback
	logger   core.Logger
}

func NewGrader(client ai.Client, fallback *Fallback, logger core.Logger) *Grader {
	return &Grader{client: client, fallback: fallback, logger: logger}
}

var _ question.TextGrader = (*Grader)(nil)
var _ exam.Summarizer = (*Grader)(nil)

// GradeText judges an answer against the reference. Empty answers never reach
// the model; model failures of any kind fall back to similarity grading.
func (g *Grader) GradeText(ctx context.Context, prompt, reference, answer string) question.Verdict {
	if strings.TrimSpace(answer) == "" {
		return g.fallback.GradeTranslation(answer, reference)
	}

	if g.client != nil && g.client.Available() {
		raw, err := g.client.Complete(ctx, []ai.Message{
			ai.SystemMessage(gradeSystemPrompt),
			ai.UserMessage(fmt.Sprintf(
				"Task: %s\nReference answer: %s\nLearner answer: %s", prompt, reference, answer,
			)),
		})
		if err == nil {
			if v, ok := decodeVerdict(raw); ok {
				return v
			}
			g.logger.Warn("assistant: grading reply off schema, using fallback")
		} else {
			g.logger.Info("assistant: grading via model failed, using fallback: %v", err)
		}
	}

	return g.fallback.GradeTranslation(answer, reference)
}

// SummarizeAttempt writes teacher-style feedback for a graded attempt. There
// is no canned substitute; callers treat an error as "no feedback".
func (g *Grader) SummarizeAttempt(ctx context.Context, examTitle string, details []exam.AttemptDetail) (string, error) {
	if g.client == nil || !g.client.Available() {
		return "", ai.ErrUnavailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exam: %s\n", examTitle)
	for _, d := range details {
		verdict := "correct"
		if !d.IsCorrect {
			verdict = "incorrect"
		}
		fmt.Fprintf(&b, "- %s | answered: %s | %s\n", d.Prompt, d.Selected, verdict)
	}

	feedback, err := g.client.Complete(ctx, []ai.Message{
		ai.SystemMessage(summarySystemPrompt),
		ai.UserMessage(b.String()),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sanitizePayload(feedback)), nil
}

func decodeVerdict(raw string) (question.Verdict, bool) {
	var v question.Verdict
	if err := decodeJSON(raw, &v); err != nil {
		return question.Verdict{}, false
	}
	v.Feedback = strings.TrimSpace(v.Feedback)
	v.Explanation = strings.TrimSpace(v.Explanation)
	if v.Feedback == "" {
		return question.Verdict{}, false
	}
	if v.Correct && v.Score == 0 {
		v.Score = 1
	}
	return v, true
}
