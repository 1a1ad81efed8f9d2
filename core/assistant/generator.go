package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
)

const (
	defaultExamQuestions = 5

	maxTitleLen     = 80
	maxDescLen      = 200
	maxPromptLen    = 400
	maxAnswerLen    = 200
	maxReferenceLen = 300
)

const questionSystemPrompt = `You write %s practice questions for language learners.
Reply with a JSON array of 1 to 3 question objects and nothing else. Schema per object:
%s
All strings must be plain text with no markdown.`

var questionSchemas = map[question.Category]string{
	question.CategoryVocabulary: `{"word": "...", "correct": "...", "wrong1": "...", "wrong2": "...", "wrong3": "..."}`,
	question.CategoryGrammar:    `{"sentence": "a sentence with __ for the gap", "correct": "...", "wrong1": "...", "wrong2": "...", "wrong3": "..."}`,
	question.CategoryTranslation: `{"prompt": "Translate into English: ...", "reference": "the expected translation"}`,
}

const examSystemPrompt = `You design short exams for a language practice platform.
Reply with a single JSON object and nothing else. Schema:
{"title": "...", "description": "...", "category": "vocabulary|grammar|translation", "question_count": 5,
 "questions": [{"prompt": "...", "answer_type": "mcq|text", "correct": "...", "wrong1": "...", "wrong2": "...", "wrong3": "...", "reference": "..."}]}
Provide 3 to 15 questions. For mcq fill correct and the three wrong answers; for text fill reference.`

// Generator produces question and exam drafts, preferring the model and
// degrading to the curated fallback pool. The boolean results report whether
// the fallback was used so callers can phrase their replies accordingly.
type Generator struct {
	client   ai.Client
	fallback *Fallback
	logger   core.Logger
}

func NewGenerator(client ai.Client, fallback *Fallback, logger core.Logger) *Generator {
	return &Generator{client: client, fallback: fallback, logger: logger}
}

// GenerateQuestions drafts fresh bank entries for a category. The returned
// drafts are cleaned but not yet validated or persisted.
func (g *Generator) GenerateQuestions(ctx context.Context, category question.Category, prompt string) ([]question.NewQuestion, bool, error) {
	if !category.Valid() {
		category = question.CategoryVocabulary
	}

	if g.client != nil && g.client.Available() {
		raw, err := g.client.Complete(ctx, []ai.Message{
			ai.SystemMessage(fmt.Sprintf(questionSystemPrompt, category, questionSchemas[category])),
			ai.UserMessage(questionUserPrompt(category, prompt)),
		})
		if err == nil {
			if nqs := decodeQuestions(raw, category); len(nqs) > 0 {
				return nqs, false, nil
			}
			g.logger.Warn("assistant: question generation reply off schema, using fallback")
		} else if !ai.IsUnavailable(err) {
			return nil, false, err
		} else {
			g.logger.Info("assistant: model unavailable, using fallback questions")
		}
	}

	nqs := g.fallback.Questions(category, 3)
	if len(nqs) == 0 {
		return nil, true, errors.Errorf("no fallback questions for category %q", category)
	}
	return nqs, true, nil
}

// GenerateExam drafts a complete exam. Model output is normalized before it
// reaches validation: lengths capped, question count clamped, answer types
// defaulted by category.
func (g *Generator) GenerateExam(ctx context.Context, prompt string, category question.Category, count int) (exam.NewExam, bool, error) {
	if g.client != nil && g.client.Available() {
		raw, err := g.client.Complete(ctx, []ai.Message{
			ai.SystemMessage(examSystemPrompt),
			ai.UserMessage(examUserPrompt(prompt, category, count)),
		})
		if err == nil {
			if ne, ok := decodeExam(raw); ok {
				return ne, false, nil
			}
			g.logger.Warn("assistant: exam generation reply off schema, using fallback")
		} else if !ai.IsUnavailable(err) {
			return exam.NewExam{}, false, err
		} else {
			g.logger.Info("assistant: model unavailable, using fallback exam")
		}
	}

	ne := g.fallback.Exam(category, count, prompt)
	return normalizeExam(ne), true, nil
}

const analysisSystemPrompt = `You review a language learner's document.
Reply with a single JSON object and nothing else. Schema:
{"summary": "...", "vocabulary": "...", "grammar": "...", "action_points": "...", "difficulty": "approachable|moderate|challenging"}
Each field is one or two short sentences of plain text.`

// AnalyzeDocument reviews extracted document text, preferring the model and
// degrading to the heuristic analyzer.
func (g *Generator) AnalyzeDocument(ctx context.Context, text, customPrompt string) (Analysis, bool) {
	if strings.TrimSpace(text) != "" && g.client != nil && g.client.Available() {
		userPrompt := text
		if customPrompt != "" {
			userPrompt = "Focus: " + customPrompt + "\n\n" + text
		}
		raw, err := g.client.Complete(ctx, []ai.Message{
			ai.SystemMessage(analysisSystemPrompt),
			ai.UserMessage(userPrompt),
		})
		if err == nil {
			var a Analysis
			if err := decodeJSON(raw, &a); err == nil && a.Summary != "" {
				return a, false
			}
			g.logger.Warn("assistant: analysis reply off schema, using heuristics")
		} else {
			g.logger.Info("assistant: analysis via model failed, using heuristics: %v", err)
		}
	}
	return g.fallback.AnalyzeText(text, customPrompt), true
}

func questionUserPrompt(category question.Category, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Sprintf("Write new %s questions at an intermediate level.", category)
	}
	return prompt
}

func examUserPrompt(prompt string, category question.Category, count int) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Design a balanced exam for intermediate learners."
	}
	if category.Valid() {
		prompt += fmt.Sprintf(" Category: %s.", category)
	}
	if count >= exam.MinQuestions && count <= exam.MaxQuestions {
		prompt += fmt.Sprintf(" It must have exactly %d questions.", count)
	}
	return prompt
}

func decodeQuestions(raw string, category question.Category) []question.NewQuestion {
	var nqs []question.NewQuestion
	if err := decodeJSON(raw, &nqs); err != nil {
		// some models wrap the array in an object
		var wrapper struct {
			Questions []question.NewQuestion `json:"questions"`
		}
		if err := decodeJSON(raw, &wrapper); err != nil || len(wrapper.Questions) == 0 {
			return nil
		}
		nqs = wrapper.Questions
	}

	out := make([]question.NewQuestion, 0, len(nqs))
	for _, nq := range nqs {
		nq.Category = category
		nq.Clean()
		if err := nq.Validate(); err != nil {
			continue
		}
		out = append(out, nq)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func decodeExam(raw string) (exam.NewExam, bool) {
	var ne exam.NewExam
	if err := decodeJSON(raw, &ne); err != nil {
		return exam.NewExam{}, false
	}
	ne = normalizeExam(ne)
	if ne.Title == "" || len(ne.Questions) == 0 {
		return exam.NewExam{}, false
	}
	return ne, true
}

// normalizeExam clamps model output into the shape validation expects rather
// than rejecting near-misses outright.
func normalizeExam(ne exam.NewExam) exam.NewExam {
	ne.Title = truncate(strings.TrimSpace(ne.Title), maxTitleLen)
	ne.Description = truncate(strings.TrimSpace(ne.Description), maxDescLen)
	if !ne.Category.Valid() {
		ne.Category = question.CategoryVocabulary
	}
	if ne.QuestionCount == 0 {
		ne.QuestionCount = defaultExamQuestions
	}
	if ne.QuestionCount < exam.MinQuestions {
		ne.QuestionCount = exam.MinQuestions
	}
	if ne.QuestionCount > exam.MaxQuestions {
		ne.QuestionCount = exam.MaxQuestions
	}
	ne.AllowStudy = true
	ne.AllowTest = true

	qs := make([]exam.NewQuestion, 0, len(ne.Questions))
	for _, nq := range ne.Questions {
		nq.Prompt = truncate(strings.TrimSpace(nq.Prompt), maxPromptLen)
		if nq.Prompt == "" {
			continue
		}
		if nq.AnswerType == "" {
			nq.AnswerType = ne.Category.AnswerType()
		}
		nq.Correct = truncate(strings.TrimSpace(nq.Correct), maxAnswerLen)
		nq.Wrong1 = truncate(strings.TrimSpace(nq.Wrong1), maxAnswerLen)
		nq.Wrong2 = truncate(strings.TrimSpace(nq.Wrong2), maxAnswerLen)
		nq.Wrong3 = truncate(strings.TrimSpace(nq.Wrong3), maxAnswerLen)
		nq.Reference = truncate(strings.TrimSpace(nq.Reference), maxReferenceLen)
		nq.Source = exam.SourceAI
		qs = append(qs, nq)
		if len(qs) == exam.MaxQuestions {
			break
		}
	}
	ne.Questions = qs
	return ne
}
