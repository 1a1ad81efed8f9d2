package assistant

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"

	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
)

// translationPassRatio is the similarity a free-text answer must reach to be
// graded correct by the fallback grader.
const translationPassRatio = 0.75

var (
	wordRegex     = regexp.MustCompile(`[A-Za-z']+`)
	sentenceRegex = regexp.MustCompile(`[.!?]+`)

	stopwords = map[string]bool{
		"the": true, "and": true, "that": true, "this": true, "with": true,
		"for": true, "are": true, "was": true, "were": true, "have": true,
		"has": true, "had": true, "not": true, "but": true, "you": true,
		"your": true, "from": true, "they": true, "their": true, "will": true,
		"would": true, "there": true, "what": true, "when": true, "into": true,
	}

	fallbackQuestions = map[question.Category][]question.NewQuestion{
		question.CategoryVocabulary: {
			{
				Category: question.CategoryVocabulary,
				Word:     "serene",
				Correct:  "Calm and peaceful",
				Wrong1:   "Full of energy",
				Wrong2:   "Extremely loud",
				Wrong3:   "Difficult to find",
			},
			{
				Category: question.CategoryVocabulary,
				Word:     "anticipate",
				Correct:  "Expect or look forward to",
				Wrong1:   "Forget completely",
				Wrong2:   "Argue loudly",
				Wrong3:   "Hide from others",
			},
			{
				Category: question.CategoryVocabulary,
				Word:     "versatile",
				Correct:  "Able to do many things well",
				Wrong1:   "Afraid of change",
				Wrong2:   "Hard to see",
				Wrong3:   "Very expensive",
			},
		},
		question.CategoryGrammar: {
			{
				Category: question.CategoryGrammar,
				Sentence: "The students ___ their essays before class.",
				Correct:  "had finished",
				Wrong1:   "finishing",
				Wrong2:   "was finish",
				Wrong3:   "has finished",
			},
			{
				Category: question.CategoryGrammar,
				Sentence: "If she ___ earlier, we would have caught the train.",
				Correct:  "had left",
				Wrong1:   "lefts",
				Wrong2:   "has leaving",
				Wrong3:   "leaves",
			},
			{
				Category: question.CategoryGrammar,
				Sentence: "She has lived here ___ 2019.",
				Correct:  "since",
				Wrong1:   "for",
				Wrong2:   "during",
				Wrong3:   "at",
			},
		},
		question.CategoryTranslation: {
			{
				Category:  question.CategoryTranslation,
				Prompt:    `Translate into English: "Ich lerne jeden Tag neue Wörter."`,
				Reference: "I learn new words every day.",
			},
			{
				Category:  question.CategoryTranslation,
				Prompt:    `Translate into English: "Wir treffen uns morgen im Park."`,
				Reference: "We are meeting in the park tomorrow.",
			},
			{
				Category:  question.CategoryTranslation,
				Prompt:    `Translate into English: "Sie arbeitet seit drei Jahren hier."`,
				Reference: "She has been working here for three years.",
			},
		},
	}

	examCategories = []question.Category{
		question.CategoryVocabulary, question.CategoryGrammar, question.CategoryTranslation,
	}

	fallbackExams = map[question.Category][]exam.NewExam{
		question.CategoryVocabulary: {
			{
				Title:         "Vocabulary Skills Check",
				Description:   "Quick assessment drawn from the built-in bank.",
				Category:      question.CategoryVocabulary,
				QuestionCount: 5,
				AllowStudy:    true,
				AllowTest:     true,
				Questions: []exam.NewQuestion{
					{
						Prompt:     `Choose the best meaning for "resilient".`,
						AnswerType: question.AnswerMCQ,
						Correct:    "Able to recover quickly",
						Wrong1:     "Afraid of speaking",
						Wrong2:     "Expensive to buy",
						Wrong3:     "Easy to forget",
						Source:     exam.SourceAI,
					},
					{
						Prompt:     `Select the synonym of "ambitious".`,
						AnswerType: question.AnswerMCQ,
						Correct:    "Driven",
						Wrong1:     "Careless",
						Wrong2:     "Sleepy",
						Wrong3:     "Salty",
						Source:     exam.SourceAI,
					},
				},
			},
		},
		question.CategoryGrammar: {
			{
				Title:         "Grammar Tune-Up",
				Description:   "Targeted practice for tenses and connectors.",
				Category:      question.CategoryGrammar,
				QuestionCount: 5,
				AllowStudy:    true,
				AllowTest:     true,
				Questions: []exam.NewQuestion{
					{
						Prompt:     "If it ___ tomorrow, we will stay home.",
						AnswerType: question.AnswerMCQ,
						Correct:    "rains",
						Wrong1:     "rained",
						Wrong2:     "rain",
						Wrong3:     "was raining",
						Source:     exam.SourceAI,
					},
					{
						Prompt:     "By the time she arrived, we ___ dinner.",
						AnswerType: question.AnswerMCQ,
						Correct:    "had started",
						Wrong1:     "start",
						Wrong2:     "were starting",
						Wrong3:     "starting",
						Source:     exam.SourceAI,
					},
				},
			},
		},
		question.CategoryTranslation: {
			{
				Title:         "Translation Workout",
				Description:   "Free-text translation practice with reference answers.",
				Category:      question.CategoryTranslation,
				QuestionCount: 5,
				AllowStudy:    true,
				AllowTest:     true,
				Questions: []exam.NewQuestion{
					{
						Prompt:     `Translate into English: "Das Wetter ist heute sehr schön."`,
						AnswerType: question.AnswerText,
						Reference:  "The weather is very nice today.",
						Source:     exam.SourceAI,
					},
					{
						Prompt:     `Translate into English: "Er hat das Buch gestern gelesen."`,
						AnswerType: question.AnswerText,
						Reference:  "He read the book yesterday.",
						Source:     exam.SourceAI,
					},
				},
			},
		},
	}
)

// Fallback is the deterministic substitute for every model capability.
// Template selection is round-robin per capability so repeated calls are
// reproducible; grading and analysis are pure functions of their inputs.
type Fallback struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewFallback() *Fallback {
	return &Fallback{counters: make(map[string]int)}
}

func (f *Fallback) next(key string, size int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.counters[key] % size
	f.counters[key]++
	return idx
}

// Questions returns up to n curated bank entries for the category,
// round-robin over the template pool.
func (f *Fallback) Questions(category question.Category, n int) []question.NewQuestion {
	pool := fallbackQuestions[category]
	if len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	start := f.next("questions:"+string(category), len(pool))
	out := make([]question.NewQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pool[(start+i)%len(pool)])
	}
	return out
}

// Exam returns a curated exam template for the category, round-robin over
// that category's pool, with its embedded questions topped up from the bank
// templates until they cover count. An invalid category round-robins over
// all categories; a count outside the allowed range keeps the template's.
func (f *Fallback) Exam(category question.Category, count int, prompt string) exam.NewExam {
	if !category.Valid() {
		category = examCategories[f.next("exams:any", len(examCategories))]
	}
	pool := fallbackExams[category]
	ne := pool[f.next("exams:"+string(category), len(pool))]

	if count >= exam.MinQuestions && count <= exam.MaxQuestions {
		ne.QuestionCount = count
	}

	// the pool is shared; copy the question slice before topping it up
	ne.Questions = append([]exam.NewQuestion(nil), ne.Questions...)
	bank := fallbackQuestions[category]
	for i := 0; len(ne.Questions) < ne.QuestionCount && len(bank) > 0; i++ {
		ne.Questions = append(ne.Questions, bankExamQuestion(bank[i%len(bank)]))
	}

	if prompt != "" {
		desc := ne.Description
		if desc == "" {
			desc = "Quick mixed drill."
		}
		desc += " (Based on: " + truncate(prompt, 60) + ")"
		ne.Description = truncate(desc, 200)
	}
	return ne
}

// bankExamQuestion recasts a bank template as an exam-specific question.
func bankExamQuestion(nq question.NewQuestion) exam.NewQuestion {
	eq := exam.NewQuestion{
		AnswerType: question.AnswerMCQ,
		Correct:    nq.Correct,
		Wrong1:     nq.Wrong1,
		Wrong2:     nq.Wrong2,
		Wrong3:     nq.Wrong3,
		Source:     exam.SourceAI,
	}
	switch nq.Category {
	case question.CategoryVocabulary:
		eq.Prompt = fmt.Sprintf("Choose the best meaning for %q.", nq.Word)
	case question.CategoryGrammar:
		eq.Prompt = nq.Sentence
	case question.CategoryTranslation:
		eq.AnswerType = question.AnswerText
		eq.Prompt = nq.Prompt
		eq.Reference = nq.Reference
		eq.Correct, eq.Wrong1, eq.Wrong2, eq.Wrong3 = "", "", "", ""
	}
	return eq
}

// GradeTranslation judges a free-text answer by case-insensitive normalized
// similarity against the reference. Deterministic: same inputs, same verdict.
func (f *Fallback) GradeTranslation(answer, reference string) question.Verdict {
	answer = strings.TrimSpace(answer)
	reference = strings.TrimSpace(reference)
	if answer == "" {
		return question.Verdict{
			Correct:     false,
			Feedback:    "No answer submitted.",
			Explanation: "Please provide a response so we can review it.",
		}
	}

	ratio := difflib.NewMatcher(
		strings.Split(strings.ToLower(answer), ""),
		strings.Split(strings.ToLower(reference), ""),
	).Ratio()

	v := question.Verdict{Correct: ratio >= translationPassRatio, Score: ratio}
	if v.Correct {
		v.Feedback = "Looks good! Keep it up."
	} else {
		v.Feedback = "Expected: " + reference
	}
	return v
}

// Analysis is the document feedback produced for an upload.
type Analysis struct {
	Summary      string `json:"summary"`
	Vocabulary   string `json:"vocabulary"`
	Grammar      string `json:"grammar"`
	ActionPoints string `json:"action_points"`
	Difficulty   string `json:"difficulty,omitempty"`
}

// AnalyzeText is the heuristic substitute for the model analyzer: sentence
// and word counts, top frequent terms minus stopwords, and a difficulty hint
// from average sentence length.
func (f *Fallback) AnalyzeText(text, customPrompt string) Analysis {
	text = strings.TrimSpace(text)
	if text == "" {
		action := customPrompt
		if action == "" {
			action = "Upload a document to receive feedback."
		}
		return Analysis{
			Summary:      "No text supplied for analysis.",
			ActionPoints: action,
		}
	}

	tokens := wordRegex.FindAllString(strings.ToLower(text), -1)
	wordCount := len(tokens)

	sentences := lo.Filter(sentenceRegex.Split(text, -1), func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
	sentenceCount := len(sentences)
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	firstIdea := text
	if len(sentences) > 0 {
		firstIdea = strings.TrimSpace(sentences[0])
	}
	firstIdea = truncate(firstIdea, 160)

	commonWords := topTerms(tokens, 3)

	summary := fmt.Sprintf(
		"Reviewed about %d words across %d sentences. Opening idea: %s",
		wordCount, sentenceCount, firstIdea,
	)

	vocab := "Vocabulary is varied; keep highlighting precise verbs."
	if len(commonWords) > 0 {
		vocab = "Frequently used terms: " + strings.Join(commonWords, ", ")
	}

	grammar := "Consider adding more supporting sentences for clarity."
	if sentenceCount > 3 {
		grammar = "Mix short and long sentences for better rhythm."
	}

	action := customPrompt
	if action == "" {
		action = "Underline confusing areas and rewrite one sentence for clarity."
	}

	return Analysis{
		Summary:      summary,
		Vocabulary:   vocab,
		Grammar:      grammar,
		ActionPoints: action,
		Difficulty:   difficultyHint(wordCount, sentenceCount),
	}
}

// Answer is the canned chat reply used when the model cannot respond.
func (f *Fallback) Answer(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return "Tell me what you would like to practice and I will set it up."
	}
	return "I could not reach the AI tutor just now, but here is a tip: " +
		"practice a short quiz in the category you asked about, then review the answers you missed. " +
		"Ask me again in a moment for a full reply."
}

func topTerms(tokens []string, n int) []string {
	counts := lo.CountValues(lo.Filter(tokens, func(t string, _ int) bool {
		return len(t) > 3 && !stopwords[t]
	}))
	type freq struct {
		term  string
		count int
	}
	freqs := make([]freq, 0, len(counts))
	for term, count := range counts {
		freqs = append(freqs, freq{term, count})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].count != freqs[j].count {
			return freqs[i].count > freqs[j].count
		}
		return freqs[i].term < freqs[j].term
	})
	if len(freqs) > n {
		freqs = freqs[:n]
	}
	return lo.Map(freqs, func(f freq, _ int) string { return f.term })
}

func difficultyHint(wordCount, sentenceCount int) string {
	avg := float64(wordCount) / float64(sentenceCount)
	switch {
	case avg < 12:
		return "approachable"
	case avg <= 20:
		return "moderate"
	default:
		return "challenging"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
