package question

import (
	"strings"
	"time"

	"github.com/orishlabs/orish/core"
)

// Categories of the question bank. Each carries a fixed schema.
const (
	CategoryVocabulary  Category = "vocabulary"
	CategoryGrammar     Category = "grammar"
	CategoryTranslation Category = "translation"
)

// Answer types
const (
	AnswerMCQ  = "mcq"
	AnswerText = "text"
)

var Categories = []Category{CategoryVocabulary, CategoryGrammar, CategoryTranslation}

type Category string

func (c Category) Valid() bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// AnswerType returns how answers for this category are collected and graded.
func (c Category) AnswerType() string {
	if c == CategoryTranslation {
		return AnswerText
	}
	return AnswerMCQ
}

func (c Category) Label() string {
	if len(c) == 0 {
		return ""
	}
	return strings.ToUpper(string(c[0])) + string(c[1:])
}

// Question is one bank entry. Only the fields of its Category's schema are set:
// vocabulary {Word, Correct, Wrong1..3}, grammar {Sentence, Correct, Wrong1..3},
// translation {Prompt, Reference}.
type Question struct {
	ID        string    `json:"id" db:"id"`
	Category  Category  `json:"category" db:"category"`
	Word      string    `json:"word,omitempty" db:"word"`
	Sentence  string    `json:"sentence,omitempty" db:"sentence"` // uses "__" as the blank placeholder
	Prompt    string    `json:"prompt,omitempty" db:"prompt"`
	Correct   string    `json:"correct_answer" db:"correct"`
	Wrong1    string    `json:"wrong1,omitempty" db:"wrong1"`
	Wrong2    string    `json:"wrong2,omitempty" db:"wrong2"`
	Wrong3    string    `json:"wrong3,omitempty" db:"wrong3"`
	Reference string    `json:"reference_answer,omitempty" db:"reference"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// DisplayPrompt renders the question text shown to a student.
func (q Question) DisplayPrompt() string {
	switch q.Category {
	case CategoryVocabulary:
		return "Select the correct meaning for the word '" + q.Word + "'."
	case CategoryGrammar:
		return strings.ReplaceAll(q.Sentence, "__", "____")
	default:
		return q.Prompt
	}
}

// Choices returns the answer options for mcq categories; nil for text categories.
func (q Question) Choices() []string {
	if q.Category.AnswerType() != AnswerMCQ {
		return nil
	}
	return []string{q.Correct, q.Wrong1, q.Wrong2, q.Wrong3}
}

// NewQuestion contains information needed to create (or replace) a bank entry.
type NewQuestion struct {
	Category  Category `json:"category" validate:"required,category"`
	Word      string   `json:"word"`
	Sentence  string   `json:"sentence"`
	Prompt    string   `json:"prompt"`
	Correct   string   `json:"correct_answer"`
	Wrong1    string   `json:"wrong1"`
	Wrong2    string   `json:"wrong2"`
	Wrong3    string   `json:"wrong3"`
	Reference string   `json:"reference_answer"`
}

func (nq *NewQuestion) Clean() {
	nq.Category = Category(core.CleanString(string(nq.Category), true /* lower */))
	nq.Word = core.CleanString(nq.Word)
	nq.Sentence = core.CleanString(nq.Sentence)
	nq.Prompt = core.CleanString(nq.Prompt)
	nq.Correct = core.CleanString(nq.Correct)
	nq.Wrong1 = core.CleanString(nq.Wrong1)
	nq.Wrong2 = core.CleanString(nq.Wrong2)
	nq.Wrong3 = core.CleanString(nq.Wrong3)
	nq.Reference = core.CleanString(nq.Reference)
}

func (nq *NewQuestion) Validate() error {
	nq.Clean()
	return core.Validate.Struct(nq)
}

// Group is a shareable study pack of bank questions.
type Group struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewGroup struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	QuestionIDs []string `json:"question_ids"`
}

func (ng *NewGroup) Validate() error {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
	return core.Validate.Struct(ng)
}

// QuizResult is one completed practice run for a user and category.
type QuizResult struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Category  Category  `json:"category" db:"category"`
	Score     int       `json:"score" db:"score"`
	Total     int       `json:"total" db:"total"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}
