package exam

import (
	"time"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/question"
)

// Question count bounds for an exam.
const (
	MinQuestions = 3
	MaxQuestions = 15
)

// Attempt modes
const (
	ModeStudy = "study"
	ModeTest  = "test"
)

// Question sources
const (
	SourceManual = "manual"
	SourceAI     = "ai"
)

type Exam struct {
	ID            string            `json:"id" db:"id"`
	Title         string            `json:"title" db:"title"`
	Description   string            `json:"description" db:"description"`
	Category      question.Category `json:"category" db:"category"`
	QuestionCount int               `json:"question_count" db:"question_count"`
	AllowStudy    bool              `json:"allow_study" db:"allow_study"`
	AllowTest     bool              `json:"allow_test" db:"allow_test"`
	IsActive      bool              `json:"is_active" db:"is_active"`
	AIPrompt      string            `json:"ai_prompt,omitempty" db:"ai_prompt"`
	CreatedBy     string            `json:"created_by" db:"created_by"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"` // UTC
}

// Question is an exam-specific question, distinct from the shared bank.
type Question struct {
	ID         string    `json:"id" db:"id"`
	ExamID     string    `json:"exam_id" db:"exam_id"`
	Position   int       `json:"position" db:"position"`
	Prompt     string    `json:"prompt" db:"prompt"`
	AnswerType string    `json:"answer_type" db:"answer_type"` // mcq | text
	Correct    string    `json:"correct_answer" db:"correct"`
	Wrong1     string    `json:"wrong1,omitempty" db:"wrong1"`
	Wrong2     string    `json:"wrong2,omitempty" db:"wrong2"`
	Wrong3     string    `json:"wrong3,omitempty" db:"wrong3"`
	Reference  string    `json:"reference_answer,omitempty" db:"reference"`
	Source     string    `json:"source" db:"source"` // manual | ai
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Assignment grants a student access to an exam.
type Assignment struct {
	ID       string `json:"id" db:"id"`
	ExamID   string `json:"exam_id" db:"exam_id"`
	UserID   string `json:"user_id" db:"user_id"`
	CanStudy bool   `json:"can_study" db:"can_study"`
	CanTest  bool   `json:"can_test" db:"can_test"`
}

// Attempt is one graded submission of a full answer sheet.
type Attempt struct {
	ID         string    `json:"id" db:"id"`
	ExamID     string    `json:"exam_id" db:"exam_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Mode       string    `json:"mode" db:"mode"` // study | test
	Score      int       `json:"score" db:"score"`
	Total      int       `json:"total" db:"total"`
	Details    []byte    `json:"-" db:"details"` // JSON-encoded []AttemptDetail
	AIFeedback string    `json:"ai_feedback,omitempty" db:"ai_feedback"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
}

// AttemptDetail is the per-answer grading record stored inside Attempt.Details.
type AttemptDetail struct {
	QuestionID string `json:"question_id"`
	Prompt     string `json:"prompt"`
	Selected   string `json:"selected"`
	Correct    string `json:"correct_answer"`
	IsCorrect  bool   `json:"is_correct"`
	Feedback   string `json:"feedback,omitempty"`
}

// NewExam contains information needed to create an exam with its questions.
type NewExam struct {
	Title         string            `json:"title" validate:"required,max=80"`
	Description   string            `json:"description" validate:"max=200"`
	Category      question.Category `json:"category" validate:"required,category"`
	QuestionCount int               `json:"question_count" validate:"required,min=3,max=15"`
	AllowStudy    bool              `json:"allow_study"`
	AllowTest     bool              `json:"allow_test"`
	AIPrompt      string            `json:"ai_prompt"`
	Questions     []NewQuestion     `json:"questions" validate:"dive"`
}

func (ne *NewExam) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Category = question.Category(core.CleanString(string(ne.Category), true /* lower */))
	for i := range ne.Questions {
		ne.Questions[i].Clean()
	}
	return core.Validate.Struct(ne)
}

// NewQuestion is an exam-specific question payload.
type NewQuestion struct {
	Prompt     string `json:"prompt" validate:"required,max=400"`
	AnswerType string `json:"answer_type" validate:"required,oneof=mcq text"`
	Correct    string `json:"correct_answer" validate:"max=200"`
	Wrong1     string `json:"wrong1" validate:"max=200"`
	Wrong2     string `json:"wrong2" validate:"max=200"`
	Wrong3     string `json:"wrong3" validate:"max=200"`
	Reference  string `json:"reference_answer" validate:"max=300"`
	Source     string `json:"-"`
}

func (nq *NewQuestion) Clean() {
	nq.Prompt = core.CleanString(nq.Prompt)
	nq.AnswerType = core.CleanString(nq.AnswerType, true /* lower */)
	nq.Correct = core.CleanString(nq.Correct)
	nq.Wrong1 = core.CleanString(nq.Wrong1)
	nq.Wrong2 = core.CleanString(nq.Wrong2)
	nq.Wrong3 = core.CleanString(nq.Wrong3)
	nq.Reference = core.CleanString(nq.Reference)
	if nq.Source == "" {
		nq.Source = SourceManual
	}
}

// NewAssignment shares an exam with students.
type NewAssignment struct {
	UserIDs  []string `json:"user_ids" validate:"required,min=1"`
	CanStudy bool     `json:"can_study"`
	CanTest  bool     `json:"can_test"`
}

func (na *NewAssignment) Validate() error { return core.Validate.Struct(na) }

// AnswerSheet is a full attempt submission.
type AnswerSheet struct {
	Mode    string            `json:"mode" validate:"required,oneof=study test"`
	Answers map[string]string `json:"answers" validate:"required"` // question ID -> answer
}

func (as *AnswerSheet) Validate() error {
	as.Mode = core.CleanString(as.Mode, true /* lower */)
	return core.Validate.Struct(as)
}
