package question

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core"
)

// QuizSize is the number of questions in one practice run.
const QuizSize = 5

var (
	// errors
	ErrNotFound      = errors.New("question not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrBankTooSmall  = errors.New("not enough questions in this category")
)

type (
	// Verdict is the outcome of grading one free-text answer.
	Verdict struct {
		Correct     bool    `json:"is_correct"`
		Feedback    string  `json:"feedback"`
		Explanation string  `json:"explanation,omitempty"`
		Score       float64 `json:"score,omitempty"`
	}

	// TextGrader judges a free-text answer against a reference answer.
	TextGrader interface {
		GradeText(ctx context.Context, prompt, reference, answer string) Verdict
	}

	Repository interface {
		CreateQuestion(q Question) (Question, error)
		GetQuestionByID(id string) (Question, error)
		FilterQuestions(category Category) ([]Question, error)
		// RandomQuestions returns up to n bank entries of the given category.
		RandomQuestions(category Category, n int) ([]Question, error)
		UpdateQuestion(q Question) (Question, error)
		DeleteQuestionsByID(ids ...string) error

		CreateGroup(g Group, questionIDs []string) (Group, error)
		GetGroupByID(id string) (Group, error)
		QueryGroups() ([]Group, error)
		QueryGroupsForUser(userID string) ([]Group, error)
		QueryGroupQuestions(groupID string) ([]Question, error)
		AddGroupQuestions(groupID string, questionIDs ...string) error
		AssignGroup(groupID string, userIDs ...string) error
		DeleteGroupsByID(ids ...string) error

		CreateQuizResult(res QuizResult) (QuizResult, error)
		QueryQuizResults(userID string) ([]QuizResult, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(nq NewQuestion) (Question, error) {
	now := time.Now().UTC()
	q := Question{
		ID:        uuid.NewString(),
		Category:  nq.Category,
		Word:      nq.Word,
		Sentence:  nq.Sentence,
		Prompt:    nq.Prompt,
		Correct:   nq.Correct,
		Wrong1:    nq.Wrong1,
		Wrong2:    nq.Wrong2,
		Wrong3:    nq.Wrong3,
		Reference: nq.Reference,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateQuestion(q)
}

// CreateBatch persists a set of generated questions, skipping none; the caller
// validates each entry beforehand.
func (svc *Service) CreateBatch(nqs []NewQuestion) ([]Question, error) {
	created := make([]Question, 0, len(nqs))
	for _, nq := range nqs {
		q, err := svc.Create(nq)
		if err != nil {
			return created, err
		}
		created = append(created, q)
	}
	return created, nil
}

func (svc *Service) GetByID(id string) (Question, error) {
	return svc.repo.GetQuestionByID(id)
}

func (svc *Service) Filter(category Category) ([]Question, error) {
	return svc.repo.FilterQuestions(category)
}

func (svc *Service) Update(id string, nq NewQuestion) (Question, error) {
	q, err := svc.repo.GetQuestionByID(id)
	if err != nil {
		return Question{}, err
	}
	q.Word = nq.Word
	q.Sentence = nq.Sentence
	q.Prompt = nq.Prompt
	q.Correct = nq.Correct
	q.Wrong1 = nq.Wrong1
	q.Wrong2 = nq.Wrong2
	q.Wrong3 = nq.Wrong3
	q.Reference = nq.Reference
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuestion(q)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteQuestionsByID(ids...)
}

// Groups

func (svc *Service) CreateGroup(ownerID string, ng NewGroup) (Group, error) {
	g := Group{
		ID:          uuid.NewString(),
		Name:        ng.Name,
		Description: ng.Description,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateGroup(g, ng.QuestionIDs)
}

func (svc *Service) GetGroupByID(id string) (Group, error) {
	return svc.repo.GetGroupByID(id)
}

func (svc *Service) QueryGroups() ([]Group, error) {
	return svc.repo.QueryGroups()
}

func (svc *Service) QueryGroupsForUser(userID string) ([]Group, error) {
	return svc.repo.QueryGroupsForUser(userID)
}

func (svc *Service) GroupQuestions(groupID string) ([]Question, error) {
	return svc.repo.QueryGroupQuestions(groupID)
}

func (svc *Service) AddGroupQuestions(groupID string, questionIDs ...string) error {
	return svc.repo.AddGroupQuestions(groupID, questionIDs...)
}

func (svc *Service) AssignGroup(groupID string, userIDs ...string) error {
	return svc.repo.AssignGroup(groupID, userIDs...)
}

func (svc *Service) DeleteGroups(ids ...string) error {
	return svc.repo.DeleteGroupsByID(ids...)
}

// Quiz

// BuildQuiz picks a random practice set from the bank.
func (svc *Service) BuildQuiz(category Category) ([]Question, error) {
	if !category.Valid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "category", Error: "invalid category"})
	}
	qs, err := svc.repo.RandomQuestions(category, QuizSize)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, ErrBankTooSmall
	}
	return qs, nil
}

// SubmitQuiz grades the answer sheet and records the result.
// Mcq answers are graded by case-insensitive equality; text answers go through
// the grader (model-backed with a deterministic fallback).
func (svc *Service) SubmitQuiz(
	ctx context.Context,
	userID string,
	category Category,
	questionIDs []string,
	answers map[string]string,
	grader TextGrader,
) (QuizResult, error) {
	var score int
	total := len(questionIDs)

	for _, qid := range questionIDs {
		q, err := svc.repo.GetQuestionByID(qid)
		if err != nil {
			return QuizResult{}, errors.Wrap(err, "loading quiz question")
		}
		answer := strings.TrimSpace(answers[qid])
		switch q.Category.AnswerType() {
		case AnswerMCQ:
			if strings.EqualFold(answer, q.Correct) {
				score++
			}
		default:
			if grader.GradeText(ctx, q.DisplayPrompt(), q.Reference, answer).Correct {
				score++
			}
		}
	}

	res := QuizResult{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  category,
		Score:     score,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateQuizResult(res)
}

func (svc *Service) QuizResults(userID string) ([]QuizResult, error) {
	return svc.repo.QueryQuizResults(userID)
}
