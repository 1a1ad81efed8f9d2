package exam

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/question"
)

var (
	// errors
	ErrNotFound     = errors.New("exam not found")
	ErrNotAssigned  = errors.New("exam not available for this user")
	ErrBankTooSmall = errors.New("not enough questions to build the exam")
)

type (
	Repository interface {
		// CreateExam inserts the exam and all its questions in one transaction.
		CreateExam(ex Exam, qs []Question) (Exam, error)
		GetExamByID(id string) (Exam, error)
		QueryExams() ([]Exam, error)
		// QueryExamsForUser returns active exams assigned to the user.
		QueryExamsForUser(userID string) ([]Exam, error)
		UpdateExam(ex Exam) (Exam, error)
		DeleteExamsByID(ids ...string) error

		QueryExamQuestions(examID string) ([]Question, error)

		CreateAssignments(assignments ...Assignment) error
		GetAssignment(examID, userID string) (Assignment, error)
		QueryAssignments(examID string) ([]Assignment, error)

		CreateAttempt(att Attempt) (Attempt, error)
		QueryAttempts(examID string) ([]Attempt, error)
		QueryUserAttempts(userID string) ([]Attempt, error)
	}

	// Summarizer produces an optional teacher-facing summary of an attempt.
	Summarizer interface {
		SummarizeAttempt(ctx context.Context, examTitle string, details []AttemptDetail) (string, error)
	}

	Service struct {
		repo   Repository
		bank   question.Repository
		grader question.TextGrader
		summ   Summarizer
	}
)

func NewService(repo Repository, bank question.Repository, grader question.TextGrader, summ Summarizer) *Service {
	return &Service{repo: repo, bank: bank, grader: grader, summ: summ}
}

// Create validates and stores the exam with its specific questions atomically.
func (svc *Service) Create(createdBy string, ne NewExam) (Exam, error) {
	now := time.Now().UTC()
	ex := Exam{
		ID:            uuid.NewString(),
		Title:         ne.Title,
		Description:   ne.Description,
		Category:      ne.Category,
		QuestionCount: ne.QuestionCount,
		AllowStudy:    ne.AllowStudy,
		AllowTest:     ne.AllowTest,
		IsActive:      true,
		AIPrompt:      ne.AIPrompt,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	qs := make([]Question, 0, len(ne.Questions))
	for i, nq := range ne.Questions {
		qs = append(qs, Question{
			ID:         uuid.NewString(),
			ExamID:     ex.ID,
			Position:   i + 1,
			Prompt:     nq.Prompt,
			AnswerType: nq.AnswerType,
			Correct:    nq.Correct,
			Wrong1:     nq.Wrong1,
			Wrong2:     nq.Wrong2,
			Wrong3:     nq.Wrong3,
			Reference:  nq.Reference,
			Source:     nq.Source,
			CreatedAt:  now,
		})
	}
	return svc.repo.CreateExam(ex, qs)
}

func (svc *Service) GetByID(id string) (Exam, error) {
	return svc.repo.GetExamByID(id)
}

func (svc *Service) QueryAll() ([]Exam, error) {
	return svc.repo.QueryExams()
}

func (svc *Service) QueryForUser(userID string) ([]Exam, error) {
	return svc.repo.QueryExamsForUser(userID)
}

func (svc *Service) Update(ex Exam) (Exam, error) {
	ex.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExam(ex)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteExamsByID(ids...)
}

func (svc *Service) Questions(examID string) ([]Question, error) {
	return svc.repo.QueryExamQuestions(examID)
}

func (svc *Service) Assign(examID string, na NewAssignment) error {
	assignments := make([]Assignment, 0, len(na.UserIDs))
	for _, uid := range na.UserIDs {
		assignments = append(assignments, Assignment{
			ID:       uuid.NewString(),
			ExamID:   examID,
			UserID:   uid,
			CanStudy: na.CanStudy,
			CanTest:  na.CanTest,
		})
	}
	return svc.repo.CreateAssignments(assignments...)
}

func (svc *Service) Assignments(examID string) ([]Assignment, error) {
	return svc.repo.QueryAssignments(examID)
}

// BuildQuestionSet returns the exam's question sheet: its specific questions
// in position order, topped up from the shared bank until QuestionCount is
// reached. Errors when the bank cannot cover the shortfall.
func (svc *Service) BuildQuestionSet(ex Exam) ([]Question, error) {
	qs, err := svc.repo.QueryExamQuestions(ex.ID)
	if err != nil {
		return nil, errors.Wrap(err, "loading exam questions")
	}
	if len(qs) >= ex.QuestionCount {
		return qs[:ex.QuestionCount], nil
	}

	shortfall := ex.QuestionCount - len(qs)
	bankQs, err := svc.bank.RandomQuestions(ex.Category, shortfall)
	if err != nil {
		return nil, errors.Wrap(err, "topping up from bank")
	}
	if len(bankQs) < shortfall {
		return nil, ErrBankTooSmall
	}
	pos := len(qs)
	for _, bq := range bankQs {
		pos++
		qs = append(qs, Question{
			ID:         bq.ID,
			ExamID:     ex.ID,
			Position:   pos,
			Prompt:     bq.DisplayPrompt(),
			AnswerType: bq.Category.AnswerType(),
			Correct:    bq.Correct,
			Wrong1:     bq.Wrong1,
			Wrong2:     bq.Wrong2,
			Wrong3:     bq.Wrong3,
			Reference:  bq.Reference,
			Source:     SourceManual,
		})
	}
	return qs, nil
}

// CanAttempt reports whether the user may open the exam in the given mode.
// Admins and teachers always may; students need an assignment with the
// matching toggle on an active exam.
func (svc *Service) CanAttempt(ex Exam, userID string, mode string, privileged bool) error {
	if privileged {
		return nil
	}
	if !ex.IsActive {
		return ErrNotAssigned
	}
	asg, err := svc.repo.GetAssignment(ex.ID, userID)
	if err != nil {
		return ErrNotAssigned
	}
	switch mode {
	case ModeStudy:
		if !(ex.AllowStudy && asg.CanStudy) {
			return ErrNotAssigned
		}
	case ModeTest:
		if !(ex.AllowTest && asg.CanTest) {
			return ErrNotAssigned
		}
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "mode", Error: "invalid mode"})
	}
	return nil
}

// SubmitAttempt grades a full answer sheet server-side and stores the attempt
// with its per-answer detail. Mcq answers grade by case-insensitive equality;
// text answers go through the grader. A teacher summary is attached when the
// summarizer can produce one.
func (svc *Service) SubmitAttempt(ctx context.Context, ex Exam, userID string, sheet AnswerSheet) (Attempt, error) {
	qs, err := svc.BuildQuestionSet(ex)
	if err != nil {
		return Attempt{}, err
	}

	var score int
	details := make([]AttemptDetail, 0, len(qs))
	for _, q := range qs {
		answer := strings.TrimSpace(sheet.Answers[q.ID])
		detail := AttemptDetail{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Selected:   answer,
			Correct:    q.Correct,
		}
		switch q.AnswerType {
		case question.AnswerMCQ:
			detail.IsCorrect = strings.EqualFold(answer, q.Correct)
		default:
			verdict := svc.grader.GradeText(ctx, q.Prompt, q.Reference, answer)
			detail.IsCorrect = verdict.Correct
			detail.Feedback = verdict.Feedback
			detail.Correct = q.Reference
		}
		if detail.IsCorrect {
			score++
		}
		details = append(details, detail)
	}

	rawDetails, err := json.Marshal(details)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "encoding attempt details")
	}

	att := Attempt{
		ID:        uuid.NewString(),
		ExamID:    ex.ID,
		UserID:    userID,
		Mode:      sheet.Mode,
		Score:     score,
		Total:     len(qs),
		Details:   rawDetails,
		CreatedAt: time.Now().UTC(),
	}
	if svc.summ != nil && sheet.Mode == ModeTest {
		if summary, err := svc.summ.SummarizeAttempt(ctx, ex.Title, details); err == nil {
			att.AIFeedback = summary
		}
	}
	return svc.repo.CreateAttempt(att)
}

func (svc *Service) Attempts(examID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(examID)
}

func (svc *Service) UserAttempts(userID string) ([]Attempt, error) {
	return svc.repo.QueryUserAttempts(userID)
}

// AttemptDetails decodes the stored per-answer records.
func (att Attempt) AttemptDetails() ([]AttemptDetail, error) {
	var details []AttemptDetail
	if err := json.Unmarshal(att.Details, &details); err != nil {
		return nil, errors.Wrap(err, "decoding attempt details")
	}
	return details, nil
}
