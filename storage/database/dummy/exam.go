package dummydb

import (
	"sort"

	"github.com/samber/lo"

	"github.com/orishlabs/orish/core/exam"
)

type examRepository struct {
	db *examTable
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db.exam}
}

func (repo *examRepository) query() []exam.Exam {
	exams := make([]exam.Exam, 0, len(repo.db.table))
	for _, ex := range repo.db.table {
		exams = append(exams, *ex)
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].CreatedAt.Before(exams[j].CreatedAt) })
	return exams
}

func (repo *examRepository) CreateExam(ex exam.Exam, qs []exam.Question) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[ex.ID] = &ex
	repo.db.questions[ex.ID] = append([]exam.Question(nil), qs...)
	return ex, nil
}

func (repo *examRepository) GetExamByID(id string) (exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.table[id]; ok {
		return *ex, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) QueryExams() ([]exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *examRepository) QueryExamsForUser(userID string) ([]exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var exams []exam.Exam
	for examID, assignments := range repo.db.assignments {
		for _, a := range assignments {
			if a.UserID != userID {
				continue
			}
			if ex, ok := repo.db.table[examID]; ok && ex.IsActive {
				exams = append(exams, *ex)
			}
			break
		}
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].CreatedAt.Before(exams[j].CreatedAt) })
	return exams, nil
}

func (repo *examRepository) UpdateExam(ex exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[ex.ID]; !ok {
		return exam.Exam{}, exam.ErrNotFound
	}
	repo.db.table[ex.ID] = &ex
	return ex, nil
}

func (repo *examRepository) DeleteExamsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
		delete(repo.db.questions, id)
		delete(repo.db.assignments, id)
	}
	return nil
}

func (repo *examRepository) QueryExamQuestions(examID string) ([]exam.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.table[examID]; !ok {
		return nil, exam.ErrNotFound
	}
	qs := append([]exam.Question(nil), repo.db.questions[examID]...)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	return qs, nil
}

func (repo *examRepository) CreateAssignments(assignments ...exam.Assignment) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range assignments {
		existing := repo.db.assignments[a.ExamID]
		replaced := false
		for i, e := range existing {
			if e.UserID == a.UserID {
				existing[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, a)
		}
		repo.db.assignments[a.ExamID] = existing
	}
	return nil
}

func (repo *examRepository) GetAssignment(examID, userID string) (exam.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.assignments[examID] {
		if a.UserID == userID {
			return a, nil
		}
	}
	return exam.Assignment{}, exam.ErrNotAssigned
}

func (repo *examRepository) QueryAssignments(examID string) ([]exam.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return append([]exam.Assignment(nil), repo.db.assignments[examID]...), nil
}

func (repo *examRepository) CreateAttempt(att exam.Attempt) (exam.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.attempts = append(repo.db.attempts, att)
	return att, nil
}

func (repo *examRepository) QueryAttempts(examID string) ([]exam.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return lo.Filter(repo.db.attempts, func(a exam.Attempt, _ int) bool {
		return a.ExamID == examID
	}), nil
}

func (repo *examRepository) QueryUserAttempts(userID string) ([]exam.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return lo.Filter(repo.db.attempts, func(a exam.Attempt, _ int) bool {
		return a.UserID == userID
	}), nil
}
