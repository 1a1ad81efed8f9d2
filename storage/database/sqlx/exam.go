package sqlxrepos

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core/exam"
)

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sql.DB) exam.Repository {
	return &examRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *examRepository) CreateExam(ex exam.Exam, qs []exam.Question) (exam.Exam, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExec(`
		INSERT INTO exams (id, title, description, category, question_count, allow_study, allow_test,
		                   is_active, ai_prompt, created_by, created_at, updated_at)
		VALUES (:id, :title, :description, :category, :question_count, :allow_study, :allow_test,
		        :is_active, :ai_prompt, :created_by, :created_at, :updated_at)`,
		ex,
	)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	for _, q := range qs {
		if _, err = tx.NamedExec(`
			INSERT INTO exam_questions (id, exam_id, position, prompt, answer_type, correct, wrong1, wrong2, wrong3, reference, source)
			VALUES (:id, :exam_id, :position, :prompt, :answer_type, :correct, :wrong1, :wrong2, :wrong3, :reference, :source)`,
			q,
		); err != nil {
			return exam.Exam{}, errors.Wrap(err, "inserting exam question")
		}
	}
	if err = tx.Commit(); err != nil {
		return exam.Exam{}, errors.Wrap(err, "committing exam")
	}
	return ex, nil
}

func (repo *examRepository) GetExamByID(id string) (exam.Exam, error) {
	var ex exam.Exam
	if err := repo.db.Get(&ex, `SELECT * FROM exams WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return exam.Exam{}, exam.ErrNotFound
		}
		return exam.Exam{}, errors.Wrap(err, "getting exam")
	}
	return ex, nil
}

func (repo *examRepository) QueryExams() ([]exam.Exam, error) {
	var exams []exam.Exam
	if err := repo.db.Select(&exams, `SELECT * FROM exams ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	return exams, nil
}

func (repo *examRepository) QueryExamsForUser(userID string) ([]exam.Exam, error) {
	var exams []exam.Exam
	err := repo.db.Select(&exams, `
		SELECT e.* FROM exams e
		JOIN exam_assignments a ON a.exam_id = e.id
		WHERE a.user_id = $1 AND e.is_active
		ORDER BY e.created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user exams")
	}
	return exams, nil
}

func (repo *examRepository) UpdateExam(ex exam.Exam) (exam.Exam, error) {
	res, err := repo.db.NamedExec(`
		UPDATE exams
		SET title = :title, description = :description, category = :category,
		    question_count = :question_count, allow_study = :allow_study, allow_test = :allow_test,
		    is_active = :is_active, ai_prompt = :ai_prompt, updated_at = :updated_at
		WHERE id = :id`,
		ex,
	)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "updating exam")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return exam.Exam{}, exam.ErrNotFound
	}
	return ex, nil
}

func (repo *examRepository) DeleteExamsByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM exams WHERE id = ANY ($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting exams")
}

func (repo *examRepository) QueryExamQuestions(examID string) ([]exam.Question, error) {
	if _, err := repo.GetExamByID(examID); err != nil {
		return nil, err
	}
	var qs []exam.Question
	err := repo.db.Select(&qs,
		`SELECT * FROM exam_questions WHERE exam_id = $1 ORDER BY position`, examID)
	if err != nil {
		return nil, errors.Wrap(err, "querying exam questions")
	}
	return qs, nil
}

func (repo *examRepository) CreateAssignments(assignments ...exam.Assignment) error {
	for _, a := range assignments {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err := repo.db.NamedExec(`
			INSERT INTO exam_assignments (id, exam_id, user_id, can_study, can_test)
			VALUES (:id, :exam_id, :user_id, :can_study, :can_test)
			ON CONFLICT (exam_id, user_id)
			DO UPDATE SET can_study = EXCLUDED.can_study, can_test = EXCLUDED.can_test`,
			a,
		)
		if err != nil {
			return errors.Wrap(err, "inserting assignment")
		}
	}
	return nil
}

func (repo *examRepository) GetAssignment(examID, userID string) (exam.Assignment, error) {
	var a exam.Assignment
	err := repo.db.Get(&a,
		`SELECT * FROM exam_assignments WHERE exam_id = $1 AND user_id = $2`, examID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return exam.Assignment{}, exam.ErrNotAssigned
		}
		return exam.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return a, nil
}

func (repo *examRepository) QueryAssignments(examID string) ([]exam.Assignment, error) {
	var assignments []exam.Assignment
	err := repo.db.Select(&assignments,
		`SELECT * FROM exam_assignments WHERE exam_id = $1`, examID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignments, nil
}

func (repo *examRepository) CreateAttempt(att exam.Attempt) (exam.Attempt, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO exam_attempts (id, exam_id, user_id, mode, score, total, details, ai_feedback, created_at)
		VALUES (:id, :exam_id, :user_id, :mode, :score, :total, :details, :ai_feedback, :created_at)`,
		att,
	)
	if err != nil {
		return exam.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return att, nil
}

func (repo *examRepository) QueryAttempts(examID string) ([]exam.Attempt, error) {
	var attempts []exam.Attempt
	err := repo.db.Select(&attempts,
		`SELECT * FROM exam_attempts WHERE exam_id = $1 ORDER BY created_at`, examID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	return attempts, nil
}

func (repo *examRepository) QueryUserAttempts(userID string) ([]exam.Attempt, error) {
	var attempts []exam.Attempt
	err := repo.db.Select(&attempts,
		`SELECT * FROM exam_attempts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user attempts")
	}
	return attempts, nil
}
