package sqlxrepos

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core/question"
)

type questionRepository struct {
	db *sqlx.DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sql.DB) question.Repository {
	return &questionRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *questionRepository) CreateQuestion(q question.Question) (question.Question, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO questions (id, category, word, sentence, prompt, correct, wrong1, wrong2, wrong3, reference, created_at, updated_at)
		VALUES (:id, :category, :word, :sentence, :prompt, :correct, :wrong1, :wrong2, :wrong3, :reference, :created_at, :updated_at)`,
		q,
	)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo *questionRepository) GetQuestionByID(id string) (question.Question, error) {
	var q question.Question
	if err := repo.db.Get(&q, `SELECT * FROM questions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, errors.Wrap(err, "getting question")
	}
	return q, nil
}

func (repo *questionRepository) FilterQuestions(category question.Category) ([]question.Question, error) {
	var qs []question.Question
	var err error
	if category == "" {
		err = repo.db.Select(&qs, `SELECT * FROM questions ORDER BY created_at`)
	} else {
		err = repo.db.Select(&qs, `SELECT * FROM questions WHERE category = $1 ORDER BY created_at`, category)
	}
	if err != nil {
		return nil, errors.Wrap(err, "filtering questions")
	}
	return qs, nil
}

func (repo *questionRepository) RandomQuestions(category question.Category, n int) ([]question.Question, error) {
	var qs []question.Question
	err := repo.db.Select(&qs,
		`SELECT * FROM questions WHERE category = $1 ORDER BY random() LIMIT $2`, category, n)
	if err != nil {
		return nil, errors.Wrap(err, "sampling questions")
	}
	return qs, nil
}

func (repo *questionRepository) UpdateQuestion(q question.Question) (question.Question, error) {
	res, err := repo.db.NamedExec(`
		UPDATE questions
		SET category = :category, word = :word, sentence = :sentence, prompt = :prompt,
		    correct = :correct, wrong1 = :wrong1, wrong2 = :wrong2, wrong3 = :wrong3,
		    reference = :reference, updated_at = :updated_at
		WHERE id = :id`,
		q,
	)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return question.Question{}, question.ErrNotFound
	}
	return q, nil
}

func (repo *questionRepository) DeleteQuestionsByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM questions WHERE id = ANY ($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting questions")
}

func (repo *questionRepository) CreateGroup(g question.Group, questionIDs []string) (question.Group, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return question.Group{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExec(`
		INSERT INTO question_groups (id, name, description, owner_id, created_at)
		VALUES (:id, :name, :description, :owner_id, :created_at)`,
		g,
	)
	if err != nil {
		return question.Group{}, errors.Wrap(err, "inserting group")
	}
	for _, qid := range questionIDs {
		if _, err = tx.Exec(`
			INSERT INTO question_group_members (group_id, question_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, g.ID, qid); err != nil {
			return question.Group{}, errors.Wrap(err, "inserting group member")
		}
	}
	if err = tx.Commit(); err != nil {
		return question.Group{}, errors.Wrap(err, "committing group")
	}
	return g, nil
}

func (repo *questionRepository) GetGroupByID(id string) (question.Group, error) {
	var g question.Group
	if err := repo.db.Get(&g, `SELECT * FROM question_groups WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return question.Group{}, question.ErrGroupNotFound
		}
		return question.Group{}, errors.Wrap(err, "getting group")
	}
	return g, nil
}

func (repo *questionRepository) QueryGroups() ([]question.Group, error) {
	var groups []question.Group
	if err := repo.db.Select(&groups, `SELECT * FROM question_groups ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return groups, nil
}

func (repo *questionRepository) QueryGroupsForUser(userID string) ([]question.Group, error) {
	var groups []question.Group
	err := repo.db.Select(&groups, `
		SELECT g.* FROM question_groups g
		JOIN question_group_users gu ON gu.group_id = g.id
		WHERE gu.user_id = $1
		ORDER BY g.created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user groups")
	}
	return groups, nil
}

func (repo *questionRepository) QueryGroupQuestions(groupID string) ([]question.Question, error) {
	if _, err := repo.GetGroupByID(groupID); err != nil {
		return nil, err
	}
	var qs []question.Question
	err := repo.db.Select(&qs, `
		SELECT q.* FROM questions q
		JOIN question_group_members gm ON gm.question_id = q.id
		WHERE gm.group_id = $1
		ORDER BY q.created_at`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying group questions")
	}
	return qs, nil
}

func (repo *questionRepository) AddGroupQuestions(groupID string, questionIDs ...string) error {
	if _, err := repo.GetGroupByID(groupID); err != nil {
		return err
	}
	for _, qid := range questionIDs {
		if _, err := repo.db.Exec(`
			INSERT INTO question_group_members (group_id, question_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, groupID, qid); err != nil {
			return errors.Wrap(err, "adding group question")
		}
	}
	return nil
}

func (repo *questionRepository) AssignGroup(groupID string, userIDs ...string) error {
	if _, err := repo.GetGroupByID(groupID); err != nil {
		return err
	}
	for _, uid := range userIDs {
		if _, err := repo.db.Exec(`
			INSERT INTO question_group_users (group_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, groupID, uid); err != nil {
			return errors.Wrap(err, "assigning group")
		}
	}
	return nil
}

func (repo *questionRepository) DeleteGroupsByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM question_groups WHERE id = ANY ($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting groups")
}

func (repo *questionRepository) CreateQuizResult(res question.QuizResult) (question.QuizResult, error) {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO quiz_results (id, user_id, category, score, total, created_at)
		VALUES (:id, :user_id, :category, :score, :total, :created_at)`,
		res,
	)
	if err != nil {
		return question.QuizResult{}, errors.Wrap(err, "inserting quiz result")
	}
	return res, nil
}

func (repo *questionRepository) QueryQuizResults(userID string) ([]question.QuizResult, error) {
	var results []question.QuizResult
	err := repo.db.Select(&results,
		`SELECT * FROM quiz_results WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz results")
	}
	return results, nil
}
