package dummydb

import (
	"math/rand"
	"sort"

	"github.com/samber/lo"

	"github.com/orishlabs/orish/core/question"
)

type questionRepository struct {
	db *questionTable
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) question.Repository {
	return &questionRepository{db: db.question}
}

func (repo *questionRepository) query() []question.Question {
	qs := make([]question.Question, 0, len(repo.db.table))
	for _, q := range repo.db.table {
		qs = append(qs, *q)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].CreatedAt.Before(qs[j].CreatedAt) })
	return qs
}

func (repo *questionRepository) CreateQuestion(q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) GetQuestionByID(id string) (question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return *q, nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) FilterQuestions(category question.Category) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	qs := repo.query()
	if category == "" {
		return qs, nil
	}
	return lo.Filter(qs, func(q question.Question, _ int) bool {
		return q.Category == category
	}), nil
}

func (repo *questionRepository) RandomQuestions(category question.Category, n int) ([]question.Question, error) {
	qs, err := repo.FilterQuestions(category)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	if len(qs) > n {
		qs = qs[:n]
	}
	return qs, nil
}

func (repo *questionRepository) UpdateQuestion(q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[q.ID]; !ok {
		return question.Question{}, question.ErrNotFound
	}
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) DeleteQuestionsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *questionRepository) CreateGroup(g question.Group, questionIDs []string) (question.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.groups[g.ID] = &g
	repo.db.groupMembers[g.ID] = append([]string(nil), questionIDs...)
	return g, nil
}

func (repo *questionRepository) GetGroupByID(id string) (question.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return *g, nil
	}
	return question.Group{}, question.ErrGroupNotFound
}

func (repo *questionRepository) QueryGroups() ([]question.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]question.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

func (repo *questionRepository) QueryGroupsForUser(userID string) ([]question.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var groups []question.Group
	for gid, userIDs := range repo.db.groupUsers {
		if lo.Contains(userIDs, userID) {
			if g, ok := repo.db.groups[gid]; ok {
				groups = append(groups, *g)
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

func (repo *questionRepository) QueryGroupQuestions(groupID string) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.groups[groupID]; !ok {
		return nil, question.ErrGroupNotFound
	}
	var qs []question.Question
	for _, qid := range repo.db.groupMembers[groupID] {
		if q, ok := repo.db.table[qid]; ok {
			qs = append(qs, *q)
		}
	}
	return qs, nil
}

func (repo *questionRepository) AddGroupQuestions(groupID string, questionIDs ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[groupID]; !ok {
		return question.ErrGroupNotFound
	}
	members := repo.db.groupMembers[groupID]
	for _, qid := range questionIDs {
		if !lo.Contains(members, qid) {
			members = append(members, qid)
		}
	}
	repo.db.groupMembers[groupID] = members
	return nil
}

func (repo *questionRepository) AssignGroup(groupID string, userIDs ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[groupID]; !ok {
		return question.ErrGroupNotFound
	}
	assigned := repo.db.groupUsers[groupID]
	for _, uid := range userIDs {
		if !lo.Contains(assigned, uid) {
			assigned = append(assigned, uid)
		}
	}
	repo.db.groupUsers[groupID] = assigned
	return nil
}

func (repo *questionRepository) DeleteGroupsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.groups, id)
		delete(repo.db.groupMembers, id)
		delete(repo.db.groupUsers, id)
	}
	return nil
}

func (repo *questionRepository) CreateQuizResult(res question.QuizResult) (question.QuizResult, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.quizResults = append(repo.db.quizResults, res)
	return res, nil
}

func (repo *questionRepository) QueryQuizResults(userID string) ([]question.QuizResult, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return lo.Filter(repo.db.quizResults, func(r question.QuizResult, _ int) bool {
		return r.UserID == userID
	}), nil
}
