// Package dummydb is an in-memory storage backend used by tests and local
// tooling. Every repository guards its table with a RWMutex; nothing is
// persisted across process restarts.
package dummydb

import (
	"sync"

	"github.com/orishlabs/orish/core/assistant"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

type (
	DB struct {
		user       *userTable
		question   *questionTable
		exam       *examTable
		transcript *transcriptTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	questionTable struct {
		sync.RWMutex
		table        map[string]*question.Question
		groups       map[string]*question.Group
		groupMembers map[string][]string // groupID -> questionIDs
		groupUsers   map[string][]string // groupID -> userIDs
		quizResults  []question.QuizResult
	}

	examTable struct {
		sync.RWMutex
		table       map[string]*exam.Exam
		questions   map[string][]exam.Question   // examID -> questions
		assignments map[string][]exam.Assignment // examID -> assignments
		attempts    []exam.Attempt
	}

	transcriptTable struct {
		sync.RWMutex
		table []assistant.Transcript
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		question: &questionTable{
			table:        make(map[string]*question.Question),
			groups:       make(map[string]*question.Group),
			groupMembers: make(map[string][]string),
			groupUsers:   make(map[string][]string),
		},
		exam: &examTable{
			table:       make(map[string]*exam.Exam),
			questions:   make(map[string][]exam.Question),
			assignments: make(map[string][]exam.Assignment),
		},
		transcript: &transcriptTable{},
	}
	return db, nil
}
