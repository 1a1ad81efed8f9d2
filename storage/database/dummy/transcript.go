package dummydb

import (
	"github.com/samber/lo"

	"github.com/orishlabs/orish/core/assistant"
)

type transcriptRepository struct {
	db *transcriptTable
}

var _ assistant.TranscriptSink = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *DB) assistant.TranscriptSink {
	return &transcriptRepository{db: db.transcript}
}

func (repo *transcriptRepository) AppendTranscript(tr assistant.Transcript) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = append(repo.db.table, tr)
	return nil
}

func (repo *transcriptRepository) QueryTranscripts(userID string) ([]assistant.Transcript, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return lo.Filter(repo.db.table, func(tr assistant.Transcript, _ int) bool {
		return tr.UserID == userID
	}), nil
}
