package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core/assistant"
)

type transcriptRepository struct {
	db *sqlx.DB
}

var _ assistant.TranscriptSink = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *sql.DB) assistant.TranscriptSink {
	return &transcriptRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *transcriptRepository) AppendTranscript(tr assistant.Transcript) error {
	_, err := repo.db.NamedExec(`
		INSERT INTO assistant_transcripts (id, user_id, message, answer, navigate_to, outcome, actions, created_at)
		VALUES (:id, :user_id, :message, :answer, :navigate_to, :outcome, :actions, :created_at)`,
		tr,
	)
	return errors.Wrap(err, "inserting transcript")
}

func (repo *transcriptRepository) QueryTranscripts(userID string) ([]assistant.Transcript, error) {
	var transcripts []assistant.Transcript
	err := repo.db.Select(&transcripts,
		`SELECT * FROM assistant_transcripts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying transcripts")
	}
	return transcripts, nil
}
