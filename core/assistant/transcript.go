package assistant

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Transcript is one completed assistant turn, appended to a persisted,
// append-only log after the terminal event. Abandoned turns (caller
// disconnected before the terminal event) are not recorded.
type Transcript struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Message    string    `json:"message" db:"message"`
	Answer     string    `json:"answer" db:"answer"`
	NavigateTo string    `json:"navigate_to,omitempty" db:"navigate_to"`
	Outcome    string    `json:"outcome" db:"outcome"` // done | error
	Actions    []byte    `json:"-" db:"actions"`       // JSON-encoded []ActionResult
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TranscriptSink is the append-only store for completed turns.
type TranscriptSink interface {
	AppendTranscript(tr Transcript) error
	QueryTranscripts(userID string) ([]Transcript, error)
}

func newTranscript(userID, message string, terminal Event) Transcript {
	rawActions, _ := json.Marshal(terminal.Actions)
	return Transcript{
		ID:         uuid.NewString(),
		UserID:     userID,
		Message:    message,
		Answer:     terminal.Answer,
		NavigateTo: terminal.NavigateTo,
		Outcome:    string(terminal.Type),
		Actions:    rawActions,
		CreatedAt:  time.Now().UTC(),
	}
}
