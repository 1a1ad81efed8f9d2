package assistant

// Event types, in the order they may appear within one turn: any number of
// status/progress, any number of chunk, then exactly one done or error.
const (
	EventStatus   EventType = "status"
	EventProgress EventType = "progress"
	EventChunk    EventType = "chunk"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

type EventType string

// Event is one NDJSON line streamed back to the caller.
type Event struct {
	Type       EventType      `json:"type"`
	Message    string         `json:"message,omitempty"`     // status | progress | error
	Content    string         `json:"content,omitempty"`     // chunk
	Answer     string         `json:"answer,omitempty"`      // done
	NavigateTo string         `json:"navigate_to,omitempty"` // done
	Actions    []ActionResult `json:"actions,omitempty"`     // done
}

// Terminal reports whether the event ends the turn.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Emitter delivers one event to the caller. A non-nil error means the
// transport is gone; the controller abandons the rest of the turn silently.
type Emitter func(Event) error

func statusEvent(msg string) Event   { return Event{Type: EventStatus, Message: msg} }
func progressEvent(msg string) Event { return Event{Type: EventProgress, Message: msg} }
func chunkEvent(content string) Event {
	return Event{Type: EventChunk, Content: content}
}
func errorEvent(msg string) Event { return Event{Type: EventError, Message: msg} }
