package assistant

import (
	"context"
	"strings"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/user"
)

const chatSystemPrompt = `You are a friendly tutor on a language practice platform.
Help with vocabulary, grammar, translation and study habits. Keep answers short and encouraging.`

const offlineNotice = "AI temporarily offline, answering from built-in tips."

// Turn is one user message handed to the assistant.
type Turn struct {
	Actor   user.User
	Message string
}

// Controller runs a full assistant turn: classify, act or answer, stream
// events to the caller, record a transcript. Every turn ends with exactly one
// terminal event unless the emitter reports the transport gone, in which case
// the turn is abandoned with nothing persisted.
type Controller struct {
	router      *Router
	executor    *Executor
	client      ai.Client
	fallback    *Fallback
	transcripts TranscriptSink
	logger      core.Logger
}

func NewController(
	router *Router,
	executor *Executor,
	client ai.Client,
	fallback *Fallback,
	transcripts TranscriptSink,
	logger core.Logger,
) *Controller {
	return &Controller{
		router:      router,
		executor:    executor,
		client:      client,
		fallback:    fallback,
		transcripts: transcripts,
		logger:      logger,
	}
}

func (c *Controller) HandleTurn(ctx context.Context, turn Turn, emit Emitter) error {
	if err := emit(statusEvent("Thinking about your request...")); err != nil {
		return err
	}

	in := c.router.Classify(ctx, turn.Message, turn.Actor)

	var terminal Event
	var err error
	switch {
	case in.Type == IntentChat:
		terminal, err = c.answer(ctx, turn, emit)
	case in.Type == IntentNavigate:
		terminal, err = c.act(ctx, in, turn, emit, "Working out where to send you...")
	default:
		terminal, err = c.act(ctx, in, turn, emit, "On it, making the changes...")
	}
	if err != nil {
		// transport gone mid-turn: abandon, no transcript
		return err
	}

	if err := emit(terminal); err != nil {
		return err
	}
	if err := c.transcripts.AppendTranscript(newTranscript(turn.Actor.ID, turn.Message, terminal)); err != nil {
		c.logger.Error("assistant: recording transcript: %v", err)
	}
	return nil
}

// answer streams a chat reply. Model chunks are forwarded as they arrive;
// when the model is unreachable the canned fallback goes out as one chunk
// after a status notice.
func (c *Controller) answer(ctx context.Context, turn Turn, emit Emitter) (Event, error) {
	if c.client != nil && c.client.Available() {
		var (
			emitErr  error
			streamed strings.Builder
		)
		answer, err := c.client.Stream(ctx, []ai.Message{
			ai.SystemMessage(chatSystemPrompt),
			ai.UserMessage(turn.Message),
		}, func(chunk string) error {
			if emitErr = emit(chunkEvent(chunk)); emitErr == nil {
				streamed.WriteString(chunk)
			}
			return emitErr
		})
		if emitErr != nil {
			return Event{}, emitErr
		}
		if err == nil {
			answer = strings.TrimSpace(sanitizePayload(answer))
			return Event{Type: EventDone, Answer: answer}, nil
		}
		if !ai.IsUnavailable(err) {
			c.logger.Error("assistant: chat stream: %v", err)
			return errorEvent("Something went wrong while answering. Please try again."), nil
		}
		c.logger.Info("assistant: model unavailable, using canned answer")
		if streamed.Len() > 0 {
			// chunks already reached the caller: finish with what streamed
			// rather than restarting with a status and a second answer
			return Event{Type: EventDone, Answer: strings.TrimSpace(streamed.String())}, nil
		}
	}

	if err := emit(statusEvent(offlineNotice)); err != nil {
		return Event{}, err
	}
	answer := c.fallback.Answer(turn.Message)
	if err := emit(chunkEvent(answer)); err != nil {
		return Event{}, err
	}
	return Event{Type: EventDone, Answer: answer}, nil
}

// act executes a classified action and shapes the terminal event from its
// result. Infrastructure failures become an error event; permission and
// validation outcomes still complete the turn with done.
func (c *Controller) act(ctx context.Context, in Intent, turn Turn, emit Emitter, progress string) (Event, error) {
	if err := emit(progressEvent(progress)); err != nil {
		return Event{}, err
	}

	res, err := c.executor.Execute(ctx, in, turn.Actor)
	if err != nil {
		c.logger.Error("assistant: executing %s: %v", in.Type, err)
		return errorEvent("I hit an internal error carrying that out. Nothing was changed."), nil
	}

	done := Event{
		Type:    EventDone,
		Answer:  res.Message,
		Actions: []ActionResult{res},
	}
	if res.Type == IntentNavigate && res.Status == ActionSuccess {
		done.NavigateTo = res.Target
	}
	return done, nil
}
