package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/assistant"
	extractsvc "github.com/orishlabs/orish/services/extract"
)

type assistantApi struct {
	opts *Options
}

func registerAssistantAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := assistantApi{opts: opts}

	ag := g.Group("/assistant", jwt)
	ag.POST("/chat", api.chat)
	ag.GET("/transcripts", api.transcripts)
	ag.POST("/analyze", api.analyze)
}

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

func (r *ChatRequest) Validate() error {
	r.Message = core.CleanString(r.Message)
	return core.Validate.Struct(r)
}

// chat streams the assistant turn as newline-delimited JSON events. The
// response always ends with exactly one done or error event; if the client
// goes away mid-stream the turn is dropped without a transcript.
func (api *assistantApi) chat(ctx echo.Context) error {
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(res)
	emit := func(evt assistant.Event) error {
		if err := enc.Encode(evt); err != nil {
			return err
		}
		res.Flush()
		return nil
	}

	turn := assistant.Turn{Actor: ctxUsr, Message: data.Message}
	if err = api.opts.Assistant.HandleTurn(ctx.Request().Context(), turn, emit); err != nil {
		// headers are gone; all we can do is log and close the stream
		api.opts.Logger.Warn("assistant stream aborted: %v", err)
	}
	return nil
}

func (api *assistantApi) transcripts(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	trs, err := api.opts.Transcripts.QueryTranscripts(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying transcripts")
	}
	if trs == nil {
		trs = []assistant.Transcript{}
	}
	return ctx.JSON(http.StatusOK, trs)
}

// analyze extracts the text of an uploaded document and returns a study
// analysis. The "prompt" form field optionally steers the summary.
func (api *assistantApi) analyze(ctx echo.Context) error {
	fh, err := ctx.FormFile("document")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing document file")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded document")
	}
	defer f.Close()

	text, err := extractsvc.Text(ctx.Request().Context(), f, fh.Size, fh.Filename)
	if err != nil {
		if errors.Cause(err) == extractsvc.ErrUnsupportedFormat {
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported document format")
		}
		return errors.Wrap(err, "extracting document text")
	}
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document has no readable text")
	}

	analysis, _ := api.opts.Generator.AnalyzeDocument(ctx.Request().Context(), text, ctx.FormValue("prompt"))
	return ctx.JSON(http.StatusOK, analysis)
}
