package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/assistant"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc     *user.Service
		QuestionSvc *question.Service
		ExamSvc     *exam.Service

		Assistant   *assistant.Controller
		Generator   *assistant.Generator
		Grader      question.TextGrader
		Transcripts assistant.TranscriptSink

		Logger         core.Logger
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerQuestionAPI(v1, jwt, s.opts.QuestionSvc, s.opts.UserSvc, s.opts.Grader)
	registerExamAPI(v1, jwt, s.opts.ExamSvc, s.opts.UserSvc)
	registerAssistantAPI(v1, jwt, s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Orish API!")
}
