package main

import (
	"context"
	"database/sql"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/assistant"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
	aisvc "github.com/orishlabs/orish/services/ai"
	emailsvc "github.com/orishlabs/orish/services/email"
	logsvc "github.com/orishlabs/orish/services/logger"
	"github.com/orishlabs/orish/storage/database"
	sqlxrepos "github.com/orishlabs/orish/storage/database/sqlx"

	echoapi "github.com/orishlabs/orish/apps/api/echo"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logger := logsvc.NewRollbarLogger(
		stdlog.New(os.Stdout, "API : ", stdlog.LstdFlags|stdlog.Lmicroseconds|stdlog.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	// services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	aiClient := aisvc.NewDeepSeekClient(core.Conf, logger)
	if !aiClient.Available() {
		logger.Warn("AI client not configured, assistant runs on fallbacks only")
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	questionRepo := sqlxrepos.NewQuestionRepository(db)
	questionSvc := question.NewService(questionRepo)

	// assistant core
	fallback := assistant.NewFallback()
	grader := assistant.NewGrader(aiClient, fallback, logger)
	examSvc := exam.NewService(sqlxrepos.NewExamRepository(db), questionRepo, grader, grader)
	generator := assistant.NewGenerator(aiClient, fallback, logger)
	router := assistant.NewRouter(aiClient, logger)
	executor := assistant.NewExecutor(usrSvc, questionSvc, examSvc, generator, mailSvc, logger)
	transcripts := sqlxrepos.NewTranscriptRepository(db)
	controller := assistant.NewController(router, executor, aiClient, fallback, transcripts, logger)

	// API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:        core.Conf.Server.Address(),
		UserSvc:        usrSvc,
		QuestionSvc:    questionSvc,
		ExamSvc:        examSvc,
		Assistant:      controller,
		Generator:      generator,
		Grader:         grader,
		Transcripts:    transcripts,
		Logger:         logger,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", core.Conf.Server.Address()))
		serverErrors <- app.Start()
	}()

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = app.Stop(ctx); err != nil {
			logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB() (*sql.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
