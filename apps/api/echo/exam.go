package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

type examApi struct {
	svc     *exam.Service
	userSvc *user.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, userSvc *user.Service) {
	api := examApi{svc: svc, userSvc: userSvc}

	eg := g.Group("/exams", jwt)
	eg.POST("", api.create, staffMiddleware())
	eg.GET("", api.query)
	eg.DELETE("", api.destroyMultiple, adminMiddleware())
	eg.GET("/attempts/mine", api.myAttempts)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, staffMiddleware())
	eg.POST("/:id/assign", api.assign, staffMiddleware())
	eg.GET("/:id/assignments", api.assignments, staffMiddleware())
	eg.GET("/:id/questions", api.questionSet)
	eg.POST("/:id/attempts", api.submitAttempt)
	eg.GET("/:id/attempts", api.attempts, staffMiddleware())
}

// Handlers

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ex, err := api.svc.Create(ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

// query lists all exams for staff, assigned active exams for students.
func (api *examApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var exams []exam.Exam
	if ctxUsr.IsAdmin() || ctxUsr.IsTeacher() {
		exams, err = api.svc.QueryAll()
	} else {
		exams, err = api.svc.QueryForUser(ctxUsr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	ex, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam by ID")
	}
	return ctx.JSON(http.StatusOK, ex)
}

type UpdateExamRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AllowStudy  *bool   `json:"allow_study"`
	AllowTest   *bool   `json:"allow_test"`
	IsActive    *bool   `json:"is_active"`
}

func (api *examApi) update(ctx echo.Context) error {
	var data UpdateExamRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateExamRequest")
	}

	ex, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam by ID")
	}

	if data.Title != nil {
		ex.Title = *data.Title
	}
	if data.Description != nil {
		ex.Description = *data.Description
	}
	if data.AllowStudy != nil {
		ex.AllowStudy = *data.AllowStudy
	}
	if data.AllowTest != nil {
		ex.AllowTest = *data.AllowTest
	}
	if data.IsActive != nil {
		ex.IsActive = *data.IsActive
	}

	ex, err = api.svc.Update(ex)
	if err != nil {
		return errors.Wrap(err, "updating exam")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting exams")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) assign(ctx echo.Context) error {
	var data exam.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if _, err := api.svc.GetByID(ctx.Param("id")); err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam by ID")
	}

	if err := api.svc.Assign(ctx.Param("id"), data); err != nil {
		return errors.Wrap(err, "assigning exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) assignments(ctx echo.Context) error {
	assignments, err := api.svc.Assignments(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []exam.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

// examQuestion hides the answers from the sheet handed to the exam taker.
type examQuestion struct {
	ID         string   `json:"id"`
	Position   int      `json:"position"`
	Prompt     string   `json:"prompt"`
	AnswerType string   `json:"answer_type"`
	Choices    []string `json:"choices,omitempty"`
}

// questionSet serves the attempt sheet. Students must be assigned in the
// requested mode; staff can always preview.
func (api *examApi) questionSet(ctx echo.Context) error {
	ex, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	mode := ctx.QueryParam("mode")
	if mode == "" {
		mode = exam.ModeStudy
	}
	privileged := ctxUsr.IsAdmin() || ctxUsr.IsTeacher()
	if err = api.svc.CanAttempt(ex, ctxUsr.ID, mode, privileged); err != nil {
		if errors.Cause(err) == exam.ErrNotAssigned {
			return errHttpForbidden
		}
		return err
	}

	qs, err := api.svc.BuildQuestionSet(ex)
	if err != nil {
		if errors.Cause(err) == exam.ErrBankTooSmall {
			return echo.NewHTTPError(http.StatusConflict, "not enough questions to build this exam")
		}
		return errors.Wrap(err, "building question set")
	}

	out := make([]examQuestion, len(qs))
	for i, q := range qs {
		eq := examQuestion{ID: q.ID, Position: q.Position, Prompt: q.Prompt, AnswerType: q.AnswerType}
		if q.AnswerType == question.AnswerMCQ {
			eq.Choices = []string{q.Correct, q.Wrong1, q.Wrong2, q.Wrong3}
		}
		out[i] = eq
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *examApi) submitAttempt(ctx echo.Context) error {
	var sheet exam.AnswerSheet
	if err := ctx.Bind(&sheet); err != nil {
		return errors.Wrap(err, "binding to AnswerSheet")
	}
	if err := sheet.Validate(); err != nil {
		return err
	}

	ex, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	privileged := ctxUsr.IsAdmin() || ctxUsr.IsTeacher()
	if err = api.svc.CanAttempt(ex, ctxUsr.ID, sheet.Mode, privileged); err != nil {
		if errors.Cause(err) == exam.ErrNotAssigned {
			return errHttpForbidden
		}
		return err
	}

	att, err := api.svc.SubmitAttempt(ctx.Request().Context(), ex, ctxUsr.ID, sheet)
	if err != nil {
		if errors.Cause(err) == exam.ErrBankTooSmall {
			return echo.NewHTTPError(http.StatusConflict, "not enough questions to build this exam")
		}
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *examApi) attempts(ctx echo.Context) error {
	attempts, err := api.svc.Attempts(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []exam.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *examApi) myAttempts(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	attempts, err := api.svc.UserAttempts(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []exam.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}
