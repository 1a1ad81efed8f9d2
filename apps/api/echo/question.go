package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

type questionApi struct {
	svc     *question.Service
	userSvc *user.Service
	grader  question.TextGrader
}

func registerQuestionAPI(
	g *echo.Group, jwt echo.MiddlewareFunc, svc *question.Service, userSvc *user.Service, grader question.TextGrader) {
	api := questionApi{svc: svc, userSvc: userSvc, grader: grader}

	qg := g.Group("/questions", jwt)
	qg.POST("", api.create, staffMiddleware())
	qg.GET("", api.query)
	qg.DELETE("", api.destroyMultiple, adminMiddleware())
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id", api.update, staffMiddleware())

	gg := g.Group("/groups", jwt)
	gg.POST("", api.createGroup, staffMiddleware())
	gg.GET("", api.queryGroups)
	gg.DELETE("", api.destroyGroups, staffMiddleware())
	gg.GET("/:id", api.retrieveGroup)
	gg.GET("/:id/questions", api.groupQuestions)
	gg.POST("/:id/questions", api.addGroupQuestions, staffMiddleware())
	gg.POST("/:id/assign", api.assignGroup, staffMiddleware())

	zg := g.Group("/quiz", jwt)
	zg.GET("", api.buildQuiz)
	zg.POST("", api.submitQuiz)
	zg.GET("/results", api.quizResults)
}

// Handlers

func (api *questionApi) create(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	q, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) query(ctx echo.Context) error {
	category := question.Category(ctx.QueryParam("category"))
	if category != "" && !category.Valid() {
		return ctx.JSON(http.StatusOK, []question.Question{})
	}

	qs, err := api.svc.Filter(category)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == question.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding question by ID")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) update(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	q, err := api.svc.Update(ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == question.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *questionApi) createGroup(ctx echo.Context) error {
	var data question.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	g, err := api.svc.CreateGroup(ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, g)
}

// queryGroups lists all groups for staff, assigned groups for students.
func (api *questionApi) queryGroups(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var groups []question.Group
	if ctxUsr.IsAdmin() || ctxUsr.IsTeacher() {
		groups, err = api.svc.QueryGroups()
	} else {
		groups, err = api.svc.QueryGroupsForUser(ctxUsr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []question.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *questionApi) retrieveGroup(ctx echo.Context) error {
	g, err := api.svc.GetGroupByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == question.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *questionApi) groupQuestions(ctx echo.Context) error {
	qs, err := api.svc.GroupQuestions(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == question.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying group questions")
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *questionApi) addGroupQuestions(ctx echo.Context) error {
	var data struct {
		QuestionIDs []string `json:"question_ids"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding question IDs")
	}

	if err := api.svc.AddGroupQuestions(ctx.Param("id"), data.QuestionIDs...); err != nil {
		if errors.Cause(err) == question.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding group questions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *questionApi) assignGroup(ctx echo.Context) error {
	var data struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding user IDs")
	}

	if err := api.svc.AssignGroup(ctx.Param("id"), data.UserIDs...); err != nil {
		if errors.Cause(err) == question.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "assigning group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *questionApi) destroyGroups(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteGroups(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting groups")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// quizQuestion hides the answer from the payload handed to the quiz taker.
type quizQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
}

func (api *questionApi) buildQuiz(ctx echo.Context) error {
	category := question.Category(ctx.QueryParam("category"))
	if !category.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}

	qs, err := api.svc.BuildQuiz(category)
	if err != nil {
		if errors.Cause(err) == question.ErrBankTooSmall {
			return echo.NewHTTPError(http.StatusConflict, "not enough questions in this category")
		}
		return errors.Wrap(err, "building quiz")
	}

	out := make([]quizQuestion, len(qs))
	for i, q := range qs {
		out[i] = quizQuestion{ID: q.ID, Prompt: q.DisplayPrompt(), Choices: q.Choices()}
	}
	return ctx.JSON(http.StatusOK, out)
}

type submitQuizRequest struct {
	Category    question.Category `json:"category"`
	QuestionIDs []string          `json:"question_ids"`
	Answers     map[string]string `json:"answers"`
}

func (api *questionApi) submitQuiz(ctx echo.Context) error {
	var data submitQuizRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding quiz answers")
	}
	if !data.Category.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	result, err := api.svc.SubmitQuiz(
		ctx.Request().Context(), ctxUsr.ID, data.Category, data.QuestionIDs, data.Answers, api.grader)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *questionApi) quizResults(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	results, err := api.svc.QuizResults(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying quiz results")
	}
	if results == nil {
		results = []question.QuizResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}
