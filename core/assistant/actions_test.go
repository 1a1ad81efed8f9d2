package assistant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/assistant"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
	emailsvc "github.com/orishlabs/orish/services/email"
	dummydb "github.com/orishlabs/orish/storage/database/dummy"
)

// replayClient replays a fixed reply; err applies to every call.
type replayClient struct {
	reply string
	err   error
}

var _ ai.Client = (*replayClient)(nil)

func (c *replayClient) Available() bool { return true }

func (c *replayClient) Complete(context.Context, []ai.Message) (string, error) {
	return c.reply, c.err
}

func (c *replayClient) Stream(_ context.Context, _ []ai.Message, fn func(string) error) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if err := fn(c.reply); err != nil {
		return "", err
	}
	return c.reply, nil
}

type testLogger struct{}

func (testLogger) Enable(bool)                        {}
func (testLogger) Debug(string, ...interface{})       {}
func (testLogger) Info(string, ...interface{})        {}
func (testLogger) Warn(string, ...interface{})        {}
func (testLogger) Error(string, ...interface{})       {}
func (testLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// fixture wires services on in-memory storage; client may be nil (offline).
type fixture struct {
	users       *user.Service
	questions   *question.Service
	exams       *exam.Service
	executor    *assistant.Executor
	controller  *assistant.Controller
	transcripts assistant.TranscriptSink
	questRepo   question.Repository
	examRepo    exam.Repository
}

func newFixture(t *testing.T, client ai.Client) *fixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := testLogger{}

	userRepo := dummydb.NewUserRepository(db)
	questRepo := dummydb.NewQuestionRepository(db)
	examRepo := dummydb.NewExamRepository(db)
	transcripts := dummydb.NewTranscriptRepository(db)

	fb := assistant.NewFallback()
	grader := assistant.NewGrader(client, fb, logger)
	gen := assistant.NewGenerator(client, fb, logger)

	users := user.NewService(userRepo, mailSvc)
	questions := question.NewService(questRepo)
	exams := exam.NewService(examRepo, questRepo, grader, grader)

	executor := assistant.NewExecutor(users, questions, exams, gen, mailSvc, logger)
	router := assistant.NewRouter(client, logger)
	controller := assistant.NewController(router, executor, client, fb, transcripts, logger)

	return &fixture{
		users:       users,
		questions:   questions,
		exams:       exams,
		executor:    executor,
		controller:  controller,
		transcripts: transcripts,
		questRepo:   questRepo,
		examRepo:    examRepo,
	}
}

func admin() user.User {
	return user.User{ID: "a-1", Name: "Admin", Email: "admin@example.com", Roles: []string{user.RoleAdmin}}
}

func student() user.User {
	return user.User{ID: "s-1", Name: "Student", Email: "student@example.com", Roles: []string{user.RoleStudent}}
}

func TestExecutorPermissionTable(t *testing.T) {
	tests := []struct {
		role   string
		actor  user.User
		intent assistant.IntentType
		ok     bool
	}{
		{"student", student(), assistant.IntentNavigate, true},
		{"student", student(), assistant.IntentChat, true},
		{"student", student(), assistant.IntentCreateQuestion, false},
		{"student", student(), assistant.IntentCreateExam, false},
		{"student", student(), assistant.IntentCreateGroup, false},
		{"student", student(), assistant.IntentCreateUser, false},
		{"teacher", user.User{Roles: []string{user.RoleTeacher}}, assistant.IntentCreateExam, true},
		{"teacher", user.User{Roles: []string{user.RoleTeacher}}, assistant.IntentCreateUser, false},
		{"admin", admin(), assistant.IntentCreateUser, true},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+string(tt.intent), func(t *testing.T) {
			assert.Equal(t, tt.ok, assistant.Permitted(tt.actor, tt.intent))
		})
	}
}

func TestExecutorForbiddenLeavesStateUnchanged(t *testing.T) {
	fix := newFixture(t, nil)
	ctx := context.Background()

	res, err := fix.executor.Execute(ctx,
		assistant.Intent{Type: assistant.IntentCreateExam, Message: "create an exam"}, student())
	require.NoError(t, err)
	assert.Equal(t, assistant.ActionForbidden, res.Status)

	exams, err := fix.exams.QueryAll()
	require.NoError(t, err)
	assert.Empty(t, exams)
}

func TestExecutorNavigate(t *testing.T) {
	fix := newFixture(t, nil)

	res, err := fix.executor.Execute(context.Background(),
		assistant.Intent{Type: assistant.IntentNavigate, Target: "question bank"}, student())
	require.NoError(t, err)
	assert.Equal(t, assistant.ActionSuccess, res.Status)
	assert.Equal(t, "questions", res.Target)

	res, err = fix.executor.Execute(context.Background(),
		assistant.Intent{Type: assistant.IntentNavigate, Target: "xyzzy non-place"}, student())
	require.NoError(t, err)
	assert.Equal(t, assistant.ActionError, res.Status)
}

func TestExecutorCreateExamOffline(t *testing.T) {
	fix := newFixture(t, nil)

	in := assistant.Intent{
		Type:          assistant.IntentCreateExam,
		Message:       `create a grammar exam called "Midterm" with 5 questions`,
		Category:      question.CategoryGrammar,
		Title:         "Midterm",
		QuestionCount: 5,
		Prompt:        `create a grammar exam called "Midterm" with 5 questions`,
	}
	res, err := fix.executor.Execute(context.Background(), in, admin())
	require.NoError(t, err)
	require.Equal(t, assistant.ActionSuccess, res.Status)
	assert.Equal(t, "Midterm", res.Title)
	assert.Contains(t, res.Message, "built-in template")

	exams, err := fix.exams.QueryAll()
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, "Midterm", exams[0].Title)
	assert.Equal(t, question.CategoryGrammar, exams[0].Category)
	assert.Equal(t, 5, exams[0].QuestionCount)
	assert.Equal(t, admin().ID, exams[0].CreatedBy)

	// the template is topped up from the bank to the requested count,
	// all in the requested category's answer style
	qs, err := fix.exams.Questions(exams[0].ID)
	require.NoError(t, err)
	require.Len(t, qs, 5)
	for _, q := range qs {
		assert.Equal(t, exam.SourceAI, q.Source)
		assert.Equal(t, question.AnswerMCQ, q.AnswerType)
	}
}

func TestExecutorCreateExamFromModel(t *testing.T) {
	client := &replayClient{reply: `{
		"title": "Travel Vocabulary",
		"description": "Airports and hotels.",
		"category": "vocabulary",
		"question_count": 4,
		"questions": [
			{"prompt": "Pick the meaning of itinerary.", "correct": "A travel plan", "wrong1": "A suitcase", "wrong2": "A passport", "wrong3": "A ticket"},
			{"prompt": "Pick the meaning of layover.", "correct": "A stop between flights", "wrong1": "A hotel room", "wrong2": "A delay fee", "wrong3": "A boarding pass"},
			{"prompt": "Pick the meaning of vacancy.", "correct": "An available room", "wrong1": "A holiday", "wrong2": "A busy season", "wrong3": "A reception desk"}
		]
	}`}
	fix := newFixture(t, client)

	res, err := fix.executor.Execute(context.Background(),
		assistant.Intent{Type: assistant.IntentCreateExam, Prompt: "travel exam"}, admin())
	require.NoError(t, err)
	require.Equal(t, assistant.ActionSuccess, res.Status)
	assert.Equal(t, "Travel Vocabulary", res.Title)
	assert.NotContains(t, res.Message, "built-in template")

	exams, err := fix.exams.QueryAll()
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, 4, exams[0].QuestionCount)

	qs, err := fix.exams.Questions(exams[0].ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	// answer type defaulted per category
	assert.Equal(t, question.AnswerMCQ, qs[0].AnswerType)
}

func TestExecutorCreateQuestionOffline(t *testing.T) {
	fix := newFixture(t, nil)

	res, err := fix.executor.Execute(context.Background(),
		assistant.Intent{Type: assistant.IntentCreateQuestion, Category: question.CategoryTranslation},
		admin())
	require.NoError(t, err)
	require.Equal(t, assistant.ActionSuccess, res.Status)
	assert.Equal(t, string(question.CategoryTranslation), res.Category)

	qs, err := fix.questions.Filter(question.CategoryTranslation)
	require.NoError(t, err)
	assert.Len(t, qs, 2) // the full translation fallback pool
}

func TestExecutorCreateUser(t *testing.T) {
	fix := newFixture(t, nil)

	res, err := fix.executor.Execute(context.Background(), assistant.Intent{
		Type:  assistant.IntentCreateUser,
		Email: "jane@example.com",
		Name:  "Jane",
		Role:  "teacher",
	}, admin())
	require.NoError(t, err)
	require.Equal(t, assistant.ActionSuccess, res.Status)
	assert.Equal(t, "jane@example.com", res.Username)

	created, err := fix.users.GetByEmail("jane@example.com")
	require.NoError(t, err)
	assert.True(t, created.IsTeacher())
	assert.True(t, created.IsActive)

	// missing email is a validation error, not an infra failure
	res, err = fix.executor.Execute(context.Background(),
		assistant.Intent{Type: assistant.IntentCreateUser}, admin())
	require.NoError(t, err)
	assert.Equal(t, assistant.ActionError, res.Status)

	// duplicate email is reported, nothing new created
	res, err = fix.executor.Execute(context.Background(), assistant.Intent{
		Type:  assistant.IntentCreateUser,
		Email: "jane@example.com",
	}, admin())
	require.NoError(t, err)
	assert.Equal(t, assistant.ActionError, res.Status)

	all, err := fix.users.QueryAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExecutorCreateGroup(t *testing.T) {
	fix := newFixture(t, nil)

	res, err := fix.executor.Execute(context.Background(), assistant.Intent{
		Type: assistant.IntentCreateGroup,
		Name: "Evening Class",
	}, admin())
	require.NoError(t, err)
	require.Equal(t, assistant.ActionSuccess, res.Status)

	groups, err := fix.questions.QueryGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Evening Class", groups[0].Name)
	assert.Equal(t, admin().ID, groups[0].OwnerID)
}
