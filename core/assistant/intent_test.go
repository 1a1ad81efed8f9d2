package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

// nopLogger drops everything.
type nopLogger struct{}

func (nopLogger) Enable(bool)                      {}
func (nopLogger) Debug(string, ...interface{})     {}
func (nopLogger) Info(string, ...interface{})      {}
func (nopLogger) Warn(string, ...interface{})      {}
func (nopLogger) Error(string, ...interface{})     {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// cannedClient replays fixed replies; err applies to every call.
type cannedClient struct {
	reply string
	err   error
}

var _ ai.Client = (*cannedClient)(nil)

func (c *cannedClient) Available() bool { return true }

func (c *cannedClient) Complete(context.Context, []ai.Message) (string, error) {
	return c.reply, c.err
}

func (c *cannedClient) Stream(_ context.Context, _ []ai.Message, fn func(string) error) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if err := fn(c.reply); err != nil {
		return "", err
	}
	return c.reply, nil
}

func teacher() user.User {
	return user.User{ID: "t-1", Name: "Teach", Roles: []string{user.RoleTeacher}}
}

func TestRouterKeywordIntents(t *testing.T) {
	router := NewRouter(nil, nopLogger{}) // no model: keyword path

	tests := []struct {
		name    string
		message string
		want    IntentType
		check   func(t *testing.T, in Intent)
	}{
		{
			name:    "navigate to question bank",
			message: "go to the question bank",
			want:    IntentNavigate,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, "questions", in.Target)
			},
		},
		{
			name:    "navigate home",
			message: "open the dashboard please",
			want:    IntentNavigate,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, "dashboard", in.Target)
			},
		},
		{
			name:    "create exam with params",
			message: `create a grammar exam called "Midterm" with 5 questions`,
			want:    IntentCreateExam,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, question.CategoryGrammar, in.Category)
				assert.Equal(t, "Midterm", in.Title)
				assert.Equal(t, 5, in.QuestionCount)
			},
		},
		{
			name:    "create question with category adjective",
			message: "write a grammar question about articles",
			want:    IntentCreateQuestion,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, question.CategoryGrammar, in.Category)
			},
		},
		{
			name:    "create question",
			message: "add a question about vocabulary",
			want:    IntentCreateQuestion,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, question.CategoryVocabulary, in.Category)
			},
		},
		{
			name:    "create group",
			message: `create a group called "Evening Class"`,
			want:    IntentCreateGroup,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, "Evening Class", in.Name)
			},
		},
		{
			name:    "create user with email and role",
			message: "create a user for jane@example.com as a teacher",
			want:    IntentCreateUser,
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, "jane@example.com", in.Email)
				assert.Equal(t, "teacher", in.Role)
			},
		},
		{
			name:    "no trigger falls back to chat",
			message: "what's the difference between since and for?",
			want:    IntentChat,
		},
		{
			name:    "empty message is chat",
			message: "   ",
			want:    IntentChat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := router.Classify(context.Background(), tt.message, teacher())
			require.Equal(t, tt.want, in.Type)
			if tt.check != nil {
				tt.check(t, in)
			}
		})
	}
}

func TestRouterLongestTriggerWins(t *testing.T) {
	router := NewRouter(nil, nopLogger{})

	// "create an exam" (longer) must beat "open" even when both appear
	in := router.Classify(context.Background(), "open the editor and create an exam about travel", teacher())
	assert.Equal(t, IntentCreateExam, in.Type)
}

func TestRouterModelClassification(t *testing.T) {
	client := &cannedClient{reply: `{"type": "navigate", "target": "exams"}`}
	router := NewRouter(client, nopLogger{})

	in := router.Classify(context.Background(), "where are my tests?", teacher())
	assert.Equal(t, IntentNavigate, in.Type)
	assert.Equal(t, "exams", in.Target)
}

func TestRouterModelOffSchemaDegradesToChat(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"prose reply", "Sure! I'd classify this as a navigation request."},
		{"unknown type", `{"type": "delete_everything"}`},
		{"navigate without target", `{"type": "navigate"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&cannedClient{reply: tt.reply}, nopLogger{})
			// the message contains a trigger phrase, but a reachable model
			// that answers off-schema must NOT fall through to keywords
			in := router.Classify(context.Background(), "create an exam about travel", teacher())
			assert.Equal(t, IntentChat, in.Type)
		})
	}
}

func TestRouterModelUnavailableFallsBackToKeywords(t *testing.T) {
	router := NewRouter(&cannedClient{err: ai.ErrUnavailable}, nopLogger{})

	in := router.Classify(context.Background(), "create an exam about travel", teacher())
	assert.Equal(t, IntentCreateExam, in.Type)
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"question bank", "questions"},
		{"the quiz page", "quiz"},
		{"my profile", "profile"},
		{"settings", "profile"},
		{"dashbord", "dashboard"}, // fuzzy
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveTarget(tt.text), "text=%q", tt.text)
	}
}
