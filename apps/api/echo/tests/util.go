package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/orishlabs/orish/apps/api/echo"
	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/assistant"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
	emailsvc "github.com/orishlabs/orish/services/email"
	dummydb "github.com/orishlabs/orish/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// stubAIClient plays canned completions; with no replies it reports the
// backing model unavailable so keyword and template fallbacks kick in.
type stubAIClient struct {
	replies []string
	calls   int
}

func (c *stubAIClient) Available() bool { return c.replies != nil }

func (c *stubAIClient) Complete(_ context.Context, _ []ai.Message) (string, error) {
	if c.replies == nil {
		return "", ai.ErrUnavailable
	}
	reply := c.replies[c.calls%len(c.replies)]
	c.calls++
	return reply, nil
}

func (c *stubAIClient) Stream(ctx context.Context, msgs []ai.Message, fn func(chunk string) error) (string, error) {
	reply, err := c.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	// stream in two chunks to exercise reassembly
	mid := len(reply) / 2
	for _, chunk := range []string{reply[:mid], reply[mid:]} {
		if chunk == "" {
			continue
		}
		if err = fn(chunk); err != nil {
			return "", err
		}
	}
	return reply, nil
}

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	app Server

	usrRepo     user.Repository
	usrSvc      *user.Service
	questionSvc *question.Service
	examSvc     *exam.Service
	transcripts assistant.TranscriptSink
}

func setup(t *testing.T, client ai.Client) *testApp {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	questionRepo := dummydb.NewQuestionRepository(db)
	examRepo := dummydb.NewExamRepository(db)
	transcripts := dummydb.NewTranscriptRepository(db)

	logger := testLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock()

	usrSvc := user.NewService(usrRepo, mailSvc)
	questionSvc := question.NewService(questionRepo)

	fallback := assistant.NewFallback()
	grader := assistant.NewGrader(client, fallback, logger)
	examSvc := exam.NewService(examRepo, questionRepo, grader, grader)
	generator := assistant.NewGenerator(client, fallback, logger)
	router := assistant.NewRouter(client, logger)
	executor := assistant.NewExecutor(usrSvc, questionSvc, examSvc, generator, mailSvc, logger)
	controller := assistant.NewController(router, executor, client, fallback, transcripts, logger)

	app := NewServer(&Options{
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		QuestionSvc:    questionSvc,
		ExamSvc:        examSvc,
		Assistant:      controller,
		Generator:      generator,
		Grader:         grader,
		Transcripts:    transcripts,
		Logger:         logger,
	})

	return &testApp{
		app:         app,
		usrRepo:     usrRepo,
		usrSvc:      usrSvc,
		questionSvc: questionSvc,
		examSvc:     examSvc,
		transcripts: transcripts,
	}
}

func (ta *testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	ta.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decodeNDJSON parses every event line of a streamed assistant response.
func decodeNDJSON(t *testing.T, body string) []assistant.Event {
	t.Helper()

	var events []assistant.Event
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if line == "" {
			continue
		}
		var evt assistant.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("decodeNDJSON() bad line %q: %v", line, err)
		}
		events = append(events, evt)
	}
	return events
}
