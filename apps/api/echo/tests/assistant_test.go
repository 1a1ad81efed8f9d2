package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orishlabs/orish/core/assistant"
	"github.com/orishlabs/orish/core/user"
	testutil "github.com/orishlabs/orish/tests"
)

func Test_assistantApi_chatRequiresAuth(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	req, rec := newRequest(http.MethodPost, "/v1/assistant/chat", []byte(`{"message":"hello"}`))
	ta.serve(req, rec)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
	}
}

func Test_assistantApi_chatNavigate(t *testing.T) {
	ta := setup(t, &stubAIClient{}) // offline model, keyword routing

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/assistant/chat", getToken(t, student), []byte(`{"message":"go to the question bank"}`))
	ta.serve(req, rec)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q; want %q", ct, "application/x-ndjson")
	}

	events := decodeNDJSON(t, rec.Body.String())
	if len(events) < 2 {
		t.Fatalf("expected at least status + done, got %d events", len(events))
	}
	if events[0].Type != assistant.EventStatus {
		t.Errorf("first event = %s; want %s", events[0].Type, assistant.EventStatus)
	}
	last := events[len(events)-1]
	if last.Type != assistant.EventDone {
		t.Fatalf("last event = %s; want %s", last.Type, assistant.EventDone)
	}
	if last.NavigateTo != "questions" {
		t.Errorf("NavigateTo = %q; want %q", last.NavigateTo, "questions")
	}
	for _, evt := range events[:len(events)-1] {
		if evt.Terminal() {
			t.Errorf("terminal event %s before the end of the stream", evt.Type)
		}
	}

	// the turn is on the record
	trs, err := ta.transcripts.QueryTranscripts(student.ID)
	if err != nil {
		t.Fatalf("QueryTranscripts() failed: %v", err)
	}
	if len(trs) != 1 {
		t.Errorf("transcripts = %d; want 1", len(trs))
	}
}

func Test_assistantApi_chatOfflineAnswer(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/assistant/chat", getToken(t, student), []byte(`{"message":"how do I get better at grammar?"}`))
	ta.serve(req, rec)

	events := decodeNDJSON(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Type != assistant.EventDone {
		t.Fatalf("last event = %s; want %s", last.Type, assistant.EventDone)
	}
	if last.Answer == "" {
		t.Error("expected a fallback answer")
	}
}

func Test_assistantApi_chatStreamsModelAnswer(t *testing.T) {
	client := &stubAIClient{replies: []string{
		`{"type":"chat"}`,
		"Practice a little every day and review your mistakes.",
	}}
	ta := setup(t, client)

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/assistant/chat", getToken(t, student), []byte(`{"message":"any study tips?"}`))
	ta.serve(req, rec)

	events := decodeNDJSON(t, rec.Body.String())
	var chunks string
	for _, evt := range events {
		if evt.Type == assistant.EventChunk {
			chunks += evt.Content
		}
	}
	if chunks != "Practice a little every day and review your mistakes." {
		t.Errorf("chunks = %q", chunks)
	}
	last := events[len(events)-1]
	if last.Type != assistant.EventDone || last.Answer != chunks {
		t.Errorf("done event = %+v", last)
	}
}

func Test_assistantApi_chatForbiddenAction(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/assistant/chat", getToken(t, student),
		[]byte(`{"message":"create an exam called \"Midterm\" with 5 grammar questions"}`))
	ta.serve(req, rec)

	events := decodeNDJSON(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Type != assistant.EventDone {
		t.Fatalf("last event = %s; want %s", last.Type, assistant.EventDone)
	}
	if len(last.Actions) != 1 || last.Actions[0].Status != assistant.ActionForbidden {
		t.Errorf("actions = %+v; want one forbidden result", last.Actions)
	}

	exams, err := ta.examSvc.QueryAll()
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	if len(exams) != 0 {
		t.Errorf("exams = %d; want 0", len(exams))
	}
}

func Test_assistantApi_chatTeacherCreatesExam(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/assistant/chat", getToken(t, teacher),
		[]byte(`{"message":"create an exam called \"Midterm Review\" with 5 grammar questions"}`))
	ta.serve(req, rec)

	events := decodeNDJSON(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Type != assistant.EventDone {
		t.Fatalf("last event = %s; want %s; body %s", last.Type, assistant.EventDone, rec.Body.String())
	}
	if len(last.Actions) != 1 || last.Actions[0].Status != assistant.ActionSuccess {
		t.Fatalf("actions = %+v; want one success result", last.Actions)
	}

	exams, err := ta.examSvc.QueryAll()
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("exams = %d; want 1", len(exams))
	}
	if exams[0].Title != "Midterm Review" {
		t.Errorf("Title = %q; want %q", exams[0].Title, "Midterm Review")
	}
	if exams[0].QuestionCount != 5 {
		t.Errorf("QuestionCount = %d; want 5", exams[0].QuestionCount)
	}
}

func Test_assistantApi_transcriptsAreScopedToUser(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	other := testutil.CreateUser(t, ta.usrRepo, "Other", "other1", "other@test.cd", "", user.StudentRoles, true)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/assistant/chat", getToken(t, student), []byte(`{"message":"open my profile"}`))
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat failed: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/assistant/transcripts", getToken(t, student))
	ta.serve(req, rec)
	var trs []assistant.Transcript
	if err := json.Unmarshal(rec.Body.Bytes(), &trs); err != nil {
		t.Fatalf("unmarshalling transcripts: %v", err)
	}
	if len(trs) != 1 {
		t.Errorf("transcripts = %d; want 1", len(trs))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/assistant/transcripts", getToken(t, other))
	ta.serve(req, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &trs); err != nil {
		t.Fatalf("unmarshalling transcripts: %v", err)
	}
	if len(trs) != 0 {
		t.Errorf("transcripts = %d; want 0", len(trs))
	}
}

func Test_assistantApi_analyze(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	token := getToken(t, student)

	newUpload := func(t *testing.T, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("document", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
		if err = w.Close(); err != nil {
			t.Fatalf("closing multipart writer: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/assistant/analyze", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req, httptest.NewRecorder()
	}

	req, rec := newUpload(t, "notes.txt",
		"German verbs move to the end of subordinate clauses. Practicing with real sentences helps retention.")
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var analysis assistant.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("unmarshalling analysis: %v", err)
	}
	if analysis.Summary == "" {
		t.Error("expected a summary")
	}

	req, rec = newUpload(t, "notes.exe", "binary junk")
	ta.serve(req, rec)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusUnsupportedMediaType)
	}

	// no file at all
	reqNoFile, recNoFile := newAuthRequest(http.MethodPost, "/v1/assistant/analyze", token)
	ta.serve(reqNoFile, recNoFile)
	if recNoFile.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v", recNoFile.Code, http.StatusBadRequest)
	}
}
