package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/user"
	testutil "github.com/orishlabs/orish/tests"
)

var examBody = []byte(`{
	"title": "Grammar Midterm",
	"description": "Covers weeks 1-6",
	"category": "grammar",
	"question_count": 3,
	"allow_study": true,
	"allow_test": true,
	"questions": [
		{"prompt": "She __ to school every day.", "answer_type": "mcq", "correct_answer": "goes", "wrong1": "go", "wrong2": "gone", "wrong3": "going"},
		{"prompt": "They __ dinner when I arrived.", "answer_type": "mcq", "correct_answer": "were having", "wrong1": "have", "wrong2": "had have", "wrong3": "having"},
		{"prompt": "I wish I __ taller.", "answer_type": "mcq", "correct_answer": "were", "wrong1": "am", "wrong2": "be", "wrong3": "being"}
	]
}`)

func createExam(t *testing.T, ta *testApp, token string) exam.Exam {
	t.Helper()

	req, rec := newAuthRequest(http.MethodPost, "/v1/exams", token, examBody)
	ta.serve(req, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createExam() code = %v; body %s", rec.Code, rec.Body.String())
	}
	var ex exam.Exam
	if err := json.Unmarshal(rec.Body.Bytes(), &ex); err != nil {
		t.Fatalf("unmarshalling exam: %v", err)
	}
	return ex
}

func Test_examApi_create(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)

	// students cannot create exams
	req, rec := newAuthRequest(http.MethodPost, "/v1/exams", getToken(t, student), examBody)
	ta.serve(req, rec)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	ex := createExam(t, ta, getToken(t, teacher))
	if ex.Title != "Grammar Midterm" {
		t.Errorf("Title = %q", ex.Title)
	}
	if !ex.IsActive {
		t.Error("expected an active exam")
	}
	if ex.CreatedBy != teacher.ID {
		t.Errorf("CreatedBy = %q; want %q", ex.CreatedBy, teacher.ID)
	}

	// too few questions is a validation error
	req, rec = newAuthRequest(http.MethodPost, "/v1/exams", getToken(t, teacher),
		[]byte(`{"title":"Tiny","category":"grammar","question_count":1}`))
	ta.serve(req, rec)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func Test_examApi_queryVisibility(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)
	teacherToken := getToken(t, teacher)

	ex := createExam(t, ta, teacherToken)

	// staff sees all exams
	req, rec := newAuthRequest(http.MethodGet, "/v1/exams", teacherToken)
	ta.serve(req, rec)
	var exams []exam.Exam
	if err := json.Unmarshal(rec.Body.Bytes(), &exams); err != nil {
		t.Fatalf("unmarshalling exams: %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("exams = %d; want 1", len(exams))
	}

	// unassigned student sees none
	req, rec = newAuthRequest(http.MethodGet, "/v1/exams", getToken(t, student))
	ta.serve(req, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &exams); err != nil {
		t.Fatalf("unmarshalling exams: %v", err)
	}
	if len(exams) != 0 {
		t.Fatalf("exams = %d; want 0", len(exams))
	}

	// assign, then the student sees it
	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/assign", teacherToken,
		marchallObj(t, exam.NewAssignment{UserIDs: []string{student.ID}, CanStudy: true}))
	ta.serve(req, rec)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("assign code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/exams", getToken(t, student))
	ta.serve(req, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &exams); err != nil {
		t.Fatalf("unmarshalling exams: %v", err)
	}
	if len(exams) != 1 {
		t.Errorf("exams = %d; want 1", len(exams))
	}
}

func Test_examApi_questionSetHidesAnswers(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)
	teacherToken := getToken(t, teacher)

	ex := createExam(t, ta, teacherToken)

	// unassigned student is refused
	req, rec := newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/questions?mode=study", getToken(t, student))
	ta.serve(req, rec)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/assign", teacherToken,
		marchallObj(t, exam.NewAssignment{UserIDs: []string{student.ID}, CanStudy: true, CanTest: true}))
	ta.serve(req, rec)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("assign code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/questions?mode=study", getToken(t, student))
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	for _, leaked := range []string{"correct_answer", "reference_answer"} {
		if strings.Contains(rec.Body.String(), leaked) {
			t.Errorf("question set leaks %q", leaked)
		}
	}

	var qs []struct {
		ID      string   `json:"id"`
		Choices []string `json:"choices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &qs); err != nil {
		t.Fatalf("unmarshalling question set: %v", err)
	}
	if len(qs) != 3 {
		t.Errorf("questions = %d; want 3", len(qs))
	}
}

func Test_examApi_submitAttempt(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	ex := createExam(t, ta, teacherToken)

	req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/assign", teacherToken,
		marchallObj(t, exam.NewAssignment{UserIDs: []string{student.ID}, CanStudy: true}))
	ta.serve(req, rec)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("assign code = %v; body %s", rec.Code, rec.Body.String())
	}

	// fetch the sheet and answer with the first choice of each question
	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/questions?mode=study", studentToken)
	ta.serve(req, rec)
	var qs []struct {
		ID      string   `json:"id"`
		Choices []string `json:"choices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &qs); err != nil {
		t.Fatalf("unmarshalling question set: %v", err)
	}
	answers := make(map[string]string, len(qs))
	for _, q := range qs {
		answers[q.ID] = q.Choices[0]
	}

	// test mode not allowed by the assignment
	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/attempts", studentToken,
		marchallObj(t, exam.AnswerSheet{Mode: exam.ModeTest, Answers: answers}))
	ta.serve(req, rec)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusForbidden, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/attempts", studentToken,
		marchallObj(t, exam.AnswerSheet{Mode: exam.ModeStudy, Answers: answers}))
	ta.serve(req, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var att exam.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("unmarshalling attempt: %v", err)
	}
	if att.Score != 3 || att.Total != 3 {
		t.Errorf("score = %d/%d; want 3/3", att.Score, att.Total)
	}

	// the student sees their attempt, staff see the exam's attempts
	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/attempts/mine", studentToken)
	ta.serve(req, rec)
	var attempts []exam.Attempt
	if err := json.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
		t.Fatalf("unmarshalling attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("attempts = %d; want 1", len(attempts))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/attempts", teacherToken)
	ta.serve(req, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
		t.Fatalf("unmarshalling attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("attempts = %d; want 1", len(attempts))
	}

	// students may not list exam attempts
	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/attempts", studentToken)
	ta.serve(req, rec)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}
}

func Test_examApi_deactivatedExamHidden(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)
	teacherToken := getToken(t, teacher)

	ex := createExam(t, ta, teacherToken)
	req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/assign", teacherToken,
		marchallObj(t, exam.NewAssignment{UserIDs: []string{student.ID}, CanStudy: true}))
	ta.serve(req, rec)

	req, rec = newAuthRequest(http.MethodPut, "/v1/exams/"+ex.ID, teacherToken, []byte(`{"is_active":false}`))
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/"+ex.ID+"/questions?mode=study", getToken(t, student))
	ta.serve(req, rec)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}
}

