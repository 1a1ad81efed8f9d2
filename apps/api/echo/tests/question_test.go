package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
	testutil "github.com/orishlabs/orish/tests"
)

func seedVocabulary(t *testing.T, ta *testApp, n int) []question.Question {
	t.Helper()

	qs := make([]question.Question, 0, n)
	for i := 0; i < n; i++ {
		q, err := ta.questionSvc.Create(question.NewQuestion{
			Category: question.CategoryVocabulary,
			Word:     fmt.Sprintf("word%02d", i),
			Correct:  fmt.Sprintf("meaning %d", i),
			Wrong1:   "wrong a",
			Wrong2:   "wrong b",
			Wrong3:   "wrong c",
		})
		if err != nil {
			t.Fatalf("seedVocabulary() failed: %v", err)
		}
		qs = append(qs, q)
	}
	return qs
}

func Test_questionApi_create(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)

	body := []byte(`{
		"category": "translation",
		"prompt": "Ich lerne gern neue Sprachen.",
		"reference_answer": "I enjoy learning new languages."
	}`)

	// students cannot create bank questions
	req, rec := newAuthRequest(http.MethodPost, "/v1/questions", getToken(t, student), body)
	ta.serve(req, rec)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/questions", getToken(t, teacher), body)
	ta.serve(req, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var q question.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("unmarshalling question: %v", err)
	}
	if q.Category != question.CategoryTranslation {
		t.Errorf("Category = %s; want %s", q.Category, question.CategoryTranslation)
	}

	// schema violation: vocabulary without a word
	req, rec = newAuthRequest(http.MethodPost, "/v1/questions", getToken(t, teacher),
		[]byte(`{"category":"vocabulary","correct_answer":"x"}`))
	ta.serve(req, rec)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func Test_questionApi_queryByCategory(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	seedVocabulary(t, ta, 3)

	req, rec := newAuthRequest(http.MethodGet, "/v1/questions?category=vocabulary", getToken(t, student))
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	var qs []question.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &qs); err != nil {
		t.Fatalf("unmarshalling questions: %v", err)
	}
	if len(qs) != 3 {
		t.Errorf("questions = %d; want 3", len(qs))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/questions?category=grammar", getToken(t, student))
	ta.serve(req, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &qs); err != nil {
		t.Fatalf("unmarshalling questions: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("questions = %d; want 0", len(qs))
	}
}

func Test_questionApi_groups(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	teacher := testutil.CreateUser(t, ta.usrRepo, "Teacher", "teach1", "teacher@test.cd", "", user.TeacherRoles, true)
	qs := seedVocabulary(t, ta, 2)

	body := marchallObj(t, map[string]interface{}{
		"name":         "Evening Class",
		"description":  "Weekly vocabulary drills",
		"question_ids": []string{qs[0].ID, qs[1].ID},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/groups", getToken(t, teacher), body)
	ta.serve(req, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var g question.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshalling group: %v", err)
	}

	// not assigned yet: student sees nothing
	req, rec = newAuthRequest(http.MethodGet, "/v1/groups", getToken(t, student))
	ta.serve(req, rec)
	var groups []question.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unmarshalling groups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %d; want 0", len(groups))
	}

	// assign and try again
	req, rec = newAuthRequest(http.MethodPost, "/v1/groups/"+g.ID+"/assign", getToken(t, teacher),
		marchallObj(t, map[string]interface{}{"user_ids": []string{student.ID}}))
	ta.serve(req, rec)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/groups", getToken(t, student))
	ta.serve(req, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unmarshalling groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Evening Class" {
		t.Errorf("groups = %+v; want Evening Class", groups)
	}

	// group questions
	req, rec = newAuthRequest(http.MethodGet, "/v1/groups/"+g.ID+"/questions", getToken(t, student))
	ta.serve(req, rec)
	var memberQs []question.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &memberQs); err != nil {
		t.Fatalf("unmarshalling group questions: %v", err)
	}
	if len(memberQs) != 2 {
		t.Errorf("group questions = %d; want 2", len(memberQs))
	}
}

func Test_questionApi_quiz(t *testing.T) {
	ta := setup(t, &stubAIClient{})

	student := testutil.CreateUser(t, ta.usrRepo, "Hero", "heroic", "hero@test.cd", "", user.StudentRoles, true)
	token := getToken(t, student)

	// bank too small
	req, rec := newAuthRequest(http.MethodGet, "/v1/quiz?category=vocabulary", token)
	ta.serve(req, rec)
	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	seedVocabulary(t, ta, 6)

	req, rec = newAuthRequest(http.MethodGet, "/v1/quiz?category=vocabulary", token)
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var quiz []struct {
		ID      string   `json:"id"`
		Prompt  string   `json:"prompt"`
		Choices []string `json:"choices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &quiz); err != nil {
		t.Fatalf("unmarshalling quiz: %v", err)
	}
	if len(quiz) != 5 {
		t.Fatalf("quiz size = %d; want 5", len(quiz))
	}
	for _, q := range quiz {
		if len(q.Choices) != 4 {
			t.Errorf("choices = %d; want 4", len(q.Choices))
		}
	}

	// answer everything with the first choice
	ids := make([]string, 0, len(quiz))
	answers := make(map[string]string, len(quiz))
	for _, q := range quiz {
		ids = append(ids, q.ID)
		answers[q.ID] = q.Choices[0]
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/quiz", token, marchallObj(t, map[string]interface{}{
		"category":     "vocabulary",
		"question_ids": ids,
		"answers":      answers,
	}))
	ta.serve(req, rec)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result question.QuizResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshalling result: %v", err)
	}
	if result.Total != 5 {
		t.Errorf("Total = %d; want 5", result.Total)
	}
	if result.Score != 5 {
		t.Errorf("Score = %d; want 5", result.Score)
	}

	// results are recorded
	req, rec = newAuthRequest(http.MethodGet, "/v1/quiz/results", token)
	ta.serve(req, rec)
	var results []question.QuizResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("unmarshalling results: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d; want 1", len(results))
	}
}
