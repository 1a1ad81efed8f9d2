package assistant

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/exam"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

// ActionStatus is the outcome of one executed intent.
type ActionStatus string

const (
	ActionSuccess   ActionStatus = "success"
	ActionForbidden ActionStatus = "forbidden"
	ActionError     ActionStatus = "error"
)

// ActionResult is what a turn reports back for each attempted action.
type ActionResult struct {
	Type     IntentType   `json:"type"`
	Status   ActionStatus `json:"status"`
	Message  string       `json:"message"`
	ID       string       `json:"id,omitempty"`
	Title    string       `json:"title,omitempty"`
	Category string       `json:"category,omitempty"`
	Target   string       `json:"target,omitempty"`
	Username string       `json:"username,omitempty"`
}

// rolePermissions is the static permission table. A missing entry means the
// intent is denied for that role; chat and navigate are open to everyone.
var rolePermissions = map[string][]IntentType{
	"student": {IntentNavigate, IntentChat},
	"teacher": {IntentNavigate, IntentChat, IntentCreateQuestion, IntentCreateExam, IntentCreateGroup},
	"admin": {IntentNavigate, IntentChat, IntentCreateQuestion, IntentCreateExam,
		IntentCreateGroup, IntentCreateUser},
}

func actorRole(actor user.User) string {
	switch {
	case actor.IsAdmin():
		return "admin"
	case actor.IsTeacher():
		return "teacher"
	default:
		return "student"
	}
}

// Permitted reports whether the actor's role may execute the intent type.
func Permitted(actor user.User, it IntentType) bool {
	for _, allowed := range rolePermissions[actorRole(actor)] {
		if allowed == it {
			return true
		}
	}
	return false
}

// Executor turns classified intents into platform mutations. Results carry
// the user-facing outcome; a non-nil error means infrastructure failed and
// the turn itself should error out.
type Executor struct {
	users     *user.Service
	questions *question.Service
	exams     *exam.Service
	gen       *Generator
	mailSvc   core.EmailService
	logger    core.Logger
}

func NewExecutor(
	users *user.Service,
	questions *question.Service,
	exams *exam.Service,
	gen *Generator,
	mailSvc core.EmailService,
	logger core.Logger,
) *Executor {
	return &Executor{
		users:     users,
		questions: questions,
		exams:     exams,
		gen:       gen,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

func (e *Executor) Execute(ctx context.Context, in Intent, actor user.User) (ActionResult, error) {
	if !Permitted(actor, in.Type) {
		return ActionResult{
			Type:    in.Type,
			Status:  ActionForbidden,
			Message: fmt.Sprintf("Your role does not allow %s.", actionLabel(in.Type)),
		}, nil
	}

	switch in.Type {
	case IntentNavigate:
		return e.navigate(in)
	case IntentCreateQuestion:
		return e.createQuestion(ctx, in)
	case IntentCreateExam:
		return e.createExam(ctx, in, actor)
	case IntentCreateGroup:
		return e.createGroup(in, actor)
	case IntentCreateUser:
		return e.createUser(in)
	}
	return ActionResult{
		Type:    in.Type,
		Status:  ActionError,
		Message: "I don't know how to do that yet.",
	}, nil
}

func (e *Executor) navigate(in Intent) (ActionResult, error) {
	target := resolveTarget(in.Target)
	if target == "" {
		return ActionResult{
			Type:    IntentNavigate,
			Status:  ActionError,
			Message: "I could not work out where you want to go.",
		}, nil
	}
	return ActionResult{
		Type:    IntentNavigate,
		Status:  ActionSuccess,
		Target:  target,
		Message: "Taking you to " + target + ".",
	}, nil
}

func (e *Executor) createQuestion(ctx context.Context, in Intent) (ActionResult, error) {
	category := in.Category
	if !category.Valid() {
		category = question.CategoryVocabulary
	}

	nqs, fellBack, err := e.gen.GenerateQuestions(ctx, category, in.Prompt)
	if err != nil {
		return ActionResult{}, errors.Wrap(err, "generating questions")
	}

	created, err := e.questions.CreateBatch(nqs)
	if err != nil {
		if isValidationErr(err) {
			return validationResult(IntentCreateQuestion, err), nil
		}
		return ActionResult{}, errors.Wrap(err, "saving questions")
	}

	msg := fmt.Sprintf("Added %d %s question(s) to the bank.", len(created), category)
	if fellBack {
		msg += " The AI tutor was offline, so I used the built-in pool."
	}
	res := ActionResult{
		Type:     IntentCreateQuestion,
		Status:   ActionSuccess,
		Category: string(category),
		Message:  msg,
	}
	if len(created) > 0 {
		res.ID = created[0].ID
	}
	return res, nil
}

func (e *Executor) createExam(ctx context.Context, in Intent, actor user.User) (ActionResult, error) {
	ne, fellBack, err := e.gen.GenerateExam(ctx, in.Prompt, in.Category, in.QuestionCount)
	if err != nil {
		return ActionResult{}, errors.Wrap(err, "generating exam")
	}

	// explicit parameters from the message win over generated ones
	if in.Title != "" {
		ne.Title = truncate(in.Title, maxTitleLen)
	}
	if in.Category.Valid() {
		ne.Category = in.Category
	}
	if in.QuestionCount >= exam.MinQuestions && in.QuestionCount <= exam.MaxQuestions {
		ne.QuestionCount = in.QuestionCount
	}
	ne.AIPrompt = in.Prompt

	created, err := e.exams.Create(actor.ID, ne)
	if err != nil {
		if isValidationErr(err) {
			return validationResult(IntentCreateExam, err), nil
		}
		return ActionResult{}, errors.Wrap(err, "saving exam")
	}

	msg := fmt.Sprintf("Created the exam %q with %d questions.", created.Title, created.QuestionCount)
	if fellBack {
		msg += " The AI tutor was offline, so I used a built-in template."
	}
	return ActionResult{
		Type:     IntentCreateExam,
		Status:   ActionSuccess,
		ID:       created.ID,
		Title:    created.Title,
		Category: string(created.Category),
		Message:  msg,
	}, nil
}

func (e *Executor) createGroup(in Intent, actor user.User) (ActionResult, error) {
	name := in.Name
	if name == "" {
		name = "New Group"
	}
	ng := question.NewGroup{Name: name, Description: in.Description}

	created, err := e.questions.CreateGroup(actor.ID, ng)
	if err != nil {
		if isValidationErr(err) {
			return validationResult(IntentCreateGroup, err), nil
		}
		return ActionResult{}, errors.Wrap(err, "saving group")
	}
	return ActionResult{
		Type:    IntentCreateGroup,
		Status:  ActionSuccess,
		ID:      created.ID,
		Title:   created.Name,
		Message: fmt.Sprintf("Created the group %q.", created.Name),
	}, nil
}

func (e *Executor) createUser(in Intent) (ActionResult, error) {
	if in.Email == "" {
		return ActionResult{
			Type:    IntentCreateUser,
			Status:  ActionError,
			Message: "I need an email address to create a user.",
		}, nil
	}

	name := in.Name
	if name == "" {
		name = in.Email[:strings.Index(in.Email, "@")]
	}
	role, roleLabel := user.RoleStudent, "student"
	switch in.Role {
	case "admin":
		role, roleLabel = user.RoleAdmin, "admin"
	case "teacher":
		role, roleLabel = user.RoleTeacher, "teacher"
	}

	password := tempPassword()
	nu := user.NewUser{
		Name:            name,
		Email:           in.Email,
		Password:        password,
		PasswordConfirm: password,
		Roles:           []string{role},
	}

	if err := nu.Validate(e.users); err != nil {
		return validationResult(IntentCreateUser, err), nil
	}

	created, err := e.users.Create(nu)
	if err != nil {
		if isValidationErr(err) {
			return validationResult(IntentCreateUser, err), nil
		}
		return ActionResult{}, errors.Wrap(err, "saving user")
	}

	e.mailCredentials(created, password)

	return ActionResult{
		Type:     IntentCreateUser,
		Status:   ActionSuccess,
		ID:       created.ID,
		Username: created.Email,
		Message: fmt.Sprintf(
			"Created the %s account for %s. A temporary password was emailed to them.",
			roleLabel, created.Email,
		),
	}, nil
}

// tempPassword builds a throwaway credential that satisfies the password
// policy; the user is expected to reset it on first login.
func tempPassword() string {
	return "Aa1!" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (e *Executor) mailCredentials(usr user.User, password string) {
	e.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("Your %s account", core.Conf.AppName),
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nAn account was created for you on %s.\n"+
				"Temporary password: %s\n\nPlease sign in and change it right away.",
			usr.Name, core.Conf.AppName, password,
		),
	})
}

func isValidationErr(err error) bool {
	switch errors.Cause(err).(type) {
	case core.ValidationError, *core.ValidationError:
		return true
	}
	return false
}

func validationResult(it IntentType, err error) ActionResult {
	return ActionResult{
		Type:    it,
		Status:  ActionError,
		Message: "That did not pass validation: " + err.Error(),
	}
}

func actionLabel(it IntentType) string {
	switch it {
	case IntentCreateQuestion:
		return "creating questions"
	case IntentCreateExam:
		return "creating exams"
	case IntentCreateGroup:
		return "creating groups"
	case IntentCreateUser:
		return "creating users"
	case IntentNavigate:
		return "navigation"
	}
	return "that"
}
