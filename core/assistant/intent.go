package assistant

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/orishlabs/orish/core"
	"github.com/orishlabs/orish/core/ai"
	"github.com/orishlabs/orish/core/question"
	"github.com/orishlabs/orish/core/user"
)

// IntentType is the closed set of things a turn can resolve to. Anything the
// router cannot place lands on IntentChat.
type IntentType string

const (
	IntentNavigate       IntentType = "navigate"
	IntentCreateQuestion IntentType = "create_question"
	IntentCreateExam     IntentType = "create_exam"
	IntentCreateGroup    IntentType = "create_group"
	IntentCreateUser     IntentType = "create_user"
	IntentChat           IntentType = "chat"
)

var intentTypes = map[IntentType]bool{
	IntentNavigate:       true,
	IntentCreateQuestion: true,
	IntentCreateExam:     true,
	IntentCreateGroup:    true,
	IntentCreateUser:     true,
	IntentChat:           true,
}

// Intent is a classified turn plus whatever parameters the router could pull
// out of the message. Fields are best-effort; the executor validates.
type Intent struct {
	Type    IntentType `json:"type"`
	Message string     `json:"message"`

	// navigation
	Target string `json:"target,omitempty"`

	// question / exam creation
	Category      question.Category `json:"category,omitempty"`
	Prompt        string            `json:"prompt,omitempty"`
	Title         string            `json:"title,omitempty"`
	Description   string            `json:"description,omitempty"`
	QuestionCount int               `json:"question_count,omitempty"`

	// group / user creation
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Mutating reports whether executing the intent writes to the platform.
func (in Intent) Mutating() bool {
	switch in.Type {
	case IntentCreateQuestion, IntentCreateExam, IntentCreateGroup, IntentCreateUser:
		return true
	}
	return false
}

// navTargets are the places the assistant can send a user. Keys are what the
// frontend routes on.
var navTargets = []string{
	"dashboard", "questions", "exams", "groups", "users", "quiz", "profile",
}

var navAliases = map[string]string{
	"home":          "dashboard",
	"overview":      "dashboard",
	"question bank": "questions",
	"bank":          "questions",
	"tests":         "exams",
	"exam":          "exams",
	"test":          "exams",
	"classes":       "groups",
	"group":         "groups",
	"class":         "groups",
	"people":        "users",
	"accounts":      "users",
	"practice":      "quiz",
	"account":       "profile",
	"settings":      "profile",
}

// keywordTriggers map message patterns to intents for the no-model path.
// The verb and the entity noun may be separated by a couple of qualifier
// words ("create a grammar exam" still reads as create_exam); the longest
// matched phrase wins, so "create an exam" beats a bare "open".
var keywordTriggers = []struct {
	re *regexp.Regexp
	it IntentType
}{
	{regexp.MustCompile(`\b(?:go to|take me to|show me|navigate|open)\b`), IntentNavigate},
	{regexp.MustCompile(`\b(?:create|add|make|generate|write)\s+(?:(?:a|an|the|me)\s+)?(?:\w+\s+){0,2}questions?\b`), IntentCreateQuestion},
	{regexp.MustCompile(`\bnew question\b`), IntentCreateQuestion},
	{regexp.MustCompile(`\b(?:create|add|make|generate|set up)\s+(?:(?:a|an|the|me)\s+)?(?:\w+\s+){0,2}(?:exams?|tests?)\b`), IntentCreateExam},
	{regexp.MustCompile(`\bnew (?:exam|test)\b`), IntentCreateExam},
	{regexp.MustCompile(`\b(?:create|add|make|set up)\s+(?:(?:a|an|the)\s+)?(?:\w+\s+){0,2}(?:groups?|class(?:es)?)\b`), IntentCreateGroup},
	{regexp.MustCompile(`\bnew (?:group|class)\b`), IntentCreateGroup},
	{regexp.MustCompile(`\b(?:create|add|register)\s+(?:(?:a|an|the)\s+)?(?:\w+\s+){0,2}(?:users?|accounts?|students?|teachers?|admins?)\b`), IntentCreateUser},
	{regexp.MustCompile(`\bnew user\b`), IntentCreateUser},
}

var (
	titledRegex = regexp.MustCompile(`(?i)(?:called|named|titled)\s+"?([^".,!?]+)"?`)
	quotedRegex = regexp.MustCompile(`"([^"]+)"`)
	countRegex  = regexp.MustCompile(`\b(\d{1,3})\b`)
	emailRegex  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

const routerSystemPrompt = `You are the intent classifier for a language practice platform.
Reply with a single JSON object and nothing else. Schema:
{"type": "<intent>", "target": "", "category": "", "prompt": "", "title": "", "description": "", "question_count": 0, "name": "", "username": "", "email": "", "role": ""}
"type" must be one of: %s.
Use "chat" when the user is asking a question or making conversation.
Navigation targets: %s.
Categories: vocabulary, grammar, translation.
Leave fields you cannot fill empty.`

// Router turns a raw message into an Intent. It prefers the model's
// classification and falls back to keyword matching only when the model is
// unreachable; a reachable model that answers off-schema degrades to chat.
type Router struct {
	client ai.Client
	logger core.Logger
}

func NewRouter(client ai.Client, logger core.Logger) *Router {
	return &Router{client: client, logger: logger}
}

func (r *Router) Classify(ctx context.Context, message string, actor user.User) Intent {
	message = strings.TrimSpace(message)
	chat := Intent{Type: IntentChat, Message: message}
	if message == "" {
		return chat
	}

	if r.client != nil && r.client.Available() {
		raw, err := r.client.Complete(ctx, []ai.Message{
			ai.SystemMessage(routerPrompt(actor)),
			ai.UserMessage(message),
		})
		if err == nil {
			in, ok := decodeIntent(raw, message)
			if !ok {
				// reachable model, unusable answer: treat the turn as chat
				r.logger.Warn("assistant: intent reply off schema, treating as chat")
				return chat
			}
			return in
		}
		if !ai.IsUnavailable(err) {
			r.logger.Warn("assistant: intent classification failed: %v", err)
			return chat
		}
		r.logger.Info("assistant: model unavailable, using keyword intents")
	}

	return r.keywordIntent(message)
}

func routerPrompt(actor user.User) string {
	intents := []string{string(IntentNavigate), string(IntentChat)}
	if actor.IsTeacher() || actor.IsAdmin() {
		intents = append(intents,
			string(IntentCreateQuestion), string(IntentCreateExam), string(IntentCreateGroup))
	}
	if actor.IsAdmin() {
		intents = append(intents, string(IntentCreateUser))
	}
	p := strings.Replace(routerSystemPrompt, "%s", strings.Join(intents, ", "), 1)
	return strings.Replace(p, "%s", strings.Join(navTargets, ", "), 1)
}

func decodeIntent(raw, message string) (Intent, bool) {
	var in Intent
	if err := decodeJSON(raw, &in); err != nil {
		return Intent{}, false
	}
	in.Type = IntentType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if !intentTypes[in.Type] {
		return Intent{}, false
	}
	in.Message = message
	if in.Type == IntentNavigate {
		in.Target = resolveTarget(in.Target)
		if in.Target == "" {
			return Intent{}, false
		}
	}
	if in.Category != "" && !in.Category.Valid() {
		in.Category = ""
	}
	return in, true
}

// keywordIntent is the deterministic classifier: scan for the trigger with
// the longest matched phrase, then scrape parameters with the same heuristics
// regardless of which trigger won.
func (r *Router) keywordIntent(message string) Intent {
	lower := strings.ToLower(message)

	var (
		matched IntentType
		best    int
	)
	for _, trig := range keywordTriggers {
		if m := trig.re.FindString(lower); len(m) > best {
			matched, best = trig.it, len(m)
		}
	}
	if best == 0 {
		return Intent{Type: IntentChat, Message: message}
	}

	in := Intent{Type: matched, Message: message}
	switch matched {
	case IntentNavigate:
		in.Target = resolveTarget(lower)
		if in.Target == "" {
			return Intent{Type: IntentChat, Message: message}
		}
	case IntentCreateQuestion:
		in.Category = extractCategory(lower)
		in.Prompt = message
	case IntentCreateExam:
		in.Category = extractCategory(lower)
		in.Title = extractTitle(message)
		in.QuestionCount = extractCount(lower)
		in.Prompt = message
	case IntentCreateGroup:
		in.Name = extractTitle(message)
	case IntentCreateUser:
		in.Email = emailRegex.FindString(message)
		in.Name = extractTitle(message)
		in.Role = extractRole(lower)
	}
	return in
}

// resolveTarget maps free text onto a known navigation target, trying exact
// aliases first and fuzzy matching as a last resort.
func resolveTarget(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	for _, t := range navTargets {
		if strings.Contains(text, t) {
			return t
		}
	}
	for alias, t := range navAliases {
		if strings.Contains(text, alias) {
			return t
		}
	}
	for _, word := range strings.Fields(text) {
		if matches := fuzzy.RankFindFold(word, navTargets); len(matches) > 0 {
			sort.Sort(matches)
			return matches[0].Target
		}
	}
	return ""
}

func extractCategory(lower string) question.Category {
	switch {
	case strings.Contains(lower, "vocab"):
		return question.CategoryVocabulary
	case strings.Contains(lower, "grammar"):
		return question.CategoryGrammar
	case strings.Contains(lower, "translat"):
		return question.CategoryTranslation
	}
	return ""
}

func extractTitle(message string) string {
	if m := titledRegex.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := quotedRegex.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractCount(lower string) int {
	m := countRegex.FindString(lower)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func extractRole(lower string) string {
	switch {
	case strings.Contains(lower, "admin"):
		return "admin"
	case strings.Contains(lower, "teacher"):
		return "teacher"
	case strings.Contains(lower, "student"):
		return "student"
	}
	return ""
}
