package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	jsonBlockRegex = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
	jsonFenceRegex = regexp.MustCompile("(?i)^```(?:json)?")
)

// sanitizePayload strips markdown fences and stray whitespace the model tends
// to wrap around JSON replies.
func sanitizePayload(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(jsonFenceRegex.ReplaceAllString(text, ""))
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}

// decodeJSON parses a model reply into v: first verbatim, then the first
// JSON block found inside surrounding prose.
func decodeJSON(text string, v interface{}) error {
	text = sanitizePayload(text)
	if text == "" {
		return errors.New("empty reply")
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	if match := jsonBlockRegex.FindString(text); match != "" {
		if err := json.Unmarshal([]byte(match), v); err == nil {
			return nil
		}
	}
	return errors.New("reply is not valid JSON")
}
