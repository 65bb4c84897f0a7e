package schema

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText strips markup from builder-authored display text, keeping a
// small inline subset statement blocks commonly use.
func SanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(textSanitizer().Sanitize(trimmed))
}

// Sanitize returns a copy of the form with question, description, and option
// labels passed through the text policy. Called on every builder save so
// persisted forms never carry unexpected markup into the renderer.
func Sanitize(form Form) Form {
	out := form.Clone()
	out.Title = SanitizeText(out.Title)
	for i := range out.Blocks {
		out.Blocks[i].Question = SanitizeText(out.Blocks[i].Question)
		out.Blocks[i].Description = SanitizeText(out.Blocks[i].Description)
		for j := range out.Blocks[i].Options {
			out.Blocks[i].Options[j].Label = SanitizeText(out.Blocks[i].Options[j].Label)
		}
	}
	return out
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "i", "em", "strong", "br", "a")
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		textPolicy = policy
	})
	return textPolicy
}
