// Package htmlsanitize strips markup from human-readable statement text.
// Statements are stored as plain text; clients escape on display.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes every tag (and the bodies of script and style elements) and
// returns the remaining text with entities decoded and outer space trimmed.
func Text(s string) string {
	if s == "" {
		return ""
	}
	if IsPlainText(s) && !strings.Contains(s, "&") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(s)))
}

// Display applies Text to every value of a language map (verb display).
// Entries that end up empty are dropped. Returns nil for an empty result.
func Display(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for lang, v := range m {
		if v = Text(v); v != "" {
			out[strings.TrimSpace(lang)] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsPlainText reports whether content has no tag-like sequence.
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}
