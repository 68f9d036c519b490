// Package privacy scrubs sensitive content from prompt text before it
// leaves the machine, e.g. for enhancement via a hosted model.
package privacy

import (
	"regexp"
	"strings"
)

var (
	// privateTagRegex matches <private>...</private> tags
	privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

	secretPatterns = []*regexp.Regexp{
		// OpenAI-style keys
		regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`),
		// AWS access key IDs
		regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		// GitHub tokens
		regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
		// Bearer headers
		regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{16,}`),
		// key=value style credentials
		regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*\S+`),
	}
)

const redactedPlaceholder = "[REDACTED]"

// StripPrivateTags removes all <private>...</private> content from text.
func StripPrivateTags(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// RedactSecrets replaces credential-shaped substrings with a placeholder.
func RedactSecrets(text string) string {
	for _, p := range secretPatterns {
		text = p.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// IsEntirelyPrivate checks if the text is entirely within <private> tags.
func IsEntirelyPrivate(text string) bool {
	stripped := StripPrivateTags(text)
	return strings.TrimSpace(stripped) == ""
}

// Clean strips private tags, redacts secrets, and trims whitespace.
// This is the function to use before text is sent to an external model.
func Clean(text string) string {
	text = StripPrivateTags(text)
	text = RedactSecrets(text)
	return strings.TrimSpace(text)
}
