package core

import (
	"strings"
)

const fence = "```"

// NormalizeResponse extracts the JSON object candidate from free-form model
// text. It prefers a fenced block, then the span from the first '{' to the
// last '}', and otherwise returns the trimmed input. The result is not
// guaranteed to parse.
func NormalizeResponse(text string) string {
	if inner, ok := extractFenced(text); ok {
		return inner
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// extractFenced returns the trimmed body of the first ``` block, skipping an
// optional "json" tag on the opening fence.
func extractFenced(text string) (string, bool) {
	open := strings.Index(text, fence)
	if open < 0 {
		return "", false
	}
	body := text[open+len(fence):]
	closing := strings.Index(body, fence)
	if closing < 0 {
		return "", false
	}
	body = body[:closing]
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	return strings.TrimSpace(body), true
}
