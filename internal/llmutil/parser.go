// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// Regex definitions use \x60 for backticks because Go raw strings cannot
// contain them.
var (
	// fencedObjectRegex extracts a JSON object wrapped in a markdown code
	// fence, with or without a language tag.
	fencedObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
)

// ParseJSONResponse parses an LLM response string into a target Go type,
// handling the common formatting issues: markdown code fences around the
// payload and conversational text surrounding an embedded object.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	candidate := response

	if strings.HasPrefix(response, "```") {
		// Fenced payload is the most common case.
		if matches := fencedObjectRegex.FindStringSubmatch(response); len(matches) > 1 {
			candidate = matches[1]
		}
	} else if !strings.HasPrefix(response, "{") {
		// Attempt to locate an object embedded in conversational text.
		first := strings.Index(response, "{")
		last := strings.LastIndex(response, "}")
		if first != -1 && last > first {
			candidate = response[first : last+1]
		}
	}

	var result T
	if err := json.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w (extracted: %s)", err, Truncate(candidate, 200))
	}
	return &result, nil
}

// Truncate bounds a string for inclusion in diagnostics.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
