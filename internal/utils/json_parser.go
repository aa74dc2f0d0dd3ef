package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fencedJSONPattern  = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingComma      = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars       = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes JSON out of model output. It accepts, in order:
// plain JSON, JSON inside a markdown fence, the first balanced object or
// array in surrounding prose, and finally a cleaned-up version of the input
// (trailing commas, unquoted keys, control characters).
func ParseAIJSON(input string, target any) error {
	input = strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")
	if input == "" {
		return fmt.Errorf("empty input")
	}

	candidates := []string{input}
	if fenced := extractFromMarkdown(input); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if embedded := extractJSONFromText(input); embedded != "" {
		candidates = append(candidates, embedded)
	}
	for _, c := range append([]string(nil), candidates...) {
		candidates = append(candidates, cleanJSON(c))
	}

	for _, c := range candidates {
		if json.Unmarshal([]byte(c), target) == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to parse JSON from input: %s", Truncate(input, 100))
}

// extractFromMarkdown returns the body of the first ``` fence if it looks like JSON
func extractFromMarkdown(input string) string {
	m := fencedJSONPattern.FindStringSubmatch(input)
	if len(m) < 2 {
		return ""
	}
	body := strings.TrimSpace(m[1])
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return body
	}
	return ""
}

// extractJSONFromText returns the first balanced object or array, whichever opens first
func extractJSONFromText(input string) string {
	obj := strings.IndexByte(input, '{')
	arr := strings.IndexByte(input, '[')

	switch {
	case obj >= 0 && (arr < 0 || obj < arr):
		return extractBalanced(input[obj:], '{', '}')
	case arr >= 0:
		return extractBalanced(input[arr:], '[', ']')
	}
	return ""
}

// extractBalanced returns the prefix of input up to the bracket closing input[0],
// ignoring brackets inside string literals.
func extractBalanced(input string, open, close byte) string {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[:i+1]
			}
		}
	}
	return ""
}

// cleanJSON fixes the mistakes models make most often
func cleanJSON(input string) string {
	s := trailingComma.ReplaceAllString(input, "$1")
	s = unquotedKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
	return controlChars.ReplaceAllString(s, "")
}

// Truncate shortens s to at most maxLen bytes, marking the cut with "...".
// The cut never splits a multi-byte rune.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
