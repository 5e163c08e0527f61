package metadata

import (
	"errors"
	"strings"
)

// ExtractJSON returns the first balanced JSON object or array inside raw.
// LLM responses often mix prose with the payload, so the scan starts at the
// first opening brace or bracket and ends at its matching close, ignoring
// braces inside string literals.
func ExtractJSON(raw string) (string, error) {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return "", errors.New("metadata: no json found in response")
	}
	var depth int
	var inString, escaped bool
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", errors.New("metadata: unbalanced json in response")
}
