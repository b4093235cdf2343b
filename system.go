package genaiconv

import (
	"strings"

	"google.golang.org/genai"
)

// NormalizeSystemInstruction reduces a system instruction to a plain string.
//
// Accepted inputs are nil, string, *string, genai.Content and *genai.Content.
// Content text parts are joined with a newline. ok is false for empty strings,
// content without text parts, and any other input type.
func NormalizeSystemInstruction(v any) (text string, ok bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case *string:
		if x == nil {
			return "", false
		}
		return *x, *x != ""
	case *genai.Content:
		if x == nil {
			return "", false
		}
		return contentText(x)
	case genai.Content:
		return contentText(&x)
	default:
		return "", false
	}
}

func contentText(content *genai.Content) (string, bool) {
	var texts []string
	for _, part := range content.Parts {
		if IsText(part) && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}
	return strings.Join(texts, "\n"), true
}
