package genaiconv

import "google.golang.org/genai"

// PartKind is the semantic kind of a genai.Part.
type PartKind int

const (
	PartUnknown PartKind = iota
	PartText
	PartFunctionCall
	PartFunctionResponse
	PartInlineImage
)

// String returns the kind name.
func (k PartKind) String() string {
	switch k {
	case PartText:
		return "text"
	case PartFunctionCall:
		return "functionCall"
	case PartFunctionResponse:
		return "functionResponse"
	case PartInlineImage:
		return "inlineImage"
	default:
		return "unknown"
	}
}

// Classify returns the kind of part. Exactly one kind matches a well-formed
// part; anything else is PartUnknown and callers skip it.
//
// Thought parts, file URIs and code execution parts are PartUnknown.
func Classify(part *genai.Part) PartKind {
	switch {
	case part == nil:
		return PartUnknown
	case part.FunctionCall != nil:
		return PartFunctionCall
	case part.FunctionResponse != nil:
		return PartFunctionResponse
	case part.InlineData != nil:
		return PartInlineImage
	case part.Thought:
		return PartUnknown
	case part.FileData != nil || part.ExecutableCode != nil || part.CodeExecutionResult != nil:
		return PartUnknown
	default:
		return PartText
	}
}

// IsText reports whether part is a text part.
func IsText(part *genai.Part) bool { return Classify(part) == PartText }

// IsFunctionCall reports whether part is a function call.
func IsFunctionCall(part *genai.Part) bool { return Classify(part) == PartFunctionCall }

// IsFunctionResponse reports whether part is a function response.
func IsFunctionResponse(part *genai.Part) bool { return Classify(part) == PartFunctionResponse }

// IsInlineImage reports whether part carries inline data.
func IsInlineImage(part *genai.Part) bool { return Classify(part) == PartInlineImage }

// classifiedTurn is the parts of one genai.Content grouped by kind, in order.
type classifiedTurn struct {
	texts     []string
	calls     []*genai.Part
	responses []*genai.Part
	images    []*genai.Blob
}

func classifyTurn(content *genai.Content) classifiedTurn {
	var ct classifiedTurn
	if content == nil {
		return ct
	}
	for _, part := range content.Parts {
		switch Classify(part) {
		case PartText:
			if part.Text != "" {
				ct.texts = append(ct.texts, part.Text)
			}
		case PartFunctionCall:
			ct.calls = append(ct.calls, part)
		case PartFunctionResponse:
			ct.responses = append(ct.responses, part)
		case PartInlineImage:
			ct.images = append(ct.images, part.InlineData)
		}
	}
	return ct
}
