package genaiconv

// Role is the role of a canonical message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a canonical conversation message.
//
// Content is either the plain Text string (Parts == nil) or the Parts array.
// Tool messages always use Parts.
type Message struct {
	Role  Role   `json:"role"`
	Text  string `json:"text,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// HasParts reports whether the message content is a part array.
func (m Message) HasParts() bool {
	return m.Parts != nil
}

// PartType identifies the variant of a canonical Part.
type PartType string

const (
	PartTypeText       PartType = "text"
	PartTypeImage      PartType = "image"
	PartTypeToolCall   PartType = "tool-call"
	PartTypeToolResult PartType = "tool-result"
)

// Part is one element of a canonical message's content array.
type Part interface {
	Type() PartType
}

// TextPart is plain text content.
type TextPart struct {
	Text string `json:"text"`
}

// Type implements Part.
func (TextPart) Type() PartType { return PartTypeText }

// ImagePart is inline image data.
type ImagePart struct {
	Data      []byte `json:"data"`
	MediaType string `json:"mediaType"`
}

// Type implements Part.
func (ImagePart) Type() PartType { return PartTypeImage }

// ToolCallPart is a tool invocation requested by the assistant.
//
// ThoughtSignature is provider call metadata; only the first tool call of a
// message carries it.
type ToolCallPart struct {
	ToolCallID       string         `json:"toolCallId"`
	ToolName         string         `json:"toolName"`
	Input            map[string]any `json:"input"`
	ThoughtSignature []byte         `json:"thoughtSignature,omitempty"`
}

// Type implements Part.
func (ToolCallPart) Type() PartType { return PartTypeToolCall }

// ToolResultPart is the result of a tool invocation.
type ToolResultPart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Output     Output `json:"output"`
}

// Type implements Part.
func (ToolResultPart) Type() PartType { return PartTypeToolResult }

// OutputType tags the value carried by a tool result Output.
type OutputType string

const (
	OutputJSON      OutputType = "json"
	OutputText      OutputType = "text"
	OutputErrorJSON OutputType = "error-json"
	OutputErrorText OutputType = "error-text"
)

// Output is the value of a tool result. Value is a string for the text
// variants and any JSON value for the json variants.
type Output struct {
	Type  OutputType `json:"type"`
	Value any        `json:"value"`
}

// IsError reports whether the output is one of the error variants.
func (o Output) IsError() bool {
	return o.Type == OutputErrorJSON || o.Type == OutputErrorText
}

// ToolCall is a tool invocation produced by a generation.
type ToolCall struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Input      map[string]any `json:"input"`
}

// toolCallParts returns the tool call parts of msg.
func toolCallParts(msg Message) []ToolCallPart {
	var out []ToolCallPart
	for _, p := range msg.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

// toolResultParts returns the tool result parts of msg.
func toolResultParts(msg Message) []ToolResultPart {
	var out []ToolResultPart
	for _, p := range msg.Parts {
		if tr, ok := p.(ToolResultPart); ok {
			out = append(out, tr)
		}
	}
	return out
}
