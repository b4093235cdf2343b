package genaiconv

import (
	"strings"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/google"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// FinishReasonMaxTokens is accepted as an alias of fantasy.FinishReasonLength.
const FinishReasonMaxTokens fantasy.FinishReason = "max-tokens"

// GenerateResult is a finished canonical generation. A nil Text marks a
// malformed result; an empty FinishReason means none was reported.
//
// Reasoning is the model's thought text. ThoughtSignature is opaque provider
// data that must be sent back with the next request's tool calls.
type GenerateResult struct {
	Text             *string
	Reasoning        string
	ThoughtSignature []byte
	ToolCalls        []ToolCall
	FinishReason     fantasy.FinishReason
	Usage            *Usage
}

// Response is a genai-shaped generation response with exactly one candidate.
//
// FunctionCalls repeats the candidate's function call parts, in the same
// order, for consumers that do not walk parts.
type Response struct {
	Candidates    []*genai.Candidate                          `json:"candidates"`
	FunctionCalls []*genai.FunctionCall                       `json:"functionCalls,omitempty"`
	UsageMetadata *genai.GenerateContentResponseUsageMetadata `json:"usageMetadata,omitempty"`
}

// Text returns the concatenated text parts of the first candidate.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if IsText(part) {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// GenerateContentResponse returns r as the genai SDK response type.
func (r *Response) GenerateContentResponse() *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates:    r.Candidates,
		UsageMetadata: r.UsageMetadata,
	}
}

// MapFinishReason maps a canonical finish reason to genai:
//   - stop, tool-calls, absent -> STOP
//   - length, max-tokens -> MAX_TOKENS
//   - content-filter -> SAFETY
//   - error, other, anything else -> OTHER
func MapFinishReason(reason fantasy.FinishReason) genai.FinishReason {
	switch reason {
	case "", fantasy.FinishReasonStop, fantasy.FinishReasonToolCalls:
		return genai.FinishReasonStop
	case fantasy.FinishReasonLength, FinishReasonMaxTokens:
		return genai.FinishReasonMaxTokens
	case fantasy.FinishReasonContentFilter:
		return genai.FinishReasonSafety
	default:
		return genai.FinishReasonOther
	}
}

// ConvertResponse converts a finished generation into a genai response.
//
// The candidate's parts are a thought part (when there is reasoning), the text
// (when non-empty), then one function call per tool call. A thought signature
// goes on the first function call, or on the first part when there are no
// calls. Usage counts default to 0 individually; a nil Usage stays nil. A nil
// result or nil Text yields a single empty text part with finish reason OTHER.
func (c *Converter) ConvertResponse(result *GenerateResult) *Response {
	if result == nil || result.Text == nil {
		c.logger.Debug("malformed generation result, returning empty response")
		return &Response{
			Candidates: []*genai.Candidate{newCandidate([]*genai.Part{genai.NewPartFromText("")}, genai.FinishReasonOther)},
		}
	}

	parts := make([]*genai.Part, 0, len(result.ToolCalls)+2)
	if result.Reasoning != "" {
		parts = append(parts, &genai.Part{Text: result.Reasoning, Thought: true})
	}
	if *result.Text != "" {
		parts = append(parts, genai.NewPartFromText(*result.Text))
	}
	calls := functionCallParts(result.ToolCalls)
	parts = append(parts, calls...)

	if len(result.ThoughtSignature) > 0 {
		switch {
		case len(calls) > 0:
			calls[0].ThoughtSignature = result.ThoughtSignature
		case len(parts) > 0:
			parts[0].ThoughtSignature = result.ThoughtSignature
		}
	}

	return &Response{
		Candidates:    []*genai.Candidate{newCandidate(parts, MapFinishReason(result.FinishReason))},
		FunctionCalls: functionCalls(result.ToolCalls),
		UsageMetadata: usageMetadata(result.Usage),
	}
}

func newCandidate(parts []*genai.Part, reason genai.FinishReason) *genai.Candidate {
	return &genai.Candidate{
		Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
		FinishReason: reason,
		Index:        0,
	}
}

func functionCall(tc ToolCall) *genai.FunctionCall {
	return &genai.FunctionCall{
		ID:   tc.ToolCallID,
		Name: tc.ToolName,
		Args: copyArgs(tc.Input),
	}
}

func functionCallParts(calls []ToolCall) []*genai.Part {
	parts := make([]*genai.Part, 0, len(calls))
	for _, tc := range calls {
		parts = append(parts, &genai.Part{FunctionCall: functionCall(tc)})
	}
	return parts
}

// functionCalls returns the flat function call list, nil when there are none.
func functionCalls(calls []ToolCall) []*genai.FunctionCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]*genai.FunctionCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, functionCall(tc))
	}
	return out
}

// ResultFromFantasy converts a fantasy response into a GenerateResult.
// Text and reasoning contents are concatenated; tool call inputs that are not
// JSON objects become empty inputs. The first Google reasoning signature is
// kept as the thought signature.
func ResultFromFantasy(resp *fantasy.Response) *GenerateResult {
	if resp == nil {
		return nil
	}
	var b, reasoning strings.Builder
	var signature []byte
	var calls []ToolCall
	for _, content := range resp.Content {
		switch c := content.(type) {
		case fantasy.TextContent:
			b.WriteString(c.Text)
		case fantasy.ReasoningContent:
			reasoning.WriteString(c.Text)
			if signature == nil {
				signature = reasoningSignature(c.ProviderMetadata)
			}
		case fantasy.ToolCallContent:
			calls = append(calls, ToolCall{
				ToolCallID: c.ToolCallID,
				ToolName:   c.ToolName,
				Input:      parseToolInput(c.Input),
			})
		}
	}
	text := b.String()
	return &GenerateResult{
		Text:             &text,
		Reasoning:        reasoning.String(),
		ThoughtSignature: signature,
		ToolCalls:        calls,
		FinishReason:     resp.FinishReason,
		Usage:            UsageFromFantasy(resp.Usage),
	}
}

func reasoningSignature(md fantasy.ProviderMetadata) []byte {
	meta, ok := md[google.Name].(*google.ReasoningMetadata)
	if !ok || meta == nil || meta.Signature == "" {
		return nil
	}
	return []byte(meta.Signature)
}

// parseToolInput parses a JSON object argument string. Anything that is not a
// valid JSON object yields an empty map.
func parseToolInput(input string) map[string]any {
	if input == "" || !gjson.Valid(input) {
		return map[string]any{}
	}
	res := gjson.Parse(input)
	if !res.IsObject() {
		return map[string]any{}
	}
	if m, ok := res.Value().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
