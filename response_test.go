package genaiconv

import (
	"testing"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/google"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConvertResponse_ToolCall(t *testing.T) {
	result := &GenerateResult{
		Text: lo.ToPtr(""),
		ToolCalls: []ToolCall{{
			ToolCallID: "t1",
			ToolName:   "get_weather",
			Input:      map[string]any{"city": "Tokyo"},
		}},
		FinishReason: fantasy.FinishReasonToolCalls,
	}

	resp := New().ConvertResponse(result)

	require.Len(t, resp.Candidates, 1)
	cand := resp.Candidates[0]
	assert.Equal(t, genai.FinishReasonStop, cand.FinishReason)
	assert.Equal(t, int32(0), cand.Index)
	assert.Equal(t, genai.RoleModel, cand.Content.Role)

	require.Len(t, cand.Content.Parts, 1)
	fc := cand.Content.Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "t1", fc.ID)
	assert.Equal(t, "get_weather", fc.Name)
	assert.Equal(t, map[string]any{"city": "Tokyo"}, fc.Args)

	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, fc, resp.FunctionCalls[0])
	assert.Nil(t, resp.UsageMetadata)
}

func TestConvertResponse_TextAndCalls(t *testing.T) {
	result := &GenerateResult{
		Text: lo.ToPtr("Let me check."),
		ToolCalls: []ToolCall{
			{ToolCallID: "a", ToolName: "f", Input: map[string]any{}},
			{ToolCallID: "b", ToolName: "g", Input: map[string]any{"x": 1.0}},
		},
		FinishReason: fantasy.FinishReasonStop,
	}

	resp := New().ConvertResponse(result)

	parts := resp.Candidates[0].Content.Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "Let me check.", parts[0].Text)
	assert.Equal(t, "f", parts[1].FunctionCall.Name)
	assert.Equal(t, "g", parts[2].FunctionCall.Name)
	assert.Len(t, resp.FunctionCalls, 2)
	assert.Equal(t, "Let me check.", resp.Text())
}

func TestConvertResponse_TextOnly(t *testing.T) {
	resp := New().ConvertResponse(&GenerateResult{Text: lo.ToPtr("hi")})

	parts := resp.Candidates[0].Content.Parts
	require.Len(t, parts, 1)
	assert.Equal(t, "hi", parts[0].Text)
	assert.Nil(t, resp.FunctionCalls)
	assert.Equal(t, genai.FinishReasonStop, resp.Candidates[0].FinishReason)
}

func TestConvertResponse_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		result *GenerateResult
	}{
		{"nil result", nil},
		{"nil text", &GenerateResult{
			ToolCalls:    []ToolCall{{ToolCallID: "a", ToolName: "f"}},
			FinishReason: fantasy.FinishReasonStop,
			Usage:        &Usage{TotalTokens: lo.ToPtr[int64](3)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New().ConvertResponse(tt.result)

			require.Len(t, resp.Candidates, 1)
			cand := resp.Candidates[0]
			assert.Equal(t, genai.FinishReasonOther, cand.FinishReason)
			require.Len(t, cand.Content.Parts, 1)
			assert.Equal(t, "", cand.Content.Parts[0].Text)
			assert.Nil(t, resp.FunctionCalls)
			assert.Nil(t, resp.UsageMetadata)
		})
	}
}

func TestConvertResponse_Usage(t *testing.T) {
	tests := []struct {
		name  string
		usage *Usage
		want  *genai.GenerateContentResponseUsageMetadata
	}{
		{"absent", nil, nil},
		{
			"complete",
			&Usage{InputTokens: lo.ToPtr[int64](10), OutputTokens: lo.ToPtr[int64](5), TotalTokens: lo.ToPtr[int64](15)},
			&genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
		},
		{
			"partial counts default to zero",
			&Usage{OutputTokens: lo.ToPtr[int64](7)},
			&genai.GenerateContentResponseUsageMetadata{CandidatesTokenCount: 7},
		},
		{
			"empty usage",
			&Usage{},
			&genai.GenerateContentResponseUsageMetadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New().ConvertResponse(&GenerateResult{Text: lo.ToPtr("x"), Usage: tt.usage})
			assert.Equal(t, tt.want, resp.UsageMetadata)
		})
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		in   fantasy.FinishReason
		want genai.FinishReason
	}{
		{"", genai.FinishReasonStop},
		{fantasy.FinishReasonStop, genai.FinishReasonStop},
		{fantasy.FinishReasonToolCalls, genai.FinishReasonStop},
		{fantasy.FinishReasonLength, genai.FinishReasonMaxTokens},
		{FinishReasonMaxTokens, genai.FinishReasonMaxTokens},
		{fantasy.FinishReasonContentFilter, genai.FinishReasonSafety},
		{fantasy.FinishReasonError, genai.FinishReasonOther},
		{fantasy.FinishReasonOther, genai.FinishReasonOther},
		{fantasy.FinishReasonUnknown, genai.FinishReasonOther},
		{"something-new", genai.FinishReasonOther},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, MapFinishReason(tt.in))
		})
	}
}

func TestResponse_GenerateContentResponse(t *testing.T) {
	resp := New().ConvertResponse(&GenerateResult{
		Text:  lo.ToPtr("hello"),
		Usage: &Usage{TotalTokens: lo.ToPtr[int64](2)},
	})

	gcr := resp.GenerateContentResponse()

	assert.Equal(t, "hello", gcr.Text())
	assert.Equal(t, int32(2), gcr.UsageMetadata.TotalTokenCount)
}

func TestResponse_TextOnNil(t *testing.T) {
	var r *Response
	assert.Equal(t, "", r.Text())
	assert.Equal(t, "", (&Response{}).Text())
}

func TestResultFromFantasy(t *testing.T) {
	resp := &fantasy.Response{
		Content: []fantasy.Content{
			fantasy.TextContent{Text: "Hello"},
			fantasy.TextContent{Text: ", world"},
			fantasy.ToolCallContent{ToolCallID: "c1", ToolName: "search", Input: `{"q":"go","n":2}`},
			fantasy.ToolCallContent{ToolCallID: "c2", ToolName: "broken", Input: `{not json`},
			fantasy.ToolCallContent{ToolCallID: "c3", ToolName: "array", Input: `[1,2]`},
		},
		FinishReason: fantasy.FinishReasonToolCalls,
		Usage:        fantasy.Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7},
	}

	got := ResultFromFantasy(resp)

	require.NotNil(t, got)
	require.NotNil(t, got.Text)
	assert.Equal(t, "Hello, world", *got.Text)
	assert.Equal(t, fantasy.FinishReasonToolCalls, got.FinishReason)
	require.Len(t, got.ToolCalls, 3)
	assert.Equal(t, map[string]any{"q": "go", "n": 2.0}, got.ToolCalls[0].Input)
	assert.Equal(t, map[string]any{}, got.ToolCalls[1].Input)
	assert.Equal(t, map[string]any{}, got.ToolCalls[2].Input)
	assert.Equal(t, int64(7), *got.Usage.TotalTokens)
}

func TestResultFromFantasy_Reasoning(t *testing.T) {
	resp := &fantasy.Response{
		Content: []fantasy.Content{
			fantasy.ReasoningContent{Text: "think ", ProviderMetadata: fantasy.ProviderMetadata{
				google.Name: &google.ReasoningMetadata{Signature: "sig"},
			}},
			fantasy.ReasoningContent{Text: "harder", ProviderMetadata: fantasy.ProviderMetadata{
				google.Name: &google.ReasoningMetadata{Signature: "later"},
			}},
			fantasy.TextContent{Text: "answer"},
		},
	}

	got := ResultFromFantasy(resp)

	require.NotNil(t, got)
	assert.Equal(t, "think harder", got.Reasoning)
	assert.Equal(t, []byte("sig"), got.ThoughtSignature)
	assert.Equal(t, "answer", *got.Text)
}

func TestConvertResponse_Reasoning(t *testing.T) {
	tests := []struct {
		name      string
		result    *GenerateResult
		wantParts int
		signedAt  int
	}{
		{
			name: "signature on first call",
			result: &GenerateResult{
				Text:             lo.ToPtr("ok"),
				Reasoning:        "plan",
				ThoughtSignature: []byte("sig"),
				ToolCalls: []ToolCall{
					{ToolCallID: "a", ToolName: "f", Input: map[string]any{}},
					{ToolCallID: "b", ToolName: "g", Input: map[string]any{}},
				},
			},
			wantParts: 4,
			signedAt:  2,
		},
		{
			name: "signature on thought without calls",
			result: &GenerateResult{
				Text:             lo.ToPtr("ok"),
				Reasoning:        "plan",
				ThoughtSignature: []byte("sig"),
			},
			wantParts: 2,
			signedAt:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New().ConvertResponse(tt.result)

			parts := resp.Candidates[0].Content.Parts
			require.Len(t, parts, tt.wantParts)
			assert.True(t, parts[0].Thought)
			assert.Equal(t, "plan", parts[0].Text)
			assert.Equal(t, "ok", resp.Text(), "thought text is not response text")
			for i, p := range parts {
				if i == tt.signedAt {
					assert.Equal(t, []byte("sig"), p.ThoughtSignature)
				} else {
					assert.Nil(t, p.ThoughtSignature)
				}
			}
		})
	}
}

func TestThoughtSignature_RoundTrip(t *testing.T) {
	// a Google reply's signature reaches the next prompt ahead of its call
	c := New()
	reply := c.ConvertResponse(ResultFromFantasy(&fantasy.Response{
		Content: []fantasy.Content{
			fantasy.ReasoningContent{Text: "plan", ProviderMetadata: fantasy.ProviderMetadata{
				google.Name: &google.ReasoningMetadata{Signature: "sig"},
			}},
			fantasy.ToolCallContent{ToolCallID: "c1", ToolName: "search", Input: `{"q":"go"}`},
		},
	}))

	contents := []*genai.Content{
		genai.NewContentFromText("find go", genai.RoleUser),
		reply.Candidates[0].Content,
		genai.NewContentFromParts([]*genai.Part{resultPart("c1", "search", nil)}, genai.RoleUser),
	}
	prompt := MessagesToPrompt("", c.ContentsToMessages(contents))

	require.Len(t, prompt, 3)
	assistant := prompt[1].Content
	require.Len(t, assistant, 2)
	reasoning, ok := assistant[0].(fantasy.ReasoningPart)
	require.True(t, ok)
	meta, ok := reasoning.ProviderOptions[google.Name].(*google.ReasoningMetadata)
	require.True(t, ok)
	assert.Equal(t, "sig", meta.Signature)
	call, ok := assistant[1].(fantasy.ToolCallPart)
	require.True(t, ok)
	assert.Equal(t, "c1", call.ToolCallID)
}

func TestResultFromFantasy_Nil(t *testing.T) {
	assert.Nil(t, ResultFromFantasy(nil))
}

func TestParseToolInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{"empty", "", map[string]any{}},
		{"object", `{"a":"b"}`, map[string]any{"a": "b"}},
		{"nested", `{"a":{"b":[true]}}`, map[string]any{"a": map[string]any{"b": []any{true}}}},
		{"invalid", `{"a":`, map[string]any{}},
		{"scalar", `42`, map[string]any{}},
		{"null", `null`, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseToolInput(tt.input))
		})
	}
}

func TestConvertResponse_NoParts(t *testing.T) {
	resp := New().ConvertResponse(&GenerateResult{Text: lo.ToPtr("")})

	cand := resp.Candidates[0]
	require.NotNil(t, cand.Content)
	assert.NotNil(t, cand.Content.Parts)
	assert.Empty(t, cand.Content.Parts)
	assert.Equal(t, genai.FinishReasonStop, cand.FinishReason)
}
