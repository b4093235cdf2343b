package genaiconv

import (
	"encoding/json"
	"errors"
	"fmt"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/google"
)

// MessagesToPrompt lowers canonical messages to a fantasy prompt. A non-empty
// system string becomes the leading system message.
//
// Tool call inputs are JSON encoded. Tool result outputs become text outputs,
// or error outputs for the error variants; JSON values are encoded as text.
// A tool call's thought signature is carried by a Google reasoning part placed
// right before the call, where the Google provider reads it back.
func MessagesToPrompt(system string, msgs []Message) fantasy.Prompt {
	prompt := make(fantasy.Prompt, 0, len(msgs)+1)
	if system != "" {
		prompt = append(prompt, fantasy.Message{
			Role:    fantasy.MessageRoleSystem,
			Content: []fantasy.MessagePart{fantasy.TextPart{Text: system}},
		})
	}

	for _, msg := range msgs {
		fm := fantasy.Message{Role: fantasyRole(msg.Role)}
		if !msg.HasParts() {
			fm.Content = append(fm.Content, fantasy.TextPart{Text: msg.Text})
			prompt = append(prompt, fm)
			continue
		}
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case TextPart:
				fm.Content = append(fm.Content, fantasy.TextPart{Text: p.Text})
			case ImagePart:
				fm.Content = append(fm.Content, fantasy.FilePart{Data: p.Data, MediaType: p.MediaType})
			case ToolCallPart:
				if len(p.ThoughtSignature) > 0 {
					fm.Content = append(fm.Content, signaturePart(p.ThoughtSignature))
				}
				fm.Content = append(fm.Content, fantasy.ToolCallPart{
					ToolCallID: p.ToolCallID,
					ToolName:   p.ToolName,
					Input:      encodeJSON(p.Input),
				})
			case ToolResultPart:
				fm.Content = append(fm.Content, fantasy.ToolResultPart{
					ToolCallID: p.ToolCallID,
					Output:     toolResultOutput(p.Output),
				})
			}
		}
		prompt = append(prompt, fm)
	}
	return prompt
}

func signaturePart(sig []byte) fantasy.ReasoningPart {
	return fantasy.ReasoningPart{
		ProviderOptions: fantasy.ProviderOptions{
			google.Name: &google.ReasoningMetadata{Signature: string(sig)},
		},
	}
}

func fantasyRole(r Role) fantasy.MessageRole {
	switch r {
	case RoleAssistant:
		return fantasy.MessageRoleAssistant
	case RoleTool:
		return fantasy.MessageRoleTool
	default:
		return fantasy.MessageRoleUser
	}
}

func toolResultOutput(o Output) fantasy.ToolResultOutputContent {
	text := outputText(o.Value)
	if o.IsError() {
		return fantasy.ToolResultOutputContentError{Error: errors.New(text)}
	}
	return fantasy.ToolResultOutputContentText{Text: text}
}

func outputText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return encodeJSON(v)
}

func encodeJSON(v any) string {
	if m, ok := v.(map[string]any); v == nil || (ok && m == nil) {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
