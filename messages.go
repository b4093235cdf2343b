package genaiconv

import (
	"strings"

	"google.golang.org/genai"
)

// toolImagesNote introduces images that arrived alongside tool results. Tool
// messages cannot carry images, so they travel in a following user message.
const toolImagesNote = "The tool results above returned the following images:"

// ContentsToMessages converts a genai conversation into canonical messages.
//
// Tool calls and results are paired across the whole conversation first (see
// BuildToolPairs); orphans and duplicate results are dropped. The emitted
// messages are then merged (MergeConsecutiveToolMessages) and validated
// (EnforceToolAdjacency), so every tool call in the output is immediately
// followed by its result and vice versa.
//
// Role mapping:
//   - "model" -> assistant
//   - "user" (or empty) -> user
//   - a turn made of function responses -> tool
//
// ContentsToMessages never fails; malformed parts are skipped.
func (c *Converter) ContentsToMessages(contents []*genai.Content) []Message {
	table := BuildToolPairs(contents, c.newID)

	var msgs []Message
	emitted := make(map[string]bool)
	var callN, resultN int

	// Text and images from tool result turns wait until the run of tool
	// result turns ends, so the tool messages stay consecutive.
	var held []Part
	flush := func() {
		if len(held) > 0 {
			msgs = append(msgs, Message{Role: RoleUser, Parts: held})
			held = nil
		}
	}

	for _, content := range contents {
		if content == nil {
			continue
		}
		turn := classifyTurn(content)

		callKeys := make([]string, len(turn.calls))
		for i, part := range turn.calls {
			callKeys[i] = callKey(part.FunctionCall, callN)
			callN++
		}
		resultKeys := make([]string, len(turn.responses))
		for i, part := range turn.responses {
			resultKeys[i] = resultKey(part.FunctionResponse, resultN)
			resultN++
		}

		if len(turn.responses) > 0 && (content.Role != genai.RoleModel || len(turn.calls) == 0) {
			if msg, extra, ok := c.toolMessage(turn, resultKeys, table, emitted); ok {
				msgs = append(msgs, msg)
				held = append(held, extra...)
			}
			continue
		}

		flush()
		if content.Role == genai.RoleModel && len(turn.calls) > 0 {
			if msg, ok := c.assistantMessage(turn, callKeys, table); ok {
				msgs = append(msgs, msg)
			}
		} else if msg, ok := plainMessage(content.Role, turn); ok {
			msgs = append(msgs, msg)
		}
	}
	flush()

	msgs = MergeConsecutiveToolMessages(msgs)
	return EnforceToolAdjacency(msgs)
}

func roleFor(role string) Role {
	if role == genai.RoleModel {
		return RoleAssistant
	}
	return RoleUser
}

func plainMessage(role string, turn classifiedTurn) (Message, bool) {
	text := strings.Join(turn.texts, "\n")
	if len(turn.images) == 0 {
		if text == "" {
			return Message{}, false
		}
		return Message{Role: roleFor(role), Text: text}, true
	}

	parts := make([]Part, 0, len(turn.images)+1)
	if text != "" {
		parts = append(parts, TextPart{Text: text})
	}
	parts = append(parts, imageParts(turn.images)...)
	return Message{Role: roleFor(role), Parts: parts}, true
}

func imageParts(blobs []*genai.Blob) []Part {
	parts := make([]Part, 0, len(blobs))
	for _, b := range blobs {
		parts = append(parts, ImagePart{Data: b.Data, MediaType: b.MIMEType})
	}
	return parts
}

// assistantMessage converts a model turn with function calls. Orphaned calls
// are excluded and a canonical ID is used at most once per message.
func (c *Converter) assistantMessage(turn classifiedTurn, keys []string, table *ToolPairTable) (Message, bool) {
	var parts []Part
	if text := strings.Join(turn.texts, "\n"); text != "" {
		parts = append(parts, TextPart{Text: text})
	}

	var signature []byte
	for _, part := range turn.calls {
		if len(part.ThoughtSignature) > 0 {
			signature = part.ThoughtSignature
			break
		}
	}

	seen := make(map[string]bool, len(turn.calls))
	first := true
	for i, part := range turn.calls {
		fc := part.FunctionCall
		id, ok := table.CallID(keys[i])
		if !ok {
			c.logger.Debug("dropping orphaned tool call", "tool", fc.Name, "id", fc.ID)
			continue
		}
		if seen[id] {
			c.logger.Debug("dropping repeated tool call", "tool", fc.Name, "id", id)
			continue
		}
		seen[id] = true

		tc := ToolCallPart{
			ToolCallID: id,
			ToolName:   fc.Name,
			Input:      copyArgs(fc.Args),
		}
		if first {
			tc.ThoughtSignature = signature
			first = false
		}
		parts = append(parts, tc)
	}

	if len(parts) == 0 {
		return Message{}, false
	}
	return Message{Role: RoleAssistant, Parts: parts}, true
}

// toolMessage converts a turn of function responses into a tool message. The
// turn's text and images are returned as extra for a following user message.
// emitted holds the canonical IDs already used by earlier results.
func (c *Converter) toolMessage(turn classifiedTurn, keys []string, table *ToolPairTable, emitted map[string]bool) (msg Message, extra []Part, ok bool) {
	var results []Part
	for i, part := range turn.responses {
		fr := part.FunctionResponse
		id, ok := table.ResultID(keys[i])
		if !ok {
			c.logger.Debug("dropping orphaned tool result", "tool", fr.Name, "id", fr.ID)
			continue
		}
		if emitted[id] {
			c.logger.Debug("dropping duplicate tool result", "tool", fr.Name, "id", id)
			continue
		}
		emitted[id] = true
		results = append(results, ToolResultPart{
			ToolCallID: id,
			ToolName:   fr.Name,
			Output:     outputFromResponse(fr.Response),
		})
	}
	if len(results) == 0 {
		return Message{}, nil, false
	}

	if text := strings.Join(turn.texts, "\n"); text != "" {
		extra = append(extra, TextPart{Text: text})
	}
	if len(turn.images) > 0 {
		extra = append(extra, TextPart{Text: toolImagesNote})
		extra = append(extra, imageParts(turn.images)...)
	}
	return Message{Role: RoleTool, Parts: results}, extra, true
}

// outputFromResponse maps a function response payload to a tool result Output:
//   - "error" set -> error-text (string) or error-json
//   - "output" set -> text (string) or json
//   - otherwise the whole payload (or {}) -> json
func outputFromResponse(resp map[string]any) Output {
	if v, ok := resp["error"]; ok && v != nil {
		if s, ok := v.(string); ok {
			return Output{Type: OutputErrorText, Value: s}
		}
		return Output{Type: OutputErrorJSON, Value: v}
	}
	if v, ok := resp["output"]; ok && v != nil {
		if s, ok := v.(string); ok {
			return Output{Type: OutputText, Value: s}
		}
		return Output{Type: OutputJSON, Value: v}
	}
	if resp == nil {
		return Output{Type: OutputJSON, Value: map[string]any{}}
	}
	return Output{Type: OutputJSON, Value: resp}
}

func copyArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
