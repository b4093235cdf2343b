package genaiconv

import "github.com/samber/lo"

// EnforceToolAdjacency keeps a tool call only when the next message is a tool
// message holding its result, and a tool result only when the previous emitted
// message is an assistant message holding its call.
//
// Non-tool parts are kept. A message is dropped only when filtering leaves it
// empty. Pairs separated by another message (for example after history
// compression) are removed on both sides.
func EnforceToolAdjacency(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for i, msg := range msgs {
		switch msg.Role {
		case RoleAssistant:
			if len(toolCallParts(msg)) == 0 {
				out = append(out, msg)
				continue
			}
			var resultIDs map[string]bool
			if i+1 < len(msgs) && msgs[i+1].Role == RoleTool {
				resultIDs = idSet(lo.Map(toolResultParts(msgs[i+1]), func(tr ToolResultPart, _ int) string {
					return tr.ToolCallID
				}))
			}
			parts := lo.Filter(msg.Parts, func(p Part, _ int) bool {
				tc, ok := p.(ToolCallPart)
				return !ok || resultIDs[tc.ToolCallID]
			})
			if len(parts) > 0 {
				out = append(out, Message{Role: msg.Role, Parts: parts})
			}

		case RoleTool:
			var callIDs map[string]bool
			if len(out) > 0 && out[len(out)-1].Role == RoleAssistant {
				callIDs = idSet(lo.Map(toolCallParts(out[len(out)-1]), func(tc ToolCallPart, _ int) string {
					return tc.ToolCallID
				}))
			}
			parts := lo.Filter(msg.Parts, func(p Part, _ int) bool {
				tr, ok := p.(ToolResultPart)
				return !ok || callIDs[tr.ToolCallID]
			})
			if len(parts) > 0 {
				out = append(out, Message{Role: msg.Role, Parts: parts})
			}

		default:
			out = append(out, msg)
		}
	}
	return out
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
