package genaiconv

// MergeConsecutiveToolMessages merges each run of adjacent tool messages into
// one tool message whose parts are the run's parts in order. Other messages
// are returned unchanged. Merging an already merged list is a no-op.
func MergeConsecutiveToolMessages(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleTool && len(out) > 0 && out[len(out)-1].Role == RoleTool {
			last := &out[len(out)-1]
			merged := make([]Part, 0, len(last.Parts)+len(msg.Parts))
			merged = append(merged, last.Parts...)
			merged = append(merged, msg.Parts...)
			last.Parts = merged
			continue
		}
		out = append(out, msg)
	}
	return out
}
