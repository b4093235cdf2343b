package genaiconv

import (
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ToolPairTable maps tool call and tool result lookup keys to canonical IDs.
// A key present in the table is a member of the valid call or result set.
//
// The table is built once per conversion by BuildToolPairs and is read-only
// afterwards.
type ToolPairTable struct {
	calls   map[string]string
	results map[string]string
}

// CallID returns the canonical ID of the tool call with the given lookup key.
// ok is false for orphaned calls.
func (t *ToolPairTable) CallID(key string) (id string, ok bool) {
	id, ok = t.calls[key]
	return id, ok
}

// ResultID returns the canonical ID of the tool result with the given lookup
// key. ok is false for orphaned results.
func (t *ToolPairTable) ResultID(key string) (id string, ok bool) {
	id, ok = t.results[key]
	return id, ok
}

// Len returns the number of valid tool calls.
func (t *ToolPairTable) Len() int {
	return len(t.calls)
}

// Lookup keys live in two namespaces so that a call ID such as "#call/0"
// never collides with the key of an anonymous call.
func idKey(id string) string { return "id:" + id }

func anonCallKey(n int) string { return fmt.Sprintf("#call/%d", n) }

func anonResultKey(n int) string { return fmt.Sprintf("#result/%d", n) }

// callKey returns the lookup key of the n-th function call in a conversation.
// Calls without an ID are keyed by occurrence.
func callKey(fc *genai.FunctionCall, n int) string {
	if fc.ID != "" {
		return idKey(fc.ID)
	}
	return anonCallKey(n)
}

// resultKey returns the lookup key of the n-th function response.
func resultKey(fr *genai.FunctionResponse, n int) string {
	if fr.ID != "" {
		return idKey(fr.ID)
	}
	return anonResultKey(n)
}

// NewToolCallID returns a fresh tool call ID.
func NewToolCallID() string {
	return "call_" + uuid.NewString()
}

type toolRef struct {
	key  string
	id   string
	name string
	turn int
	used bool
}

// BuildToolPairs scans the whole conversation once and pairs every tool call
// with at most one tool result.
//
// Pairing runs in two phases, first match wins:
//  1. Exact ID: a call with a non-empty ID takes the first unused result with
//     the same ID, wherever it appears.
//  2. Name fallback: a still unpaired call takes the first unused result with
//     the same name in a later turn. The canonical ID is the call's ID, else
//     the result's ID, else newID().
//
// There is no positional phase; calls and results left over are orphans.
// newID may be nil, in which case NewToolCallID is used.
func BuildToolPairs(contents []*genai.Content, newID func() string) *ToolPairTable {
	if newID == nil {
		newID = NewToolCallID
	}

	var calls, results []*toolRef
	for turn, content := range contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			switch Classify(part) {
			case PartFunctionCall:
				fc := part.FunctionCall
				calls = append(calls, &toolRef{
					key:  callKey(fc, len(calls)),
					id:   fc.ID,
					name: fc.Name,
					turn: turn,
				})
			case PartFunctionResponse:
				fr := part.FunctionResponse
				results = append(results, &toolRef{
					key:  resultKey(fr, len(results)),
					id:   fr.ID,
					name: fr.Name,
					turn: turn,
				})
			}
		}
	}

	t := &ToolPairTable{
		calls:   make(map[string]string, len(calls)),
		results: make(map[string]string, len(results)),
	}

	for _, call := range calls {
		if call.id == "" {
			continue
		}
		for _, res := range results {
			if res.used || res.id != call.id {
				continue
			}
			if t.pair(call, res, call.id) {
				break
			}
		}
	}

	for _, call := range calls {
		if call.used || call.name == "" {
			continue
		}
		for _, res := range results {
			if res.used || res.name != call.name || res.turn <= call.turn {
				continue
			}
			canonical := call.id
			if canonical == "" {
				canonical = res.id
			}
			if canonical == "" {
				canonical = newID()
			}
			if t.pair(call, res, canonical) {
				break
			}
		}
	}

	return t
}

// pair records call and res as a pair. A key that already has a canonical ID
// keeps it; pairing fails when both keys are bound to different IDs.
func (t *ToolPairTable) pair(call, res *toolRef, canonical string) bool {
	cid, cok := t.calls[call.key]
	rid, rok := t.results[res.key]
	switch {
	case cok && rok && cid != rid:
		return false
	case cok:
		canonical = cid
	case rok:
		canonical = rid
	}
	t.calls[call.key] = canonical
	t.results[res.key] = canonical
	call.used = true
	res.used = true
	return true
}
