package genaiconv

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"charm.land/fantasy"
	"google.golang.org/genai"
)

// ConvertStream converts a fantasy stream into a sequence of partial genai
// responses.
//
// Each text delta is yielded immediately as its own chunk, empty deltas
// included. Tool calls are accumulated, either from complete tool call parts
// or from tool input start/delta parts; an input that was streamed but never
// completed is still emitted. A finish part ends the stream; other part types
// are ignored. After the last upstream part exactly one final chunk
// is yielded with the accumulated function calls, the finish reason and usage
// from usage(ctx). When usage is nil or fails, usage is estimated from the
// accumulated output and is always at least one token.
//
// The sequence is single-use. Breaking out of it stops the upstream stream.
func (c *Converter) ConvertStream(ctx context.Context, stream fantasy.StreamResponse, usage UsageFunc) iter.Seq[*Response] {
	return func(yield func(*Response) bool) {
		var (
			calls   []ToolCall
			output  strings.Builder
			reason  fantasy.FinishReason
			pending = newToolInputs()
		)
		addCall := func(id, name, input string) {
			calls = append(calls, ToolCall{
				ToolCallID: id,
				ToolName:   name,
				Input:      parseToolInput(input),
			})
			output.WriteString(name)
			output.WriteString(input)
		}

		if stream != nil {
		loop:
			for part := range stream {
				switch part.Type {
				case fantasy.StreamPartTypeTextDelta:
					output.WriteString(part.Delta)
					if !yield(textChunk(part.Delta)) {
						return
					}
				case fantasy.StreamPartTypeToolInputStart:
					pending.start(part.ID, part.ToolCallName)
				case fantasy.StreamPartTypeToolInputDelta:
					pending.add(part.ID, part.Delta+part.ToolCallInput)
				case fantasy.StreamPartTypeToolCall:
					name, input := pending.take(part.ID)
					if part.ToolCallName != "" {
						name = part.ToolCallName
					}
					if part.ToolCallInput != "" {
						input = part.ToolCallInput
					}
					addCall(part.ID, name, input)
				case fantasy.StreamPartTypeFinish:
					reason = part.FinishReason
					break loop
				}
			}
		}

		for _, id := range pending.order {
			if name, input := pending.take(id); name != "" {
				addCall(id, name, input)
			}
		}

		final := &Response{
			Candidates:    []*genai.Candidate{newCandidate(functionCallParts(calls), MapFinishReason(reason))},
			FunctionCalls: functionCalls(calls),
		}
		u, err := callUsage(ctx, usage)
		if err != nil {
			c.logger.Debug("usage unavailable, estimating from output", "error", err)
			final.UsageMetadata = c.estimateUsage(output.String())
		} else {
			final.UsageMetadata = usageMetadata(u)
		}
		yield(final)
	}
}

// toolInputs collects tool call inputs streamed as deltas, in start order.
type toolInputs struct {
	order  []string
	names  map[string]string
	inputs map[string]*strings.Builder
}

func newToolInputs() *toolInputs {
	return &toolInputs{names: map[string]string{}, inputs: map[string]*strings.Builder{}}
}

func (t *toolInputs) start(id, name string) {
	if _, ok := t.inputs[id]; ok {
		return
	}
	t.order = append(t.order, id)
	t.names[id] = name
	t.inputs[id] = &strings.Builder{}
}

func (t *toolInputs) add(id, delta string) {
	if b, ok := t.inputs[id]; ok {
		b.WriteString(delta)
	}
}

// take removes and returns the streamed name and input for id.
func (t *toolInputs) take(id string) (name, input string) {
	b, ok := t.inputs[id]
	if !ok {
		return "", ""
	}
	name = t.names[id]
	delete(t.inputs, id)
	delete(t.names, id)
	return name, b.String()
}

func textChunk(text string) *Response {
	return &Response{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{genai.NewPartFromText(text)}},
			Index:   0,
		}},
	}
}

// callUsage runs the usage getter. A nil getter, a nil result and a panic all
// count as failures.
func callUsage(ctx context.Context, usage UsageFunc) (u *Usage, err error) {
	if usage == nil {
		return nil, errNoUsage
	}
	defer func() {
		if r := recover(); r != nil {
			u, err = nil, fmt.Errorf("usage getter panicked: %v", r)
		}
	}()
	u, err = usage(ctx)
	if err == nil && u == nil {
		err = errNoUsage
	}
	return u, err
}
