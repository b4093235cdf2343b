// Package genaiconv converts conversations between the genai content schema
// and a canonical message schema, so an agent runtime that speaks genai can
// call any fantasy provider.
//
// # Key Conversions
//
// genai -> canonical (Converter.ContentsToMessages):
//   - Content{Role:"model"} with FunctionCall parts -> assistant message with ToolCallPart
//   - Content with FunctionResponse parts -> tool message with ToolResultPart
//   - Part.Text -> text content, Part.InlineData -> ImagePart
//   - tool call/result IDs are paired across the conversation (BuildToolPairs)
//     and unpaired or non-adjacent tool parts are dropped
//
// canonical -> genai (Converter.ConvertResponse, Converter.ConvertStream):
//   - text -> Part{Text}, tool calls -> Part{FunctionCall} and Response.FunctionCalls
//   - fantasy.FinishReason -> genai.FinishReason (see MapFinishReason)
//   - Usage -> GenerateContentResponseUsageMetadata
//
// Adapter wires both directions into a google.golang.org/adk/model.LLM backed
// by a fantasy.LanguageModel.
package genaiconv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"charm.land/fantasy"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	ErrorCodeGeneric = "ERROR"

	ToolModeAuto      = "AUTO"
	ToolModeAny       = "ANY"
	ToolModeNone      = "NONE"
	ToolModeValidated = "VALIDATED"
)

// Adapter wraps a fantasy.LanguageModel to implement the ADK model.LLM
// interface.
type Adapter struct {
	model   fantasy.LanguageModel
	conv    *Converter
	schemas SchemaConverter
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithConverter sets the Converter used for both directions.
func WithConverter(c *Converter) AdapterOption {
	return func(a *Adapter) {
		if c != nil {
			a.conv = c
		}
	}
}

// WithSchemaConverter sets the tool parameter schema converter.
func WithSchemaConverter(sc SchemaConverter) AdapterOption {
	return func(a *Adapter) {
		if sc != nil {
			a.schemas = sc
		}
	}
}

// NewAdapter creates an ADK adapter for the given fantasy language model.
func NewAdapter(m fantasy.LanguageModel, opts ...AdapterOption) model.LLM {
	a := &Adapter{
		model:   m,
		conv:    New(),
		schemas: NewSchemaConverter(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements model.LLM.
func (a *Adapter) Name() string {
	return fmt.Sprintf("%s/%s", a.model.Provider(), a.model.Model())
}

// GenerateContent implements model.LLM.
//
// Non-streaming calls yield one complete response. Streaming calls yield one
// partial response per text delta and a final TurnComplete response carrying
// the accumulated text, the function calls, the finish reason and usage. A
// stream error part ends the stream: the final response then has finish reason
// OTHER and the error code set, and is yielded together with the error.
func (a *Adapter) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	call, err := a.buildCall(req)
	if err != nil {
		return errorSeq(err)
	}

	if !stream {
		resp, err := a.model.Generate(ctx, call)
		if err != nil {
			return errorSeq(err)
		}
		out := llmResponse(a.conv.ConvertResponse(ResultFromFantasy(resp)), "", false)
		return func(yield func(*model.LLMResponse, error) bool) {
			yield(out, nil)
		}
	}

	streamResp, err := a.model.Stream(ctx, call)
	if err != nil {
		return errorSeq(err)
	}
	return a.streamResponses(ctx, streamResp)
}

func (a *Adapter) streamResponses(ctx context.Context, upstream fantasy.StreamResponse) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		var (
			finishUsage *fantasy.Usage
			streamErr   error
			text        strings.Builder
		)

		tapped := func(yield func(fantasy.StreamPart) bool) {
			for part := range upstream {
				switch part.Type {
				case fantasy.StreamPartTypeFinish:
					u := part.Usage
					finishUsage = &u
				case fantasy.StreamPartTypeError:
					streamErr = part.Error
					if streamErr == nil {
						streamErr = errors.New("stream error")
					}
					return
				}
				if !yield(part) {
					return
				}
			}
		}
		usage := func(context.Context) (*Usage, error) {
			if finishUsage == nil {
				return nil, errNoUsage
			}
			return UsageFromFantasy(*finishUsage), nil
		}

		for chunk := range a.conv.ConvertStream(ctx, tapped, usage) {
			if chunk.UsageMetadata == nil {
				text.WriteString(chunk.Text())
				if !yield(llmResponse(chunk, "", true), nil) {
					return
				}
				continue
			}
			final := llmResponse(chunk, text.String(), false)
			if streamErr != nil {
				final.FinishReason = genai.FinishReasonOther
				final.ErrorCode = ErrorCodeGeneric
				final.ErrorMessage = streamErr.Error()
			}
			if !yield(final, streamErr) {
				return
			}
		}
	}
}

func errorSeq(err error) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(nil, err)
	}
}

// llmResponse converts a Response into an ADK response. prefix is text to
// place before the candidate's parts, used to restore streamed text on the
// final response.
func llmResponse(r *Response, prefix string, partial bool) *model.LLMResponse {
	out := &model.LLMResponse{
		UsageMetadata: r.UsageMetadata,
		Partial:       partial,
		TurnComplete:  !partial,
	}
	if len(r.Candidates) == 0 {
		return out
	}
	cand := r.Candidates[0]
	out.FinishReason = cand.FinishReason
	content := &genai.Content{Role: genai.RoleModel}
	if prefix != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(prefix))
	}
	if cand.Content != nil {
		content.Parts = append(content.Parts, cand.Content.Parts...)
	}
	out.Content = content
	return out
}

// buildCall converts an ADK request to a fantasy.Call.
//
// Contents go through ContentsToMessages and MessagesToPrompt, so the prompt
// never carries orphaned or non-adjacent tool parts. Returns errors wrapping
// ErrUnsupported for config the fantasy call cannot express:
//   - SafetySettings, ResponseMIMEType, ResponseSchema
//   - ThinkingConfig, CachedContent
//   - retrieval and code execution tools, VALIDATED tool mode
//   - AllowedFunctionNames that name no declared function
func (a *Adapter) buildCall(req *model.LLMRequest) (fantasy.Call, error) {
	var call fantasy.Call
	if req == nil {
		return call, ErrNilRequest
	}

	var errs []error
	var system string

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			v := float64(*cfg.Temperature)
			call.Temperature = &v
		}
		if cfg.TopP != nil {
			v := float64(*cfg.TopP)
			call.TopP = &v
		}
		if cfg.TopK != nil {
			v := int64(*cfg.TopK)
			call.TopK = &v
		}
		if cfg.MaxOutputTokens > 0 {
			v := int64(cfg.MaxOutputTokens)
			call.MaxOutputTokens = &v
		}
		if cfg.PresencePenalty != nil {
			v := float64(*cfg.PresencePenalty)
			call.PresencePenalty = &v
		}
		if cfg.FrequencyPenalty != nil {
			v := float64(*cfg.FrequencyPenalty)
			call.FrequencyPenalty = &v
		}

		if len(cfg.SafetySettings) > 0 {
			errs = append(errs, fmt.Errorf("%w: safety settings", ErrUnsupported))
		}
		if cfg.ResponseMIMEType != "" {
			errs = append(errs, fmt.Errorf("%w: response MIME type", ErrUnsupported))
		}
		if cfg.ResponseSchema != nil || cfg.ResponseJsonSchema != nil {
			errs = append(errs, fmt.Errorf("%w: response schema", ErrUnsupported))
		}
		if cfg.ThinkingConfig != nil {
			errs = append(errs, fmt.Errorf("%w: thinking config", ErrUnsupported))
		}
		if cfg.CachedContent != "" {
			errs = append(errs, fmt.Errorf("%w: cached content", ErrUnsupported))
		}

		system, _ = NormalizeSystemInstruction(cfg.SystemInstruction)

		if len(cfg.Tools) > 0 {
			tools, err := a.fantasyTools(cfg.Tools)
			if err != nil {
				errs = append(errs, fmt.Errorf("tools: %w", err))
			}
			call.Tools = tools
		}

		if cfg.ToolConfig != nil && cfg.ToolConfig.FunctionCallingConfig != nil {
			tools, choice, err := applyFunctionCallingConfig(call.Tools, cfg.ToolConfig.FunctionCallingConfig)
			if err != nil {
				errs = append(errs, err)
			}
			call.Tools = tools
			call.ToolChoice = choice
		}
	}

	msgs := a.conv.ContentsToMessages(req.Contents)
	call.Prompt = MessagesToPrompt(system, msgs)

	return call, errors.Join(errs...)
}

func (a *Adapter) fantasyTools(tools []*genai.Tool) ([]fantasy.Tool, error) {
	var out []fantasy.Tool
	var errs []error
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		for _, fn := range tool.FunctionDeclarations {
			params, err := a.schemas.Convert(fn)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, fantasy.FunctionTool{
				Name:        fn.Name,
				Description: fn.Description,
				InputSchema: params,
			})
		}
		if tool.Retrieval != nil || tool.GoogleSearchRetrieval != nil {
			errs = append(errs, fmt.Errorf("%w: retrieval tools", ErrUnsupported))
		}
		if tool.CodeExecution != nil {
			errs = append(errs, fmt.Errorf("%w: code execution", ErrUnsupported))
		}
	}
	return out, errors.Join(errs...)
}

// applyFunctionCallingConfig filters tools by AllowedFunctionNames and maps the
// calling mode to a tool choice. A single allowed function forces that tool
// unless the mode is NONE.
func applyFunctionCallingConfig(tools []fantasy.Tool, fc *genai.FunctionCallingConfig) ([]fantasy.Tool, *fantasy.ToolChoice, error) {
	var errs []error

	if len(fc.AllowedFunctionNames) > 0 {
		allowed := make(map[string]bool, len(fc.AllowedFunctionNames))
		for _, name := range fc.AllowedFunctionNames {
			allowed[name] = true
		}
		declared := make(map[string]bool, len(tools))
		filtered := make([]fantasy.Tool, 0, len(fc.AllowedFunctionNames))
		for _, tool := range tools {
			ft, ok := tool.(fantasy.FunctionTool)
			if !ok {
				continue
			}
			declared[ft.Name] = true
			if allowed[ft.Name] {
				filtered = append(filtered, tool)
			}
		}
		for _, name := range fc.AllowedFunctionNames {
			if !declared[name] {
				errs = append(errs, fmt.Errorf("%w: allowed function %q not found in tools list", ErrUnsupported, name))
			}
		}
		tools = filtered
	}

	var choice *fantasy.ToolChoice
	setChoice := func(tc fantasy.ToolChoice) { choice = &tc }

	switch fc.Mode {
	case ToolModeAuto:
		setChoice(fantasy.ToolChoiceAuto)
	case ToolModeAny:
		setChoice(fantasy.ToolChoiceRequired)
	case ToolModeNone:
		setChoice(fantasy.ToolChoiceNone)
	case ToolModeValidated:
		errs = append(errs, fmt.Errorf("%w: validated tool mode", ErrUnsupported))
	case "":
	default:
		errs = append(errs, fmt.Errorf("%w: tool calling mode %q", ErrUnsupported, fc.Mode))
	}

	if len(fc.AllowedFunctionNames) == 1 && fc.Mode != ToolModeNone {
		setChoice(fantasy.ToolChoice(fc.AllowedFunctionNames[0]))
	}

	return tools, choice, errors.Join(errs...)
}
