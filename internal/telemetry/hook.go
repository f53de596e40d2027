package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

// OpenInference attribute keys understood by Phoenix.
const (
	AttrSpanKind         = "openinference.span.kind"
	AttrProjectName      = "openinference.project.name"
	AttrInputValue       = "input.value"
	AttrOutputValue      = "output.value"
	AttrModelName        = "llm.model_name"
	AttrTokenPrompt      = "llm.token_count.prompt"
	AttrTokenCompletion  = "llm.token_count.completion"
	AttrTokenTotal       = "llm.token_count.total"
	AttrToolName         = "tool.name"
	AttrToolParameters   = "tool.parameters"
	AttrSessionID        = "session.id"
	attrInputMessagesFmt = "llm.input_messages.%d.message.%s"

	KindAgent = "AGENT"
	KindLLM   = "LLM"
	KindTool  = "TOOL"
	KindChain = "CHAIN"
)

// Hook turns engine events into spans: one AGENT span per run, with a CHAIN
// span per step and LLM and TOOL spans below it. The span contexts are handed
// back to the engine, so HTTP client spans of model and tool calls nest under
// the span that caused them.
type Hook struct {
	engine.NopHook

	tracer    trace.Tracer
	runSpan   trace.Span
	stepSpan  trace.Span
	llmSpan   trace.Span
	toolSpans map[string]trace.Span
}

// NewHook creates a hook emitting spans with tracer.
func NewHook(tracer trace.Tracer) *Hook {
	return &Hook{tracer: tracer, toolSpans: make(map[string]trace.Span)}
}

func (h *Hook) OnRunStart(ctx context.Context, st *engine.State, task string) context.Context {
	ctx, h.runSpan = h.tracer.Start(ctx, "CodeAgent.run", trace.WithAttributes(
		attribute.String(AttrSpanKind, KindAgent),
		attribute.String(AttrInputValue, task),
		attribute.String(AttrModelName, st.Model),
		attribute.String(AttrSessionID, st.RunID),
	))
	return ctx
}

func (h *Hook) OnStepStart(ctx context.Context, st *engine.State) context.Context {
	h.endStep()
	ctx, h.stepSpan = h.tracer.Start(ctx, fmt.Sprintf("Step %d", st.Step+1), trace.WithAttributes(
		attribute.String(AttrSpanKind, KindChain),
	))
	return ctx
}

func (h *Hook) OnBeforeLLM(ctx context.Context, st *engine.State, msgs []engine.ChatMessage, _ []engine.ToolSchema) context.Context {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSpanKind, KindLLM),
		attribute.String(AttrModelName, st.Model),
	}
	for i, m := range msgs {
		attrs = append(attrs,
			attribute.String(fmt.Sprintf(attrInputMessagesFmt, i, "role"), string(m.Role)),
			attribute.String(fmt.Sprintf(attrInputMessagesFmt, i, "content"), m.Content),
		)
	}
	ctx, h.llmSpan = h.tracer.Start(ctx, "LLM", trace.WithAttributes(attrs...))
	return ctx
}

func (h *Hook) OnAfterLLM(_ context.Context, _ *engine.State, resp engine.LLMResponse, err error) {
	if h.llmSpan == nil {
		return
	}
	defer func() { h.llmSpan = nil }()
	if err != nil {
		endWithError(h.llmSpan, err)
		return
	}
	h.llmSpan.SetAttributes(
		attribute.String(AttrOutputValue, resp.Assistant.Content),
		attribute.Int(AttrTokenPrompt, resp.Usage.Prompt),
		attribute.Int(AttrTokenCompletion, resp.Usage.Completion),
		attribute.Int(AttrTokenTotal, resp.Usage.Total),
	)
	h.llmSpan.SetStatus(codes.Ok, "")
	h.llmSpan.End()
}

func (h *Hook) OnToolCall(ctx context.Context, _ *engine.State, call engine.ToolCall) context.Context {
	params, _ := json.Marshal(call.Args)
	ctx, span := h.tracer.Start(ctx, call.Name, trace.WithAttributes(
		attribute.String(AttrSpanKind, KindTool),
		attribute.String(AttrToolName, call.Name),
		attribute.String(AttrToolParameters, string(params)),
		attribute.String(AttrInputValue, string(params)),
	))
	h.toolSpans[call.ID] = span
	return ctx
}

func (h *Hook) OnToolResult(_ context.Context, _ *engine.State, call engine.ToolCall, result string, err error) {
	span, ok := h.toolSpans[call.ID]
	if !ok {
		return
	}
	delete(h.toolSpans, call.ID)
	span.SetAttributes(attribute.String(AttrOutputValue, result))
	if err != nil {
		endWithError(span, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}

func (h *Hook) OnRunEnd(_ context.Context, st *engine.State, err error) {
	h.endStep()
	if h.runSpan == nil {
		return
	}
	defer func() { h.runSpan = nil }()
	h.runSpan.SetAttributes(
		attribute.Int("agent.steps", st.Step),
		attribute.Int(AttrTokenTotal, st.Totals.Total),
	)
	if err != nil {
		endWithError(h.runSpan, err)
		return
	}
	h.runSpan.SetAttributes(attribute.String(AttrOutputValue, st.Answer))
	h.runSpan.SetStatus(codes.Ok, "")
	h.runSpan.End()
}

func (h *Hook) endStep() {
	if h.stepSpan != nil {
		h.stepSpan.End()
		h.stepSpan = nil
	}
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
