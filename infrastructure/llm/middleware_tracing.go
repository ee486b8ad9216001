package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "verity-llm"

// tracedLLM wraps each completion request in an llm.complete span.
type tracedLLM struct {
	next   CoreLLM
	tracer trace.Tracer
}

// TracingMiddleware adds an llm.complete span per completion request using
// the global tracer provider.
func TracingMiddleware() Middleware {
	return func(next CoreLLM) CoreLLM {
		return &tracedLLM{next: next, tracer: otel.Tracer(tracerName)}
	}
}

func (t *tracedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.provider", t.next.Provider()),
			attribute.String("llm.model", t.next.GetModel()),
			attribute.Int("llm.prompt.length", len(prompt)),
		),
	)
	defer span.End()

	response, tokensIn, tokensOut, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorTypeOf(err).String())
		return response, tokensIn, tokensOut, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", tokensIn),
		attribute.Int("llm.tokens.output", tokensOut),
	)
	return response, tokensIn, tokensOut, nil
}

func (t *tracedLLM) GetModel() string { return t.next.GetModel() }
func (t *tracedLLM) Provider() string { return t.next.Provider() }

// tracedEmbedder wraps each embedding request in an llm.embed span.
type tracedEmbedder struct {
	next   CoreEmbedder
	tracer trace.Tracer
}

// TracingEmbedMiddleware adds an llm.embed span per embedding request.
func TracingEmbedMiddleware() EmbedMiddleware {
	return func(next CoreEmbedder) CoreEmbedder {
		return &tracedEmbedder{next: next, tracer: otel.Tracer(tracerName)}
	}
}

func (t *tracedEmbedder) DoEmbed(ctx context.Context, texts []string) ([][]float32, int, error) {
	ctx, span := t.tracer.Start(ctx, "llm.embed",
		trace.WithAttributes(
			attribute.String("llm.provider", t.next.Provider()),
			attribute.String("llm.model", t.next.GetModel()),
			attribute.Int("llm.batch.size", len(texts)),
		),
	)
	defer span.End()

	vectors, tokens, err := t.next.DoEmbed(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorTypeOf(err).String())
		return vectors, tokens, err
	}

	span.SetAttributes(attribute.Int("llm.tokens.input", tokens))
	if len(vectors) > 0 {
		span.SetAttributes(attribute.Int("llm.embedding.dimension", len(vectors[0])))
	}
	return vectors, tokens, nil
}

func (t *tracedEmbedder) GetModel() string { return t.next.GetModel() }
func (t *tracedEmbedder) Provider() string { return t.next.Provider() }
