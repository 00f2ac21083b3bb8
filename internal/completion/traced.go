package completion

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/modebot/internal/tracing"
)

// Traced wraps a Completer so each call runs in a "completion.complete" span.
// With no tracer provider installed the spans are no-ops.
func Traced(next Completer, attrs ...attribute.KeyValue) Completer {
	return &tracedCompleter{
		next:   next,
		tracer: tracing.Tracer(),
		attrs:  attrs,
	}
}

type tracedCompleter struct {
	next   Completer
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func (t *tracedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "completion.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.attrs...),
		trace.WithAttributes(attribute.Int("completion.prompt_length", len(prompt))),
	)
	defer span.End()

	text, err := t.next.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("completion.reply_length", len(text)))
	return text, nil
}

// Attributes describes an OpenAIClient for span attributes.
func Attributes(c *OpenAIClient) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("completion.api", c.API()),
		attribute.String("completion.model", c.Model()),
	}
}
