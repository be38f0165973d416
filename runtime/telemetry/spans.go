package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrSolutionID    = attribute.Key("promptflow.solution_id")
	AttrFlowID        = attribute.Key("promptflow.flow_id")
	AttrAliasID       = attribute.Key("promptflow.alias_id")
	AttrFlowVersion   = attribute.Key("promptflow.flow_version")
	AttrPromptID      = attribute.Key("promptflow.prompt_id")
	AttrPromptVersion = attribute.Key("promptflow.prompt_version")
	AttrPromptStatus  = attribute.Key("promptflow.prompt_status")
)

// StartStep starts a span named "promptflow.<step>" on the global tracer.
func StartStep(ctx context.Context, step string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer(nil).Start(ctx, "promptflow."+step, trace.WithAttributes(attrs...))
}

// EndStep records err on span, if any, and ends it.
func EndStep(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
