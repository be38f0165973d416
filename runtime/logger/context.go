package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys extracted by ContextHandler and added to every record.
const (
	// ContextKeySolutionID identifies the deployment the stack was created for.
	ContextKeySolutionID contextKey = "solution_id"

	// ContextKeyFlowID identifies the Bedrock flow being managed or invoked.
	ContextKeyFlowID contextKey = "flow_id"

	// ContextKeyAliasID identifies the flow alias.
	ContextKeyAliasID contextKey = "alias_id"

	// ContextKeyPromptID identifies the prompt whose record is involved.
	ContextKeyPromptID contextKey = "prompt_id"

	// ContextKeyPromptVersion identifies the prompt version.
	ContextKeyPromptVersion contextKey = "prompt_version"

	// ContextKeyStage identifies the lifecycle step (e.g. "prepare", "alias").
	ContextKeyStage contextKey = "stage"

	// ContextKeyRequestID identifies the individual CLI or API request.
	ContextKeyRequestID contextKey = "request_id"
)

var allContextKeys = []contextKey{
	ContextKeySolutionID,
	ContextKeyFlowID,
	ContextKeyAliasID,
	ContextKeyPromptID,
	ContextKeyPromptVersion,
	ContextKeyStage,
	ContextKeyRequestID,
}

// WithSolutionID returns a new context with the solution ID set.
func WithSolutionID(ctx context.Context, solutionID string) context.Context {
	return context.WithValue(ctx, ContextKeySolutionID, solutionID)
}

// WithFlowID returns a new context with the flow ID set.
func WithFlowID(ctx context.Context, flowID string) context.Context {
	return context.WithValue(ctx, ContextKeyFlowID, flowID)
}

// WithAliasID returns a new context with the alias ID set.
func WithAliasID(ctx context.Context, aliasID string) context.Context {
	return context.WithValue(ctx, ContextKeyAliasID, aliasID)
}

// WithPrompt returns a new context with the prompt ID and version set.
func WithPrompt(ctx context.Context, promptID, version string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyPromptID, promptID)
	return context.WithValue(ctx, ContextKeyPromptVersion, version)
}

// WithStage returns a new context with the lifecycle stage set.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ContextKeyStage, stage)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// LoggingFields holds all standard logging context fields.
type LoggingFields struct {
	SolutionID    string
	FlowID        string
	AliasID       string
	PromptID      string
	PromptVersion string
	Stage         string
	RequestID     string
}

// WithLoggingContext sets every non-empty field of fields on ctx.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	set := func(key contextKey, v string) {
		if v != "" {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	set(ContextKeySolutionID, fields.SolutionID)
	set(ContextKeyFlowID, fields.FlowID)
	set(ContextKeyAliasID, fields.AliasID)
	set(ContextKeyPromptID, fields.PromptID)
	set(ContextKeyPromptVersion, fields.PromptVersion)
	set(ContextKeyStage, fields.Stage)
	set(ContextKeyRequestID, fields.RequestID)
	return ctx
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	get := func(key contextKey) string {
		s, _ := ctx.Value(key).(string)
		return s
	}
	return LoggingFields{
		SolutionID:    get(ContextKeySolutionID),
		FlowID:        get(ContextKeyFlowID),
		AliasID:       get(ContextKeyAliasID),
		PromptID:      get(ContextKeyPromptID),
		PromptVersion: get(ContextKeyPromptVersion),
		Stage:         get(ContextKeyStage),
		RequestID:     get(ContextKeyRequestID),
	}
}
