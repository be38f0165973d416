// Package flow creates, publishes and conditionally updates the Bedrock
// prompt flow. Every operation is a fixed sequence of API calls; a failure
// aborts the sequence with a workflow error naming the failed step and
// nothing already created is rolled back.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/lifecycle"
	"github.com/AltairaLabs/PromptFlow/runtime/records"
)

// AgentAPI is the subset of the Bedrock Agent client used by Manager.
type AgentAPI interface {
	CreateFlow(ctx context.Context, params *bedrockagent.CreateFlowInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateFlowOutput, error)
	UpdateFlow(ctx context.Context, params *bedrockagent.UpdateFlowInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.UpdateFlowOutput, error)
	PrepareFlow(ctx context.Context, params *bedrockagent.PrepareFlowInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.PrepareFlowOutput, error)
	GetFlow(ctx context.Context, params *bedrockagent.GetFlowInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetFlowOutput, error)
	CreateFlowVersion(ctx context.Context, params *bedrockagent.CreateFlowVersionInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateFlowVersionOutput, error)
	CreateFlowAlias(ctx context.Context, params *bedrockagent.CreateFlowAliasInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateFlowAliasOutput, error)
	UpdateFlowAlias(ctx context.Context, params *bedrockagent.UpdateFlowAliasInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.UpdateFlowAliasOutput, error)
	GetFlowAlias(ctx context.Context, params *bedrockagent.GetFlowAliasInput,
		optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetFlowAliasOutput, error)
}

var validate = validator.New()

// CreateRequest describes a new flow. AliasName defaults to Name and
// AliasDescription to Description.
type CreateRequest struct {
	Name             string `validate:"required"`
	Description      string
	PromptArn        string `validate:"required,startswith=arn:"`
	RoleArn          string `validate:"required,startswith=arn:"`
	AliasName        string
	AliasDescription string
}

// UpdateRequest describes a conditional update of a deployed flow.
// PromptArn is the unversioned prompt ARN; the flow is pointed at
// PromptArn:PromptVersion.
type UpdateRequest struct {
	FlowID           string `validate:"required"`
	AliasID          string `validate:"required"`
	PromptArn        string `validate:"required,startswith=arn:"`
	PromptID         string `validate:"required"`
	// PromptVersion is a Bedrock prompt version number, e.g. "2".
	PromptVersion    string `validate:"required,number"`
	Name             string `validate:"required"`
	Description      string
	RoleArn          string `validate:"required,startswith=arn:"`
	AliasName        string
	AliasDescription string
}

// Deployment identifies a published flow.
type Deployment struct {
	FlowID   string
	FlowArn  string
	AliasID  string
	AliasArn string
	Version  string
	// History is the lifecycle path taken by the operation.
	History []lifecycle.Transition
}

// UpdateResult reports the outcome of ConditionallyUpdate.
type UpdateResult struct {
	// Updated is true only when the prompt was Approved and the alias was re-routed.
	Updated bool
	// Status is the observed prompt status ("None" for a missing record).
	Status  string
	Version string
	Message string
	History []lifecycle.Transition
}

// Manager drives the flow lifecycle against the Bedrock Agent API.
type Manager struct {
	client         AgentAPI
	store          records.Store
	prepareTimeout time.Duration
	pollInterval   time.Duration
	now            func() time.Time
	token          func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecords sets the record store consulted by ConditionallyUpdate.
func WithRecords(store records.Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithClock overrides the time source used for lifecycle history.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithTokenFunc overrides the idempotency token generator.
func WithTokenFunc(fn func() string) Option {
	return func(m *Manager) {
		m.token = fn
	}
}

// NewManager creates a Manager. Zero timeouts in cfg fall back to the
// configuration defaults.
func NewManager(client AgentAPI, cfg config.FlowConfig, opts ...Option) *Manager {
	m := &Manager{
		client:         client,
		prepareTimeout: cfg.PrepareTimeout,
		pollInterval:   cfg.PollInterval,
		now:            time.Now,
		token:          uuid.NewString,
	}
	if m.prepareTimeout <= 0 {
		m.prepareTimeout = config.DefaultPrepareTimeout
	}
	if m.pollInterval <= 0 {
		m.pollInterval = config.DefaultPollInterval
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) fire(machine *lifecycle.Machine, event lifecycle.Event) error {
	if err := machine.Fire(event); err != nil {
		return pkgerrors.New(pkgerrors.ComponentFlow, "Lifecycle", err)
	}
	return nil
}

func validateRequest(operation string, req any) error {
	if err := validate.Struct(req); err != nil {
		return pkgerrors.New(pkgerrors.ComponentFlow, operation, fmt.Errorf("invalid request: %w", err))
	}
	return nil
}
