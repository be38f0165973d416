package flow

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/flowdef"
	"github.com/AltairaLabs/PromptFlow/runtime/lifecycle"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	promexp "github.com/AltairaLabs/PromptFlow/runtime/metrics/prometheus"
	"github.com/AltairaLabs/PromptFlow/runtime/records"
	"github.com/AltairaLabs/PromptFlow/runtime/telemetry"
)

// ConditionallyUpdate points the flow at PromptArn:PromptVersion, publishes
// a new version and re-routes the alias to it, but only when the prompt
// record's status is exactly "Approved". Any other status, or a missing
// record, leaves the flow untouched and is reported in the result. A record
// store that cannot be read is a storage error and the flow is untouched.
func (m *Manager) ConditionallyUpdate(ctx context.Context, req UpdateRequest) (res *UpdateResult, err error) {
	if err := validateRequest("ConditionallyUpdate", req); err != nil {
		return nil, err
	}
	if m.store == nil {
		return nil, pkgerrors.New(pkgerrors.ComponentConfig, "ConditionallyUpdate",
			fmt.Errorf("no record store configured"))
	}
	if req.AliasName == "" {
		req.AliasName = req.Name
	}

	ctx = logger.WithLoggingContext(ctx, &logger.LoggingFields{
		FlowID:        req.FlowID,
		AliasID:       req.AliasID,
		PromptID:      req.PromptID,
		PromptVersion: req.PromptVersion,
		Stage:         "update",
	})
	ctx, span := telemetry.StartStep(ctx, "flow.update",
		telemetry.AttrFlowID.String(req.FlowID),
		telemetry.AttrAliasID.String(req.AliasID),
		telemetry.AttrPromptID.String(req.PromptID),
		telemetry.AttrPromptVersion.String(req.PromptVersion),
	)
	defer func() { telemetry.EndStep(span, err) }()

	lookup := records.GetStatus(ctx, m.store, req.PromptID, req.PromptVersion)
	span.SetAttributes(telemetry.AttrPromptStatus.String(lookup.Observed()))

	switch {
	case lookup.Result == records.Unavailable:
		promexp.RecordApprovalGate(promexp.DecisionUnavailable)
		return nil, pkgerrors.New(pkgerrors.ComponentStore, "GetStatus", lookup.Err)
	case !lookup.IsApproved():
		promexp.RecordApprovalGate(promexp.DecisionBlocked)
		msg := fmt.Sprintf("Prompt status is '%s'. Flow not updated.", lookup.Observed())
		logger.Step(ctx, msg, "lookup", lookup.Result.String())
		return &UpdateResult{Status: lookup.Observed(), Message: msg}, nil
	}
	promexp.RecordApprovalGate(promexp.DecisionApproved)

	machine, err := lifecycle.NewMachineAt(lifecycle.StateAliased)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentFlow, "Lifecycle", err)
	}
	machine.WithTimeFunc(m.now)

	def := flowdef.Build(flowdef.VersionedArn(req.PromptArn, req.PromptVersion))
	if err := def.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentFlow, "ValidateDefinition", err)
	}

	if _, err := m.client.UpdateFlow(ctx, &bedrockagent.UpdateFlowInput{
		FlowIdentifier:   aws.String(req.FlowID),
		Name:             aws.String(req.Name),
		Description:      optional(req.Description),
		ExecutionRoleArn: aws.String(req.RoleArn),
		Definition:       def.SDK(),
	}); err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentFlow, "UpdateFlow", err)
	}
	if err := m.fire(machine, lifecycle.EventUpdate); err != nil {
		return nil, err
	}
	logger.Step(ctx, "Flow definition updated", "prompt_ref", def.PromptRef())

	if err := m.prepare(ctx, req.FlowID); err != nil {
		return nil, err
	}
	if err := m.fire(machine, lifecycle.EventPrepare); err != nil {
		return nil, err
	}

	version, err := m.publishVersion(ctx, req.FlowID)
	if err != nil {
		return nil, err
	}
	if err := m.fire(machine, lifecycle.EventPublish); err != nil {
		return nil, err
	}

	if _, err := m.client.UpdateFlowAlias(ctx, &bedrockagent.UpdateFlowAliasInput{
		AliasIdentifier:      aws.String(req.AliasID),
		FlowIdentifier:       aws.String(req.FlowID),
		Name:                 aws.String(req.AliasName),
		Description:          optional(req.AliasDescription),
		RoutingConfiguration: routeTo(version),
	}); err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentFlow, "UpdateFlowAlias", err)
	}
	if err := m.fire(machine, lifecycle.EventRoute); err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.AttrFlowVersion.String(version))
	msg := fmt.Sprintf("Flow %s updated. Alias %s now routes to version %s.", req.FlowID, req.AliasID, version)
	logger.Step(ctx, msg, "version", version)

	return &UpdateResult{
		Updated: true,
		Status:  lookup.Status,
		Version: version,
		Message: msg,
		History: machine.History(),
	}, nil
}
