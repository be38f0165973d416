package flow

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/flowdef"
	"github.com/AltairaLabs/PromptFlow/runtime/lifecycle"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	"github.com/AltairaLabs/PromptFlow/runtime/telemetry"
)

// CreateAndPublish creates the flow around req.PromptArn, prepares it,
// publishes version 1 and creates an alias routing to it.
func (m *Manager) CreateAndPublish(ctx context.Context, req CreateRequest) (dep *Deployment, err error) {
	if err := validateRequest("CreateAndPublish", req); err != nil {
		return nil, err
	}
	if req.AliasName == "" {
		req.AliasName = req.Name
	}
	if req.AliasDescription == "" {
		req.AliasDescription = req.Description
	}

	ctx = logger.WithStage(ctx, "create")
	ctx, span := telemetry.StartStep(ctx, "flow.create")
	defer func() { telemetry.EndStep(span, err) }()

	machine := lifecycle.NewMachine().WithTimeFunc(m.now)

	def := flowdef.Build(req.PromptArn)
	if err := def.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentFlow, "ValidateDefinition", err)
	}

	logger.Step(ctx, "Creating the flow...")
	created, err := m.client.CreateFlow(ctx, &bedrockagent.CreateFlowInput{
		Name:             aws.String(req.Name),
		Description:      optional(req.Description),
		ExecutionRoleArn: aws.String(req.RoleArn),
		Definition:       def.SDK(),
		ClientToken:      aws.String(m.token()),
	})
	if err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentFlow, "CreateFlow", err)
	}
	dep = &Deployment{FlowID: aws.ToString(created.Id), FlowArn: aws.ToString(created.Arn)}
	ctx = logger.WithFlowID(ctx, dep.FlowID)
	span.SetAttributes(telemetry.AttrFlowID.String(dep.FlowID))
	if err := m.fire(machine, lifecycle.EventCreate); err != nil {
		return nil, err
	}
	logger.Step(ctx, fmt.Sprintf("Flow created with ID: %s", dep.FlowID))

	if err := m.prepare(ctx, dep.FlowID); err != nil {
		return nil, err
	}
	if err := m.fire(machine, lifecycle.EventPrepare); err != nil {
		return nil, err
	}

	dep.Version, err = m.publishVersion(ctx, dep.FlowID)
	if err != nil {
		return nil, err
	}
	if err := m.fire(machine, lifecycle.EventPublish); err != nil {
		return nil, err
	}

	logger.Step(ctx, "Creating a flow alias...")
	alias, err := m.client.CreateFlowAlias(ctx, &bedrockagent.CreateFlowAliasInput{
		FlowIdentifier:       aws.String(dep.FlowID),
		Name:                 aws.String(req.AliasName),
		Description:          optional(req.AliasDescription),
		RoutingConfiguration: routeTo(dep.Version),
		ClientToken:          aws.String(m.token()),
	})
	if err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentFlow, "CreateFlowAlias", err)
	}
	dep.AliasID = aws.ToString(alias.Id)
	dep.AliasArn = aws.ToString(alias.Arn)
	if err := m.fire(machine, lifecycle.EventRoute); err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.AttrAliasID.String(dep.AliasID), telemetry.AttrFlowVersion.String(dep.Version))
	logger.Step(logger.WithAliasID(ctx, dep.AliasID),
		fmt.Sprintf("Flow creation complete. The alias id is: %s", dep.AliasID), "version", dep.Version)

	dep.History = machine.History()
	return dep, nil
}

// publishVersion snapshots the prepared draft as a new immutable version.
func (m *Manager) publishVersion(ctx context.Context, flowID string) (string, error) {
	logger.Step(ctx, "Creating a flow version...")
	out, err := m.client.CreateFlowVersion(ctx, &bedrockagent.CreateFlowVersionInput{
		FlowIdentifier: aws.String(flowID),
		ClientToken:    aws.String(m.token()),
	})
	if err != nil {
		return "", pkgerrors.FromAWS(pkgerrors.ComponentFlow, "CreateFlowVersion", err)
	}
	version := aws.ToString(out.Version)
	logger.Step(ctx, fmt.Sprintf("Flow version %s created", version), "version", version)
	return version, nil
}

func routeTo(version string) []types.FlowAliasRoutingConfigurationListItem {
	return []types.FlowAliasRoutingConfigurationListItem{{FlowVersion: aws.String(version)}}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
