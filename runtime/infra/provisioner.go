// Package infra provisions the PromptFlow base stack (prompt record table and
// approval topic) with CloudFormation and reads back its outputs.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/uuid"
	"github.com/jmespath/go-jmespath"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	"github.com/AltairaLabs/PromptFlow/runtime/telemetry"
)

// CloudFormationAPI is the subset of the CloudFormation client used here.
// It also satisfies cloudformation.DescribeStacksAPIClient for the waiter.
type CloudFormationAPI interface {
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput,
		optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// StackOutputs are the values PromptFlow needs from the base stack.
type StackOutputs struct {
	StackID   string
	TableName string
	TopicARN  string
	// All holds every output of the stack by key.
	All map[string]string
}

// Provisioner creates the base stack and resolves its outputs.
type Provisioner struct {
	client        CloudFormationAPI
	templatePath  string
	waitTimeout   time.Duration
	tableExpr     *jmespath.JMESPath
	topicExpr     *jmespath.JMESPath
	waiterOptions []func(*cloudformation.StackCreateCompleteWaiterOptions)
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithWaiterOptions passes options to the stack-create-complete waiter.
func WithWaiterOptions(opts ...func(*cloudformation.StackCreateCompleteWaiterOptions)) Option {
	return func(p *Provisioner) {
		p.waiterOptions = append(p.waiterOptions, opts...)
	}
}

// NewProvisioner compiles the configured output expressions. templatePath is
// expected to be resolved already (see config.Config.ResolvePath).
func NewProvisioner(client CloudFormationAPI, cfg config.InfraConfig, templatePath string, opts ...Option) (*Provisioner, error) {
	tableExpr, err := jmespath.Compile(cfg.TableOutput)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentConfig, "CompileTableOutput", err)
	}
	topicExpr, err := jmespath.Compile(cfg.TopicOutput)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentConfig, "CompileTopicOutput", err)
	}

	p := &Provisioner{
		client:       client,
		templatePath: templatePath,
		waitTimeout:  cfg.WaitTimeout,
		tableExpr:    tableExpr,
		topicExpr:    topicExpr,
	}
	if p.waitTimeout <= 0 {
		p.waitTimeout = config.DefaultWaitTimeout
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Provision creates a stack named solutionID from the template, waits for
// CREATE_COMPLETE and returns its outputs. It fails if either the table name
// or the topic ARN is missing afterwards. A failed or timed-out stack is
// left in place.
func (p *Provisioner) Provision(ctx context.Context, solutionID string) (out *StackOutputs, err error) {
	if solutionID == "" {
		return nil, pkgerrors.New(pkgerrors.ComponentInfra, "Provision", fmt.Errorf("solution id is required"))
	}
	ctx = logger.WithSolutionID(ctx, solutionID)
	ctx, span := telemetry.StartStep(ctx, "provision", telemetry.AttrSolutionID.String(solutionID))
	defer func() { telemetry.EndStep(span, err) }()

	tmpl, err := LoadTemplate(p.templatePath)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentInfra, "LoadTemplate", err)
	}

	created, err := p.client.CreateStack(ctx, &cloudformation.CreateStackInput{
		StackName:    aws.String(solutionID),
		TemplateBody: aws.String(tmpl.Body),
		Parameters: []types.Parameter{{
			ParameterKey:   aws.String(SolutionIDParameter),
			ParameterValue: aws.String(solutionID),
		}},
		Capabilities:       []types.Capability{types.CapabilityCapabilityNamedIam},
		ClientRequestToken: aws.String(uuid.NewString()),
	})
	if err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentInfra, "CreateStack", err)
	}
	stackID := aws.ToString(created.StackId)
	logger.Step(ctx, fmt.Sprintf("Creating stack %s (%s)", solutionID, stackID), "stack_id", stackID)

	waiter := cloudformation.NewStackCreateCompleteWaiter(p.client, p.waiterOptions...)
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackID)}, p.waitTimeout); err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentInfra, "WaitStackCreateComplete", err).
			WithDetails(map[string]any{"stack_id": stackID})
	}

	out, err = p.Outputs(ctx, stackID)
	if err != nil {
		return nil, err
	}
	if out.TableName == "" || out.TopicARN == "" {
		return nil, pkgerrors.New(pkgerrors.ComponentInfra, "ResolveOutputs",
			fmt.Errorf("stack %s is missing outputs (table=%q, topic=%q)", stackID, out.TableName, out.TopicARN))
	}

	logger.Step(ctx, "Stack outputs", "table", out.TableName, "topic_arn", out.TopicARN)
	return out, nil
}

// Outputs describes an existing stack and evaluates the output expressions.
// Missing outputs are returned as empty strings.
func (p *Provisioner) Outputs(ctx context.Context, stackName string) (*StackOutputs, error) {
	resp, err := p.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)})
	if err != nil {
		return nil, pkgerrors.FromAWS(pkgerrors.ComponentInfra, "DescribeStacks", err)
	}
	if len(resp.Stacks) == 0 {
		return nil, pkgerrors.New(pkgerrors.ComponentInfra, "DescribeStacks", fmt.Errorf("stack %s not found", stackName))
	}
	stack := resp.Stacks[0]

	// jmespath works on generic JSON values, so flatten the SDK structs.
	data := make([]any, 0, len(stack.Outputs))
	all := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		key, value := aws.ToString(o.OutputKey), aws.ToString(o.OutputValue)
		all[key] = value
		data = append(data, map[string]any{
			"OutputKey":   key,
			"OutputValue": value,
			"ExportName":  aws.ToString(o.ExportName),
		})
	}

	table, err := searchString(p.tableExpr, data)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentInfra, "ResolveTableOutput", err)
	}
	topic, err := searchString(p.topicExpr, data)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentInfra, "ResolveTopicOutput", err)
	}

	return &StackOutputs{
		StackID:   aws.ToString(stack.StackId),
		TableName: table,
		TopicARN:  topic,
		All:       all,
	}, nil
}

func searchString(expr *jmespath.JMESPath, data any) (string, error) {
	v, err := expr.Search(data)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("output expression returned %T, want string", v)
	}
}
