package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
)

// fakeAgent is an in-memory Bedrock Agent: one flow, numbered versions and
// aliases that route to a single version.
type fakeAgent struct {
	mu sync.Mutex

	calls      []string
	statuses   []types.FlowStatus
	validation []types.FlowValidation
	errs       map[string]error

	definition *types.FlowDefinition
	versions   int
	aliases    map[string]string
	tokens     []string
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{errs: map[string]error{}, aliases: map[string]string{}}
}

func (f *fakeAgent) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeAgent) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAgent) CreateFlow(_ context.Context, in *bedrockagent.CreateFlowInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.CreateFlowOutput, error) {
	if err := f.record("CreateFlow"); err != nil {
		return nil, err
	}
	f.definition = in.Definition
	f.tokens = append(f.tokens, aws.ToString(in.ClientToken))
	return &bedrockagent.CreateFlowOutput{
		Id:  aws.String("FLOW123456"),
		Arn: aws.String("arn:aws:bedrock:us-west-2:123456789012:flow/FLOW123456"),
	}, nil
}

func (f *fakeAgent) UpdateFlow(_ context.Context, in *bedrockagent.UpdateFlowInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.UpdateFlowOutput, error) {
	if err := f.record("UpdateFlow"); err != nil {
		return nil, err
	}
	f.definition = in.Definition
	return &bedrockagent.UpdateFlowOutput{Id: in.FlowIdentifier}, nil
}

func (f *fakeAgent) PrepareFlow(_ context.Context, in *bedrockagent.PrepareFlowInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.PrepareFlowOutput, error) {
	if err := f.record("PrepareFlow"); err != nil {
		return nil, err
	}
	return &bedrockagent.PrepareFlowOutput{Id: in.FlowIdentifier, Status: types.FlowStatusPreparing}, nil
}

func (f *fakeAgent) GetFlow(_ context.Context, in *bedrockagent.GetFlowInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.GetFlowOutput, error) {
	if err := f.record("GetFlow"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status := types.FlowStatusPrepared
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	return &bedrockagent.GetFlowOutput{Id: in.FlowIdentifier, Status: status, Validations: f.validation}, nil
}

func (f *fakeAgent) CreateFlowVersion(_ context.Context, _ *bedrockagent.CreateFlowVersionInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.CreateFlowVersionOutput, error) {
	if err := f.record("CreateFlowVersion"); err != nil {
		return nil, err
	}
	f.versions++
	return &bedrockagent.CreateFlowVersionOutput{Version: aws.String(fmt.Sprint(f.versions))}, nil
}

func (f *fakeAgent) CreateFlowAlias(_ context.Context, in *bedrockagent.CreateFlowAliasInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.CreateFlowAliasOutput, error) {
	if err := f.record("CreateFlowAlias"); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("ALIAS%05d", len(f.aliases)+1)
	f.aliases[id] = aws.ToString(in.RoutingConfiguration[0].FlowVersion)
	return &bedrockagent.CreateFlowAliasOutput{
		Id:                   aws.String(id),
		Arn:                  aws.String("arn:aws:bedrock:us-west-2:123456789012:flow/FLOW123456/alias/" + id),
		RoutingConfiguration: in.RoutingConfiguration,
	}, nil
}

func (f *fakeAgent) UpdateFlowAlias(_ context.Context, in *bedrockagent.UpdateFlowAliasInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.UpdateFlowAliasOutput, error) {
	if err := f.record("UpdateFlowAlias"); err != nil {
		return nil, err
	}
	id := aws.ToString(in.AliasIdentifier)
	if _, ok := f.aliases[id]; !ok {
		return nil, fmt.Errorf("alias %s not found", id)
	}
	f.aliases[id] = aws.ToString(in.RoutingConfiguration[0].FlowVersion)
	return &bedrockagent.UpdateFlowAliasOutput{Id: in.AliasIdentifier}, nil
}

func (f *fakeAgent) GetFlowAlias(_ context.Context, in *bedrockagent.GetFlowAliasInput,
	_ ...func(*bedrockagent.Options)) (*bedrockagent.GetFlowAliasOutput, error) {
	if err := f.record("GetFlowAlias"); err != nil {
		return nil, err
	}
	id := aws.ToString(in.AliasIdentifier)
	version, ok := f.aliases[id]
	if !ok {
		return nil, fmt.Errorf("alias %s not found", id)
	}
	return &bedrockagent.GetFlowAliasOutput{
		Id: aws.String(id),
		RoutingConfiguration: []types.FlowAliasRoutingConfigurationListItem{
			{FlowVersion: aws.String(version)},
		},
	}, nil
}

// promptArnOf returns the prompt resource of the last written definition.
func (f *fakeAgent) promptArnOf() string {
	if f.definition == nil {
		return ""
	}
	for _, n := range f.definition.Nodes {
		if cfg, ok := n.Configuration.(*types.FlowNodeConfigurationMemberPrompt); ok {
			if res, ok := cfg.Value.SourceConfiguration.(*types.PromptFlowNodeSourceConfigurationMemberResource); ok {
				return aws.ToString(res.Value.PromptArn)
			}
		}
	}
	return ""
}
