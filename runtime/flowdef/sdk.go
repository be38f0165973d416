package flowdef

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
)

// SDK converts d to the Bedrock Agent SDK definition.
func (d Definition) SDK() *types.FlowDefinition {
	def := &types.FlowDefinition{
		Connections: make([]types.FlowConnection, 0, len(d.Edges)),
		Nodes:       make([]types.FlowNode, 0, len(d.Nodes)),
	}
	for _, e := range d.Edges {
		def.Connections = append(def.Connections, types.FlowConnection{
			Name:   aws.String(e.Name),
			Source: aws.String(e.Source),
			Target: aws.String(e.Target),
			Type:   types.FlowConnectionTypeData,
			Configuration: &types.FlowConnectionConfigurationMemberData{
				Value: types.FlowDataConnectionConfiguration{
					SourceOutput: aws.String(e.SourceOutput),
					TargetInput:  aws.String(e.TargetInput),
				},
			},
		})
	}
	for _, n := range d.Nodes {
		node := types.FlowNode{
			Name:          aws.String(n.Name),
			Type:          types.FlowNodeType(n.Type),
			Configuration: nodeConfiguration(n),
		}
		for _, in := range n.Inputs {
			node.Inputs = append(node.Inputs, types.FlowNodeInput{
				Name:       aws.String(in.Name),
				Type:       types.FlowNodeIODataType(in.Type),
				Expression: aws.String(in.Expression),
			})
		}
		for _, out := range n.Outputs {
			node.Outputs = append(node.Outputs, types.FlowNodeOutput{
				Name: aws.String(out.Name),
				Type: types.FlowNodeIODataType(out.Type),
			})
		}
		def.Nodes = append(def.Nodes, node)
	}
	return def
}

func nodeConfiguration(n Node) types.FlowNodeConfiguration {
	switch n.Type {
	case NodeTypeInput:
		return &types.FlowNodeConfigurationMemberInput{Value: types.InputFlowNodeConfiguration{}}
	case NodeTypeOutput:
		return &types.FlowNodeConfigurationMemberOutput{Value: types.OutputFlowNodeConfiguration{}}
	case NodeTypePrompt:
		return &types.FlowNodeConfigurationMemberPrompt{Value: types.PromptFlowNodeConfiguration{
			SourceConfiguration: &types.PromptFlowNodeSourceConfigurationMemberResource{
				Value: types.PromptFlowNodeResourceConfiguration{PromptArn: aws.String(n.PromptArn)},
			},
		}}
	default:
		return nil
	}
}

// Wire shapes of the JSON definition document.
type (
	wireDefinition struct {
		Connections []wireConnection `json:"connections"`
		Nodes       []wireNode       `json:"nodes"`
	}
	wireConnection struct {
		Configuration wireConnectionConfig `json:"configuration"`
		Name          string               `json:"name"`
		Source        string               `json:"source"`
		Target        string               `json:"target"`
		Type          string               `json:"type"`
	}
	wireConnectionConfig struct {
		Data wireData `json:"data"`
	}
	wireData struct {
		SourceOutput string `json:"sourceOutput"`
		TargetInput  string `json:"targetInput"`
	}
	wireNode struct {
		Configuration map[string]any `json:"configuration"`
		Inputs        []wirePort     `json:"inputs,omitempty"`
		Name          string         `json:"name"`
		Outputs       []wirePort     `json:"outputs,omitempty"`
		Type          string         `json:"type"`
	}
	wirePort struct {
		Name       string `json:"name"`
		Type       string `json:"type"`
		Expression string `json:"expression,omitempty"`
	}
)

// Document renders d as the JSON definition document accepted by
// CreateFlow and UpdateFlow.
func (d Definition) Document() ([]byte, error) {
	return json.Marshal(d.wire())
}

func (d Definition) wire() wireDefinition {
	w := wireDefinition{
		Connections: make([]wireConnection, 0, len(d.Edges)),
		Nodes:       make([]wireNode, 0, len(d.Nodes)),
	}
	for _, e := range d.Edges {
		w.Connections = append(w.Connections, wireConnection{
			Configuration: wireConnectionConfig{Data: wireData{SourceOutput: e.SourceOutput, TargetInput: e.TargetInput}},
			Name:          e.Name,
			Source:        e.Source,
			Target:        e.Target,
			Type:          string(types.FlowConnectionTypeData),
		})
	}
	for _, n := range d.Nodes {
		wn := wireNode{Name: n.Name, Type: string(n.Type)}
		switch n.Type {
		case NodeTypeInput:
			wn.Configuration = map[string]any{"input": map[string]any{}}
		case NodeTypeOutput:
			wn.Configuration = map[string]any{"output": map[string]any{}}
		case NodeTypePrompt:
			wn.Configuration = map[string]any{"prompt": map[string]any{
				"sourceConfiguration": map[string]any{
					"resource": map[string]any{"promptArn": n.PromptArn},
				},
			}}
		default:
			wn.Configuration = map[string]any{}
		}
		for _, p := range n.Inputs {
			wn.Inputs = append(wn.Inputs, wirePort(p))
		}
		for _, p := range n.Outputs {
			wn.Outputs = append(wn.Outputs, wirePort(p))
		}
		w.Nodes = append(w.Nodes, wn)
	}
	return w
}
