// Package flowdef builds the fixed three-node Bedrock flow definition
// (Input -> Prompt -> Output) as typed values and converts it to the SDK
// union types and to the service's JSON document form.
package flowdef

import (
	"strings"
)

// NodeType is the kind of a flow node.
type NodeType string

// Node types used by the definition.
const (
	NodeTypeInput  NodeType = "Input"
	NodeTypeOutput NodeType = "Output"
	NodeTypePrompt NodeType = "Prompt"
)

// DataTypeString is the only IO data type the definition uses.
const DataTypeString = "String"

// Node and port names of the fixed topology.
const (
	InputNodeName  = "FlowInputNode"
	PromptNodeName = "Prompt_1"
	OutputNodeName = "FlowOutputNode"

	DocumentPort        = "document"
	PromptInputPort     = "input_text"
	ModelCompletionPort = "modelCompletion"

	// DataExpression selects the whole payload of the incoming data.
	DataExpression = "$.data"

	InputToPromptEdge  = "FlowInputNodeFlowInputNode0ToPrompt_1PromptsNode0"
	PromptToOutputEdge = "Prompt_1PromptsNode0ToFlowOutputNodeFlowOutputNode0"
)

// Port is a named, typed node input or output. Expression is only set on
// inputs.
type Port struct {
	Name       string
	Type       string
	Expression string
}

// Node is one flow node. PromptArn is only set on prompt nodes.
type Node struct {
	Name      string
	Type      NodeType
	Inputs    []Port
	Outputs   []Port
	PromptArn string
}

// Edge is a data connection from a source node output to a target node
// input.
type Edge struct {
	Name         string
	Source       string
	SourceOutput string
	Target       string
	TargetInput  string
}

// Definition is a flow graph.
type Definition struct {
	Nodes []Node
	Edges []Edge
}

// Build returns the fixed definition with promptRef in the prompt node.
// promptRef is a bare prompt ARN for the first build or a versioned ARN
// (see VersionedArn) for updates. Build is pure; nothing else varies with
// its input.
func Build(promptRef string) Definition {
	return Definition{
		Edges: []Edge{
			{
				Name:         PromptToOutputEdge,
				Source:       PromptNodeName,
				SourceOutput: ModelCompletionPort,
				Target:       OutputNodeName,
				TargetInput:  DocumentPort,
			},
			{
				Name:         InputToPromptEdge,
				Source:       InputNodeName,
				SourceOutput: DocumentPort,
				Target:       PromptNodeName,
				TargetInput:  PromptInputPort,
			},
		},
		Nodes: []Node{
			{
				Name:    InputNodeName,
				Type:    NodeTypeInput,
				Outputs: []Port{{Name: DocumentPort, Type: DataTypeString}},
			},
			{
				Name:   OutputNodeName,
				Type:   NodeTypeOutput,
				Inputs: []Port{{Name: DocumentPort, Type: DataTypeString, Expression: DataExpression}},
			},
			{
				Name:      PromptNodeName,
				Type:      NodeTypePrompt,
				Inputs:    []Port{{Name: PromptInputPort, Type: DataTypeString, Expression: DataExpression}},
				Outputs:   []Port{{Name: ModelCompletionPort, Type: DataTypeString}},
				PromptArn: promptRef,
			},
		},
	}
}

// VersionedArn pins a prompt ARN to a version: arn + ":" + version.
func VersionedArn(arn, version string) string {
	return arn + ":" + version
}

// Node returns the node with the given name.
func (d Definition) Node(name string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// PromptRef returns the prompt resource referenced by the prompt node.
func (d Definition) PromptRef() string {
	for _, n := range d.Nodes {
		if n.Type == NodeTypePrompt {
			return n.PromptArn
		}
	}
	return ""
}

// PromptVersion returns the version suffix of the prompt reference, or ""
// for an unversioned ARN. Prompt ARNs have the form
// arn:<partition>:bedrock:<region>:<account>:prompt/<id>[:<version>].
func (d Definition) PromptVersion() string {
	ref := d.PromptRef()
	slash := strings.LastIndex(ref, "/")
	if slash == -1 {
		return ""
	}
	if colon := strings.Index(ref[slash:], ":"); colon != -1 {
		return ref[slash+colon+1:]
	}
	return ""
}
