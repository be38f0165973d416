package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/flowdef"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	promexp "github.com/AltairaLabs/PromptFlow/runtime/metrics/prometheus"
	"github.com/AltairaLabs/PromptFlow/runtime/telemetry"
)

// Invoker sends a single input to a flow alias.
type Invoker struct {
	opener Opener
}

// NewInvoker creates an Invoker that opens streams with opener.
func NewInvoker(opener Opener) *Invoker {
	return &Invoker{opener: opener}
}

// Input builds the InvokeFlow request carrying inputText to the flow's
// input node.
func Input(flowID, aliasID, inputText string) *bedrockagentruntime.InvokeFlowInput {
	return &bedrockagentruntime.InvokeFlowInput{
		FlowIdentifier:      aws.String(flowID),
		FlowAliasIdentifier: aws.String(aliasID),
		Inputs: []types.FlowInput{{
			Content:        &types.FlowInputContentMemberDocument{Value: document.NewLazyDocument(inputText)},
			NodeName:       aws.String(flowdef.InputNodeName),
			NodeOutputName: aws.String(flowdef.DocumentPort),
		}},
	}
}

// Invoke runs the flow and returns the document of the first flow output
// event. String documents are returned verbatim, other JSON values are
// re-encoded. A stream that ends without an output event, or fails, is a
// stream error. A failure to start the invocation is a workflow error.
func (i *Invoker) Invoke(ctx context.Context, flowID, aliasID, inputText string) (out string, err error) {
	ctx = logger.WithLoggingContext(ctx, &logger.LoggingFields{FlowID: flowID, AliasID: aliasID, Stage: "invoke"})
	ctx, span := telemetry.StartStep(ctx, "invoke",
		telemetry.AttrFlowID.String(flowID), telemetry.AttrAliasID.String(aliasID))
	defer func() { telemetry.EndStep(span, err) }()

	reader, err := i.opener.Open(ctx, Input(flowID, aliasID, inputText))
	if err != nil {
		return "", pkgerrors.FromAWS(pkgerrors.ComponentInvoke, "InvokeFlow", err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			logger.DebugContext(ctx, "Closing flow response stream failed", "error", cerr)
		}
	}()

	events := 0
	for {
		ev, ok := reader.Next(ctx)
		if !ok {
			break
		}
		events++
		promexp.RecordStreamEvent(string(ev.Type))

		switch ev.Type {
		case EventFlowOutput:
			doc, err := documentString(ev.Document)
			if err != nil {
				return "", pkgerrors.New(pkgerrors.ComponentStream, "DecodeOutput", err)
			}
			logger.DebugContext(ctx, "Flow output received", "node", ev.NodeName, "events", events)
			return doc, nil
		case EventFlowCompletion:
			logger.InfoContext(ctx, "Flow completed", "reason", ev.CompletionReason)
		case EventFlowTrace:
			logger.DebugContext(ctx, "Flow trace", "trace", string(ev.Raw))
		default:
			logger.DebugContext(ctx, "Ignoring unknown flow event")
		}
	}

	if err := reader.Err(); err != nil {
		return "", pkgerrors.New(pkgerrors.ComponentStream, "ReadStream", err)
	}
	return "", pkgerrors.New(pkgerrors.ComponentStream, "ReadStream",
		fmt.Errorf("stream ended after %d events without a flow output event", events))
}

func documentString(doc any) (string, error) {
	if s, ok := doc.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
