package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// InvokeFlowAPI is the subset of the Bedrock Agent Runtime client used here.
type InvokeFlowAPI interface {
	InvokeFlow(ctx context.Context, params *bedrockagentruntime.InvokeFlowInput,
		optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeFlowOutput, error)
}

// SDKStream is the event stream returned by InvokeFlow.
// *bedrockagentruntime.InvokeFlowEventStream satisfies it.
type SDKStream interface {
	Events() <-chan types.FlowResponseStream
	Err() error
	Close() error
}

// Opener starts an invocation and returns its event stream.
type Opener interface {
	Open(ctx context.Context, input *bedrockagentruntime.InvokeFlowInput) (EventReader, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, input *bedrockagentruntime.InvokeFlowInput) (EventReader, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, input *bedrockagentruntime.InvokeFlowInput) (EventReader, error) {
	return f(ctx, input)
}

// NewSDKOpener opens live invocations through client.
func NewSDKOpener(client InvokeFlowAPI) Opener {
	return OpenerFunc(func(ctx context.Context, input *bedrockagentruntime.InvokeFlowInput) (EventReader, error) {
		out, err := client.InvokeFlow(ctx, input)
		if err != nil {
			return nil, err
		}
		stream := out.GetStream()
		if stream == nil {
			return nil, fmt.Errorf("InvokeFlow returned no event stream")
		}
		return NewSDKReader(stream), nil
	})
}

// SDKReader adapts an SDKStream to EventReader.
type SDKReader struct {
	stream SDKStream
	err    error
}

// NewSDKReader wraps stream.
func NewSDKReader(stream SDKStream) *SDKReader {
	return &SDKReader{stream: stream}
}

// Next implements EventReader.
func (r *SDKReader) Next(ctx context.Context) (Event, bool) {
	if r.err != nil {
		return Event{}, false
	}
	select {
	case <-ctx.Done():
		r.err = ctx.Err()
		return Event{}, false
	case ev, ok := <-r.stream.Events():
		if !ok {
			r.err = r.stream.Err()
			return Event{}, false
		}
		converted, err := fromSDK(ev)
		if err != nil {
			r.err = err
			return Event{}, false
		}
		return converted, true
	}
}

// Err implements EventReader.
func (r *SDKReader) Err() error {
	return r.err
}

// Close implements EventReader.
func (r *SDKReader) Close() error {
	return r.stream.Close()
}

func fromSDK(ev types.FlowResponseStream) (Event, error) {
	switch v := ev.(type) {
	case *types.FlowResponseStreamMemberFlowOutputEvent:
		out := Event{
			Type:     EventFlowOutput,
			NodeName: aws.ToString(v.Value.NodeName),
			NodeType: string(v.Value.NodeType),
		}
		if doc, ok := v.Value.Content.(*types.FlowOutputContentMemberDocument); ok && doc.Value != nil {
			value, err := decodeDocument(doc.Value)
			if err != nil {
				return Event{}, fmt.Errorf("decode output document: %w", err)
			}
			out.Document = value
		}
		return out, nil
	case *types.FlowResponseStreamMemberFlowCompletionEvent:
		return Event{Type: EventFlowCompletion, CompletionReason: string(v.Value.CompletionReason)}, nil
	case *types.FlowResponseStreamMemberFlowTraceEvent:
		raw, _ := json.Marshal(v.Value.Trace)
		return Event{Type: EventFlowTrace, Raw: raw}, nil
	default:
		return Event{Type: EventUnknown}, nil
	}
}

// decodeDocument renders doc to JSON and decodes it into a plain value.
// UnmarshalSmithyDocument only handles documents read off the wire, while
// MarshalSmithyDocument works for those and for locally built lazy ones.
func decodeDocument(doc document.Interface) (any, error) {
	data, err := doc.MarshalSmithyDocument()
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
