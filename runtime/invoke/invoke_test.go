package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
)

type fakeReader struct {
	events []Event
	err    error
	closed bool
}

func (f *fakeReader) Next(context.Context) (Event, bool) {
	if len(f.events) == 0 {
		return Event{}, false
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true
}

func (f *fakeReader) Err() error   { return f.err }
func (f *fakeReader) Close() error { f.closed = true; return nil }

func openerFor(r EventReader) Opener {
	return OpenerFunc(func(context.Context, *bedrockagentruntime.InvokeFlowInput) (EventReader, error) {
		return r, nil
	})
}

func helloWorldEvents() []Event {
	return []Event{
		{Type: EventFlowTrace, Raw: json.RawMessage(`{"trace":{"nodeName":"FlowInputNode"}}`)},
		{Type: EventFlowTrace, Raw: json.RawMessage(`{"trace":{"nodeName":"Prompt_1"}}`)},
		{Type: EventFlowOutput, NodeName: "FlowOutputNode", NodeType: "Output", Document: "world"},
		{Type: EventFlowCompletion, CompletionReason: "SUCCESS"},
	}
}

func TestInvoke_ReturnsFirstOutputDocument(t *testing.T) {
	reader := &fakeReader{events: helloWorldEvents()}
	inv := NewInvoker(openerFor(reader))

	out, err := inv.Invoke(context.Background(), "FLOW123456", "ALIAS00001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "world", out)
	assert.True(t, reader.closed)
	assert.Len(t, reader.events, 1, "completion event is left unread")
}

func TestInvoke_ReencodesJSONDocuments(t *testing.T) {
	reader := &fakeReader{events: []Event{
		{Type: EventFlowOutput, Document: map[string]any{"answer": 42.0}},
	}}

	out, err := NewInvoker(openerFor(reader)).Invoke(context.Background(), "F", "A", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, out)
}

func TestInvoke_NoOutputIsStreamError(t *testing.T) {
	reader := &fakeReader{events: []Event{{Type: EventFlowCompletion, CompletionReason: "SUCCESS"}}}

	_, err := NewInvoker(openerFor(reader)).Invoke(context.Background(), "F", "A", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrStream)
	assert.Contains(t, err.Error(), "without a flow output event")
}

func TestInvoke_StreamFaultIsStreamError(t *testing.T) {
	reader := &fakeReader{
		events: []Event{{Type: EventFlowTrace}},
		err:    errors.New("connection reset"),
	}

	_, err := NewInvoker(openerFor(reader)).Invoke(context.Background(), "F", "A", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrStream)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestInvoke_OpenFailureIsWorkflowError(t *testing.T) {
	opener := OpenerFunc(func(context.Context, *bedrockagentruntime.InvokeFlowInput) (EventReader, error) {
		return nil, errors.New("ResourceNotFoundException: alias not found")
	})

	_, err := NewInvoker(opener).Invoke(context.Background(), "F", "A", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
	assert.Equal(t, "InvokeFlow", pkgerrors.Step(err))
}

func TestInput(t *testing.T) {
	in := Input("FLOW123456", "ALIAS00001", "hello")

	assert.Equal(t, "FLOW123456", aws.ToString(in.FlowIdentifier))
	assert.Equal(t, "ALIAS00001", aws.ToString(in.FlowAliasIdentifier))
	require.Len(t, in.Inputs, 1)
	assert.Equal(t, "FlowInputNode", aws.ToString(in.Inputs[0].NodeName))
	assert.Equal(t, "document", aws.ToString(in.Inputs[0].NodeOutputName))

	content, ok := in.Inputs[0].Content.(*types.FlowInputContentMemberDocument)
	require.True(t, ok)
	data, err := content.Value.MarshalSmithyDocument()
	require.NoError(t, err)
	var text string
	require.NoError(t, json.Unmarshal(data, &text))
	assert.Equal(t, "hello", text)
}

func encodeFrame(t *testing.T, buf *bytes.Buffer, eventType, payload string) {
	t.Helper()
	var headers eventstream.Headers
	headers.Set(":message-type", eventstream.StringValue("event"))
	headers.Set(":event-type", eventstream.StringValue(eventType))
	headers.Set(":content-type", eventstream.StringValue("application/json"))
	require.NoError(t, eventstream.NewEncoder().Encode(buf, eventstream.Message{
		Headers: headers,
		Payload: []byte(payload),
	}))
}

func TestReplay_CapturedFrames(t *testing.T) {
	var buf bytes.Buffer
	encodeFrame(t, &buf, "flowTraceEvent", `{"trace":{}}`)
	encodeFrame(t, &buf, "flowTraceEvent", `{"trace":{}}`)
	encodeFrame(t, &buf, "flowOutputEvent", `{"content":{"document":"world"},"nodeName":"FlowOutputNode","nodeType":"Output"}`)
	encodeFrame(t, &buf, "flowCompletionEvent", `{"completionReason":"SUCCESS"}`)

	out, err := NewInvoker(NewReplayOpener(&buf)).Invoke(context.Background(), "F", "A", "hello")
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

func TestReplay_MatchesLiveStream(t *testing.T) {
	ctx := context.Background()
	var capture bytes.Buffer

	live := NewRecordingReader(&fakeReader{events: helloWorldEvents()}, &capture)
	liveOut, err := NewInvoker(openerFor(live)).Invoke(ctx, "F", "A", "hello")
	require.NoError(t, err)

	replayOut, err := NewInvoker(NewReplayOpener(&capture)).Invoke(ctx, "F", "A", "hello")
	require.NoError(t, err)
	assert.Equal(t, liveOut, replayOut)
}

func TestFrameReader_DecodesEveryType(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	for _, ev := range helloWorldEvents() {
		require.NoError(t, w.Write(ev))
	}

	r := NewFrameReader(&buf)
	var got []Event
	for {
		ev, ok := r.Next(context.Background())
		if !ok {
			break
		}
		got = append(got, ev)
	}
	require.NoError(t, r.Err())
	require.Len(t, got, 4)
	assert.Equal(t, EventFlowTrace, got[0].Type)
	assert.JSONEq(t, `{"trace":{"nodeName":"Prompt_1"}}`, string(got[1].Raw))
	assert.Equal(t, "world", got[2].Document)
	assert.Equal(t, "FlowOutputNode", got[2].NodeName)
	assert.Equal(t, "SUCCESS", got[3].CompletionReason)
	assert.NoError(t, r.Close())
}

func TestFrameReader_ExceptionFrame(t *testing.T) {
	var buf bytes.Buffer
	var headers eventstream.Headers
	headers.Set(":message-type", eventstream.StringValue("exception"))
	headers.Set(":exception-type", eventstream.StringValue("throttlingException"))
	require.NoError(t, eventstream.NewEncoder().Encode(&buf, eventstream.Message{
		Headers: headers,
		Payload: []byte(`{"message":"slow down"}`),
	}))

	_, err := NewInvoker(NewReplayOpener(&buf)).Invoke(context.Background(), "F", "A", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrStream)
	assert.Contains(t, err.Error(), "throttlingException")
}

func TestFrameReader_TruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	encodeFrame(t, &buf, "flowOutputEvent", `{"content":{"document":"world"}}`)
	truncated := bytes.NewReader(buf.Bytes()[:5])

	r := NewFrameReader(truncated)
	_, ok := r.Next(context.Background())
	assert.False(t, ok)
	assert.Error(t, r.Err())
}

type fakeSDKStream struct {
	ch     chan types.FlowResponseStream
	err    error
	closed bool
}

func (f *fakeSDKStream) Events() <-chan types.FlowResponseStream { return f.ch }
func (f *fakeSDKStream) Err() error                               { return f.err }
func (f *fakeSDKStream) Close() error                             { f.closed = true; return nil }

func TestSDKReader(t *testing.T) {
	stream := &fakeSDKStream{ch: make(chan types.FlowResponseStream, 4)}
	stream.ch <- &types.FlowResponseStreamMemberFlowTraceEvent{Value: types.FlowTraceEvent{}}
	stream.ch <- &types.FlowResponseStreamMemberFlowTraceEvent{Value: types.FlowTraceEvent{}}
	stream.ch <- &types.FlowResponseStreamMemberFlowOutputEvent{Value: types.FlowOutputEvent{
		NodeName: aws.String("FlowOutputNode"),
		NodeType: types.NodeTypeFlowOutputNode,
		Content:  &types.FlowOutputContentMemberDocument{Value: document.NewLazyDocument("world")},
	}}
	stream.ch <- &types.FlowResponseStreamMemberFlowCompletionEvent{Value: types.FlowCompletionEvent{
		CompletionReason: types.FlowCompletionReasonSuccess,
	}}
	close(stream.ch)

	reader := NewSDKReader(stream)
	out, err := NewInvoker(openerFor(reader)).Invoke(context.Background(), "F", "A", "hello")
	require.NoError(t, err)
	assert.Equal(t, "world", out)
	assert.True(t, stream.closed)
}

func TestSDKReader_StructuredDocument(t *testing.T) {
	stream := &fakeSDKStream{ch: make(chan types.FlowResponseStream, 1)}
	stream.ch <- &types.FlowResponseStreamMemberFlowOutputEvent{Value: types.FlowOutputEvent{
		NodeName: aws.String("FlowOutputNode"),
		Content: &types.FlowOutputContentMemberDocument{Value: document.NewLazyDocument(map[string]any{
			"answer": "world",
			"score":  3,
		})},
	}}
	close(stream.ch)

	ev, ok := NewSDKReader(stream).Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, EventFlowOutput, ev.Type)
	assert.Equal(t, "FlowOutputNode", ev.NodeName)
	assert.Equal(t, map[string]any{"answer": "world", "score": json.Number("3")}, ev.Document)
}

func TestSDKReader_StreamError(t *testing.T) {
	stream := &fakeSDKStream{ch: make(chan types.FlowResponseStream), err: errors.New("eventstream: checksum mismatch")}
	close(stream.ch)

	reader := NewSDKReader(stream)
	_, ok := reader.Next(context.Background())
	assert.False(t, ok)
	assert.EqualError(t, reader.Err(), "eventstream: checksum mismatch")
}

func TestSDKReader_ContextCancelled(t *testing.T) {
	stream := &fakeSDKStream{ch: make(chan types.FlowResponseStream)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewSDKReader(stream)
	_, ok := reader.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, reader.Err(), context.Canceled)
}
