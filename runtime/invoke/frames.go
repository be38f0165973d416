package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
)

// Event-stream header names and values.
const (
	headerEventType     = ":event-type"
	headerMessageType   = ":message-type"
	headerContentType   = ":content-type"
	headerExceptionType = ":exception-type"

	messageTypeEvent     = "event"
	messageTypeException = "exception"
)

// FrameReader decodes captured AWS binary event-stream frames.
type FrameReader struct {
	r       io.Reader
	closer  io.Closer
	decoder *eventstream.Decoder
	err     error
}

// NewFrameReader reads frames from r. If r is an io.Closer, Close closes it.
func NewFrameReader(r io.Reader) *FrameReader {
	fr := &FrameReader{r: r, decoder: eventstream.NewDecoder()}
	if c, ok := r.(io.Closer); ok {
		fr.closer = c
	}
	return fr
}

// Next implements EventReader. A clean end of input ends the stream
// without error.
func (f *FrameReader) Next(ctx context.Context) (Event, bool) {
	if f.err != nil {
		return Event{}, false
	}
	if err := ctx.Err(); err != nil {
		f.err = err
		return Event{}, false
	}

	msg, err := f.decoder.Decode(f.r, nil)
	if errors.Is(err, io.EOF) {
		return Event{}, false
	}
	if err != nil {
		f.err = fmt.Errorf("decode event-stream frame: %w", err)
		return Event{}, false
	}

	switch headerString(msg.Headers, headerMessageType) {
	case messageTypeException:
		f.err = fmt.Errorf("stream exception %s: %s", headerString(msg.Headers, headerExceptionType), msg.Payload)
		return Event{}, false
	case "", messageTypeEvent:
	default:
		return Event{Type: EventUnknown, Raw: json.RawMessage(msg.Payload)}, true
	}

	ev, err := decodePayload(EventType(headerString(msg.Headers, headerEventType)), msg.Payload)
	if err != nil {
		f.err = err
		return Event{}, false
	}
	return ev, true
}

// Err implements EventReader.
func (f *FrameReader) Err() error {
	return f.err
}

// Close implements EventReader.
func (f *FrameReader) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

func decodePayload(typ EventType, payload []byte) (Event, error) {
	switch typ {
	case EventFlowOutput:
		var p outputPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", typ, err)
		}
		return Event{Type: typ, NodeName: p.NodeName, NodeType: p.NodeType, Document: p.Content.Document}, nil
	case EventFlowCompletion:
		var p completionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", typ, err)
		}
		return Event{Type: typ, CompletionReason: p.CompletionReason}, nil
	case EventFlowTrace:
		return Event{Type: typ, Raw: append(json.RawMessage(nil), payload...)}, nil
	default:
		return Event{Type: EventUnknown, Raw: append(json.RawMessage(nil), payload...)}, nil
	}
}

func headerString(headers eventstream.Headers, name string) string {
	v := headers.Get(name)
	if v == nil {
		return ""
	}
	if s, ok := v.Get().(string); ok {
		return s
	}
	return ""
}

// FrameWriter encodes events as AWS binary event-stream frames, the format
// FrameReader decodes.
type FrameWriter struct {
	w       io.Writer
	encoder *eventstream.Encoder
}

// NewFrameWriter writes frames to w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, encoder: eventstream.NewEncoder()}
}

// Write encodes ev as one frame.
func (f *FrameWriter) Write(ev Event) error {
	var payload any
	switch ev.Type {
	case EventFlowOutput:
		p := outputPayload{NodeName: ev.NodeName, NodeType: ev.NodeType}
		p.Content.Document = ev.Document
		payload = p
	case EventFlowCompletion:
		payload = completionPayload{CompletionReason: ev.CompletionReason}
	default:
		raw := ev.Raw
		if len(raw) == 0 {
			raw = json.RawMessage("{}")
		}
		payload = raw
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", ev.Type, err)
	}

	var headers eventstream.Headers
	headers.Set(headerMessageType, eventstream.StringValue(messageTypeEvent))
	headers.Set(headerEventType, eventstream.StringValue(string(ev.Type)))
	headers.Set(headerContentType, eventstream.StringValue("application/json"))
	return f.encoder.Encode(f.w, eventstream.Message{Headers: headers, Payload: body})
}

// RecordingReader passes events through from an underlying reader and
// writes each one to a FrameWriter.
type RecordingReader struct {
	EventReader
	frames *FrameWriter
	err    error
}

// NewRecordingReader records every event read from r to w.
func NewRecordingReader(r EventReader, w io.Writer) *RecordingReader {
	return &RecordingReader{EventReader: r, frames: NewFrameWriter(w)}
}

// Next implements EventReader.
func (r *RecordingReader) Next(ctx context.Context) (Event, bool) {
	if r.err != nil {
		return Event{}, false
	}
	ev, ok := r.EventReader.Next(ctx)
	if !ok {
		return ev, false
	}
	if err := r.frames.Write(ev); err != nil {
		r.err = fmt.Errorf("record event: %w", err)
		return Event{}, false
	}
	return ev, true
}

// Err implements EventReader.
func (r *RecordingReader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.EventReader.Err()
}

// NewReplayOpener replays captured frames from r instead of calling the
// service. The invocation input is ignored.
func NewReplayOpener(r io.Reader) Opener {
	return OpenerFunc(func(context.Context, *bedrockagentruntime.InvokeFlowInput) (EventReader, error) {
		return NewFrameReader(r), nil
	})
}
