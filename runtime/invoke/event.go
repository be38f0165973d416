// Package invoke runs a published flow alias and extracts the flow's
// output document from the response event stream.
//
// The stream is consumed through EventReader, which has two
// implementations: an adapter over the SDK's InvokeFlow stream and a
// decoder for captured AWS binary event-stream frames, so a response can be
// recorded once and replayed offline.
package invoke

import (
	"context"
	"encoding/json"
)

// EventType is the ":event-type" of a flow response event.
type EventType string

// Flow response event types.
const (
	EventFlowOutput     EventType = "flowOutputEvent"
	EventFlowCompletion EventType = "flowCompletionEvent"
	EventFlowTrace      EventType = "flowTraceEvent"
	EventUnknown        EventType = "unknown"
)

// Event is one decoded flow response event.
type Event struct {
	Type EventType
	// NodeName and NodeType are set on output events.
	NodeName string
	NodeType string
	// Document is the decoded JSON content of an output event.
	Document any
	// CompletionReason is set on completion events.
	CompletionReason string
	// Raw is the JSON payload of trace and unknown events.
	Raw json.RawMessage
}

// EventReader yields flow response events in stream order. Next returns
// false when the stream ends or fails; Err then reports the failure, if any.
type EventReader interface {
	Next(ctx context.Context) (Event, bool)
	Err() error
	Close() error
}

// outputPayload is the JSON shape of a flowOutputEvent.
type outputPayload struct {
	Content struct {
		Document any `json:"document"`
	} `json:"content"`
	NodeName string `json:"nodeName,omitempty"`
	NodeType string `json:"nodeType,omitempty"`
}

// completionPayload is the JSON shape of a flowCompletionEvent.
type completionPayload struct {
	CompletionReason string `json:"completionReason"`
}
