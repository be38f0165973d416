package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/records"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func testRecord() *records.Record {
	return &records.Record{PromptID: "p1", Version: "2", PromptName: "greeting", Status: records.StatusPending}
}

func TestRequestApproval(t *testing.T) {
	client := &fakeSNS{}
	n := New(client, "arn:aws:sns:us-west-2:123456789012:demo-1-prompt-approvals", "Prompt approval requested")

	require.NoError(t, n.RequestApproval(context.Background(), testRecord()))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-west-2:123456789012:demo-1-prompt-approvals", aws.ToString(in.TopicArn))
	assert.Equal(t, "Prompt approval requested", aws.ToString(in.Subject))
	assert.Contains(t, aws.ToString(in.Message), "'greeting'")
	assert.Contains(t, aws.ToString(in.Message), "version 2")
	assert.Equal(t, "p1", aws.ToString(in.MessageAttributes["promptId"].StringValue))
	assert.Equal(t, "2", aws.ToString(in.MessageAttributes["version"].StringValue))
	assert.Equal(t, "String", aws.ToString(in.MessageAttributes["version"].DataType))
}

func TestRequestApproval_NoSubject(t *testing.T) {
	client := &fakeSNS{}
	require.NoError(t, New(client, "arn:aws:sns:us-west-2:1:t", "").RequestApproval(context.Background(), testRecord()))
	assert.Nil(t, client.inputs[0].Subject)
}

func TestRequestApproval_Failure(t *testing.T) {
	client := &fakeSNS{err: errors.New("AuthorizationError")}
	err := New(client, "arn:aws:sns:us-west-2:1:t", "").RequestApproval(context.Background(), testRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrNotification)
	assert.Equal(t, "Publish", pkgerrors.Step(err))
}

func TestNotifierWithRegistry(t *testing.T) {
	client := &fakeSNS{err: errors.New("throttled")}
	reg := records.NewRegistry(records.NewMemoryStore(), records.WithNotifier(New(client, "arn:aws:sns:us-west-2:1:t", "")))

	msg, err := reg.Submit(context.Background(), "p1", "greeting", "1", "text")
	require.NoError(t, err)
	assert.Contains(t, msg, "inserted successfully")
	assert.Len(t, client.inputs, 1)
}
