// Package notify publishes approval requests for new prompt versions to the
// base stack's SNS topic.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	"github.com/AltairaLabs/PromptFlow/runtime/records"
)

// SNSAPI is the subset of the SNS client used by Notifier.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends approval requests to one topic.
type Notifier struct {
	client   SNSAPI
	topicARN string
	subject  string
}

var _ records.Notifier = (*Notifier)(nil)

// New creates a Notifier for topicARN.
func New(client SNSAPI, topicARN, subject string) *Notifier {
	return &Notifier{client: client, topicARN: topicARN, subject: subject}
}

// RequestApproval publishes a message naming the prompt, with promptId and
// version as message attributes so subscribers can filter on them.
func (n *Notifier) RequestApproval(ctx context.Context, r *records.Record) error {
	body := fmt.Sprintf("Prompt '%s' (id %s, version %s) is %s and awaits approval.",
		r.PromptName, r.PromptID, r.Version, r.Status)

	in := &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"promptId": {DataType: aws.String("String"), StringValue: aws.String(r.PromptID)},
			"version":  {DataType: aws.String("String"), StringValue: aws.String(r.Version)},
		},
	}
	if n.subject != "" {
		in.Subject = aws.String(n.subject)
	}

	out, err := n.client.Publish(ctx, in)
	if err != nil {
		logger.AWSError(ctx, "SNS", "Publish", err, "topic_arn", n.topicARN)
		return pkgerrors.FromAWS(pkgerrors.ComponentNotify, "Publish", err)
	}
	logger.InfoContext(ctx, "Approval requested", "message_id", aws.ToString(out.MessageId))
	return nil
}
