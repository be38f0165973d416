package prometheus

import (
	"context"
	"time"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/smithy-go/middleware"
)

// awsMetricsMiddlewareID names the middleware in the SDK stack.
const awsMetricsMiddlewareID = "PromptFlowMetrics"

// AWSMetricsMiddleware observes every AWS SDK operation and records its
// duration and outcome. Register it through aws.Config.APIOptions.
type AWSMetricsMiddleware struct{}

// ID implements middleware.InitializeMiddleware.
func (AWSMetricsMiddleware) ID() string { return awsMetricsMiddlewareID }

// HandleInitialize implements middleware.InitializeMiddleware.
func (AWSMetricsMiddleware) HandleInitialize(
	ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler,
) (middleware.InitializeOutput, middleware.Metadata, error) {
	start := time.Now()
	out, md, err := next.HandleInitialize(ctx, in)

	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	RecordAWSCall(awsmiddleware.GetServiceID(ctx), awsmiddleware.GetOperationName(ctx), status, time.Since(start).Seconds())

	return out, md, err
}

// AddAWSMetrics is an APIOptions entry installing AWSMetricsMiddleware after
// the SDK has registered service metadata.
func AddAWSMetrics(stack *middleware.Stack) error {
	return stack.Initialize.Add(AWSMetricsMiddleware{}, middleware.After)
}
