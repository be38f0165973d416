// Package awsclient builds the AWS SDK configuration and service clients
// shared by every PromptFlow component.
package awsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
	promexp "github.com/AltairaLabs/PromptFlow/runtime/metrics/prometheus"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
)

// defaultAWSRegion is the fallback region when none is specified.
const defaultAWSRegion = config.DefaultRegion

// Clients holds one client per AWS service PromptFlow talks to, all built
// from the same aws.Config.
type Clients struct {
	Config              aws.Config
	CloudFormation      *cloudformation.Client
	DynamoDB            *dynamodb.Client
	IAM                 *iam.Client
	STS                 *sts.Client
	SNS                 *sns.Client
	BedrockAgent        *bedrockagent.Client
	BedrockAgentRuntime *bedrockagentruntime.Client
}

// LoadConfig resolves an aws.Config from the default credential chain
// (environment, shared config, IRSA, instance profile). Static keys, a
// named profile, an assumed role and a custom endpoint are layered on top
// when set in cfg. Every API call is traced, timed, logged and counted.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	region := cfg.Region
	if region == "" {
		region = defaultAWSRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AssumeRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		awsCfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsClient, cfg.AssumeRoleARN))
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	// Tracing is a stack middleware; AWS_CA_BUNDLE needs the SDK's buildable
	// HTTP client left in place.
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	awsCfg.APIOptions = append(awsCfg.APIOptions, promexp.AddAWSMetrics, addCallLogging)
	return awsCfg, nil
}

// New loads the AWS config and builds every service client from it.
func New(ctx context.Context, cfg config.AWSConfig) (*Clients, error) {
	awsCfg, err := LoadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(awsCfg), nil
}

// NewFromConfig builds every service client from an existing aws.Config.
func NewFromConfig(awsCfg aws.Config) *Clients {
	return &Clients{
		Config:              awsCfg,
		CloudFormation:      cloudformation.NewFromConfig(awsCfg),
		DynamoDB:            dynamodb.NewFromConfig(awsCfg),
		IAM:                 iam.NewFromConfig(awsCfg),
		STS:                 sts.NewFromConfig(awsCfg),
		SNS:                 sns.NewFromConfig(awsCfg),
		BedrockAgent:        bedrockagent.NewFromConfig(awsCfg),
		BedrockAgentRuntime: bedrockagentruntime.NewFromConfig(awsCfg),
	}
}

// Region returns the configured AWS region.
func (c *Clients) Region() string {
	return c.Config.Region
}

// callLogging logs every AWS operation through the package logger.
type callLogging struct{}

func (callLogging) ID() string { return "PromptFlowCallLogging" }

func (callLogging) HandleInitialize(
	ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler,
) (middleware.InitializeOutput, middleware.Metadata, error) {
	start := time.Now()
	out, md, err := next.HandleInitialize(ctx, in)

	// Failures are logged at debug here; callers decide whether an error
	// (e.g. EntityAlreadyExists) is expected and log it themselves.
	attrs := []any{}
	if err != nil {
		attrs = append(attrs, "error", logger.RedactSensitiveData(err.Error()))
	}
	logger.AWSCall(ctx, awsmiddleware.GetServiceID(ctx), awsmiddleware.GetOperationName(ctx), time.Since(start), attrs...)
	return out, md, err
}

func addCallLogging(stack *middleware.Stack) error {
	return stack.Initialize.Add(callLogging{}, middleware.After)
}
