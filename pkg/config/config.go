// Package config loads and validates PromptFlow configuration.
//
// Configuration files are K8s-style manifests:
//
//	apiVersion: promptflow.altairalabs.ai/v1alpha1
//	kind: PromptFlowConfig
//	metadata:
//	  name: demo
//	spec:
//	  aws:
//	    region: us-east-1
//	  store:
//	    driver: dynamodb
//	    table: demo-1-prompts
//
// Every field has a default, so an empty spec is valid. The store table may
// be left unset and taken from the base stack outputs instead.
package config

import "time"

// Defaults.
const (
	DefaultRegion         = "us-west-2"
	DefaultTemplatePath   = "templates/base-infra.yaml"
	DefaultWaitTimeout    = 30 * time.Minute
	DefaultTableOutput    = "[?OutputKey=='DynamoDBTableName'].OutputValue | [0]"
	DefaultTopicOutput    = "[?OutputKey=='SNSTopicArn'].OutputValue | [0]"
	DefaultRoleName       = "MyBedrockFlowsRole"
	DefaultPolicyARN      = "arn:aws:iam::aws:policy/AmazonBedrockFullAccess"
	DefaultPrepareTimeout = 5 * time.Minute
	DefaultPollInterval   = 2 * time.Second
	DefaultRedisAddress   = "localhost:6379"
	DefaultRedisPrefix    = "promptflow"
	DefaultServiceName    = "promptflow"
	DefaultNotifySubject  = "Prompt approval requested"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.AWS.Region == "" {
		c.AWS.Region = DefaultRegion
	}

	if c.Infra.TemplatePath == "" {
		c.Infra.TemplatePath = DefaultTemplatePath
	}
	if c.Infra.WaitTimeout == 0 {
		c.Infra.WaitTimeout = DefaultWaitTimeout
	}
	if c.Infra.TableOutput == "" {
		c.Infra.TableOutput = DefaultTableOutput
	}
	if c.Infra.TopicOutput == "" {
		c.Infra.TopicOutput = DefaultTopicOutput
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverDynamoDB
	}
	if c.Store.Redis.Address == "" {
		c.Store.Redis.Address = DefaultRedisAddress
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = DefaultRedisPrefix
	}

	if c.Role.Name == "" {
		c.Role.Name = DefaultRoleName
	}
	if c.Role.PolicyARN == "" {
		c.Role.PolicyARN = DefaultPolicyARN
	}

	if c.Flow.PrepareTimeout == 0 {
		c.Flow.PrepareTimeout = DefaultPrepareTimeout
	}
	if c.Flow.PollInterval == 0 {
		c.Flow.PollInterval = DefaultPollInterval
	}

	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultNotifySubject
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}

	if c.Logging.DefaultLevel == "" {
		c.Logging.DefaultLevel = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}
