package config

import "time"

// APIVersion is the manifest schema version accepted by LoadConfig.
const APIVersion = "promptflow.altairalabs.ai/v1alpha1"

// KindPromptFlowConfig is the manifest kind accepted by LoadConfig.
const KindPromptFlowConfig = "PromptFlowConfig"

// Store drivers.
const (
	StoreDriverDynamoDB = "dynamodb"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// ObjectMeta holds manifest metadata.
type ObjectMeta struct {
	Name   string            `yaml:"name,omitempty"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// ConfigManifest is the K8s-style wrapper around Config.
type ConfigManifest struct {
	APIVersion string     `yaml:"apiVersion" validate:"required"`
	Kind       string     `yaml:"kind" validate:"required"`
	Metadata   ObjectMeta `yaml:"metadata,omitempty"`
	Spec       Config     `yaml:"spec"`
}

// Config is the complete PromptFlow configuration.
type Config struct {
	AWS       AWSConfig         `yaml:"aws" mapstructure:"aws"`
	Infra     InfraConfig       `yaml:"infra" mapstructure:"infra"`
	Store     StoreConfig       `yaml:"store" mapstructure:"store"`
	Role      RoleConfig        `yaml:"role" mapstructure:"role"`
	Flow      FlowConfig        `yaml:"flow" mapstructure:"flow"`
	Notify    NotifyConfig      `yaml:"notify" mapstructure:"notify"`
	Logging   LoggingConfigSpec `yaml:"logging" mapstructure:"logging"`
	Telemetry TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
	Metrics   MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`

	// ConfigDir is the directory of the loaded file, used to resolve relative paths.
	ConfigDir string `yaml:"-" mapstructure:"-"`
}

// AWSConfig selects credentials, region and endpoint for every AWS client.
type AWSConfig struct {
	Region        string `yaml:"region" mapstructure:"region"`
	Profile       string `yaml:"profile,omitempty" mapstructure:"profile"`
	AssumeRoleARN string `yaml:"assumeRoleArn,omitempty" mapstructure:"assume_role_arn" validate:"omitempty,startswith=arn:"`
	// Endpoint overrides the base endpoint of every client (local emulators).
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint" validate:"omitempty,url"`
	// AccessKeyID and SecretAccessKey select static credentials; both or neither.
	AccessKeyID     string `yaml:"accessKeyId,omitempty" mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty" mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// InfraConfig configures stack provisioning.
type InfraConfig struct {
	TemplatePath string        `yaml:"templatePath" mapstructure:"template_path" validate:"required"`
	WaitTimeout  time.Duration `yaml:"waitTimeout" mapstructure:"wait_timeout" validate:"gt=0"`
	// TableOutput and TopicOutput are JMESPath expressions over the stack's outputs.
	TableOutput string `yaml:"tableOutput" mapstructure:"table_output" validate:"required"`
	TopicOutput string `yaml:"topicOutput" mapstructure:"topic_output" validate:"required"`
}

// StoreConfig selects the prompt record backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver" validate:"oneof=dynamodb redis memory"`
	// Table is the DynamoDB table. It may be left empty when the table name
	// is taken from the base stack outputs instead.
	Table string      `yaml:"table,omitempty" mapstructure:"table"`
	Redis RedisConfig `yaml:"redis,omitempty" mapstructure:"redis"`
}

// RedisConfig configures the redis record backend.
type RedisConfig struct {
	Address  string        `yaml:"address" mapstructure:"address"`
	Password string        `yaml:"password,omitempty" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl,omitempty" mapstructure:"ttl" validate:"gte=0"`
}

// RoleConfig configures the flow execution role.
type RoleConfig struct {
	Name      string `yaml:"name" mapstructure:"name" validate:"required,max=64"`
	PolicyARN string `yaml:"policyArn" mapstructure:"policy_arn" validate:"required,startswith=arn:"`
}

// FlowConfig configures flow lifecycle polling.
type FlowConfig struct {
	PrepareTimeout time.Duration `yaml:"prepareTimeout" mapstructure:"prepare_timeout" validate:"gt=0"`
	PollInterval   time.Duration `yaml:"pollInterval" mapstructure:"poll_interval" validate:"gt=0"`
}

// NotifyConfig configures approval notifications.
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	TopicARN string `yaml:"topicArn,omitempty" mapstructure:"topic_arn" validate:"omitempty,startswith=arn:"`
	Subject  string `yaml:"subject,omitempty" mapstructure:"subject" validate:"max=100"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty" mapstructure:"otlp_endpoint" validate:"omitempty,url"`
	ServiceName  string `yaml:"serviceName" mapstructure:"service_name"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr" validate:"omitempty,hostname_port"`
}
