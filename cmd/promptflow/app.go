package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
	"github.com/AltairaLabs/PromptFlow/runtime/awsclient"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	promexp "github.com/AltairaLabs/PromptFlow/runtime/metrics/prometheus"
	"github.com/AltairaLabs/PromptFlow/runtime/notify"
	"github.com/AltairaLabs/PromptFlow/runtime/records"
	"github.com/AltairaLabs/PromptFlow/runtime/telemetry"
)

const (
	defaultConfigFile = "promptflow.yaml"
	envPrefix         = "PROMPTFLOW"
)

// override copies one viper key onto the config.
type override struct {
	key   string
	flag  string
	apply func(cfg *config.Config, v *viper.Viper)
}

// overrides are the config keys settable by flag or PROMPTFLOW_* env var.
// They win over the config file.
var overrides = []override{
	{"aws.region", "region", func(c *config.Config, v *viper.Viper) { c.AWS.Region = v.GetString("aws.region") }},
	{"aws.profile", "profile", func(c *config.Config, v *viper.Viper) { c.AWS.Profile = v.GetString("aws.profile") }},
	{"aws.endpoint", "endpoint", func(c *config.Config, v *viper.Viper) { c.AWS.Endpoint = v.GetString("aws.endpoint") }},
	{"aws.assume_role_arn", "", func(c *config.Config, v *viper.Viper) {
		c.AWS.AssumeRoleARN = v.GetString("aws.assume_role_arn")
	}},
	{"store.driver", "store", func(c *config.Config, v *viper.Viper) { c.Store.Driver = v.GetString("store.driver") }},
	{"store.table", "table", func(c *config.Config, v *viper.Viper) { c.Store.Table = v.GetString("store.table") }},
	{"store.redis.address", "redis-addr", func(c *config.Config, v *viper.Viper) {
		c.Store.Redis.Address = v.GetString("store.redis.address")
	}},
	{"flow.prepare_timeout", "", func(c *config.Config, v *viper.Viper) {
		c.Flow.PrepareTimeout = v.GetDuration("flow.prepare_timeout")
	}},
	{"notify.topic_arn", "", func(c *config.Config, v *viper.Viper) {
		c.Notify.TopicARN = v.GetString("notify.topic_arn")
		c.Notify.Enabled = c.Notify.TopicARN != ""
	}},
	{"metrics.addr", "metrics-addr", func(c *config.Config, v *viper.Viper) { c.Metrics.Addr = v.GetString("metrics.addr") }},
	{"telemetry.otlp_endpoint", "otlp-endpoint", func(c *config.Config, v *viper.Viper) {
		c.Telemetry.OTLPEndpoint = v.GetString("telemetry.otlp_endpoint")
	}},
}

// app holds state shared by every command of one CLI run.
type app struct {
	v          *viper.Viper
	out        io.Writer
	configPath string
	verbose    bool

	cfg      *config.Config
	clients  *awsclient.Clients
	closers  []func(context.Context) error
	stopping context.CancelFunc
}

func newApp(out io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, o := range overrides {
		_ = v.BindEnv(o.key)
	}
	return &app{v: v, out: out}
}

func (a *app) bindFlags(flags *pflag.FlagSet) {
	for _, o := range overrides {
		if o.flag != "" {
			_ = a.v.BindPFlag(o.key, flags.Lookup(o.flag))
		}
	}
}

// init loads configuration and sets up logging, tracing and metrics.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.verbose {
		cfg.Logging.DefaultLevel = config.LogLevelDebug
	}
	logger.SetOutput(a.out)
	if err := logger.Configure(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	ctx := cmd.Context()
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if cfg.Metrics.Addr != "" {
		runCtx, cancel := context.WithCancel(context.Background())
		a.stopping = cancel
		exporter := promexp.NewExporter(cfg.Metrics.Addr)
		go func() {
			if err := exporter.Run(runCtx); err != nil {
				logger.Warn("Metrics exporter stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}
	return nil
}

// loadConfig reads the config file, then applies flag and environment
// overrides. A missing default config file means built-in defaults; a
// missing explicit one is an error.
func (a *app) loadConfig(explicit bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(a.configPath)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, err
	}

	for _, o := range overrides {
		if a.v.IsSet(o.key) {
			o.apply(cfg, a.v)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) awsClients(ctx context.Context) (*awsclient.Clients, error) {
	if a.clients != nil {
		return a.clients, nil
	}
	clients, err := awsclient.New(ctx, a.cfg.AWS)
	if err != nil {
		return nil, err
	}
	a.clients = clients
	return clients, nil
}

// store opens the configured record store. Only the dynamodb driver needs
// AWS clients.
func (a *app) store(ctx context.Context) (records.Store, error) {
	var dynamo records.DynamoDBAPI
	if a.cfg.Store.Driver == config.StoreDriverDynamoDB {
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		dynamo = clients.DynamoDB
	}
	store, err := records.Open(a.cfg.Store, dynamo, "")
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	}
	return store, nil
}

// registry wraps the store, publishing approval requests when
// notifications are enabled.
func (a *app) registry(ctx context.Context) (*records.Registry, error) {
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	var opts []records.RegistryOption
	if a.cfg.Notify.Enabled && a.cfg.Notify.TopicARN != "" {
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, records.WithNotifier(notify.New(clients.SNS, a.cfg.Notify.TopicARN, a.cfg.Notify.Subject)))
	}
	return records.NewRegistry(store, opts...), nil
}

func (a *app) close(ctx context.Context) {
	if a.stopping != nil {
		a.stopping()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
		}
	}
}
