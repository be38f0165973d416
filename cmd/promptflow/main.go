package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "promptflow",
		Short:         "PromptFlow - Approval-gated prompt deployment for Amazon Bedrock Flows",
		Version:       GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `PromptFlow provisions the base stack for prompt approvals, stores prompt
versions with their approval status, and publishes a Bedrock flow around an
approved prompt version.

A flow is only updated when the prompt record's status is exactly "Approved".`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetVersionTemplate(GetVersionInfo() + "\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", defaultConfigFile, "Configuration file path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("region", "", "AWS region")
	flags.String("profile", "", "AWS shared config profile")
	flags.String("endpoint", "", "Override the endpoint of every AWS client")
	flags.String("store", "", "Prompt record store: dynamodb, redis or memory")
	flags.String("table", "", "DynamoDB prompt record table")
	flags.String("redis-addr", "", "Redis address for the redis store")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.String("otlp-endpoint", "", "Export traces to this OTLP/HTTP endpoint")
	a.bindFlags(flags)

	root.AddCommand(
		newInfraCmd(a),
		newRoleCmd(a),
		newPromptCmd(a),
		newFlowCmd(a),
		newVersionCmd(),
	)
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout)
	defer a.close(context.Background())

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
