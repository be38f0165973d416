package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/PromptFlow/runtime/infra"
)

func newInfraCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infra",
		Short: "Provision and inspect the base stack",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <solution-id>",
		Short: "Create the base stack (prompt table and approval topic)",
		Long: `Creates a CloudFormation stack named after the solution id from the
configured template and waits for it to complete. The stack holds the
DynamoDB prompt record table and the SNS approval topic.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provisioner(cmd)
			if err != nil {
				return err
			}
			out, err := p.Provision(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutputs(cmd.OutOrStdout(), out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "outputs <stack>",
		Short: "Print the outputs of an existing base stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provisioner(cmd)
			if err != nil {
				return err
			}
			out, err := p.Outputs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutputs(cmd.OutOrStdout(), out)
			return nil
		},
	})

	return cmd
}

func (a *app) provisioner(cmd *cobra.Command) (*infra.Provisioner, error) {
	clients, err := a.awsClients(cmd.Context())
	if err != nil {
		return nil, err
	}
	return infra.NewProvisioner(clients.CloudFormation, a.cfg.Infra, a.cfg.ResolvePath(a.cfg.Infra.TemplatePath))
}

func printOutputs(w io.Writer, out *infra.StackOutputs) {
	fmt.Fprintln(w, "Stack outputs:")
	fmt.Fprintf(w, "DynamoDB Table: %s\n", out.TableName)
	fmt.Fprintf(w, "SNS Topic Arn: %s\n", out.TopicARN)

	keys := make([]string, 0, len(out.All))
	for k := range out.All {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, out.All[k])
	}
}
