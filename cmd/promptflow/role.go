package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/PromptFlow/runtime/iamrole"
)

func newRoleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage the flow execution role",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure [name]",
		Short: "Create the flow execution role, or reuse it if it exists",
		Long: `Creates an IAM role trusted by Amazon Bedrock and attaches the configured
policy. If a role with that name already exists its ARN is printed and the
role is left unchanged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Role.Name
			if len(args) == 1 {
				name = args[0]
			}
			clients, err := a.awsClients(cmd.Context())
			if err != nil {
				return err
			}
			arn, err := iamrole.New(clients.IAM, clients.STS, a.cfg.Role.PolicyARN).EnsureRole(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), arn)
			return nil
		},
	})

	return cmd
}
