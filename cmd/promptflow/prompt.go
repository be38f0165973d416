package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/PromptFlow/runtime/records"
)

func newPromptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Store prompt versions and manage their approval status",
	}
	cmd.AddCommand(newPromptPutCmd(a), newPromptStatusCmd(a), newPromptApproveCmd(a))
	return cmd
}

func newPromptPutCmd(a *app) *cobra.Command {
	var id, name, version, text string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a prompt version with status Pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := reg.Submit(cmd.Context(), id, name, version, text)
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Prompt id")
	cmd.Flags().StringVar(&name, "name", "", "Prompt name")
	cmd.Flags().StringVar(&version, "version", "", "Prompt version")
	cmd.Flags().StringVar(&text, "text", "", "Prompt text")
	for _, f := range []string{"id", "version"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newPromptStatusCmd(a *app) *cobra.Command {
	var id, version string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the approval status of a prompt version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			lookup := records.GetStatus(cmd.Context(), store, id, version)
			if lookup.Result == records.Unavailable {
				return fmt.Errorf("error retrieving prompt status: %w", lookup.Err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), lookup.Observed())
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Prompt id")
	cmd.Flags().StringVar(&version, "version", "", "Prompt version")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newPromptApproveCmd(a *app) *cobra.Command {
	var id, version, status string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Set the approval status of a prompt version",
		Long: `Sets the status of an existing prompt record. Only the exact value
"Approved" lets "flow update" publish the prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			if err := reg.SetStatus(cmd.Context(), id, version, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt '%s' (version %s) status set to '%s'.\n", id, version, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Prompt id")
	cmd.Flags().StringVar(&version, "version", "", "Prompt version")
	cmd.Flags().StringVar(&status, "status", records.StatusApproved, "Status to set")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
