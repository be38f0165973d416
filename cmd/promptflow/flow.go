package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/spf13/cobra"

	"github.com/AltairaLabs/PromptFlow/runtime/flow"
	"github.com/AltairaLabs/PromptFlow/runtime/invoke"
)

func newFlowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Create, update and invoke the prompt flow",
	}
	cmd.AddCommand(newFlowCreateCmd(a), newFlowUpdateCmd(a), newFlowInvokeCmd(a), newFlowAliasCmd(a))
	return cmd
}

func (a *app) flowManager(cmd *cobra.Command, withRecords bool) (*flow.Manager, error) {
	clients, err := a.awsClients(cmd.Context())
	if err != nil {
		return nil, err
	}
	var opts []flow.Option
	if withRecords {
		store, err := a.store(cmd.Context())
		if err != nil {
			return nil, err
		}
		opts = append(opts, flow.WithRecords(store))
	}
	return flow.NewManager(clients.BedrockAgent, a.cfg.Flow, opts...), nil
}

func newFlowCreateCmd(a *app) *cobra.Command {
	var req flow.CreateRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the flow, publish version 1 and create its alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.flowManager(cmd, false)
			if err != nil {
				return err
			}
			dep, err := m.CreateAndPublish(cmd.Context(), req)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Flow ID: %s\n", dep.FlowID)
			fmt.Fprintf(w, "Alias ID: %s\n", dep.AliasID)
			fmt.Fprintf(w, "Version: %s\n", dep.Version)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "Flow name")
	f.StringVar(&req.Description, "description", "", "Flow description")
	f.StringVar(&req.PromptArn, "prompt-arn", "", "Prompt ARN (unversioned)")
	f.StringVar(&req.RoleArn, "role-arn", "", "Flow execution role ARN")
	f.StringVar(&req.AliasName, "alias-name", "", "Alias name (defaults to the flow name)")
	f.StringVar(&req.AliasDescription, "alias-description", "", "Alias description")
	for _, name := range []string{"name", "prompt-arn", "role-arn"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newFlowUpdateCmd(a *app) *cobra.Command {
	var req flow.UpdateRequest
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Publish an approved prompt version through the flow alias",
		Long: `Reads the status of the prompt record (--id, --version). Only when it is
exactly "Approved" is the flow pointed at <prompt-arn>:<version>, prepared,
published as a new version and the alias re-routed to it. Any other status
leaves the flow untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.flowManager(cmd, true)
			if err != nil {
				return err
			}
			res, err := m.ConditionallyUpdate(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.FlowID, "flow-id", "", "Flow id")
	f.StringVar(&req.AliasID, "alias-id", "", "Flow alias id")
	f.StringVar(&req.PromptArn, "prompt-arn", "", "Prompt ARN (unversioned)")
	f.StringVar(&req.PromptID, "id", "", "Prompt record id")
	f.StringVar(&req.PromptVersion, "version", "", "Prompt version")
	f.StringVar(&req.Name, "name", "", "Flow name")
	f.StringVar(&req.Description, "description", "", "Flow description")
	f.StringVar(&req.RoleArn, "role-arn", "", "Flow execution role ARN")
	f.StringVar(&req.AliasName, "alias-name", "", "Alias name (defaults to the flow name)")
	f.StringVar(&req.AliasDescription, "alias-description", "", "Alias description")
	for _, name := range []string{"flow-id", "alias-id", "prompt-arn", "id", "version", "name", "role-arn"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newFlowInvokeCmd(a *app) *cobra.Command {
	var flowID, aliasID, replay, capture string
	cmd := &cobra.Command{
		Use:   "invoke <input>",
		Short: "Invoke the flow alias and print its output",
		Long: `Sends the input to the flow's input node and prints the document of the
flow output event.

--capture writes the response event stream to a file; --replay reads a
captured stream instead of calling the service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opener, cleanup, err := a.opener(cmd, replay, capture)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := invoke.NewInvoker(opener).Invoke(cmd.Context(), flowID, aliasID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flowID, "flow-id", "", "Flow id")
	f.StringVar(&aliasID, "alias-id", "", "Flow alias id")
	f.StringVar(&replay, "replay", "", "Replay a captured event stream file")
	f.StringVar(&capture, "capture", "", "Write the response event stream to this file")
	cmd.MarkFlagsMutuallyExclusive("replay", "capture")
	return cmd
}

func (a *app) opener(cmd *cobra.Command, replay, capture string) (invoke.Opener, func(), error) {
	if replay != "" {
		f, err := os.Open(replay)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open replay file: %w", err)
		}
		return invoke.NewReplayOpener(f), func() { _ = f.Close() }, nil
	}

	clients, err := a.awsClients(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	live := invoke.NewSDKOpener(clients.BedrockAgentRuntime)
	if capture == "" {
		return live, func() {}, nil
	}

	f, err := os.Create(capture)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	recording := invoke.OpenerFunc(func(ctx context.Context, in *bedrockagentruntime.InvokeFlowInput) (invoke.EventReader, error) {
		r, err := live.Open(ctx, in)
		if err != nil {
			return nil, err
		}
		return invoke.NewRecordingReader(r, f), nil
	})
	return recording, func() { _ = f.Close() }, nil
}

func newFlowAliasCmd(a *app) *cobra.Command {
	var flowID, aliasID string
	cmd := &cobra.Command{
		Use:   "alias-version",
		Short: "Print the flow version an alias routes to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.flowManager(cmd, false)
			if err != nil {
				return err
			}
			v, err := m.AliasVersion(cmd.Context(), flowID, aliasID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().StringVar(&flowID, "flow-id", "", "Flow id")
	cmd.Flags().StringVar(&aliasID, "alias-id", "", "Flow alias id")
	_ = cmd.MarkFlagRequired("flow-id")
	_ = cmd.MarkFlagRequired("alias-id")
	return cmd
}
