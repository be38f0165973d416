package flow

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
)

// AliasVersion returns the flow version the alias currently routes to.
func (m *Manager) AliasVersion(ctx context.Context, flowID, aliasID string) (string, error) {
	out, err := m.client.GetFlowAlias(ctx, &bedrockagent.GetFlowAliasInput{
		FlowIdentifier:  aws.String(flowID),
		AliasIdentifier: aws.String(aliasID),
	})
	if err != nil {
		return "", pkgerrors.FromAWS(pkgerrors.ComponentFlow, "GetFlowAlias", err)
	}
	for _, route := range out.RoutingConfiguration {
		if v := aws.ToString(route.FlowVersion); v != "" {
			return v, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.ComponentFlow, "GetFlowAlias",
		fmt.Errorf("alias %s of flow %s has no routing", aliasID, flowID))
}
