package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"golang.org/x/time/rate"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
	promexp "github.com/AltairaLabs/PromptFlow/runtime/metrics/prometheus"
)

// prepare starts preparation of the working draft and waits for it to
// reach Prepared.
func (m *Manager) prepare(ctx context.Context, flowID string) (err error) {
	start := time.Now()
	defer func() {
		status := promexp.StatusSuccess
		if err != nil {
			status = promexp.StatusError
		}
		promexp.RecordPrepare(status, time.Since(start).Seconds())
	}()

	logger.Step(ctx, "Preparing the flow...")
	prepared, err := m.client.PrepareFlow(ctx, &bedrockagent.PrepareFlowInput{
		FlowIdentifier: aws.String(flowID),
	})
	if err != nil {
		return pkgerrors.FromAWS(pkgerrors.ComponentFlow, "PrepareFlow", err)
	}
	logger.DebugContext(ctx, "Prepare started", "status", string(prepared.Status))

	logger.Step(ctx, "Getting the flow status...")
	return m.waitPrepared(ctx, flowID)
}

// waitPrepared polls GetFlow, paced by a rate limiter, until the flow is
// Prepared, preparation Failed, or PrepareTimeout elapses.
func (m *Manager) waitPrepared(ctx context.Context, flowID string) error {
	ctx, cancel := context.WithTimeout(ctx, m.prepareTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(m.pollInterval), 1)
	for polls := 0; ; polls++ {
		if err := limiter.Wait(ctx); err != nil {
			return pkgerrors.New(pkgerrors.ComponentFlow, "WaitPrepared",
				fmt.Errorf("flow %s not prepared within %s: %w", flowID, m.prepareTimeout, err)).
				WithDetails(map[string]any{"polls": polls})
		}

		out, err := m.client.GetFlow(ctx, &bedrockagent.GetFlowInput{FlowIdentifier: aws.String(flowID)})
		if err != nil {
			return pkgerrors.FromAWS(pkgerrors.ComponentFlow, "GetFlow", err)
		}

		switch out.Status {
		case types.FlowStatusPrepared:
			logger.Step(ctx, fmt.Sprintf("Status: %s", out.Status))
			return nil
		case types.FlowStatusFailed:
			messages := validationMessages(out.Validations)
			return pkgerrors.New(pkgerrors.ComponentFlow, "WaitPrepared",
				fmt.Errorf("flow %s failed to prepare: %s", flowID, strings.Join(messages, "; "))).
				WithDetails(map[string]any{"validations": messages})
		default:
			logger.DebugContext(ctx, "Flow not prepared yet", "status", string(out.Status), "poll", polls)
		}
	}
}

func validationMessages(validations []types.FlowValidation) []string {
	if len(validations) == 0 {
		return []string{"no validation details"}
	}
	msgs := make([]string, 0, len(validations))
	for _, v := range validations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Severity, aws.ToString(v.Message)))
	}
	return msgs
}
