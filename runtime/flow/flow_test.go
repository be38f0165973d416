package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/lifecycle"
	"github.com/AltairaLabs/PromptFlow/runtime/records"
)

const (
	testPromptArn = "arn:aws:bedrock:us-west-2:123456789012:prompt/PROMPT1234"
	testRoleArn   = "arn:aws:iam::123456789012:role/MyBedrockFlowsRole"
)

var testFlowConfig = config.FlowConfig{
	PrepareTimeout: time.Second,
	PollInterval:   time.Millisecond,
}

func newTestManager(agent AgentAPI, opts ...Option) *Manager {
	n := 0
	opts = append([]Option{WithTokenFunc(func() string {
		n++
		return fmt.Sprintf("token-%d", n)
	})}, opts...)
	return NewManager(agent, testFlowConfig, opts...)
}

func createRequest() CreateRequest {
	return CreateRequest{
		Name:        "demo-flow",
		Description: "demo flow",
		PromptArn:   testPromptArn,
		RoleArn:     testRoleArn,
	}
}

func updateRequest(dep *Deployment, version string) UpdateRequest {
	return UpdateRequest{
		FlowID:        dep.FlowID,
		AliasID:       dep.AliasID,
		PromptArn:     testPromptArn,
		PromptID:      "p1",
		PromptVersion: version,
		Name:          "demo-flow",
		RoleArn:       testRoleArn,
	}
}

type brokenStore struct{ err error }

func (b brokenStore) Put(context.Context, *records.Record) error { return b.err }
func (b brokenStore) Get(context.Context, records.Key) (*records.Record, error) {
	return nil, b.err
}
func (b brokenStore) SetStatus(context.Context, records.Key, string, time.Time) error {
	return b.err
}

func TestCreateAndPublish(t *testing.T) {
	agent := newFakeAgent()
	m := newTestManager(agent)

	dep, err := m.CreateAndPublish(context.Background(), createRequest())
	require.NoError(t, err)

	assert.Equal(t, "FLOW123456", dep.FlowID)
	assert.Equal(t, "ALIAS00001", dep.AliasID)
	assert.Equal(t, "1", dep.Version)
	assert.Equal(t, []string{"CreateFlow", "PrepareFlow", "GetFlow", "CreateFlowVersion", "CreateFlowAlias"}, agent.Calls())
	assert.Equal(t, testPromptArn, agent.promptArnOf())
	assert.Equal(t, []string{"token-1"}, agent.tokens)

	require.Len(t, dep.History, 4)
	assert.Equal(t, lifecycle.StateUnbuilt, dep.History[0].From)
	assert.Equal(t, lifecycle.StateAliased, dep.History[3].To)

	version, err := m.AliasVersion(context.Background(), dep.FlowID, dep.AliasID)
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestCreateAndPublish_PollsUntilPrepared(t *testing.T) {
	agent := newFakeAgent()
	agent.statuses = []types.FlowStatus{
		types.FlowStatusNotPrepared, types.FlowStatusPreparing, types.FlowStatusPrepared,
	}
	m := newTestManager(agent)

	_, err := m.CreateAndPublish(context.Background(), createRequest())
	require.NoError(t, err)

	gets := 0
	for _, c := range agent.Calls() {
		if c == "GetFlow" {
			gets++
		}
	}
	assert.Equal(t, 3, gets)
}

func TestCreateAndPublish_FailedPrepareAbortsBeforeVersion(t *testing.T) {
	agent := newFakeAgent()
	agent.statuses = []types.FlowStatus{types.FlowStatusFailed}
	agent.validation = []types.FlowValidation{{
		Message:  aws.String("Prompt_1 references a prompt that does not exist"),
		Severity: types.FlowValidationSeverityError,
	}}
	m := newTestManager(agent)

	dep, err := m.CreateAndPublish(context.Background(), createRequest())
	require.Error(t, err)
	assert.Nil(t, dep)
	assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
	assert.Equal(t, "WaitPrepared", pkgerrors.Step(err))
	assert.Contains(t, err.Error(), "does not exist")
	assert.NotContains(t, agent.Calls(), "CreateFlowVersion")
	assert.NotContains(t, agent.Calls(), "CreateFlowAlias")
}

func TestCreateAndPublish_PrepareTimeout(t *testing.T) {
	agent := newFakeAgent()
	agent.statuses = []types.FlowStatus{types.FlowStatusPreparing}
	m := NewManager(agent, config.FlowConfig{
		PrepareTimeout: 30 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	})

	_, err := m.CreateAndPublish(context.Background(), createRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
	assert.NotContains(t, agent.Calls(), "CreateFlowVersion")
}

func TestCreateAndPublish_StepFailures(t *testing.T) {
	for _, step := range []string{"CreateFlow", "PrepareFlow", "GetFlow", "CreateFlowVersion", "CreateFlowAlias"} {
		t.Run(step, func(t *testing.T) {
			agent := newFakeAgent()
			agent.errs[step] = errors.New("throttled")
			m := newTestManager(agent)

			_, err := m.CreateAndPublish(context.Background(), createRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
			assert.Equal(t, step, pkgerrors.Step(err))

			calls := agent.Calls()
			assert.Equal(t, step, calls[len(calls)-1], "no call after the failed step")
		})
	}
}

func TestCreateAndPublish_InvalidRequest(t *testing.T) {
	agent := newFakeAgent()
	m := newTestManager(agent)

	req := createRequest()
	req.RoleArn = "MyBedrockFlowsRole"
	_, err := m.CreateAndPublish(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
	assert.Empty(t, agent.Calls())
}

func TestConditionallyUpdate_BlockedStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status *string
		want   string
	}{
		{"lowercase approved", aws.String("approved"), "approved"},
		{"uppercase approved", aws.String("APPROVED"), "APPROVED"},
		{"padded approved", aws.String(" Approved"), " Approved"},
		{"empty", aws.String(""), ""},
		{"pending", aws.String(records.StatusPending), records.StatusPending},
		{"rejected", aws.String(records.StatusRejected), records.StatusRejected},
		{"absent record", nil, "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := records.NewMemoryStore()
			if tt.status != nil {
				rec := records.NewRecord(records.Key{PromptID: "p1", Version: "1"}, "demo", "text", time.Now())
				rec.Status = *tt.status
				require.NoError(t, store.Put(ctx, rec))
			}
			agent := newFakeAgent()
			m := newTestManager(agent, WithRecords(store))

			res, err := m.ConditionallyUpdate(ctx, updateRequest(&Deployment{FlowID: "FLOW123456", AliasID: "ALIAS00001"}, "1"))
			require.NoError(t, err)

			assert.False(t, res.Updated)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, fmt.Sprintf("Prompt status is '%s'. Flow not updated.", tt.want), res.Message)
			assert.Empty(t, agent.Calls(), "blocked update must not touch the flow")
			assert.Nil(t, agent.definition)
		})
	}
}

func TestConditionallyUpdate_NonNumericVersionRejectedBeforeGate(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemoryStore()
	rec := records.NewRecord(records.Key{PromptID: "p1", Version: "v1"}, "demo", "text", time.Now())
	rec.Status = records.StatusApproved
	require.NoError(t, store.Put(ctx, rec))

	agent := newFakeAgent()
	m := newTestManager(agent, WithRecords(store))

	res, err := m.ConditionallyUpdate(ctx, updateRequest(&Deployment{FlowID: "FLOW123456", AliasID: "ALIAS00001"}, "v1"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
	assert.Contains(t, err.Error(), "PromptVersion")
	assert.Empty(t, agent.Calls())
}

func TestConditionallyUpdate_StoreUnavailable(t *testing.T) {
	agent := newFakeAgent()
	m := newTestManager(agent, WithRecords(brokenStore{err: errors.New("connection refused")}))

	res, err := m.ConditionallyUpdate(context.Background(),
		updateRequest(&Deployment{FlowID: "FLOW123456", AliasID: "ALIAS00001"}, "1"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, pkgerrors.ErrStorage)
	assert.False(t, errors.Is(err, records.ErrNotFound))
	assert.Empty(t, agent.Calls())
}

func TestConditionallyUpdate_NoStore(t *testing.T) {
	m := newTestManager(newFakeAgent())

	_, err := m.ConditionallyUpdate(context.Background(),
		updateRequest(&Deployment{FlowID: "FLOW123456", AliasID: "ALIAS00001"}, "1"))
	assert.ErrorIs(t, err, pkgerrors.ErrConfig)
}

func TestConditionallyUpdate_ApprovedReroutesAlias(t *testing.T) {
	ctx := context.Background()
	agent := newFakeAgent()
	store := records.NewMemoryStore()
	registry := records.NewRegistry(store)
	m := newTestManager(agent, WithRecords(store))

	dep, err := m.CreateAndPublish(ctx, createRequest())
	require.NoError(t, err)

	_, err = registry.Submit(ctx, "p1", "v1", "1", "Approved-looking text")
	require.NoError(t, err)
	assert.Equal(t, records.StatusPending, records.GetStatus(ctx, store, "p1", "1").Status)

	// Text that merely looks approved does not unlock the gate.
	res, err := m.ConditionallyUpdate(ctx, updateRequest(dep, "1"))
	require.NoError(t, err)
	assert.False(t, res.Updated)

	require.NoError(t, registry.SetStatus(ctx, "p1", "1", records.StatusApproved))

	before, err := m.AliasVersion(ctx, dep.FlowID, dep.AliasID)
	require.NoError(t, err)
	assert.Equal(t, "1", before)

	res, err = m.ConditionallyUpdate(ctx, updateRequest(dep, "1"))
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, records.StatusApproved, res.Status)
	assert.Equal(t, "2", res.Version)
	assert.Equal(t, testPromptArn+":1", agent.promptArnOf())
	require.Len(t, res.History, 4)
	assert.Equal(t, lifecycle.EventUpdate, res.History[0].Event)

	after, err := m.AliasVersion(ctx, dep.FlowID, dep.AliasID)
	require.NoError(t, err)
	assert.Equal(t, "2", after)

	calls := agent.Calls()
	assert.Equal(t, []string{
		"UpdateFlow", "PrepareFlow", "GetFlow", "CreateFlowVersion", "UpdateFlowAlias", "GetFlowAlias",
	}, calls[len(calls)-6:])
}

func TestConditionallyUpdate_AliasFailureLeavesOldRouting(t *testing.T) {
	ctx := context.Background()
	agent := newFakeAgent()
	store := records.NewMemoryStore()
	m := newTestManager(agent, WithRecords(store))

	dep, err := m.CreateAndPublish(ctx, createRequest())
	require.NoError(t, err)

	rec := records.NewRecord(records.Key{PromptID: "p1", Version: "2"}, "demo", "text", time.Now())
	rec.Status = records.StatusApproved
	require.NoError(t, store.Put(ctx, rec))

	agent.errs["UpdateFlowAlias"] = errors.New("conflict")
	_, err = m.ConditionallyUpdate(ctx, updateRequest(dep, "2"))
	require.Error(t, err)
	assert.Equal(t, "UpdateFlowAlias", pkgerrors.Step(err))

	// The new version exists but nothing is rolled back or re-routed.
	assert.Equal(t, 2, agent.versions)
	version, err := m.AliasVersion(ctx, dep.FlowID, dep.AliasID)
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestAliasVersion_Errors(t *testing.T) {
	m := newTestManager(newFakeAgent())

	_, err := m.AliasVersion(context.Background(), "FLOW123456", "MISSING")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrWorkflow)
	assert.Equal(t, "GetFlowAlias", pkgerrors.Step(err))
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(newFakeAgent(), config.FlowConfig{})
	assert.Equal(t, config.DefaultPrepareTimeout, m.prepareTimeout)
	assert.Equal(t, config.DefaultPollInterval, m.pollInterval)
}
