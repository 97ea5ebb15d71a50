package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const functionARN = "arn:aws:lambda:us-west-2:123456789012:function:cost-report"

type fakeEvents struct {
	calls   []string
	rule    *eventbridge.PutRuleInput
	targets *eventbridge.PutTargetsInput
	ruleARN *string

	removeErr   error
	deleteErr   error
	describeErr error
	describe    *eventbridge.DescribeRuleOutput
	listed      int
}

func (f *fakeEvents) PutRule(_ context.Context, in *eventbridge.PutRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	f.calls = append(f.calls, "PutRule")
	f.rule = in
	return &eventbridge.PutRuleOutput{RuleArn: f.ruleARN}, nil
}

func (f *fakeEvents) PutTargets(_ context.Context, in *eventbridge.PutTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	f.calls = append(f.calls, "PutTargets")
	f.targets = in
	return &eventbridge.PutTargetsOutput{}, nil
}

func (f *fakeEvents) RemoveTargets(_ context.Context, _ *eventbridge.RemoveTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error) {
	f.calls = append(f.calls, "RemoveTargets")
	return &eventbridge.RemoveTargetsOutput{}, f.removeErr
}

func (f *fakeEvents) DeleteRule(_ context.Context, _ *eventbridge.DeleteRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error) {
	f.calls = append(f.calls, "DeleteRule")
	return &eventbridge.DeleteRuleOutput{}, f.deleteErr
}

func (f *fakeEvents) DescribeRule(_ context.Context, _ *eventbridge.DescribeRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.DescribeRuleOutput, error) {
	f.calls = append(f.calls, "DescribeRule")
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.describe, nil
}

func (f *fakeEvents) ListTargetsByRule(_ context.Context, _ *eventbridge.ListTargetsByRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error) {
	f.calls = append(f.calls, "ListTargetsByRule")
	return &eventbridge.ListTargetsByRuleOutput{Targets: make([]ebtypes.Target, f.listed)}, nil
}

type fakePermissions struct {
	input *lambda.AddPermissionInput
	err   error
}

func (f *fakePermissions) AddPermission(_ context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &lambda.AddPermissionOutput{}, nil
}

type fakeIdentity struct {
	called bool
}

func (f *fakeIdentity) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.called = true
	return &sts.GetCallerIdentityOutput{Account: aws.String("999999999999")}, nil
}

func newTestManager(events *fakeEvents, perms *fakePermissions, cfg Config) *Manager {
	return NewManager(events, perms, &fakeIdentity{}, cfg, nil)
}

func TestHandle_Create(t *testing.T) {
	events := &fakeEvents{}
	perms := &fakePermissions{}
	m := newTestManager(events, perms, Config{Region: "us-west-2"})

	resp := m.Handle(context.Background(), Request{Action: ActionCreate, IntervalMinutes: 15, LambdaARN: functionARN})

	require.Equal(t, StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, "cost-report-schedule-dynamic", resp.RuleName)
	assert.Equal(t, "rate(15 minutes)", resp.ScheduleExpression)
	assert.Equal(t, []string{"PutRule", "PutTargets"}, events.calls)

	assert.Equal(t, ebtypes.RuleStateEnabled, events.rule.State)

	require.Len(t, events.targets.Targets, 1)
	target := events.targets.Targets[0]
	assert.Equal(t, "cost-report-target", aws.ToString(target.Id))
	assert.Equal(t, functionARN, aws.ToString(target.Arn))

	var input TargetInput
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(target.Input)), &input))
	assert.Equal(t, TargetInput{ReportIntervalMinutes: 15, Source: "eventbridge-dynamic"}, input)

	require.NotNil(t, perms.input)
	assert.Equal(t, "EventBridge-cost-report-schedule-dynamic", aws.ToString(perms.input.StatementId))
	assert.Equal(t, "events.amazonaws.com", aws.ToString(perms.input.Principal))
	assert.Equal(t, "arn:aws:events:us-west-2:123456789012:rule/cost-report-schedule-dynamic", aws.ToString(perms.input.SourceArn))
}

func TestHandle_CreateUsesReturnedRuleARN(t *testing.T) {
	events := &fakeEvents{ruleARN: aws.String("arn:aws:events:eu-west-1:1:rule/x")}
	perms := &fakePermissions{}
	m := newTestManager(events, perms, Config{})

	resp := m.Handle(context.Background(), Request{Action: ActionUpdate, IntervalMinutes: 1, RuleName: "x", LambdaARN: functionARN})

	require.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "rate(1 minute)", resp.ScheduleExpression)
	assert.Equal(t, "arn:aws:events:eu-west-1:1:rule/x", aws.ToString(perms.input.SourceArn))
}

func TestHandle_PermissionAlreadyExists(t *testing.T) {
	perms := &fakePermissions{err: &lambdatypes.ResourceConflictException{Message: aws.String("exists")}}
	m := newTestManager(&fakeEvents{}, perms, Config{})

	resp := m.Handle(context.Background(), Request{Action: ActionCreate, IntervalMinutes: 5, LambdaARN: functionARN})
	assert.Equal(t, StatusSuccess, resp.Status)
}

func TestHandle_PermissionFailure(t *testing.T) {
	perms := &fakePermissions{err: errors.New("access denied")}
	m := newTestManager(&fakeEvents{}, perms, Config{})

	resp := m.Handle(context.Background(), Request{Action: ActionCreate, IntervalMinutes: 5, LambdaARN: functionARN})
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "access denied")
}

func TestHandle_CreateRejectsBadInput(t *testing.T) {
	events := &fakeEvents{}
	m := newTestManager(events, &fakePermissions{}, Config{})

	resp := m.Handle(context.Background(), Request{Action: ActionCreate, IntervalMinutes: -5, LambdaARN: functionARN})
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, ErrInvalidInterval.Error())

	resp = m.Handle(context.Background(), Request{Action: ActionCreate, IntervalMinutes: 5})
	assert.Equal(t, StatusError, resp.Status)
	assert.Empty(t, events.calls)
}

func TestHandle_DefaultInterval(t *testing.T) {
	m := newTestManager(&fakeEvents{}, &fakePermissions{}, Config{DefaultInterval: 30})

	resp := m.Handle(context.Background(), Request{LambdaARN: functionARN})
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "rate(30 minutes)", resp.ScheduleExpression)
}

func TestHandle_Delete(t *testing.T) {
	tests := []struct {
		name      string
		removeErr error
		deleteErr error
		status    string
	}{
		{name: "existing", status: StatusSuccess},
		{
			name:      "already gone",
			removeErr: &ebtypes.ResourceNotFoundException{Message: aws.String("no rule")},
			deleteErr: &ebtypes.ResourceNotFoundException{Message: aws.String("no rule")},
			status:    StatusSuccess,
		},
		{name: "delete fails", deleteErr: errors.New("throttled"), status: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeEvents{removeErr: tt.removeErr, deleteErr: tt.deleteErr}
			m := newTestManager(events, &fakePermissions{}, Config{})

			resp := m.Handle(context.Background(), Request{Action: ActionDelete})

			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, []string{"RemoveTargets", "DeleteRule"}, events.calls)
		})
	}
}

func TestHandle_Query(t *testing.T) {
	events := &fakeEvents{
		describe: &eventbridge.DescribeRuleOutput{
			ScheduleExpression: aws.String("rate(2 hours)"),
			State:              ebtypes.RuleStateEnabled,
		},
		listed: 1,
	}
	m := newTestManager(events, &fakePermissions{}, Config{})

	resp := m.Handle(context.Background(), Request{Action: ActionQuery})

	require.Equal(t, StatusSuccess, resp.Status)
	require.NotNil(t, resp.Schedule)
	assert.Equal(t, Schedule{
		RuleExists:         true,
		IntervalMinutes:    120,
		State:              "ENABLED",
		ScheduleExpression: "rate(2 hours)",
		Targets:            1,
	}, *resp.Schedule)
}

func TestHandle_QueryMissingRule(t *testing.T) {
	events := &fakeEvents{describeErr: &ebtypes.ResourceNotFoundException{Message: aws.String("missing")}}
	m := newTestManager(events, &fakePermissions{}, Config{})

	resp := m.Handle(context.Background(), Request{Action: ActionQuery})

	require.Equal(t, StatusSuccess, resp.Status)
	assert.False(t, resp.Schedule.RuleExists)
	assert.Equal(t, "Schedule does not exist", resp.Message)
}

func TestHandle_UnknownAction(t *testing.T) {
	events := &fakeEvents{}
	m := newTestManager(events, &fakePermissions{}, Config{})

	resp := m.Handle(context.Background(), Request{Action: "pause"})

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "unknown action")
	assert.Empty(t, events.calls)
}

func TestAccountID_FallsBackToSTS(t *testing.T) {
	identity := &fakeIdentity{}
	m := NewManager(&fakeEvents{}, &fakePermissions{}, identity, Config{}, nil)

	assert.Equal(t, "999999999999", m.accountID(context.Background(), "not-an-arn"))
	assert.True(t, identity.called)

	m = NewManager(&fakeEvents{}, &fakePermissions{}, identity, Config{AccountID: "42"}, nil)
	assert.Equal(t, "42", m.accountID(context.Background(), functionARN))
}

func TestResolveFunctionARN(t *testing.T) {
	invoked := "arn:aws:lambda:us-east-1:1:function:dynamic-scheduler"

	assert.Equal(t, "req", ResolveFunctionARN("req", "cfg", invoked))
	assert.Equal(t, "cfg", ResolveFunctionARN("", "cfg", invoked))
	assert.Equal(t, "arn:aws:lambda:us-east-1:1:function:cost-report", ResolveFunctionARN("", "", invoked))
	assert.Empty(t, ResolveFunctionARN("", "", ""))
}
