package scheduler

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// EventsAPI is the subset of the EventBridge client used by Manager
type EventsAPI interface {
	PutRule(ctx context.Context, params *eventbridge.PutRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, params *eventbridge.PutTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error)
	RemoveTargets(ctx context.Context, params *eventbridge.RemoveTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error)
	DeleteRule(ctx context.Context, params *eventbridge.DeleteRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error)
	DescribeRule(ctx context.Context, params *eventbridge.DescribeRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DescribeRuleOutput, error)
	ListTargetsByRule(ctx context.Context, params *eventbridge.ListTargetsByRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error)
}

// PermissionAPI grants the scheduler principal permission to invoke the function
type PermissionAPI interface {
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// IdentityAPI resolves the account the manager runs in
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Action is a schedule request verb
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionQuery  Action = "query"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	ErrInvalidAction   = errors.New("unknown action")
	ErrInvalidInterval = errors.New("interval_minutes must be at least 1")
	ErrMissingTarget   = errors.New("no target function ARN could be resolved")
)

// Request is the schedule entry point payload
type Request struct {
	Action          Action `json:"action"`
	IntervalMinutes int    `json:"interval_minutes,omitempty"`
	RuleName        string `json:"rule_name,omitempty"`
	LambdaARN       string `json:"lambda_arn,omitempty"`
}

// Response is returned for every request, including rejected ones
type Response struct {
	Status             string    `json:"status"`
	Message            string    `json:"message"`
	RuleName           string    `json:"rule_name,omitempty"`
	ScheduleExpression string    `json:"schedule_expression,omitempty"`
	Schedule           *Schedule `json:"schedule,omitempty"`
}

// Schedule is the current state of the remote rule
type Schedule struct {
	RuleExists         bool   `json:"rule_exists"`
	IntervalMinutes    int    `json:"interval_minutes,omitempty"`
	State              string `json:"state,omitempty"`
	ScheduleExpression string `json:"schedule_expression,omitempty"`
	Targets            int    `json:"targets"`
}

// TargetInput is the JSON payload the rule passes to the reporting function
type TargetInput struct {
	ReportIntervalMinutes int    `json:"report_interval_minutes"`
	Source                string `json:"source"`
}

// Config holds manager defaults
type Config struct {
	RuleName        string
	TargetID        string
	Region          string
	AccountID       string
	DefaultInterval int
}
