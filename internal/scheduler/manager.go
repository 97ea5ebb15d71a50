// Package scheduler provisions the EventBridge rule that invokes the
// reporting function on a fixed interval.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
)

const (
	schedulerPrincipal = "events.amazonaws.com"
	targetSource       = "eventbridge-dynamic"
)

// Manager creates, updates, deletes and queries one schedule rule at a time
type Manager struct {
	events      EventsAPI
	permissions PermissionAPI
	identity    IdentityAPI
	config      Config
	logger      *zap.Logger
}

// NewManager creates a schedule manager
func NewManager(events EventsAPI, permissions PermissionAPI, identity IdentityAPI, cfg Config, logger *zap.Logger) *Manager {
	if cfg.RuleName == "" {
		cfg.RuleName = "cost-report-schedule-dynamic"
	}
	if cfg.TargetID == "" {
		cfg.TargetID = "cost-report-target"
	}
	if cfg.DefaultInterval < 1 {
		cfg.DefaultInterval = defaultQueryInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		events:      events,
		permissions: permissions,
		identity:    identity,
		config:      cfg,
		logger:      logger,
	}
}

// NewFromConfig builds a manager on SDK clients
func NewFromConfig(awsCfg aws.Config, cfg Config, logger *zap.Logger) *Manager {
	if cfg.Region == "" {
		cfg.Region = awsCfg.Region
	}
	return NewManager(
		eventbridge.NewFromConfig(awsCfg),
		lambda.NewFromConfig(awsCfg),
		sts.NewFromConfig(awsCfg),
		cfg,
		logger,
	)
}

// Handle runs a request and reports the result. Failures never escape as
// errors; they come back with status "error".
func (m *Manager) Handle(ctx context.Context, req Request) Response {
	rule := req.RuleName
	if rule == "" {
		rule = m.config.RuleName
	}

	action := req.Action
	if action == "" {
		action = ActionCreate
	}

	m.logger.Info("Schedule request",
		zap.String("action", string(action)),
		zap.String("rule", rule),
		zap.Int("interval_minutes", req.IntervalMinutes),
	)

	switch action {
	case ActionCreate, ActionUpdate:
		interval := req.IntervalMinutes
		if interval == 0 {
			interval = m.config.DefaultInterval
		}

		expr, err := m.Apply(ctx, rule, interval, req.LambdaARN)
		if err != nil {
			return m.failure(rule, err)
		}
		return Response{
			Status:             StatusSuccess,
			Message:            fmt.Sprintf("Schedule updated to every %d minutes", interval),
			RuleName:           rule,
			ScheduleExpression: expr,
		}

	case ActionDelete:
		if err := m.Delete(ctx, rule); err != nil {
			return m.failure(rule, err)
		}
		return Response{Status: StatusSuccess, Message: "Schedule deleted", RuleName: rule}

	case ActionQuery:
		schedule, err := m.Query(ctx, rule)
		if err != nil {
			return m.failure(rule, err)
		}
		msg := "Schedule does not exist"
		if schedule.RuleExists {
			msg = fmt.Sprintf("Schedule runs every %d minutes", schedule.IntervalMinutes)
		}
		return Response{
			Status:             StatusSuccess,
			Message:            msg,
			RuleName:           rule,
			ScheduleExpression: schedule.ScheduleExpression,
			Schedule:           &schedule,
		}

	default:
		return m.failure(rule, fmt.Errorf("%w: %s", ErrInvalidAction, action))
	}
}

// Apply upserts the rule, its single target and the invoke permission
func (m *Manager) Apply(ctx context.Context, rule string, intervalMinutes int, functionARN string) (string, error) {
	if intervalMinutes < 1 {
		return "", ErrInvalidInterval
	}
	if functionARN == "" {
		return "", ErrMissingTarget
	}

	expr := RateExpression(intervalMinutes)

	ruleOut, err := m.events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(rule),
		ScheduleExpression: aws.String(expr),
		State:              ebtypes.RuleStateEnabled,
		Description:        aws.String(fmt.Sprintf("Cost report every %d minutes", intervalMinutes)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put rule %s: %w", rule, err)
	}
	m.logger.Info("Upserted schedule rule", zap.String("rule", rule), zap.String("expression", expr))

	input, err := json.Marshal(TargetInput{ReportIntervalMinutes: intervalMinutes, Source: targetSource})
	if err != nil {
		return "", fmt.Errorf("failed to encode target input: %w", err)
	}

	targetsOut, err := m.events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(rule),
		Targets: []ebtypes.Target{{
			Id:    aws.String(m.config.TargetID),
			Arn:   aws.String(functionARN),
			Input: aws.String(string(input)),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put target on %s: %w", rule, err)
	}
	if targetsOut != nil && targetsOut.FailedEntryCount > 0 {
		reason := "unknown"
		if len(targetsOut.FailedEntries) > 0 {
			reason = aws.ToString(targetsOut.FailedEntries[0].ErrorMessage)
		}
		return "", fmt.Errorf("target rejected on %s: %s", rule, reason)
	}
	m.logger.Info("Upserted schedule target", zap.String("target", functionARN))

	ruleARN := ""
	if ruleOut != nil {
		ruleARN = aws.ToString(ruleOut.RuleArn)
	}
	if ruleARN == "" {
		ruleARN = m.ruleARN(ctx, rule, functionARN)
	}

	_, err = m.permissions.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(functionARN),
		StatementId:  aws.String("EventBridge-" + rule),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String(schedulerPrincipal),
		SourceArn:    aws.String(ruleARN),
	})
	var conflict *lambdatypes.ResourceConflictException
	switch {
	case errors.As(err, &conflict):
		m.logger.Info("Invoke permission already exists", zap.String("rule", rule))
	case err != nil:
		return "", fmt.Errorf("failed to grant invoke permission: %w", err)
	default:
		m.logger.Info("Granted invoke permission", zap.String("source_arn", ruleARN))
	}

	return expr, nil
}

// Delete removes the target, then the rule. Missing resources are not errors.
func (m *Manager) Delete(ctx context.Context, rule string) error {
	var notFound *ebtypes.ResourceNotFoundException

	_, err := m.events.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
		Rule: aws.String(rule),
		Ids:  []string{m.config.TargetID},
	})
	switch {
	case errors.As(err, &notFound):
		m.logger.Warn("Target not found, skipping removal", zap.String("rule", rule))
	case err != nil:
		return fmt.Errorf("failed to remove targets from %s: %w", rule, err)
	}

	_, err = m.events.DeleteRule(ctx, &eventbridge.DeleteRuleInput{Name: aws.String(rule)})
	switch {
	case errors.As(err, &notFound):
		m.logger.Warn("Rule not found, skipping deletion", zap.String("rule", rule))
	case err != nil:
		return fmt.Errorf("failed to delete rule %s: %w", rule, err)
	}

	m.logger.Info("Deleted schedule", zap.String("rule", rule))
	return nil
}

// Query reads back the rule state
func (m *Manager) Query(ctx context.Context, rule string) (Schedule, error) {
	out, err := m.events.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: aws.String(rule)})
	var notFound *ebtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return Schedule{RuleExists: false}, nil
	}
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to describe rule %s: %w", rule, err)
	}

	expr := aws.ToString(out.ScheduleExpression)
	schedule := Schedule{
		RuleExists:         true,
		IntervalMinutes:    ParseInterval(expr),
		State:              string(out.State),
		ScheduleExpression: expr,
	}

	targets, err := m.events.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{Rule: aws.String(rule)})
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to list targets of %s: %w", rule, err)
	}
	schedule.Targets = len(targets.Targets)

	return schedule, nil
}

// ruleARN builds the rule ARN when PutRule did not return one
func (m *Manager) ruleARN(ctx context.Context, rule, functionARN string) string {
	region := m.config.Region
	if region == "" {
		region = arnField(functionARN, 3)
	}
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("arn:aws:events:%s:%s:rule/%s", region, m.accountID(ctx, functionARN), rule)
}

// accountID tries configuration, then the function ARN, then STS
func (m *Manager) accountID(ctx context.Context, functionARN string) string {
	if m.config.AccountID != "" {
		return m.config.AccountID
	}
	if account := arnField(functionARN, 4); account != "" {
		return account
	}
	if m.identity != nil {
		out, err := m.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err == nil && aws.ToString(out.Account) != "" {
			return aws.ToString(out.Account)
		}
		m.logger.Warn("Could not resolve account id", zap.Error(err))
	}
	return "*"
}

func (m *Manager) failure(rule string, err error) Response {
	m.logger.Error("Schedule request failed", zap.String("rule", rule), zap.Error(err))
	return Response{Status: StatusError, Message: err.Error(), RuleName: rule}
}

// arnField returns the i-th colon separated field of an ARN
func arnField(arn string, i int) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 6 || parts[0] != "arn" || i >= len(parts) {
		return ""
	}
	return parts[i]
}

// ResolveFunctionARN picks the target function: explicit request value,
// configured value, or the invoking function's ARN with the scheduler's
// name swapped for the reporter's.
func ResolveFunctionARN(requested, configured, invoked string) string {
	switch {
	case requested != "":
		return requested
	case configured != "":
		return configured
	case invoked != "":
		return strings.ReplaceAll(invoked, "dynamic-scheduler", "cost-report")
	default:
		return ""
	}
}
