package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

const costMetric = "BlendedCost"

// CostExplorerAPI is the subset of the Cost Explorer client in use
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// CostExplorerSource retrieves daily costs from AWS Cost Explorer
type CostExplorerSource struct {
	client CostExplorerAPI
	logger *zap.Logger
}

// NewCostExplorerSource creates a Cost Explorer backed source
func NewCostExplorerSource(client CostExplorerAPI, logger *zap.Logger) *CostExplorerSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostExplorerSource{client: client, logger: logger}
}

// NewCostExplorerFromConfig builds the source from an AWS config
func NewCostExplorerFromConfig(awsCfg aws.Config, logger *zap.Logger) *CostExplorerSource {
	return NewCostExplorerSource(costexplorer.NewFromConfig(awsCfg), logger)
}

// Name returns the provider name
func (c *CostExplorerSource) Name() string {
	return "aws-cost-explorer"
}

// FetchDataset retrieves daily blended cost grouped by service and linked
// account for the specified date range
func (c *CostExplorerSource) FetchDataset(ctx context.Context, start, end time.Time) (*costdata.Dataset, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(start.Format(costdata.DateLayout)),
			End:   aws.String(end.Format(costdata.DateLayout)),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{costMetric},
		GroupBy: []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String("LINKED_ACCOUNT")},
		},
	}

	ds := &costdata.Dataset{}
	pages := 0

	// Handle pagination manually
	for {
		result, err := c.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to get cost data: %w", err)
		}
		pages++

		for _, r := range result.ResultsByTime {
			record, err := parseResult(r)
			if err != nil {
				return nil, err
			}
			ds.ResultsByTime = appendOrMerge(ds.ResultsByTime, record)
		}

		// Check for more pages
		if result.NextPageToken == nil {
			break
		}
		input.NextPageToken = result.NextPageToken
	}

	c.logger.Info("Costs retrieved",
		zap.String("provider", c.Name()),
		zap.Int("days", ds.Len()),
		zap.Int("pages", pages),
	)
	return ds, nil
}

// parseResult converts one Cost Explorer day into the persisted layout. With
// group-by enabled Cost Explorer leaves Total empty, so the day total is the
// sum of its groups.
func parseResult(r types.ResultByTime) (costdata.ResultByTime, error) {
	if r.TimePeriod == nil {
		return costdata.ResultByTime{}, fmt.Errorf("cost explorer result without time period")
	}

	period := costdata.TimePeriod{
		Start: aws.ToString(r.TimePeriod.Start),
		End:   aws.ToString(r.TimePeriod.End),
	}
	record := costdata.ResultByTime{TimePeriod: period}
	total := decimal.Zero
	unit := costdata.DefaultUnit

	for _, group := range r.Groups {
		metric, ok := group.Metrics[costMetric]
		if !ok || metric.Amount == nil {
			continue
		}
		amount, err := decimal.NewFromString(*metric.Amount)
		if err != nil {
			return record, fmt.Errorf("%w: %q on %s", costdata.ErrMalformedAmount, *metric.Amount, period.Start)
		}
		if metric.Unit != nil {
			unit = *metric.Unit
		}
		total = total.Add(amount)

		detail := costdata.Detail{
			TimePeriod: period,
			Total:      costdata.Total{BlendedCost: &costdata.Metric{Amount: *metric.Amount, Unit: unit}},
		}
		if len(group.Keys) > 0 {
			detail.Service = group.Keys[0]
		}
		if len(group.Keys) > 1 {
			detail.Account = group.Keys[1]
		}
		record.Details = append(record.Details, detail)
	}

	if len(r.Groups) == 0 {
		if metric, ok := r.Total[costMetric]; ok && metric.Amount != nil {
			amount, err := decimal.NewFromString(*metric.Amount)
			if err != nil {
				return record, fmt.Errorf("%w: %q on %s", costdata.ErrMalformedAmount, *metric.Amount, period.Start)
			}
			total = amount
			if metric.Unit != nil {
				unit = *metric.Unit
			}
		}
	}

	record.Total = costdata.Total{BlendedCost: &costdata.Metric{Amount: total.StringFixed(2), Unit: unit}}
	return record, nil
}

// appendOrMerge folds a day that continues on the next page into the
// record already collected for it
func appendOrMerge(records []costdata.ResultByTime, r costdata.ResultByTime) []costdata.ResultByTime {
	n := len(records)
	if n == 0 || records[n-1].TimePeriod.Start != r.TimePeriod.Start {
		return append(records, r)
	}

	last := &records[n-1]
	prev, _ := last.Total.Metric().Decimal()
	next, _ := r.Total.Metric().Decimal()
	last.Total.BlendedCost.Amount = prev.Add(next).StringFixed(2)
	last.Details = append(last.Details, r.Details...)
	return records
}
