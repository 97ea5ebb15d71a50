package chargeback

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/costdata/costdatatest"
)

var day0 = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

func usd(amount string) costdata.Total {
	return costdata.Total{BlendedCost: &costdata.Metric{Amount: amount, Unit: "USD"}}
}

func TestAllocate_Details(t *testing.T) {
	ds := costdatatest.FromTotals(day0, 6, 4)
	ds.ResultsByTime[0].Details = []costdata.Detail{
		{Account: "account-A", Service: "AmazonEC2", Total: usd("4.00")},
		{Account: "account-B", Service: "AmazonS3", Total: usd("2.00")},
	}
	ds.ResultsByTime[1].Details = []costdata.Detail{
		{Account: "account-A", Service: "AmazonS3", Total: usd("4.00")},
	}

	allocs, err := NewAllocator(AllocatorConfig{}).Allocate(ds)
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, 8.0, allocs["account-A"].TotalCost)
	assert.Equal(t, 8.0, allocs["account-A"].DirectCost)
	assert.Equal(t, 4.0, allocs["account-A"].ByService["AmazonEC2"])
	assert.Equal(t, 2.0, allocs["account-B"].TotalCost)
}

func TestAllocate_GroupsAndUnattributedDays(t *testing.T) {
	ds := costdatatest.FromTotals(day0, 15.5, 3)
	ds.ResultsByTime[0].Groups = []costdata.Group{
		{Keys: []string{"EC2-Instance"}, Metrics: usd("10.00")},
		{Keys: []string{"AWS Lambda", "123456789012"}, Metrics: usd("5.50")},
	}

	allocs, err := NewAllocator(AllocatorConfig{}).Allocate(ds)
	require.NoError(t, err)

	pool := allocs[DefaultUnallocatedPool]
	require.NotNil(t, pool)
	assert.Equal(t, 13.0, pool.TotalCost)
	assert.Equal(t, 10.0, pool.DirectCost)
	assert.Equal(t, 3.0, pool.AllocatedCost)
	assert.Equal(t, 3.0, pool.ByService["Unattributed"])
	assert.Equal(t, 5.5, allocs["123456789012"].ByService["AWS Lambda"])
}

func TestAllocate_MalformedDetail(t *testing.T) {
	ds := costdatatest.FromTotals(day0, 1)
	ds.ResultsByTime[0].Details = []costdata.Detail{{Account: "a", Service: "s", Total: usd("x")}}

	_, err := NewAllocator(AllocatorConfig{}).Allocate(ds)
	assert.ErrorIs(t, err, costdata.ErrMalformedAmount)
}

func TestReport_TopServicesAndCSV(t *testing.T) {
	ds := costdatatest.FromTotals(day0, 10)
	ds.ResultsByTime[0].Details = []costdata.Detail{
		{Account: "account-A", Service: "AmazonEC2", Total: usd("5.00")},
		{Account: "account-B", Service: "AmazonEC2", Total: usd("2.00")},
		{Account: "account-B", Service: "AmazonRDS", Total: usd("3.00")},
	}

	allocs, err := NewAllocator(AllocatorConfig{}).Allocate(ds)
	require.NoError(t, err)
	report := GenerateReport(allocs, "2025-10-01 to 2025-10-02")

	assert.Equal(t, 10.0, report.TotalCost)
	assert.Equal(t, "account-A", report.Allocations[0].Account)

	top := report.TopServices(1)
	require.Len(t, top, 1)
	assert.Equal(t, ServiceCost{Service: "AmazonEC2", Cost: 7}, top[0])
	assert.Len(t, report.TopServices(10), 2)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Account,Total Cost,Direct Cost,Allocated Cost,% of Total", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "account-A,5.00,5.00,0.00,50.0%"))
	assert.Equal(t, "TOTAL,10.00,,,100.0%", lines[3])
}
