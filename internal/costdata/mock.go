package costdata

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceBase is a service's average daily cost in the mock generator
type ServiceBase struct {
	Service string
	Base    float64
}

// DefaultServices mirrors a small production account
var DefaultServices = []ServiceBase{
	{"AmazonEC2", 4.5},
	{"AmazonS3", 0.7},
	{"AmazonRDS", 2.0},
	{"AWSLambda", 0.3},
	{"AmazonEKS", 1.5},
	{"AmazonCloudFront", 0.4},
	{"Other", 0.2},
}

// DefaultAccounts are the linked accounts costs are split across
var DefaultAccounts = []string{"account-A", "account-B", "account-C"}

// MockGenerator produces plausible daily cost datasets
type MockGenerator struct {
	rng        *rand.Rand
	Services   []ServiceBase
	Accounts   []string
	Volatility float64
}

// NewMockGenerator creates a generator; equal seeds give equal datasets
func NewMockGenerator(seed int64) *MockGenerator {
	return &MockGenerator{
		rng:        rand.New(rand.NewSource(seed)),
		Services:   DefaultServices,
		Accounts:   DefaultAccounts,
		Volatility: 0.6,
	}
}

// Build generates days of data starting at start
func (g *MockGenerator) Build(start time.Time, days int) *Dataset {
	ds := &Dataset{
		Mocked:        true,
		GeneratedOn:   time.Now().UTC().Format(DateLayout),
		ResultsByTime: make([]ResultByTime, 0, days),
		TotalDays:     days,
	}

	for i := 0; i < days; i++ {
		ds.ResultsByTime = append(ds.ResultsByTime, g.day(start.AddDate(0, 0, i)))
	}
	return ds
}

func (g *MockGenerator) day(day time.Time) ResultByTime {
	record := NewDay(day, decimal.Zero)
	total := decimal.Zero

	for _, svc := range g.Services {
		for _, acct := range g.Accounts {
			amt := g.amount(svc.Base * (0.6 + g.rng.Float64()))
			total = total.Add(amt)
			record.Details = append(record.Details, Detail{
				TimePeriod: record.TimePeriod,
				Account:    acct,
				Service:    svc.Service,
				Total:      Total{BlendedCost: &Metric{Amount: amt.StringFixed(2), Unit: DefaultUnit}},
			})
		}
	}

	record.Total.BlendedCost.Amount = total.StringFixed(2)
	return record
}

// amount draws from N(base, base*volatility), floored at one cent
func (g *MockGenerator) amount(base float64) decimal.Decimal {
	v := g.rng.NormFloat64()*base*g.Volatility + base
	return decimal.NewFromFloat(math.Max(0.01, v)).Round(2)
}
