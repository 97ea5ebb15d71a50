// Package chargeback provides cost allocation and showback by linked account.
package chargeback

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// DefaultUnallocatedPool receives day totals that carry no breakdown
const DefaultUnallocatedPool = "UNALLOCATED"

// AllocatorConfig holds configuration for cost allocation
type AllocatorConfig struct {
	UnallocatedPool string // where to allocate costs without an account
}

// Allocation represents allocated costs for one account
type Allocation struct {
	Account       string             `json:"account"`
	TotalCost     float64            `json:"total_cost"`
	DirectCost    float64            `json:"direct_cost"`    // attributed by breakdown rows
	AllocatedCost float64            `json:"allocated_cost"` // day totals without breakdown
	ByService     map[string]float64 `json:"by_service"`
}

// ServiceCost is a service's share of the period
type ServiceCost struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

// Allocator distributes dataset costs to accounts
type Allocator struct {
	config AllocatorConfig
}

// NewAllocator creates a new cost allocator
func NewAllocator(cfg AllocatorConfig) *Allocator {
	if cfg.UnallocatedPool == "" {
		cfg.UnallocatedPool = DefaultUnallocatedPool
	}
	return &Allocator{config: cfg}
}

// Allocate attributes each day's breakdown rows to their account. Details take
// precedence over Cost Explorer groups; a day with neither goes to the
// unallocated pool as a single unattributed amount.
func (a *Allocator) Allocate(ds *costdata.Dataset) (map[string]*Allocation, error) {
	allocations := make(map[string]*Allocation)
	if ds == nil {
		return allocations, nil
	}

	for _, r := range ds.ResultsByTime {
		switch {
		case len(r.Details) > 0:
			for _, d := range r.Details {
				cost, err := d.Total.Metric().Decimal()
				if err != nil {
					return nil, fmt.Errorf("detail %s/%s on %s: %w", d.Account, d.Service, r.TimePeriod.Start, err)
				}
				a.direct(allocations, d.Account, d.Service, cost.InexactFloat64())
			}

		case len(r.Groups) > 0:
			for _, g := range r.Groups {
				cost, err := g.Metrics.Metric().Decimal()
				if err != nil {
					return nil, fmt.Errorf("group %v on %s: %w", g.Keys, r.TimePeriod.Start, err)
				}
				var service, account string
				if len(g.Keys) > 0 {
					service = g.Keys[0]
				}
				if len(g.Keys) > 1 {
					account = g.Keys[1]
				}
				a.direct(allocations, account, service, cost.InexactFloat64())
			}

		default:
			cost, err := r.Value()
			if err != nil {
				return nil, err
			}
			alloc := a.get(allocations, a.config.UnallocatedPool)
			alloc.TotalCost += cost
			alloc.AllocatedCost += cost
			alloc.ByService["Unattributed"] += cost
		}
	}

	return allocations, nil
}

func (a *Allocator) direct(allocations map[string]*Allocation, account, service string, cost float64) {
	if account == "" {
		account = a.config.UnallocatedPool
	}
	if service == "" {
		service = "Other"
	}
	alloc := a.get(allocations, account)
	alloc.TotalCost += cost
	alloc.DirectCost += cost
	alloc.ByService[service] += cost
}

func (a *Allocator) get(allocations map[string]*Allocation, account string) *Allocation {
	if alloc, ok := allocations[account]; ok {
		return alloc
	}
	alloc := &Allocation{
		Account:   account,
		ByService: make(map[string]float64),
	}
	allocations[account] = alloc
	return alloc
}

// Report holds a generated showback report
type Report struct {
	Period      string        `json:"period"`
	Allocations []*Allocation `json:"allocations"`
	TotalCost   float64       `json:"total_cost"`
	Generated   time.Time     `json:"generated"`
}

// GenerateReport creates a showback report from allocations
func GenerateReport(allocations map[string]*Allocation, period string) *Report {
	report := &Report{
		Period:    period,
		Generated: time.Now(),
	}

	for _, alloc := range allocations {
		report.Allocations = append(report.Allocations, alloc)
		report.TotalCost += alloc.TotalCost
	}

	// Sort by cost descending, account name breaks ties
	sort.Slice(report.Allocations, func(i, j int) bool {
		if report.Allocations[i].TotalCost == report.Allocations[j].TotalCost {
			return report.Allocations[i].Account < report.Allocations[j].Account
		}
		return report.Allocations[i].TotalCost > report.Allocations[j].TotalCost
	})

	return report
}

// TopServices returns the n most expensive services across all accounts
func (r *Report) TopServices(n int) []ServiceCost {
	byService := make(map[string]float64)
	for _, alloc := range r.Allocations {
		for svc, cost := range alloc.ByService {
			byService[svc] += cost
		}
	}

	services := make([]ServiceCost, 0, len(byService))
	for svc, cost := range byService {
		services = append(services, ServiceCost{Service: svc, Cost: cost})
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Cost == services[j].Cost {
			return services[i].Service < services[j].Service
		}
		return services[i].Cost > services[j].Cost
	})

	if n >= 0 && n < len(services) {
		services = services[:n]
	}
	return services
}

// WriteCSV writes one row per account plus a total row
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{"Account", "Total Cost", "Direct Cost", "Allocated Cost", "% of Total"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, alloc := range r.Allocations {
		pct := 0.0
		if r.TotalCost > 0 {
			pct = (alloc.TotalCost / r.TotalCost) * 100
		}
		row := []string{
			alloc.Account,
			fmt.Sprintf("%.2f", alloc.TotalCost),
			fmt.Sprintf("%.2f", alloc.DirectCost),
			fmt.Sprintf("%.2f", alloc.AllocatedCost),
			fmt.Sprintf("%.1f%%", pct),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	totalRow := []string{
		"TOTAL",
		fmt.Sprintf("%.2f", r.TotalCost),
		"", "",
		"100.0%",
	}
	if err := writer.Write(totalRow); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}
