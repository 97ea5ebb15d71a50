package insights

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
)

var fallbackTemplate = template.Must(template.New("fallback").Parse(`*Cost Overview*
• Total spend: ${{printf "%.2f" .S.TotalCost}} over {{.S.Days}} days (avg ${{printf "%.2f" .S.AvgDailyCost}}/day)
• Projected monthly: ${{printf "%.2f" .S.ProjectedMonthly}}
{{- if gt .S.MonthlyBudget 0.0}}
• Budget usage: {{printf "%.1f" .S.BudgetUsagePercent}}% of ${{printf "%.2f" .S.MonthlyBudget}}
{{- end}}
• Estimated cost per {{.S.IntervalMinutes}}-minute interval: ${{printf "%.4f" .S.IntervalCost}}

*Key Insights*
{{- range .Insights}}
• {{.}}
{{- end}}

*Recommendations*
{{- range .Recommendations}}
• {{.}}
{{- end}}
`))

type fallbackView struct {
	S               analyzer.Summary
	Insights        []string
	Recommendations []string
}

// Fallback renders the summary from metrics alone. Equal inputs always
// produce equal text.
func Fallback(in Input) string {
	view := fallbackView{
		S:               in.Summary,
		Insights:        keyInsights(in),
		Recommendations: recommendations(in),
	}

	var b strings.Builder
	if err := fallbackTemplate.Execute(&b, view); err != nil {
		// the template is static; this only fires on a programming error
		return fmt.Sprintf("Total spend: $%.2f", in.Summary.TotalCost)
	}
	return strings.TrimSpace(b.String())
}

func keyInsights(in Input) []string {
	s := in.Summary
	var out []string

	switch s.Trend {
	case analyzer.TrendIncreasing:
		out = append(out, "Spend trend is increasing: recent days cost more than the start of the period.")
	case analyzer.TrendDecreasing:
		out = append(out, "Spend trend is decreasing: recent days cost less than the start of the period.")
	default:
		out = append(out, "Spend trend is stable across the period.")
	}

	if in.Signal != nil {
		out = append(out, fmt.Sprintf("Spike detected: $%.2f vs trailing average $%.2f (+%.1f%%).",
			in.Signal.Current, in.Signal.Average, in.Signal.IncreasePercent))
	} else {
		out = append(out, "No cost spikes detected.")
	}

	if len(in.TopServices) > 0 {
		top := in.TopServices[0]
		out = append(out, fmt.Sprintf("Largest cost driver: %s ($%.2f).", top.Service, top.Cost))
	}

	return out
}

func recommendations(in Input) []string {
	s := in.Summary
	var out []string

	if s.MonthlyBudget > 0 {
		switch {
		case s.BudgetUsagePercent >= 100:
			out = append(out, "Budget exceeded: review running resources and pause non-essential workloads.")
		case s.BudgetUsagePercent >= 80:
			out = append(out, "Budget usage is high: set up alerts and review the largest services.")
		case s.ProjectedMonthly > s.MonthlyBudget:
			out = append(out, "Projected monthly spend exceeds the budget: plan savings before month end.")
		}
	}

	if in.Signal != nil {
		out = append(out, "Investigate the latest spike for new workloads, scaling events or misconfiguration.")
	}
	if s.Trend == analyzer.TrendIncreasing {
		out = append(out, "Check for idle or oversized resources behind the rising trend.")
	}

	if len(out) == 0 {
		out = append(out, "Spend is under control; keep monitoring and consider reserved capacity for steady workloads.")
	}
	return out
}
