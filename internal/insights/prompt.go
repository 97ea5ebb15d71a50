package insights

import (
	"encoding/json"
	"fmt"
	"strings"
)

const truncationMarker = "...(truncated)"

// BuildPrompt embeds the metrics and a bounded slice of the raw dataset
func BuildPrompt(in Input, budget int) string {
	s := in.Summary

	var b strings.Builder
	b.WriteString("You are a FinOps analyst. Analyze this AWS cost data and write a short Slack-ready summary.\n\n")
	fmt.Fprintf(&b, "Total Cost: $%.2f over %d days\n", s.TotalCost, s.Days)
	fmt.Fprintf(&b, "Average Daily Cost: $%.2f\n", s.AvgDailyCost)
	fmt.Fprintf(&b, "Projected Monthly Cost: $%.2f\n", s.ProjectedMonthly)
	fmt.Fprintf(&b, "Monthly Budget: $%.2f (%.1f%% used)\n", s.MonthlyBudget, s.BudgetUsagePercent)
	fmt.Fprintf(&b, "Trend: %s\n", s.Trend)
	fmt.Fprintf(&b, "Estimated cost per %d-minute interval: $%.4f\n", s.IntervalMinutes, s.IntervalCost)

	if in.Signal != nil {
		fmt.Fprintf(&b, "Anomaly: latest day $%.2f vs trailing average $%.2f (+%.1f%%)\n",
			in.Signal.Current, in.Signal.Average, in.Signal.IncreasePercent)
	} else {
		b.WriteString("Anomaly: none detected\n")
	}

	if len(in.TopServices) > 0 {
		services, _ := json.Marshal(in.TopServices)
		fmt.Fprintf(&b, "Top Services: %s\n", services)
	}

	b.WriteString("\nRaw data (JSON):\n")
	b.WriteString(datasetExcerpt(in, budget))

	b.WriteString("\n\nRespond with exactly three sections, each a few bullet points:\n")
	b.WriteString("*Cost Overview*\n*Key Insights*\n*Recommendations*\n")
	b.WriteString("Keep the response concise and actionable.")

	return b.String()
}

// datasetExcerpt serializes the dataset and cuts it to budget characters
func datasetExcerpt(in Input, budget int) string {
	if in.Dataset == nil {
		return "{}"
	}
	data, err := json.Marshal(in.Dataset)
	if err != nil {
		return "{}"
	}
	// budget counts characters, so cut on a rune boundary
	runes := []rune(string(data))
	if budget > 0 && len(runes) > budget {
		return string(runes[:budget]) + truncationMarker
	}
	return string(data)
}
