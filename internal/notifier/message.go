package notifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/slack-go/slack"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/chargeback"
)

const (
	budgetSegments = 10
	// Slack rejects section text longer than 3000 characters
	maxSectionText = 2900
)

// Report is what a chat message is rendered from
type Report struct {
	Summary        analyzer.Summary
	Signal         *anomaly.Signal
	Text           string
	TopServices    []chargeback.ServiceCost
	AlertThreshold float64
	Period         string
	Mocked         bool
	GeneratedBy    string // ai or fallback
}

// Links are the static action buttons
type Links struct {
	DashboardURL string
	ConsoleURL   string
}

// BuildMessage renders the Block Kit report message
func BuildMessage(r Report, links Links) *slack.WebhookMessage {
	s := r.Summary
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "💸 AWS Cost Report", true, false)),
	}

	if r.Signal != nil {
		banner := fmt.Sprintf("🚨 *Cost spike detected* on %s: *$%.2f* vs trailing average $%.2f (*+%.1f%%*)\n_%s_",
			r.Signal.Date, r.Signal.Current, r.Signal.Average, r.Signal.IncreasePercent, r.Signal.Reason)
		blocks = append(blocks, markdownSection(banner))
	}

	if s.MonthlyBudget > 0 {
		budget := fmt.Sprintf("*Budget usage* ($%.2f of $%.2f)\n%s", s.TotalCost, s.MonthlyBudget, BudgetBar(s.BudgetUsagePercent))
		blocks = append(blocks, markdownSection(budget))
		if alert := BudgetAlert(s, r.AlertThreshold); alert != "" {
			blocks = append(blocks, slack.NewContextBlock("budget-alert",
				slack.NewTextBlockObject(slack.MarkdownType, alert, false, false)))
		}
	}

	blocks = append(blocks,
		slack.NewDividerBlock(),
		markdownSection(truncate(r.Text, maxSectionText)),
		slack.NewSectionBlock(nil, metricFields(r), nil),
	)

	if actions := actionButtons(links); len(actions) > 0 {
		blocks = append(blocks, slack.NewActionBlock("report-links", actions...))
	}

	mode := "Real"
	if r.Mocked {
		mode = "Mock"
	}
	footer := fmt.Sprintf("⚙️ Mode: %s • Period: %s • Summary: %s", mode, r.Period, r.GeneratedBy)
	blocks = append(blocks, slack.NewContextBlock("footer",
		slack.NewTextBlockObject(slack.MarkdownType, footer, false, false)))

	return &slack.WebhookMessage{
		Text:   fmt.Sprintf("AWS Cost Report: $%.2f total", s.TotalCost),
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

// BudgetBar draws usage as a fixed number of colored segments:
// green below 50%, yellow below 80%, red from 80% on.
func BudgetBar(percent float64) string {
	filled := int(math.Round(math.Max(0, math.Min(percent, 100)) / 100 * budgetSegments))

	segment := "🟩"
	switch {
	case percent >= 80:
		segment = "🟥"
	case percent >= 50:
		segment = "🟨"
	}

	return strings.Repeat(segment, filled) + strings.Repeat("⬜", budgetSegments-filled) +
		fmt.Sprintf(" %.1f%%", percent)
}

// BudgetAlert returns a warning once usage passes threshold, and the overspend
// once past 100%
func BudgetAlert(s analyzer.Summary, threshold float64) string {
	if s.MonthlyBudget <= 0 || threshold <= 0 || s.BudgetUsagePercent <= threshold {
		return ""
	}
	if s.BudgetUsagePercent > 100 {
		return fmt.Sprintf("⚠️ Monthly budget exceeded by $%.2f (%.1f%% used)", s.TotalCost-s.MonthlyBudget, s.BudgetUsagePercent)
	}
	return fmt.Sprintf("⚡ Approaching budget limit: %.1f%% used, alert threshold is %.0f%%", s.BudgetUsagePercent, threshold)
}

// ErrorMessage is the plain block sent when the report could not be built
func ErrorMessage(err error) *slack.WebhookMessage {
	text := fmt.Sprintf("❌ *Cost report failed*\n```%s```", truncate(err.Error(), maxSectionText-20))
	return &slack.WebhookMessage{
		Text: "Cost report failed",
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			markdownSection(text),
		}},
	}
}

func metricFields(r Report) []*slack.TextBlockObject {
	s := r.Summary
	fields := []*slack.TextBlockObject{
		field("Total Cost", fmt.Sprintf("$%.2f", s.TotalCost)),
		field("Projected Monthly", fmt.Sprintf("$%.2f", s.ProjectedMonthly)),
		field("Avg Daily", fmt.Sprintf("$%.2f", s.AvgDailyCost)),
		field("Trend", trendLabel(s.Trend)),
		field(fmt.Sprintf("Cost per %d min", s.IntervalMinutes), fmt.Sprintf("$%.4f", s.IntervalCost)),
	}
	if s.MonthlyBudget > 0 {
		fields = append(fields, field("Budget Used", fmt.Sprintf("%.1f%%", s.BudgetUsagePercent)))
	}
	if len(r.TopServices) > 0 {
		top := r.TopServices[0]
		fields = append(fields, field("Top Service", fmt.Sprintf("%s ($%.2f)", top.Service, top.Cost)))
	}
	return fields
}

func actionButtons(links Links) []slack.BlockElement {
	var elements []slack.BlockElement
	if links.DashboardURL != "" {
		btn := slack.NewButtonBlockElement("open-dashboard", "dashboard",
			slack.NewTextBlockObject(slack.PlainTextType, "📊 Open Dashboard", true, false))
		btn.URL = links.DashboardURL
		btn.Style = slack.StylePrimary
		elements = append(elements, btn)
	}
	if links.ConsoleURL != "" {
		btn := slack.NewButtonBlockElement("open-console", "console",
			slack.NewTextBlockObject(slack.PlainTextType, "🔎 AWS Cost Explorer", true, false))
		btn.URL = links.ConsoleURL
		elements = append(elements, btn)
	}
	return elements
}

func trendLabel(t analyzer.Trend) string {
	switch t {
	case analyzer.TrendIncreasing:
		return "📈 increasing"
	case analyzer.TrendDecreasing:
		return "📉 decreasing"
	default:
		return "➡️ stable"
	}
}

func field(label, value string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", label, value), false, false)
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
