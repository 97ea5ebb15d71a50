// Package reporter renders cost report artifacts
package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/chargeback"
	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

const topServiceRows = 10

// ReportData contains all data for report generation
type ReportData struct {
	Period      string             `json:"period"`
	Dataset     *costdata.Dataset  `json:"-"`
	Summary     analyzer.Summary   `json:"summary"`
	Signal      *anomaly.Signal    `json:"anomaly,omitempty"`
	Chargeback  *chargeback.Report `json:"chargeback,omitempty"`
	Insights    string             `json:"insights"`
	Alert       string             `json:"budget_alert,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Artifact is a rendered report file
type Artifact struct {
	Ext         string
	ContentType string
	Body        []byte
}

// Reporter renders report artifacts in memory
type Reporter struct {
	html *template.Template
}

// New creates a new Reporter
func New() *Reporter {
	return &Reporter{html: template.Must(template.New("report").Parse(htmlTemplate))}
}

// Render produces the HTML page, the daily CSV, the JSON summary and, when a
// breakdown is present, the per-account CSV. Extensions never collide with
// the raw dataset's "json".
func (r *Reporter) Render(data ReportData) ([]Artifact, error) {
	html, err := r.GenerateHTML(data)
	if err != nil {
		return nil, err
	}
	csvBody, err := r.GenerateCSV(data)
	if err != nil {
		return nil, err
	}
	summary, err := r.GenerateJSON(data)
	if err != nil {
		return nil, err
	}

	artifacts := []Artifact{
		{Ext: "html", ContentType: "text/html; charset=utf-8", Body: html},
		{Ext: "csv", ContentType: "text/csv", Body: csvBody},
		{Ext: "summary.json", ContentType: "application/json", Body: summary},
	}

	if data.Chargeback != nil {
		var buf bytes.Buffer
		if err := data.Chargeback.WriteCSV(&buf); err != nil {
			return nil, fmt.Errorf("failed to write chargeback csv: %w", err)
		}
		artifacts = append(artifacts, Artifact{Ext: "chargeback.csv", ContentType: "text/csv", Body: buf.Bytes()})
	}
	return artifacts, nil
}

// GenerateHTML renders the summary page
func (r *Reporter) GenerateHTML(data ReportData) ([]byte, error) {
	view := htmlView{
		ReportData: data,
		BudgetBand: budgetBand(data.Summary.BudgetUsagePercent),
	}
	if data.Chargeback != nil {
		view.TopServices = data.Chargeback.TopServices(topServiceRows)
	}

	var buf bytes.Buffer
	if err := r.html.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateCSV writes one row per day with its change against the day before
func (r *Reporter) GenerateCSV(data ReportData) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Date", "Cost", "Currency", "Change %"}); err != nil {
		return nil, err
	}

	if data.Dataset != nil {
		prev := 0.0
		for i, rec := range data.Dataset.ResultsByTime {
			cost, err := rec.Value()
			if err != nil {
				return nil, fmt.Errorf("failed to write daily costs: %w", err)
			}

			change := ""
			if i > 0 && prev > 0 {
				change = fmt.Sprintf("%.1f", (cost-prev)/prev*100)
			}
			prev = cost

			if err := writer.Write([]string{
				rec.TimePeriod.Start,
				fmt.Sprintf("%.2f", cost),
				rec.Total.Metric().Unit,
				change,
			}); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateJSON marshals the report data without the raw dataset
func (r *Reporter) GenerateJSON(data ReportData) ([]byte, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return out, nil
}

type htmlView struct {
	ReportData
	BudgetBand  string
	TopServices []chargeback.ServiceCost
}

func budgetBand(pct float64) string {
	switch {
	case pct >= 80:
		return "red"
	case pct >= 50:
		return "yellow"
	default:
		return "green"
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>AWS Cost Report - {{.Period}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; background: #0f172a; color: #f1f5f9; padding: 2rem; }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; margin: 1.5rem 0; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 10px; padding: 1rem; }
        .label { color: #94a3b8; font-size: 0.85rem; }
        .value { font-size: 1.6rem; font-weight: 700; }
        .green { color: #22c55e; } .yellow { color: #eab308; } .red { color: #ef4444; }
        .banner { background: rgba(239, 68, 68, 0.15); border-left: 4px solid #ef4444; padding: 1rem; margin-bottom: 1rem; }
        .alert { background: rgba(234, 179, 8, 0.15); border-left: 4px solid #eab308; padding: 1rem; margin-bottom: 1rem; }
        table { width: 100%; border-collapse: collapse; background: #1e293b; margin-bottom: 2rem; }
        th, td { padding: 0.6rem 1rem; text-align: left; border-bottom: 1px solid #334155; }
        th { color: #3b82f6; }
        pre { white-space: pre-wrap; background: #1e293b; padding: 1rem; border-radius: 10px; }
    </style>
</head>
<body>
    <h1>AWS Cost Report</h1>
    <p class="label">{{.Period}} | Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}{{if and .Dataset .Dataset.Mocked}} | mock data{{end}}</p>

    {{with .Signal}}
    <div class="banner">Cost spike on {{.Date}}: ${{printf "%.2f" .Current}} vs ${{printf "%.2f" .Average}} average (+{{printf "%.1f" .IncreasePercent}}%, {{.Severity}})</div>
    {{end}}
    {{with .Alert}}<div class="alert">{{.}}</div>{{end}}

    <div class="cards">
        <div class="card"><div class="label">Total Cost</div><div class="value">${{printf "%.2f" .Summary.TotalCost}}</div></div>
        <div class="card"><div class="label">Avg Daily</div><div class="value">${{printf "%.2f" .Summary.AvgDailyCost}}</div></div>
        <div class="card"><div class="label">Projected Monthly</div><div class="value">${{printf "%.2f" .Summary.ProjectedMonthly}}</div></div>
        <div class="card"><div class="label">Trend</div><div class="value">{{.Summary.Trend}}</div></div>
        {{if gt .Summary.MonthlyBudget 0.0}}
        <div class="card"><div class="label">Budget Used</div><div class="value {{.BudgetBand}}">{{printf "%.1f" .Summary.BudgetUsagePercent}}%</div></div>
        {{end}}
        <div class="card"><div class="label">Cost per {{.Summary.IntervalMinutes}} min</div><div class="value">${{printf "%.4f" .Summary.IntervalCost}}</div></div>
    </div>

    {{with .Insights}}<h2>Summary</h2><pre>{{.}}</pre>{{end}}

    {{if .TopServices}}
    <h2>Top Services by Cost</h2>
    <table>
        <thead><tr><th>Service</th><th>Cost</th></tr></thead>
        <tbody>
        {{range .TopServices}}<tr><td>{{.Service}}</td><td>${{printf "%.2f" .Cost}}</td></tr>
        {{end}}
        </tbody>
    </table>
    {{end}}

    {{with .Chargeback}}{{if .Allocations}}
    <h2>Cost by Account</h2>
    <table>
        <thead><tr><th>Account</th><th>Direct</th><th>Unattributed</th><th>Total</th></tr></thead>
        <tbody>
        {{range .Allocations}}<tr><td>{{.Account}}</td><td>${{printf "%.2f" .DirectCost}}</td><td>${{printf "%.2f" .AllocatedCost}}</td><td>${{printf "%.2f" .TotalCost}}</td></tr>
        {{end}}
        </tbody>
    </table>
    {{end}}{{end}}
</body>
</html>`
