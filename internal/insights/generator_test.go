package insights

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/chargeback"
	"github.com/lvonguyen/cost-reporter/internal/costdata"
	"github.com/lvonguyen/cost-reporter/internal/costdata/costdatatest"
)

type fakeGenerator struct {
	text   string
	err    error
	block  bool
	prompt string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func scenarioInput(t *testing.T) Input {
	t.Helper()
	ds := costdatatest.FromTotals(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), 5, 5, 5, 5, 20)
	summary, err := analyzer.Analyze(ds, 100, 60)
	require.NoError(t, err)
	return Input{
		Dataset:     ds,
		Summary:     summary,
		Signal:      anomaly.Detect(ds),
		TopServices: []chargeback.ServiceCost{{Service: "AmazonEC2", Cost: 30}},
	}
}

func TestGenerator_UsesModel(t *testing.T) {
	fake := &fakeGenerator{text: "*Cost Overview*\n• all good"}
	g := NewGenerator(fake, Config{}, nil)

	res := g.Generate(context.Background(), scenarioInput(t))

	assert.Equal(t, SourceAI, res.Source)
	assert.NoError(t, res.Err)
	assert.Equal(t, "*Cost Overview*\n• all good", res.Text)
	assert.Contains(t, fake.prompt, "Total Cost: $40.00 over 5 days")
	assert.Contains(t, fake.prompt, "+300.0%")
	assert.Contains(t, fake.prompt, "AmazonEC2")
}

func TestGenerator_FallsBack(t *testing.T) {
	in := scenarioInput(t)

	tests := []struct {
		name    string
		client  TextGenerator
		wantErr error
	}{
		{name: "no client", client: nil, wantErr: ErrNotConfigured},
		{name: "model error", client: &fakeGenerator{err: errors.New("status 503")}},
		{name: "empty completion", client: &fakeGenerator{text: ""}, wantErr: ErrEmptyCompletion},
		{name: "timeout", client: &fakeGenerator{block: true}, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.client, Config{Timeout: 20 * time.Millisecond}, nil)
			res := g.Generate(context.Background(), in)

			assert.Equal(t, SourceFallback, res.Source)
			assert.Error(t, res.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Equal(t, Fallback(in), res.Text)
		})
	}
}

func TestFallback_Sections(t *testing.T) {
	in := scenarioInput(t)
	text := Fallback(in)

	overview := strings.Index(text, "*Cost Overview*")
	insights := strings.Index(text, "*Key Insights*")
	recs := strings.Index(text, "*Recommendations*")
	require.True(t, overview == 0 && insights > overview && recs > insights, text)

	assert.Contains(t, text, "Total spend: $40.00 over 5 days (avg $8.00/day)")
	assert.Contains(t, text, "Projected monthly: $240.00")
	assert.Contains(t, text, "Budget usage: 40.0% of $100.00")
	assert.Contains(t, text, "interval: $0.3333")
	assert.Contains(t, text, "Spend trend is increasing")
	assert.Contains(t, text, "Spike detected: $20.00 vs trailing average $5.00 (+300.0%).")
	assert.Contains(t, text, "Largest cost driver: AmazonEC2 ($30.00).")
	assert.Contains(t, text, "Projected monthly spend exceeds the budget")

	assert.Equal(t, text, Fallback(in))
}

func TestFallback_QuietPeriod(t *testing.T) {
	ds := costdatatest.FromTotals(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), 3, 3, 3)
	summary, err := analyzer.Analyze(ds, 0, 30)
	require.NoError(t, err)

	text := Fallback(Input{Dataset: ds, Summary: summary})

	assert.NotContains(t, text, "Budget usage")
	assert.Contains(t, text, "Spend trend is stable")
	assert.Contains(t, text, "No cost spikes detected.")
	assert.Contains(t, text, "Spend is under control")
}

func TestBuildPrompt_TruncatesDataset(t *testing.T) {
	ds := costdata.NewMockGenerator(3).Build(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 60)
	summary, _ := analyzer.Analyze(ds, 1000, 60)
	in := Input{Dataset: ds, Summary: summary}

	prompt := BuildPrompt(in, 500)
	assert.Contains(t, prompt, truncationMarker)
	assert.Less(t, len(prompt), 2000)

	full := BuildPrompt(in, 0)
	assert.NotContains(t, full, truncationMarker)
	assert.Greater(t, len(full), 15000)
}

func TestDatasetExcerpt_CutsOnRuneBoundary(t *testing.T) {
	ds := costdatatest.FromTotals(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), 4)
	ds.ResultsByTime[0].Details = []costdata.Detail{{
		Account: "Équipe-東京",
		Service: "Überwachung 監視サービス",
		Total:   costdata.Total{BlendedCost: &costdata.Metric{Amount: "4.00", Unit: "USD"}},
	}}
	in := Input{Dataset: ds}

	for budget := 1; budget < 260; budget++ {
		excerpt := datasetExcerpt(in, budget)
		require.True(t, utf8.ValidString(excerpt), "budget %d", budget)

		body := strings.TrimSuffix(excerpt, truncationMarker)
		assert.LessOrEqual(t, utf8.RuneCountInString(body), budget)
	}
}
