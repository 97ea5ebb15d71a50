package insights

import (
	"context"

	"github.com/lvonguyen/cost-reporter/internal/analyzer"
	"github.com/lvonguyen/cost-reporter/internal/anomaly"
	"github.com/lvonguyen/cost-reporter/internal/chargeback"
	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

// TextGenerator completes a prompt with generated text
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Input is everything a summary is written from
type Input struct {
	Dataset     *costdata.Dataset
	Summary     analyzer.Summary
	Signal      *anomaly.Signal
	TopServices []chargeback.ServiceCost
}

// Source tells whether a summary came from the model or the local template
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Result is a generated summary. Err holds the reason the model was skipped
// or failed; the text is always usable.
type Result struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	Err    error  `json:"-"`
}
