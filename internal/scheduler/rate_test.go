package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateExpression(t *testing.T) {
	assert.Equal(t, "rate(1 minute)", RateExpression(1))
	assert.Equal(t, "rate(5 minutes)", RateExpression(5))
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"rate(5 minutes)", 5},
		{"rate(1 minute)", 1},
		{"rate(1 hour)", 60},
		{"rate(3 hours)", 180},
		{"rate(1 day)", 1440},
		{"cron(0 12 * * ? *)", 60},
		{"", 60},
		{"rate(0 minutes)", 60},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInterval(tt.expr))
		})
	}
}
