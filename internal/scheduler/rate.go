package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
)

const defaultQueryInterval = 60

var rateExpr = regexp.MustCompile(`^rate\(\s*(\d+)\s+(minute|minutes|hour|hours|day|days)\s*\)$`)

// RateExpression returns the EventBridge rate for an interval in minutes
func RateExpression(minutes int) string {
	if minutes == 1 {
		return "rate(1 minute)"
	}
	return fmt.Sprintf("rate(%d minutes)", minutes)
}

// ParseInterval converts a rate expression back to minutes. Anything that is
// not a rate expression (cron schedules included) reports 60.
func ParseInterval(expr string) int {
	m := rateExpr.FindStringSubmatch(expr)
	if m == nil {
		return defaultQueryInterval
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return defaultQueryInterval
	}

	switch m[2] {
	case "hour", "hours":
		return n * 60
	case "day", "days":
		return n * 60 * 24
	default:
		return n
	}
}
