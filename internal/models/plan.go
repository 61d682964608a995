package models

import (
	"strings"
	"time"
)

// Plan is a licence duration. Orders request one and tokens carry one.
type Plan string

const (
	PlanOneMonth  Plan = "1m"
	PlanSixMonths Plan = "6m"
	PlanOneYear   Plan = "1y"
)

// ParsePlan normalizes the accepted spellings of a duration.
func ParsePlan(s string) (Plan, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1m", "1-month", "1month":
		return PlanOneMonth, true
	case "6m", "6-month", "6month":
		return PlanSixMonths, true
	case "1y", "1-year", "1year", "12m":
		return PlanOneYear, true
	}
	return "", false
}

// Months is the calendar length of the plan.
func (p Plan) Months() int {
	switch p {
	case PlanSixMonths:
		return 6
	case PlanOneYear:
		return 12
	default:
		return 1
	}
}

// ExpiryFrom adds the plan to t. The day of month is clamped to the last day
// of the target month, so Jan 31 + 1m is the last day of February rather than
// an overflow into March.
func (p Plan) ExpiryFrom(t time.Time) time.Time {
	return AddMonths(t, p.Months())
}

// AddMonths adds n calendar months to t, clamping the day of month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
