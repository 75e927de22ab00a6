package indicator

import (
	"math"

	"finance-mcp/internal/domain"
)

// LookbackMultiplier pads the theoretical lookback so recursive indicators
// (EMA, KDJ smoothing) have converged by the first displayed bar.
const LookbackMultiplier = 2

// tradingToCalendar converts trading days to calendar days: 7/5 for weekends
// plus a margin for public holidays.
const tradingToCalendar = 1.5

// RequiredBars is the buffer for a whole request: the largest lookback, not the sum.
func RequiredBars(specs ...Spec) int {
	longest := 0
	for _, s := range specs {
		if l := s.Lookback(); l > longest {
			longest = l
		}
	}
	return longest * LookbackMultiplier
}

// RequiredDays parses exprs and returns RequiredBars for them.
func RequiredDays(exprs []string) (int, error) {
	specs, err := ParseAll(exprs)
	if err != nil {
		return 0, err
	}
	return RequiredBars(specs...), nil
}

// ExtendedStartDate moves start back far enough to cover requiredDays trading days.
func ExtendedStartDate(start string, requiredDays int) (string, error) {
	t, err := domain.ParseDate(start)
	if err != nil {
		return "", err
	}
	if requiredDays <= 0 {
		return domain.FormatDate(t), nil
	}
	days := int(math.Ceil(float64(requiredDays) * tradingToCalendar))
	return domain.FormatDate(t.AddDate(0, 0, -days)), nil
}
