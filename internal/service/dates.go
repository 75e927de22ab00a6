package service

import (
	"strings"
	"time"

	"finance-mcp/internal/domain"
)

// resolveRange fills a missing end with today in MarketZone and a missing
// start with end shifted by years and months.
func resolveRange(now time.Time, start, end string, years, months int) (domain.DateRange, error) {
	r := domain.DateRange{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if r.End == "" {
		r.End = now.In(domain.MarketZone).Format(domain.DateLayout)
	}
	if r.Start == "" {
		endDate, err := domain.ParseDate(r.End)
		if err != nil {
			return r, err
		}
		r.Start = domain.FormatDate(endDate.AddDate(years, months, 0))
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}
