package render

import (
	"fmt"
	"strings"

	"finance-mcp/internal/domain"
	"finance-mcp/internal/indicator"
)

const (
	pricePlaces     = 4
	macdPlaces      = 4
	indicatorPlaces = 2
)

type extraColumn struct {
	key   string
	title string
}

var (
	equityExtras = []extraColumn{{"pct_chg", "Change %"}, {"amount", "Amount"}}

	marketExtras = map[domain.Market][]extraColumn{
		domain.MarketCN:      equityExtras,
		domain.MarketUS:      equityExtras,
		domain.MarketHK:      equityExtras,
		domain.MarketFund:    equityExtras,
		domain.MarketFX:      {{"bid_close", "Bid close"}, {"ask_close", "Ask close"}},
		domain.MarketFutures: {{"settle", "Settle"}, {"oi", "Open interest"}, {"amount", "Amount"}},
		domain.MarketOptions: {{"settle", "Settle"}, {"oi", "Open interest"}, {"amount", "Amount"}},
		domain.MarketRepo:    {{"weight", "Weighted rate"}, {"amount", "Amount"}, {"num", "Trades"}},
		domain.MarketConvertibleBond: {
			{"pct_chg", "Change %"}, {"amount", "Amount"}, {"bond_value", "Bond value"},
			{"cb_value", "Conversion value"}, {"cb_over_rate", "Conversion premium %"},
		},
	}
)

// StockReport renders t newest first under a heading for code, followed by a
// legend of the indicators it carries.
func StockReport(code string, market domain.Market, t *indicator.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s daily bars", code, domain.MarketTitles[market])
	if market == domain.MarketCN {
		b.WriteString(" (forward adjusted)")
	}
	b.WriteString("\n\n")

	if len(t.Rows) == 0 {
		b.WriteString("No bars in the requested range.\n")
		return b.String()
	}

	extras := marketExtras[market]
	headers := []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	for _, e := range extras {
		headers = append(headers, e.title)
	}
	for _, c := range t.Columns {
		headers = append(headers, c.Key)
	}

	rows := make([][]string, 0, len(t.Rows))
	for i := len(t.Rows) - 1; i >= 0; i-- {
		r := t.Rows[i]
		row := []string{
			r.Bar.Date,
			Number(r.Bar.Open, pricePlaces),
			Number(r.Bar.High, pricePlaces),
			Number(r.Bar.Low, pricePlaces),
			Number(r.Bar.Close, pricePlaces),
			Number(r.Bar.Volume, pricePlaces),
		}
		for _, e := range extras {
			row = append(row, r.Bar.Extra[e.key])
		}
		for j, c := range t.Columns {
			row = append(row, Fixed(r.Values[j], columnPlaces(c)))
		}
		rows = append(rows, row)
	}
	b.WriteString(Table(headers, rows))

	if legend := Legend(t.Columns); legend != "" {
		b.WriteString("\n")
		b.WriteString(legend)
	}
	return b.String()
}

func columnPlaces(c indicator.Column) int32 {
	if c.Spec.Kind() == indicator.KindMACD {
		return macdPlaces
	}
	return indicatorPlaces
}

// Legend lists every distinct indicator among columns with its canonical parameters.
func Legend(columns []indicator.Column) string {
	var b strings.Builder
	seen := make(map[string]struct{})
	for _, c := range columns {
		label := indicator.Label(c.Spec)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		if b.Len() == 0 {
			b.WriteString("## Indicators\n")
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", strings.ToUpper(label), c.Spec.Kind().Description())
	}
	return b.String()
}
