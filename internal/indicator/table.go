package indicator

import (
	"strconv"
	"strings"

	"finance-mcp/internal/domain"
)

// Column is one output series of a spec. MACD, KDJ and BOLL contribute three
// columns each; MA and RSI one.
type Column struct {
	Key  string
	Spec Spec
}

// Row is a bar together with every indicator value at that bar. Values[j]
// belongs to Table.Columns[j].
type Row struct {
	Bar    domain.PriceBar
	Values []float64
}

type Table struct {
	Columns []Column
	Rows    []Row
}

// Series returns the values of the column with the given key in row order,
// or nil if no such column exists.
func (t *Table) Series(key string) []float64 {
	idx := t.columnIndex(key)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values[idx]
	}
	return out
}

func (t *Table) Dates() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Bar.Date
	}
	return out
}

func (t *Table) columnIndex(key string) int {
	for i, c := range t.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Compute runs every spec over bars, which must be strictly ascending by date.
func Compute(bars []domain.PriceBar, specs []Spec) (*Table, error) {
	for i := 1; i < len(bars); i++ {
		if bars[i].Date <= bars[i-1].Date {
			return nil, &OrderError{Index: i, Prev: bars[i-1].Date, Date: bars[i].Date}
		}
	}

	n := len(bars)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		highs[i], lows[i], closes[i] = b.High, b.Low, b.Close
	}

	kindCount := make(map[Kind]int, len(specs))
	for _, s := range specs {
		kindCount[s.Kind()]++
	}

	var (
		columns []Column
		series  [][]float64
	)
	add := func(s Spec, base string, values []float64) {
		key := base
		if kindCount[s.Kind()] > 1 && s.Kind() != KindMA {
			key += strings.TrimPrefix(Label(s), string(s.Kind()))
		}
		columns = append(columns, Column{Key: key, Spec: s})
		series = append(series, values)
	}

	for _, s := range specs {
		switch s := s.(type) {
		case MA:
			add(s, "MA"+strconv.Itoa(s.Period), SMA(closes, s.Period))
		case MACD:
			r := CalcMACD(closes, s.Fast, s.Slow, s.Signal)
			add(s, "MACD_DIF", r.DIF)
			add(s, "MACD_DEA", r.DEA)
			add(s, "MACD", r.Hist)
		case RSI:
			add(s, "RSI", CalcRSI(closes, s.Period))
		case KDJ:
			r := CalcKDJ(highs, lows, closes, s.Period, s.KSmooth, s.DSmooth)
			add(s, "KDJ_K", r.K)
			add(s, "KDJ_D", r.D)
			add(s, "KDJ_J", r.J)
		case BOLL:
			r := CalcBOLL(closes, s.Period, s.Mult)
			add(s, "BOLL_UP", r.Upper)
			add(s, "BOLL_MID", r.Middle)
			add(s, "BOLL_LOW", r.Lower)
		}
	}

	rows := make([]Row, n)
	for i, b := range bars {
		values := make([]float64, len(series))
		for j := range series {
			values[j] = series[j][i]
		}
		rows[i] = Row{Bar: b, Values: values}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// FilterToRange keeps the rows whose date lies in [start, end].
func FilterToRange(t *Table, start, end string) *Table {
	r := domain.DateRange{Start: start, End: end}
	out := &Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if r.Contains(row.Bar.Date) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
