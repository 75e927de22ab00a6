package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"finance-mcp/internal/domain"
)

var csvColumns = []string{"date", "open", "high", "low", "close", "volume"}

// readBars parses date,open,high,low,close,volume rows. A header row is
// skipped, dates may use YYYYMMDD or YYYY-MM-DD and the result is ascending.
func readBars(in io.Reader) ([]domain.PriceBar, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var bars []domain.PriceBar
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		if len(rec) < len(csvColumns) {
			return nil, fmt.Errorf("line %d: expected %d columns (%s), got %d",
				line, len(csvColumns), strings.Join(csvColumns, ","), len(rec))
		}
		bar, err := parseBar(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

func parseBar(rec []string) (domain.PriceBar, error) {
	date := strings.ReplaceAll(strings.TrimSpace(rec[0]), "-", "")
	if _, err := domain.ParseDate(date); err != nil {
		return domain.PriceBar{}, err
	}
	values := make([]float64, len(csvColumns)-1)
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("invalid %s %q", csvColumns[i+1], rec[i+1])
		}
		values[i] = v
	}
	return domain.PriceBar{
		Date:   date,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
