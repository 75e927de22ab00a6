package indicator

import (
	"testing"
)

func TestRequiredBarsPerIndicator(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"ma(20)", 40},
		{"macd(12,26,9)", 70},
		{"rsi(14)", 30},
		{"kdj(9,3,3)", 30},
		{"boll(20,2)", 40},
	}
	for _, tt := range tests {
		got, err := RequiredDays([]string{tt.expr})
		if err != nil {
			t.Fatalf("RequiredDays(%q) error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Fatalf("RequiredDays(%q) = %d, want %d", tt.expr, got, tt.want)
		}
	}
}

func TestRequiredBarsUsesMaximum(t *testing.T) {
	both, err := RequiredDays([]string{"ma(5)", "ma(20)"})
	if err != nil {
		t.Fatal(err)
	}
	single, err := RequiredDays([]string{"ma(20)"})
	if err != nil {
		t.Fatal(err)
	}
	if both != single {
		t.Fatalf("expected max not sum: %d vs %d", both, single)
	}
	if RequiredBars() != 0 {
		t.Fatal("expected zero bars without indicators")
	}
}

func TestRequiredBarsMonotone(t *testing.T) {
	prev := 0
	for p := 1; p <= 60; p++ {
		got := RequiredBars(MA{Period: p}, RSI{Period: p}, KDJ{Period: p, KSmooth: 3, DSmooth: 3})
		if got < prev {
			t.Fatalf("RequiredBars decreased at period %d: %d < %d", p, got, prev)
		}
		prev = got
	}
	prev = 0
	for s := 2; s <= 60; s++ {
		got := RequiredBars(MACD{Fast: 1, Slow: s, Signal: 9})
		if got < prev {
			t.Fatalf("RequiredBars decreased at slow %d", s)
		}
		prev = got
	}
}

func TestRequiredDaysPropagatesErrors(t *testing.T) {
	if _, err := RequiredDays([]string{"ma(5)", "foo(1)"}); err == nil {
		t.Fatal("expected error for unsupported indicator")
	}
}

func TestExtendedStartDate(t *testing.T) {
	got, err := ExtendedStartDate("20230101", 14)
	if err != nil {
		t.Fatal(err)
	}
	if got >= "20230101" {
		t.Fatalf("expected a date before 20230101, got %s", got)
	}
	if got != "20221211" {
		t.Fatalf("ExtendedStartDate = %s, want 20221211", got)
	}

	same, err := ExtendedStartDate("20230101", 0)
	if err != nil || same != "20230101" {
		t.Fatalf("expected unchanged start, got %s, %v", same, err)
	}

	if _, err := ExtendedStartDate("2023-01-01", 10); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
