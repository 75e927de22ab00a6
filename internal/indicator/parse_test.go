package indicator

import (
	"errors"
	"strings"
	"testing"
)

func TestParseParamsValid(t *testing.T) {
	tests := []struct {
		expr   string
		name   string
		params []float64
	}{
		{"macd(12,26,9)", "macd", []float64{12, 26, 9}},
		{"MACD(12,26,9)", "macd", []float64{12, 26, 9}},
		{"boll(20,2.5)", "boll", []float64{20, 2.5}},
		{"rsi(14)", "rsi", []float64{14}},
		{"ma()", "ma", nil},
		{"  kdj(9,3,3) ", "kdj", []float64{9, 3, 3}},
	}
	for _, tt := range tests {
		e, err := ParseParams(tt.expr)
		if err != nil {
			t.Fatalf("ParseParams(%q) error: %v", tt.expr, err)
		}
		if e.Name != tt.name {
			t.Fatalf("ParseParams(%q) name = %q, want %q", tt.expr, e.Name, tt.name)
		}
		if len(e.Params) != len(tt.params) {
			t.Fatalf("ParseParams(%q) params = %v, want %v", tt.expr, e.Params, tt.params)
		}
		for i := range tt.params {
			if e.Params[i] != tt.params[i] {
				t.Fatalf("ParseParams(%q) param %d = %v, want %v", tt.expr, i, e.Params[i], tt.params[i])
			}
		}
	}
}

func TestParseParamsRejectsMalformed(t *testing.T) {
	for _, expr := range []string{"bad", "", "(5)", "ma(5", "ma5)", "ma( 5)", "ma(5, 6)", "ma(x)", "ma(5,)", "ma((5))", "m-a(5)", "ma(NaN)", "ma(Inf)"} {
		_, err := ParseParams(expr)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("ParseParams(%q) error = %v, want *ParseError", expr, err)
		}
		if perr.Expr != expr {
			t.Fatalf("ParseError.Expr = %q, want %q", perr.Expr, expr)
		}
	}
}

func TestFormatParamsRoundTrip(t *testing.T) {
	for _, expr := range []string{"macd(12,26,9)", "rsi(14)", "kdj(9,3,3)", "boll(20,2)", "boll(20,2.5)", "ma(5)", "ma()"} {
		e, err := ParseParams(expr)
		if err != nil {
			t.Fatalf("ParseParams(%q) error: %v", expr, err)
		}
		if got := FormatParams(e.Name, e.Params); got != expr {
			t.Fatalf("FormatParams round trip = %q, want %q", got, expr)
		}
	}
}

func TestSplitExprs(t *testing.T) {
	got := SplitExprs("  macd(12,26,9)   rsi(14)\tma(5) ")
	want := []string{"macd(12,26,9)", "rsi(14)", "ma(5)"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("SplitExprs = %v, want %v", got, want)
	}
	if len(SplitExprs("   ")) != 0 {
		t.Fatal("expected no expressions for blank input")
	}
}

func TestResolveVariants(t *testing.T) {
	tests := []struct {
		expr string
		want Spec
	}{
		{"ma(20)", MA{Period: 20}},
		{"macd(12,26,9)", MACD{Fast: 12, Slow: 26, Signal: 9}},
		{"rsi(14)", RSI{Period: 14}},
		{"kdj(9,3,3)", KDJ{Period: 9, KSmooth: 3, DSmooth: 3}},
		{"boll(20,2)", BOLL{Period: 20, Mult: 2}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.expr)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %#v, want %#v", tt.expr, got, tt.want)
		}
		if Label(got) != tt.expr {
			t.Fatalf("Label = %q, want %q", Label(got), tt.expr)
		}
	}
}

func TestResolveArity(t *testing.T) {
	tests := []struct {
		expr string
		want int
		got  int
	}{
		{"macd(12,26)", 3, 2},
		{"ma()", 1, 0},
		{"rsi(14,2)", 1, 2},
		{"kdj(9)", 3, 1},
		{"boll(20)", 2, 1},
	}
	for _, tt := range tests {
		_, err := Parse(tt.expr)
		var aerr *ArityError
		if !errors.As(err, &aerr) {
			t.Fatalf("Parse(%q) error = %v, want *ArityError", tt.expr, err)
		}
		if aerr.Want != tt.want || aerr.Got != tt.got {
			t.Fatalf("Parse(%q) arity = %d/%d, want %d/%d", tt.expr, aerr.Got, aerr.Want, tt.got, tt.want)
		}
		if aerr.Example == "" || !strings.Contains(err.Error(), aerr.Example) {
			t.Fatalf("expected example in %q", err.Error())
		}
	}
}

func TestResolveUnsupported(t *testing.T) {
	_, err := Parse("foo(1)")
	var uerr *UnsupportedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnsupportedError, got %v", err)
	}
	for _, want := range []string{"foo", "macd(12,26,9)", "rsi(14)", "kdj(9,3,3)", "boll(20,2)", "ma(20)"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestResolveParamDomain(t *testing.T) {
	for _, expr := range []string{"ma(0)", "ma(-5)", "ma(2.5)", "ma(1001)", "macd(12,0,9)", "boll(20,0)", "boll(20,-1)", "kdj(9,3,1.5)"} {
		_, err := Parse(expr)
		var perr *ParamError
		if !errors.As(err, &perr) {
			t.Fatalf("Parse(%q) error = %v, want *ParamError", expr, err)
		}
	}
	if _, err := Parse("boll(20,1.5)"); err != nil {
		t.Fatalf("fractional multiplier should be accepted: %v", err)
	}
}

func TestParseAllDedupesAndFailsWhole(t *testing.T) {
	specs, err := ParseAll([]string{"ma(5)", "rsi(14)", "MA(5)", "ma(10)"})
	if err != nil {
		t.Fatalf("ParseAll error: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs after dedupe, got %d", len(specs))
	}
	if specs[0] != (MA{Period: 5}) || specs[2] != (MA{Period: 10}) {
		t.Fatalf("unexpected order: %#v", specs)
	}

	specs, err = ParseAll([]string{"ma(5)", "bad"})
	if err == nil || specs != nil {
		t.Fatalf("expected whole-list failure, got %v, %v", specs, err)
	}
}
