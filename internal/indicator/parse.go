package indicator

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed but not yet validated indicator expression.
type Expr struct {
	Name   string
	Params []float64
}

func (e Expr) String() string {
	return FormatParams(e.Name, e.Params)
}

// ParseParams parses "name(p1,p2,...)". Arity is not checked here; see Resolve.
func ParseParams(expr string) (Expr, error) {
	raw := strings.TrimSpace(expr)
	open := strings.IndexByte(raw, '(')
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return Expr{}, &ParseError{Expr: expr, Reason: "expected name(p1,p2,...)"}
	}

	name := strings.ToLower(raw[:open])
	if name == "" {
		return Expr{}, &ParseError{Expr: expr, Reason: "missing indicator name"}
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return Expr{}, &ParseError{Expr: expr, Reason: "indicator name must be alphanumeric"}
		}
	}

	inner := raw[open+1 : len(raw)-1]
	if strings.ContainsAny(inner, "()") {
		return Expr{}, &ParseError{Expr: expr, Reason: "unbalanced parentheses"}
	}
	if strings.IndexFunc(inner, unicode.IsSpace) >= 0 {
		return Expr{}, &ParseError{Expr: expr, Reason: "whitespace is not allowed between parentheses"}
	}

	out := Expr{Name: name}
	if inner == "" {
		return out, nil
	}
	for _, seg := range strings.Split(inner, ",") {
		v, err := strconv.ParseFloat(seg, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Expr{}, &ParseError{Expr: expr, Reason: "parameter " + strconv.Quote(seg) + " is not a number"}
		}
		out.Params = append(out.Params, v)
	}
	return out, nil
}

// FormatParams renders the canonical form of an expression, e.g. macd(12,26,9).
func FormatParams(name string, params []float64) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(p, 'f', -1, 64))
	}
	b.WriteByte(')')
	return b.String()
}

// SplitExprs splits the space-delimited list accepted by the tools.
func SplitExprs(raw string) []string {
	return strings.Fields(raw)
}
