package indicator

import (
	"math"
	"strconv"
)

type Kind string

const (
	KindMA   Kind = "ma"
	KindMACD Kind = "macd"
	KindRSI  Kind = "rsi"
	KindKDJ  Kind = "kdj"
	KindBOLL Kind = "boll"
)

// maxPeriod bounds every window parameter.
const maxPeriod = 1000

// SupportedKinds is the closed set of indicators in presentation order.
var SupportedKinds = []Kind{KindMACD, KindRSI, KindKDJ, KindBOLL, KindMA}

type kindInfo struct {
	arity       int
	usage       string
	example     string
	description string
}

var kindInfos = map[Kind]kindInfo{
	KindMA:   {arity: 1, usage: "ma(period)", example: "ma(20)", description: "Simple moving average of close"},
	KindMACD: {arity: 3, usage: "macd(fast,slow,signal)", example: "macd(12,26,9)", description: "Moving average convergence divergence: DIF, DEA and histogram"},
	KindRSI:  {arity: 1, usage: "rsi(period)", example: "rsi(14)", description: "Relative strength index over simple-average gains and losses"},
	KindKDJ:  {arity: 3, usage: "kdj(period,k_smooth,d_smooth)", example: "kdj(9,3,3)", description: "Stochastic K, D and J lines"},
	KindBOLL: {arity: 2, usage: "boll(period,multiplier)", example: "boll(20,2)", description: "Bollinger bands: SMA middle with population stddev bands"},
}

// Usage returns the parameter signature, e.g. "macd(fast,slow,signal)".
func (k Kind) Usage() string { return kindInfos[k].usage }

func (k Kind) Example() string { return kindInfos[k].example }

func (k Kind) Description() string { return kindInfos[k].description }

// Spec is a validated indicator request. The set of implementations is closed.
type Spec interface {
	Kind() Kind
	Params() []float64
	// Lookback is the theoretical minimum number of bars before the first
	// fully stable value.
	Lookback() int
	spec()
}

type MA struct {
	Period int
}

type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

type RSI struct {
	Period int
}

type KDJ struct {
	Period  int
	KSmooth int
	DSmooth int
}

type BOLL struct {
	Period int
	Mult   float64
}

func (MA) Kind() Kind   { return KindMA }
func (MACD) Kind() Kind { return KindMACD }
func (RSI) Kind() Kind  { return KindRSI }
func (KDJ) Kind() Kind  { return KindKDJ }
func (BOLL) Kind() Kind { return KindBOLL }

func (s MA) Params() []float64 { return []float64{float64(s.Period)} }
func (s MACD) Params() []float64 {
	return []float64{float64(s.Fast), float64(s.Slow), float64(s.Signal)}
}
func (s RSI) Params() []float64 { return []float64{float64(s.Period)} }
func (s KDJ) Params() []float64 {
	return []float64{float64(s.Period), float64(s.KSmooth), float64(s.DSmooth)}
}
func (s BOLL) Params() []float64 { return []float64{float64(s.Period), s.Mult} }

func (s MA) Lookback() int   { return s.Period }
func (s MACD) Lookback() int { return s.Slow + s.Signal }
func (s RSI) Lookback() int  { return s.Period + 1 }
func (s KDJ) Lookback() int  { return s.Period + s.KSmooth + s.DSmooth }
func (s BOLL) Lookback() int { return s.Period }

func (MA) spec()   {}
func (MACD) spec() {}
func (RSI) spec()  {}
func (KDJ) spec()  {}
func (BOLL) spec() {}

// Label is the canonical expression of a spec, e.g. "boll(20,2)".
func Label(s Spec) string {
	return FormatParams(string(s.Kind()), s.Params())
}

// Resolve validates arity and parameter domains of a parsed expression.
func Resolve(e Expr) (Spec, error) {
	kind := Kind(e.Name)
	info, ok := kindInfos[kind]
	if !ok {
		return nil, &UnsupportedError{Name: e.Name}
	}
	if len(e.Params) != info.arity {
		return nil, &ArityError{
			Name:    e.Name,
			Want:    info.arity,
			Got:     len(e.Params),
			Usage:   info.usage,
			Example: info.example,
		}
	}

	p := paramReader{expr: e}
	var s Spec
	switch kind {
	case KindMA:
		s = MA{Period: p.period(0)}
	case KindRSI:
		s = RSI{Period: p.period(0)}
	case KindMACD:
		s = MACD{Fast: p.period(0), Slow: p.period(1), Signal: p.period(2)}
	case KindKDJ:
		s = KDJ{Period: p.period(0), KSmooth: p.period(1), DSmooth: p.period(2)}
	case KindBOLL:
		s = BOLL{Period: p.period(0), Mult: p.positive(1)}
	}
	if p.err != nil {
		return nil, p.err
	}
	return s, nil
}

// Parse is ParseParams followed by Resolve.
func Parse(expr string) (Spec, error) {
	e, err := ParseParams(expr)
	if err != nil {
		return nil, err
	}
	return Resolve(e)
}

// ParseAll resolves every expression, failing on the first error. Exact
// duplicates are dropped, keeping the first occurrence.
func ParseAll(exprs []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(exprs))
	seen := make(map[string]struct{}, len(exprs))
	for _, raw := range exprs {
		s, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		label := Label(s)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		specs = append(specs, s)
	}
	return specs, nil
}

type paramReader struct {
	expr Expr
	err  error
}

func (r *paramReader) period(i int) int {
	if r.err != nil {
		return 0
	}
	v := r.expr.Params[i]
	if v <= 0 || v != math.Trunc(v) {
		r.fail("parameter " + strconv.Itoa(i+1) + " must be a positive integer")
		return 0
	}
	if v > maxPeriod {
		r.fail("parameter " + strconv.Itoa(i+1) + " exceeds " + strconv.Itoa(maxPeriod))
		return 0
	}
	return int(v)
}

func (r *paramReader) positive(i int) float64 {
	if r.err != nil {
		return 0
	}
	v := r.expr.Params[i]
	if v <= 0 {
		r.fail("parameter " + strconv.Itoa(i+1) + " must be positive")
		return 0
	}
	return v
}

func (r *paramReader) fail(reason string) {
	r.err = &ParamError{Expr: r.expr.String(), Reason: reason}
}
