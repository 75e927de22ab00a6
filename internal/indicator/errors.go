package indicator

import (
	"fmt"
	"strings"
)

// ParseError reports an expression that is not of the form name(p1,p2,...).
type ParseError struct {
	Expr   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid indicator expression %q: %s", e.Expr, e.Reason)
}

// ArityError reports a known indicator called with the wrong number of parameters.
type ArityError struct {
	Name    string
	Want    int
	Got     int
	Usage   string
	Example string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s requires %d parameter(s) %s, got %d; example: %s", e.Name, e.Want, e.Usage, e.Got, e.Example)
}

type UnsupportedError struct {
	Name string
}

func (e *UnsupportedError) Error() string {
	examples := make([]string, 0, len(SupportedKinds))
	for _, k := range SupportedKinds {
		examples = append(examples, kindInfos[k].example)
	}
	return fmt.Sprintf("unsupported indicator: %s (supported: %s)", e.Name, strings.Join(examples, ", "))
}

// ParamError reports a parameter value outside the indicator's domain.
type ParamError struct {
	Expr   string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter in %s: %s", e.Expr, e.Reason)
}

// OrderError reports bars that are not strictly ascending by date.
type OrderError struct {
	Index int
	Prev  string
	Date  string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("bars must be in ascending date order: bar %d (%s) does not follow %s", e.Index, e.Date, e.Prev)
}
