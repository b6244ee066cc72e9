// Package indicator provides technical indicator calculations over price series.
//
// Every function is a pure transform of (prices, parameters): it never mutates
// its input, keeps no state between calls and returns output sequences aligned
// 1:1 with the input. Positions an indicator cannot compute yet are Undefined,
// never zero. Functions are safe to call concurrently on independent inputs.
//
// Input policy, shared by all functions:
//   - period < 1 (or any other out-of-range parameter) returns ErrInvalidParameter.
//   - an empty price slice returns ErrInsufficientData.
//   - a NaN or infinite price returns ErrNonFinitePrice.
//   - a non-empty slice shorter than the lookback returns an all-Undefined
//     output and a nil error.
package indicator

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidParameter is returned for out-of-range periods or multipliers.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientData is returned when no prices are supplied.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNonFinitePrice is returned when a price is NaN or infinite.
	ErrNonFinitePrice = errors.New("non-finite price")
)

// Value is a single indicator output position: either Defined(v) or Undefined.
// The zero Value is Undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined marks a position the indicator cannot compute.
var Undefined = Value{}

// Defined wraps a computed value.
func Defined(v float64) Value { return Value{v: v, ok: true} }

// IsDefined reports whether the position holds a computed value.
func (v Value) IsDefined() bool { return v.ok }

// Float returns the value and whether it is defined.
func (v Value) Float() (float64, bool) { return v.v, v.ok }

// Or returns the value, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.ok {
		return fallback
	}
	return v.v
}

func (v Value) String() string {
	if !v.ok {
		return "undefined"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes an undefined value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as Undefined.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Defined(f)
	return nil
}

// Series is an indicator output aligned with its input prices.
type Series []Value

// Last returns the final position, or Undefined for an empty series.
func (s Series) Last() Value {
	if len(s) == 0 {
		return Undefined
	}
	return s[len(s)-1]
}

// FirstDefined returns the index of the first defined position, or -1.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if v.ok {
			return i
		}
	}
	return -1
}

// CountDefined returns the number of defined positions.
func (s Series) CountDefined() int {
	n := 0
	for _, v := range s {
		if v.ok {
			n++
		}
	}
	return n
}

func validatePeriod(name string, period int) error {
	if period < 1 {
		return errors.Wrapf(ErrInvalidParameter, "%s must be >= 1, got %d", name, period)
	}
	return nil
}

func validatePrices(prices []float64) error {
	if len(prices) == 0 {
		return errors.Wrap(ErrInsufficientData, "empty price series")
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.Wrapf(ErrNonFinitePrice, "price at index %d is %v", i, p)
		}
	}
	return nil
}
