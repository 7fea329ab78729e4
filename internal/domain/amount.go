package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a positive BRL quantity with centavo precision.
type Amount struct {
	d decimal.Decimal
}

// NewAmount builds an Amount from a decimal, rounding to centavos.
func NewAmount(d decimal.Decimal) (Amount, error) {
	d = d.Round(2)
	if !d.IsPositive() {
		return Amount{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return Amount{d: d}, nil
}

// MustAmount is NewAmount for literals known to be valid.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount accepts "50", "50.00", "10,50" and "1.234,56".
func ParseAmount(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		if strings.Count(s, ",") > 1 {
			return Amount{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, raw)
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, raw)
	}
	return NewAmount(d)
}

func (a Amount) Decimal() decimal.Decimal { return a.d }

// Float64 is used at the gateway boundary, which speaks JSON numbers.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// String renders the canonical form, e.g. "10.50".
func (a Amount) String() string { return a.d.StringFixed(2) }

func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }
