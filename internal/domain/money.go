package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is a boundary amount rounded to currency precision (2 decimals).
// Stored amounts stay as decimal.Decimal and are only rounded when they leave the core.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds an amount to 2 decimals
func NewMoney(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// MarshalJSON renders the amount as a 2-decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON accepts a string or a number
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(2)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(2)
	return nil
}

// Float returns the rounded amount as float64 for reporting
func (m Money) Float() float64 {
	f, _ := m.Decimal.Round(2).Float64()
	return f
}

func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}

// Round2 rounds to currency precision
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var hundred = decimal.NewFromInt(100)

// Percent returns amount × pct / 100
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// ApplyMarkup returns base × (1 + pct/100)
func ApplyMarkup(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
}
