/*
Package generic provides the domain-agnostic core of the commission engine.

PURPOSE:
  This package contains the money, calendar and period primitives that the
  compensation rules are expressed in. Nothing here knows what a deal, a
  traffic source or a quota is; the commission package builds those on top.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount tagged with a currency (ILS payouts, USD deposits)
  - Currency: ISO-style currency code
  - RepID / DealID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: Nothing in generic reads the system clock or performs I/O
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing rep/deal IDs
  4. Explicit units: Money carries its currency so reports never guess

USAGE:
  bonus := generic.NewMoneyFromInt(700, generic.ILS)
  total := bonus.Add(generic.NewMoneyFromInt(500, generic.ILS))

SEE ALSO:
  - time.go: TimePoint, work weeks and workday counting
  - period.go: Month/quarter period keys
  - tier.go: Achievement tier ladders
  - projection.go: Run-rate projection
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with currency
// =============================================================================

type Money struct {
	Value    decimal.Decimal `json:"value"`
	Currency Currency        `json:"currency"`
}

type Currency string

const (
	ILS Currency = "ILS"
	USD Currency = "USD"
)

func NewMoney(value float64, currency Currency) Money {
	return Money{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewMoneyFromInt(value int64, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(value), Currency: currency}
}

func ZeroMoney(currency Currency) Money {
	return Money{Value: decimal.Zero, Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (m Money) Zero() Money                 { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value), Currency: m.Currency} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value), Currency: m.Currency} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s), Currency: m.Currency} }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool          { return m.Value.Equal(o.Value) && m.Currency == o.Currency }

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return m.Zero()
	}
	return m
}

func (m Money) String() string {
	return m.Value.StringFixed(2) + " " + string(m.Currency)
}

// SumMoney adds amounts in the given currency. An empty slice sums to zero.
func SumMoney(currency Currency, amounts ...Money) Money {
	total := ZeroMoney(currency)
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RepID string
type DealID string
