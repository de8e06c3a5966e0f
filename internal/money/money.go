package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when an operation mixes two currencies.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	// ErrNegativeAmount is returned when constructing a value below zero.
	ErrNegativeAmount = errors.New("money: amount must be non-negative")
	// ErrUnknownCurrency is returned for currency tags outside the supported set.
	ErrUnknownCurrency = errors.New("money: unknown currency")
	// ErrInvalidScalar is returned for negative multipliers and non-positive divisors.
	ErrInvalidScalar = errors.New("money: invalid scalar")
)

// Currency tags a monetary amount.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case EUR, USD:
		return true
	default:
		return false
	}
}

// ParseCurrency maps a persisted currency tag onto a Currency. The legacy
// names "Euro" and "Dollars" are accepted as aliases.
func ParseCurrency(tag string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "EUR", "EURO":
		return EUR, nil
	case "USD", "DOLLARS":
		return USD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, tag)
	}
}

// Money is an immutable, currency tagged, non-negative decimal amount.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New validates and constructs a Money value.
func New(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if !currency.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// Parse builds Money from a decimal string such as "19.90".
func Parse(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse amount %q: %w", amount, err)
	}
	return New(d, currency)
}

// Zero returns the zero amount in currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency tag.
func (m Money) Currency() Currency { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other, floored at zero when the result would be negative.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Zero(m.currency), nil
	}
	return Money{amount: result, currency: m.currency}, nil
}

// Mul scales the amount by a non-negative factor.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, fmt.Errorf("%w: multiplier %s is negative", ErrInvalidScalar, factor)
	}
	return Money{amount: m.amount.Mul(factor), currency: m.currency}, nil
}

// Div divides the amount by a strictly positive divisor.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if !divisor.IsPositive() {
		return Money{}, fmt.Errorf("%w: divisor %s must be positive", ErrInvalidScalar, divisor)
	}
	return Money{amount: m.amount.Div(divisor), currency: m.currency}, nil
}

// Compare returns -1, 0 or 1 when m is less than, equal to or greater than other.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal reports whether both values carry the same currency and numerically equal amounts.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.String() + " " + string(m.currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// MarshalJSON renders the amount as a decimal string to avoid float rounding.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON decodes and validates the JSON representation.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
