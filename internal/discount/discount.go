// Package discount computes which percentage discounts apply to a price and by
// how much. Strategies form a closed family: NoDiscount, Single, Chained and
// PriceLimited. All of them are pure; they are built per computation and never
// mutated.
package discount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vetrina/internal/money"
)

// ErrValidation is returned when a strategy is constructed with an invalid
// percentage or cap.
var ErrValidation = errors.New("discount: validation failed")

// DefaultCap is the maximum fraction of the original price that stacked
// discounts may remove when no store specific cap is configured.
var DefaultCap = decimal.RequireFromString("0.40")

// Application is a single discount event in a sequence.
type Application struct {
	DiscountedAmount money.Money     `json:"discounted_amount"`
	AppliedTo        money.Money     `json:"applied_to"`
	Percentage       decimal.Decimal `json:"percentage"`
}

// Strategy yields the discount applications for a price.
type Strategy interface {
	Apply(appliedTo money.Money) ([]Application, error)
	strategy()
}

// NoDiscount applies nothing.
type NoDiscount struct{}

func (NoDiscount) strategy() {}

// Apply returns an empty sequence.
func (NoDiscount) Apply(money.Money) ([]Application, error) { return nil, nil }

// Single removes a fixed percentage of the price it is applied to.
type Single struct {
	percentage decimal.Decimal
}

// NewSingle validates that percentage lies in (0, 1].
func NewSingle(percentage decimal.Decimal) (Single, error) {
	if !percentage.IsPositive() {
		return Single{}, fmt.Errorf("%w: percentage %s must be greater than zero", ErrValidation, percentage)
	}
	if percentage.GreaterThan(decimal.NewFromInt(1)) {
		return Single{}, fmt.Errorf("%w: percentage %s cannot exceed the total price", ErrValidation, percentage)
	}
	return Single{percentage: percentage}, nil
}

func (Single) strategy() {}

// Percentage returns the configured fraction.
func (s Single) Percentage() decimal.Decimal { return s.percentage }

// Apply returns exactly one application of appliedTo * percentage.
func (s Single) Apply(appliedTo money.Money) ([]Application, error) {
	amount, err := appliedTo.Mul(s.percentage)
	if err != nil {
		return nil, err
	}
	return []Application{{DiscountedAmount: amount, AppliedTo: appliedTo, Percentage: s.percentage}}, nil
}

// Chained applies its strategies in order, each against the price left over by
// the previous ones.
type Chained struct {
	strategies []Strategy
}

// NewChained builds a chain. An empty chain applies nothing.
func NewChained(strategies ...Strategy) Chained {
	return Chained{strategies: append([]Strategy(nil), strategies...)}
}

func (Chained) strategy() {}

// Apply compounds the inner discounts and stops the whole chain as soon as the
// remaining price reaches zero.
func (c Chained) Apply(appliedTo money.Money) ([]Application, error) {
	var out []Application
	remaining := appliedTo
	for _, inner := range c.strategies {
		applied, err := inner.Apply(remaining)
		if err != nil {
			return nil, err
		}
		for _, app := range applied {
			out = append(out, app)
			remaining, err = remaining.Sub(app.DiscountedAmount)
			if err != nil {
				return nil, err
			}
			if remaining.IsZero() {
				return out, nil
			}
		}
	}
	return out, nil
}

// PriceLimited clips an inner strategy so the resulting price never drops
// below appliedTo * (1 - cap).
type PriceLimited struct {
	inner Strategy
	limit decimal.Decimal
}

// NewPriceLimited validates that cap lies in the open interval (0, 1).
func NewPriceLimited(inner Strategy, limit decimal.Decimal) (PriceLimited, error) {
	if !limit.IsPositive() || limit.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return PriceLimited{}, fmt.Errorf("%w: cap %s must be within (0, 1)", ErrValidation, limit)
	}
	if inner == nil {
		inner = NoDiscount{}
	}
	return PriceLimited{inner: inner, limit: limit}, nil
}

func (PriceLimited) strategy() {}

// Cap returns the maximum removable fraction.
func (p PriceLimited) Cap() decimal.Decimal { return p.limit }

// Apply passes inner applications through until one would reach the floor;
// that one is truncated to land exactly on the floor and enumeration stops.
func (p PriceLimited) Apply(appliedTo money.Money) ([]Application, error) {
	maxOff, err := appliedTo.Mul(p.limit)
	if err != nil {
		return nil, err
	}
	floor, err := appliedTo.Sub(maxOff)
	if err != nil {
		return nil, err
	}
	applied, err := p.inner.Apply(appliedTo)
	if err != nil {
		return nil, err
	}

	out := make([]Application, 0, len(applied))
	current := appliedTo
	for _, app := range applied {
		next, err := current.Sub(app.DiscountedAmount)
		if err != nil {
			return nil, err
		}
		cmp, err := next.Compare(floor)
		if err != nil {
			return nil, err
		}
		if cmp <= 0 {
			clipped, err := current.Sub(floor)
			if err != nil {
				return nil, err
			}
			app.DiscountedAmount = clipped
			return append(out, app), nil
		}
		out = append(out, app)
		current = next
	}
	return out, nil
}

// Create builds the strategy for the active discount percentages using
// DefaultCap.
func Create(percentages []decimal.Decimal) (Strategy, error) {
	return CreateWithCap(percentages, DefaultCap)
}

// CreateWithCap maps no percentages to NoDiscount, one to Single and several
// to a capped chain of Singles.
func CreateWithCap(percentages []decimal.Decimal, limit decimal.Decimal) (Strategy, error) {
	switch len(percentages) {
	case 0:
		return NoDiscount{}, nil
	case 1:
		single, err := NewSingle(percentages[0])
		if err != nil {
			return nil, err
		}
		return single, nil
	}
	singles := make([]Strategy, 0, len(percentages))
	for _, pct := range percentages {
		single, err := NewSingle(pct)
		if err != nil {
			return nil, err
		}
		singles = append(singles, single)
	}
	limited, err := NewPriceLimited(NewChained(singles...), limit)
	if err != nil {
		return nil, err
	}
	return limited, nil
}

// Total sums the discounted amounts of applications starting from zero.
func Total(applications []Application, currency money.Currency) (money.Money, error) {
	total := money.Zero(currency)
	for _, app := range applications {
		var err error
		total, err = total.Add(app.DiscountedAmount)
		if err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}
