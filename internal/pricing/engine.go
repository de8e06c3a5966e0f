package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vetrina/internal/discount"
	"github.com/noah-isme/backend-vetrina/internal/money"
)

// Label is the price shown for an item: what it cost, what it costs now and
// the discounts that got it there, in application order.
type Label struct {
	Original  money.Money            `json:"original"`
	Final     money.Money            `json:"final"`
	Saved     money.Money            `json:"saved"`
	Discounts []discount.Application `json:"discounts"`
}

// Compute applies the active percentages to price. More than one percentage
// is chained and capped at limit.
func Compute(price money.Money, percentages []decimal.Decimal, limit decimal.Decimal) (Label, error) {
	strategy, err := discount.CreateWithCap(percentages, limit)
	if err != nil {
		return Label{}, err
	}
	apps, err := strategy.Apply(price)
	if err != nil {
		return Label{}, err
	}
	saved, err := discount.Total(apps, price.Currency())
	if err != nil {
		return Label{}, err
	}
	final, err := price.Sub(saved)
	if err != nil {
		return Label{}, err
	}
	if apps == nil {
		apps = []discount.Application{}
	}
	return Label{Original: price, Final: final, Saved: saved, Discounts: apps}, nil
}
