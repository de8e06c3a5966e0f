package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/discount"
	"github.com/noah-isme/backend-vetrina/internal/money"
)

func usd(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.Parse(amount, money.USD)
	require.NoError(t, err)
	return m
}

func pcts(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, decimal.RequireFromString(v))
	}
	return out
}

func TestComputeLabels(t *testing.T) {
	cases := []struct {
		name      string
		price     string
		pcts      []decimal.Decimal
		limit     string
		final     string
		saved     string
		discounts int
	}{
		{name: "no discount", price: "50", final: "50", saved: "0", limit: "0.40"},
		{name: "single", price: "100", pcts: pcts("0.25"), limit: "0.40", final: "75", saved: "25", discounts: 1},
		{name: "chained under cap", price: "100", pcts: pcts("0.10", "0.18"), limit: "0.40", final: "73.8", saved: "26.2", discounts: 2},
		{name: "chained hits cap", price: "100", pcts: pcts("0.10", "0.15"), limit: "0.20", final: "80", saved: "20", discounts: 2},
		{name: "single ignores cap", price: "100", pcts: pcts("0.60"), limit: "0.40", final: "40", saved: "60", discounts: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			label, err := Compute(usd(t, tc.price), tc.pcts, decimal.RequireFromString(tc.limit))
			require.NoError(t, err)
			require.True(t, label.Original.Equal(usd(t, tc.price)))
			require.True(t, label.Final.Equal(usd(t, tc.final)), "final %s", label.Final)
			require.True(t, label.Saved.Equal(usd(t, tc.saved)), "saved %s", label.Saved)
			require.Len(t, label.Discounts, tc.discounts)
			require.NotNil(t, label.Discounts)
		})
	}
}

func TestComputeRejectsInvalidPercentage(t *testing.T) {
	_, err := Compute(usd(t, "10"), pcts("1.5"), discount.DefaultCap)
	require.ErrorIs(t, err, discount.ErrValidation)
}
