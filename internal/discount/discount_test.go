package discount_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/discount"
	"github.com/noah-isme/backend-vetrina/internal/money"
)

func dollars(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.Parse(amount, money.USD)
	require.NoError(t, err)
	return m
}

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func single(t *testing.T, v string) discount.Single {
	t.Helper()
	s, err := discount.NewSingle(pct(v))
	require.NoError(t, err)
	return s
}

func amounts(apps []discount.Application) []string {
	out := make([]string, 0, len(apps))
	for _, app := range apps {
		out = append(out, app.DiscountedAmount.Amount().String())
	}
	return out
}

func finalPrice(t *testing.T, price money.Money, apps []discount.Application) money.Money {
	t.Helper()
	total, err := discount.Total(apps, price.Currency())
	require.NoError(t, err)
	final, err := price.Sub(total)
	require.NoError(t, err)
	return final
}

func TestSingleAppliesPercentage(t *testing.T) {
	price := dollars(t, "100")
	apps, err := single(t, "0.1").Apply(price)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.True(t, apps[0].DiscountedAmount.Equal(dollars(t, "10")))
	require.True(t, apps[0].AppliedTo.Equal(price))
	require.True(t, apps[0].Percentage.Equal(pct("0.1")))
	require.True(t, finalPrice(t, price, apps).Equal(dollars(t, "90")))
}

func TestSingleRejectsInvalidPercentage(t *testing.T) {
	for _, v := range []string{"0", "-0.1", "1.1"} {
		_, err := discount.NewSingle(pct(v))
		require.ErrorIs(t, err, discount.ErrValidation, "percentage %s", v)
	}
	_, err := discount.NewSingle(pct("1"))
	require.NoError(t, err)
}

func TestPriceLimitedRejectsInvalidCap(t *testing.T) {
	for _, v := range []string{"0", "1", "1.5", "-0.2"} {
		_, err := discount.NewPriceLimited(discount.NoDiscount{}, pct(v))
		require.ErrorIs(t, err, discount.ErrValidation, "cap %s", v)
	}
}

func TestChainedCompoundsOnRemainingPrice(t *testing.T) {
	price := dollars(t, "100")
	chain := discount.NewChained(single(t, "0.1"), single(t, "0.2"))

	apps, err := chain.Apply(price)
	require.NoError(t, err)
	require.Equal(t, []string{"10", "18"}, amounts(apps))
	require.True(t, apps[1].AppliedTo.Equal(dollars(t, "90")))
	require.True(t, finalPrice(t, price, apps).Equal(dollars(t, "72")))
}

func TestChainedStopsWhenPriceReachesZero(t *testing.T) {
	price := dollars(t, "40")
	inner := discount.NewChained(single(t, "0.5"), single(t, "1"), single(t, "0.3"))
	chain := discount.NewChained(inner, single(t, "0.2"))

	apps, err := chain.Apply(price)
	require.NoError(t, err)
	require.Equal(t, []string{"20", "20"}, amounts(apps))
	require.True(t, finalPrice(t, price, apps).IsZero())
}

func TestPriceLimitedTruncatesAtFloor(t *testing.T) {
	price := dollars(t, "100")
	chain := discount.NewChained(single(t, "0.1"), single(t, "0.2"))
	limited, err := discount.NewPriceLimited(chain, pct("0.25"))
	require.NoError(t, err)

	apps, err := limited.Apply(price)
	require.NoError(t, err)
	require.Equal(t, []string{"10", "15"}, amounts(apps))
	require.True(t, apps[1].Percentage.Equal(pct("0.2")))
	require.True(t, finalPrice(t, price, apps).Equal(dollars(t, "75")))
}

func TestPriceLimitedStopsAfterFirstClippedDiscount(t *testing.T) {
	price := dollars(t, "100")
	chain := discount.NewChained(single(t, "0.3"), single(t, "0.2"))
	limited, err := discount.NewPriceLimited(chain, pct("0.25"))
	require.NoError(t, err)

	apps, err := limited.Apply(price)
	require.NoError(t, err)
	require.Equal(t, []string{"25"}, amounts(apps))
}

func TestPriceLimitedLandsExactlyOnMinimumPrice(t *testing.T) {
	price := dollars(t, "100")
	chain := discount.NewChained(single(t, "0.1"), single(t, "0.1"), single(t, "0.6"))
	limited, err := discount.NewPriceLimited(chain, pct("0.35"))
	require.NoError(t, err)

	apps, err := limited.Apply(price)
	require.NoError(t, err)
	require.Len(t, apps, 3)
	require.True(t, finalPrice(t, price, apps).Equal(dollars(t, "65")))
}

func TestPriceLimitedUnderCapPassesThrough(t *testing.T) {
	limited, err := discount.NewPriceLimited(single(t, "0.2"), pct("0.3"))
	require.NoError(t, err)

	apps, err := limited.Apply(dollars(t, "100"))
	require.NoError(t, err)
	require.Equal(t, []string{"20"}, amounts(apps))
}

func TestPriceLimitedWithoutDiscounts(t *testing.T) {
	limited, err := discount.NewPriceLimited(discount.NewChained(), pct("0.25"))
	require.NoError(t, err)

	apps, err := limited.Apply(dollars(t, "100"))
	require.NoError(t, err)
	require.Empty(t, apps)
}

func TestPriceLimitedNeverBreaksFloor(t *testing.T) {
	chains := [][]string{
		{"0.5", "0.5", "0.5"},
		{"0.05", "0.05", "0.05", "0.05"},
		{"1"},
		{"0.15", "0.9"},
	}
	for _, caps := range []string{"0.1", "0.4", "0.75"} {
		for _, percentages := range chains {
			strategies := make([]discount.Strategy, 0, len(percentages))
			for _, p := range percentages {
				strategies = append(strategies, single(t, p))
			}
			limited, err := discount.NewPriceLimited(discount.NewChained(strategies...), pct(caps))
			require.NoError(t, err)

			price := dollars(t, "250")
			apps, err := limited.Apply(price)
			require.NoError(t, err)

			floor := price.Amount().Mul(decimal.NewFromInt(1).Sub(pct(caps)))
			final := finalPrice(t, price, apps)
			require.True(t, final.Amount().GreaterThanOrEqual(floor), "cap %s chain %v final %s", caps, percentages, final)
		}
	}
}

func TestCreate(t *testing.T) {
	price := dollars(t, "50")

	strategy, err := discount.Create(nil)
	require.NoError(t, err)
	require.IsType(t, discount.NoDiscount{}, strategy)
	apps, err := strategy.Apply(price)
	require.NoError(t, err)
	require.Empty(t, apps)
	require.True(t, finalPrice(t, price, apps).Equal(price))

	strategy, err = discount.Create([]decimal.Decimal{pct("0.1")})
	require.NoError(t, err)
	require.IsType(t, discount.Single{}, strategy)

	strategy, err = discount.Create([]decimal.Decimal{pct("0.3"), pct("0.3")})
	require.NoError(t, err)
	limited, ok := strategy.(discount.PriceLimited)
	require.True(t, ok)
	require.True(t, limited.Cap().Equal(discount.DefaultCap))
	apps, err = strategy.Apply(price)
	require.NoError(t, err)
	require.True(t, finalPrice(t, price, apps).Equal(dollars(t, "30")))

	_, err = discount.Create([]decimal.Decimal{pct("0.3"), pct("0")})
	require.ErrorIs(t, err, discount.ErrValidation)
	_, err = discount.CreateWithCap([]decimal.Decimal{pct("0.3"), pct("0.1")}, pct("1"))
	require.ErrorIs(t, err, discount.ErrValidation)
}

func TestTotal(t *testing.T) {
	total, err := discount.Total(nil, money.EUR)
	require.NoError(t, err)
	require.True(t, total.IsZero())
	require.Equal(t, money.EUR, total.Currency())
}
