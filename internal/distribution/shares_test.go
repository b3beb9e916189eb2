package distribution

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payoutByOwner(shares []ownerShare) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(shares))
	for _, s := range shares {
		out[s.OwnerID] = s.Payout
	}
	return out
}

func TestComputePayoutsProportionalSplit(t *testing.T) {
	shares := computePayouts(decimal.NewFromInt(1000), map[int64]decimal.Decimal{
		1: decimal.NewFromInt(60),
		2: decimal.NewFromInt(40),
	})

	require.Len(t, shares, 2)
	payouts := payoutByOwner(shares)
	assert.True(t, payouts[1].Equal(decimal.RequireFromString("600")))
	assert.True(t, payouts[2].Equal(decimal.RequireFromString("400")))
}

func TestComputePayoutsRoundingRemainderToLargest(t *testing.T) {
	// 100 / 3 leaves one cent after rounding down; it lands on the largest
	// contributor, with owner id breaking the tie.
	shares := computePayouts(decimal.NewFromInt(100), map[int64]decimal.Decimal{
		5: decimal.NewFromInt(1),
		7: decimal.NewFromInt(1),
		9: decimal.NewFromInt(1),
	})

	require.Len(t, shares, 3)
	assert.Equal(t, int64(5), shares[0].OwnerID)
	assert.True(t, shares[0].Payout.Equal(decimal.RequireFromString("33.34")))
	assert.True(t, shares[1].Payout.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, shares[2].Payout.Equal(decimal.RequireFromString("33.33")))
}

func TestComputePayoutsSumEqualsTotal(t *testing.T) {
	total := decimal.RequireFromString("12345.67")
	contributions := map[int64]decimal.Decimal{
		1: decimal.RequireFromString("17.3"),
		2: decimal.RequireFromString("911.044"),
		3: decimal.RequireFromString("0.002"),
		4: decimal.RequireFromString("358.9"),
	}

	shares := computePayouts(total, contributions)

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Payout)
	}
	assert.True(t, sum.Equal(total), "payouts sum to %s, want %s", sum, total)
}

func TestComputePayoutsIgnoresNonPositiveContributions(t *testing.T) {
	shares := computePayouts(decimal.NewFromInt(100), map[int64]decimal.Decimal{
		1: decimal.NewFromInt(50),
		2: decimal.Zero,
		3: decimal.NewFromInt(-10),
	})

	require.Len(t, shares, 1)
	assert.Equal(t, int64(1), shares[0].OwnerID)
	assert.True(t, shares[0].Payout.Equal(decimal.NewFromInt(100)))
}

func TestComputePayoutsNoContributors(t *testing.T) {
	assert.Empty(t, computePayouts(decimal.NewFromInt(100), nil))
	assert.Empty(t, computePayouts(decimal.NewFromInt(100), map[int64]decimal.Decimal{
		1: decimal.Zero,
	}))
}

func TestComputePayoutsDeterministicOrder(t *testing.T) {
	contributions := map[int64]decimal.Decimal{
		1: decimal.NewFromInt(10),
		2: decimal.NewFromInt(30),
		3: decimal.NewFromInt(20),
	}

	first := computePayouts(decimal.NewFromInt(600), contributions)
	second := computePayouts(decimal.NewFromInt(600), contributions)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].OwnerID, second[i].OwnerID)
		assert.True(t, first[i].Payout.Equal(second[i].Payout))
	}
	assert.Equal(t, int64(2), first[0].OwnerID)
}
