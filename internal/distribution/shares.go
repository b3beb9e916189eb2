package distribution

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ownerShare is one registered owner's aggregated contribution
type ownerShare struct {
	OwnerID      int64
	Contribution decimal.Decimal
	Payout       decimal.Decimal
}

// computePayouts splits totalAmount across owners in proportion to their
// contribution. Amounts are rounded to cents; the rounding remainder goes to
// the largest contributor so the payouts always sum to exactly totalAmount.
// Owners with a non-positive contribution receive nothing.
func computePayouts(totalAmount decimal.Decimal, contributions map[int64]decimal.Decimal) []ownerShare {
	total := decimal.Zero
	for _, c := range contributions {
		if c.IsPositive() {
			total = total.Add(c)
		}
	}
	if !total.IsPositive() {
		return nil
	}

	shares := make([]ownerShare, 0, len(contributions))
	for ownerID, c := range contributions {
		if !c.IsPositive() {
			continue
		}
		shares = append(shares, ownerShare{OwnerID: ownerID, Contribution: c})
	}
	// Deterministic order: largest contribution first, owner id as tiebreak.
	sort.Slice(shares, func(i, j int) bool {
		if !shares[i].Contribution.Equal(shares[j].Contribution) {
			return shares[i].Contribution.GreaterThan(shares[j].Contribution)
		}
		return shares[i].OwnerID < shares[j].OwnerID
	})

	distributed := decimal.Zero
	for i := range shares {
		payout := totalAmount.Mul(shares[i].Contribution).Div(total).RoundDown(2)
		shares[i].Payout = payout
		distributed = distributed.Add(payout)
	}
	// Remainder from rounding down lands on the largest contributor.
	if remainder := totalAmount.Sub(distributed); remainder.IsPositive() {
		shares[0].Payout = shares[0].Payout.Add(remainder)
	}

	// Drop zero payouts (contributions too small to reach one cent).
	out := shares[:0]
	for _, s := range shares {
		if s.Payout.IsPositive() {
			out = append(out, s)
		}
	}
	return out
}
