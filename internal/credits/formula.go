package credits

import (
	"github.com/shopspring/decimal"
)

// DefaultUnitKg is the CO2-equivalent mass minted as one credit unit.
const DefaultUnitKg int64 = 1000

// Formula converts a report's verified CO2-equivalent quantity into whole
// credit units. Pure and deterministic.
type Formula struct {
	unitKg decimal.Decimal
}

// NewFormula creates a formula minting one unit per unitKg kilograms of
// verified CO2 equivalent. Non-positive unitKg falls back to the default.
func NewFormula(unitKg int64) *Formula {
	if unitKg <= 0 {
		unitKg = DefaultUnitKg
	}
	return &Formula{unitKg: decimal.NewFromInt(unitKg)}
}

// ComputeResult is the outcome of a formula evaluation
type ComputeResult struct {
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	UnitCount     int64           `json:"unit_count"`
	// Residual is the sub-unit remainder, kept for audit; it is not minted.
	Residual decimal.Decimal `json:"residual"`
}

// Compute splits totalCo2Kg into whole units plus a residual remainder.
// Returns ErrInvalidQuantity when no whole unit can be minted.
func (f *Formula) Compute(totalCo2Kg decimal.Decimal) (*ComputeResult, error) {
	quotient, remainder := totalCo2Kg.QuoRem(f.unitKg, 0)
	unitCount := quotient.IntPart()
	if unitCount <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &ComputeResult{
		TotalQuantity: totalCo2Kg,
		UnitCount:     unitCount,
		Residual:      remainder,
	}, nil
}
