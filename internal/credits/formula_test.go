package credits

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeExactUnits(t *testing.T) {
	formula := NewFormula(1000)

	result, err := formula.Compute(decimal.NewFromInt(100000))
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.UnitCount)
	assert.True(t, result.Residual.IsZero(), "residual should be zero, got %s", result.Residual)
}

func TestComputeResidual(t *testing.T) {
	formula := NewFormula(1000)

	result, err := formula.Compute(decimal.RequireFromString("2750.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.UnitCount)
	assert.True(t, result.Residual.Equal(decimal.RequireFromString("750.5")))
}

func TestComputeDeterministic(t *testing.T) {
	formula := NewFormula(1000)
	input := decimal.RequireFromString("12345.678")

	first, err := formula.Compute(input)
	require.NoError(t, err)
	second, err := formula.Compute(input)
	require.NoError(t, err)
	assert.Equal(t, first.UnitCount, second.UnitCount)
	assert.True(t, first.Residual.Equal(second.Residual))
}

func TestComputeRejectsSubUnitQuantity(t *testing.T) {
	formula := NewFormula(1000)

	_, err := formula.Compute(decimal.NewFromInt(999))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = formula.Compute(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = formula.Compute(decimal.NewFromInt(-5000))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestNewFormulaDefaultsUnitSize(t *testing.T) {
	formula := NewFormula(0)

	result, err := formula.Compute(decimal.NewFromInt(3000))
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.UnitCount)
}
