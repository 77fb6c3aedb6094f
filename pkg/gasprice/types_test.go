package gasprice

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestGasPriceEstimate_WithDefaults(t *testing.T) {
	t.Parallel()

	defaults := GasPriceEstimate{
		FastWei:                   uint256.NewInt(10),
		L1CalldataPricePerUnitWei: uint256.NewInt(20),
	}

	t.Run("populated fields win", func(t *testing.T) {
		t.Parallel()
		est := GasPriceEstimate{
			FastWei:                   uint256.NewInt(100),
			L1CalldataPricePerUnitWei: uint256.NewInt(200),
		}
		merged := est.withDefaults(defaults)
		assert.True(t, merged.FastWei.Eq(uint256.NewInt(100)))
		assert.True(t, merged.L1CalldataPricePerUnitWei.Eq(uint256.NewInt(200)))
	})

	t.Run("nil fields fall back per field", func(t *testing.T) {
		t.Parallel()
		est := GasPriceEstimate{FastWei: uint256.NewInt(100)}
		merged := est.withDefaults(defaults)
		assert.True(t, merged.FastWei.Eq(uint256.NewInt(100)))
		assert.True(t, merged.L1CalldataPricePerUnitWei.Eq(uint256.NewInt(20)))
	})

	t.Run("empty estimate keeps defaults", func(t *testing.T) {
		t.Parallel()
		merged := GasPriceEstimate{}.withDefaults(defaults)
		assert.True(t, merged.FastWei.Eq(uint256.NewInt(10)))
		assert.True(t, merged.L1CalldataPricePerUnitWei.Eq(uint256.NewInt(20)))
	})

	t.Run("zero-value defaults pass through", func(t *testing.T) {
		t.Parallel()
		est := GasPriceEstimate{FastWei: uint256.NewInt(100)}
		merged := est.withDefaults(GasPriceEstimate{})
		assert.True(t, merged.FastWei.Eq(uint256.NewInt(100)))
		assert.Nil(t, merged.L1CalldataPricePerUnitWei)
	})
}
