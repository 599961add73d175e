package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermClassFor(t *testing.T) {
	assert.Equal(t, TermClassShort, TermClassFor(12))
	assert.Equal(t, TermClassShort, TermClassFor(24))
	assert.Equal(t, TermClassShort, TermClassFor(36))

	assert.Equal(t, TermClassLong, TermClassFor(6))
	assert.Equal(t, TermClassLong, TermClassFor(18))
	assert.Equal(t, TermClassLong, TermClassFor(48))
	assert.Equal(t, TermClassLong, TermClassFor(0))
}

func TestRateTableDefaults(t *testing.T) {
	table := DefaultRateTable()

	t.Run("ShortTermLadder", func(t *testing.T) {
		assert.Equal(t, 1.50, table.Rate(0, 12))
		assert.Equal(t, 1.50, table.Rate(5, 12))
		assert.Equal(t, 2.00, table.Rate(6, 12))
		assert.Equal(t, 2.00, table.Rate(7, 36))
		assert.Equal(t, 2.50, table.Rate(8, 24))
		assert.Equal(t, 2.50, table.Rate(9, 24))
		assert.Equal(t, 3.00, table.Rate(10, 12))
		assert.Equal(t, 3.00, table.Rate(25, 36))
	})

	t.Run("LongTermLadder", func(t *testing.T) {
		assert.Equal(t, 2.00, table.Rate(0, 48))
		assert.Equal(t, 2.00, table.Rate(5, 18))
		assert.Equal(t, 2.50, table.Rate(6, 60))
		assert.Equal(t, 3.00, table.Rate(8, 48))
		assert.Equal(t, 3.50, table.Rate(10, 48))
		assert.Equal(t, 3.50, table.Rate(100, 48))
	})

	t.Run("RatesNeverDecreaseWithSalesCount", func(t *testing.T) {
		for _, term := range []int{12, 48} {
			previous := 0.0
			for count := 0; count <= 15; count++ {
				rate := table.Rate(count, term)
				assert.GreaterOrEqual(t, rate, previous, "rate dropped at count %d term %d", count, term)
				previous = rate
			}
		}
	})
}

func TestRateTableSkipsInactiveTiers(t *testing.T) {
	tiers := []RateTier{
		{TermClass: TermClassShort, MinSalesCount: 10, Rate: 9.99, IsActive: false},
		{TermClass: TermClassShort, MinSalesCount: 8, Rate: 2.50, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 0, Rate: 1.50, IsActive: true},
	}
	table := NewRateTable(tiers)

	// The inactive 10+ rung must not shadow the 8+ rung
	assert.Equal(t, 2.50, table.Rate(12, 12))
	assert.Equal(t, 1.50, table.Rate(3, 12))
}

func TestRateTableEmptyLadder(t *testing.T) {
	table := NewRateTable(nil)
	assert.Equal(t, 0.0, table.Rate(10, 12))
}

func TestRateTableUnsortedInput(t *testing.T) {
	// Persisted order is not guaranteed; the table must sort per ladder
	tiers := []RateTier{
		{TermClass: TermClassShort, MinSalesCount: 0, Rate: 1.50, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 10, Rate: 3.00, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 6, Rate: 2.00, IsActive: true},
		{TermClass: TermClassShort, MinSalesCount: 8, Rate: 2.50, IsActive: true},
	}
	table := NewRateTable(tiers)

	assert.Equal(t, 3.00, table.Rate(11, 12))
	assert.Equal(t, 2.50, table.Rate(8, 12))
	assert.Equal(t, 2.00, table.Rate(6, 12))
	assert.Equal(t, 1.50, table.Rate(1, 12))
}
