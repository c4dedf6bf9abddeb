package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range []Category{CategoryFeed, CategoryProbiotics, CategoryFertilizers, CategoryMixture, CategoryOther} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("hardware").Valid())
	assert.False(t, Category("").Valid())
}

func TestEffectiveThreshold(t *testing.T) {
	item := &InventoryItem{Category: CategoryFeed}
	assert.Equal(t, int64(500_000), item.EffectiveThresholdG())

	override := int64(42_000)
	item.MinThresholdG = &override
	assert.Equal(t, override, item.EffectiveThresholdG())

	// Unknown categories from old rows fall back to the smallest default.
	assert.Equal(t, int64(10_000), Category("legacy").DefaultThresholdG())
}

func TestValidMovementType(t *testing.T) {
	assert.True(t, ValidMovementType(MovementInbound))
	assert.True(t, ValidMovementType(MovementOutbound))
	assert.True(t, ValidMovementType(MovementAdjustment))
	assert.False(t, ValidMovementType("transfer"))
}
