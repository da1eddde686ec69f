package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition(" Used ")
	require.NoError(t, err)
	assert.Equal(t, ConditionUsed, c)

	c, err = ParseCondition("new")
	require.NoError(t, err)
	assert.Equal(t, ConditionNew, c)

	_, err = ParseCondition("salvage")
	assert.Error(t, err)
}

func TestConditionForMileage(t *testing.T) {
	assert.Equal(t, ConditionNew, ConditionForMileage(0))
	assert.Equal(t, ConditionUsed, ConditionForMileage(1))
}

func TestListing_Validate(t *testing.T) {
	ok := usedListing("Toyota", "Vios", 1000, 4.5e8)
	assert.NoError(t, ok.Validate())

	bad := Listing{Brand: " ", Model: "Vios", Condition: "broken", Mileage: -1, Price: 0}
	err := bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"empty brand", "unknown condition", "negative mileage", "non-positive price"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestListing_ValidateNonFinitePrice(t *testing.T) {
	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		l := usedListing("Toyota", "Vios", 1000, price)
		err := l.Validate()
		require.Error(t, err, "price %v", price)
		assert.Contains(t, err.Error(), "not a finite number")
	}
}

func TestDataset_CopiesInput(t *testing.T) {
	in := []Listing{usedListing("Toyota", "Vios", 1000, 4.5e8)}
	ds := NewDataset(in)
	in[0].Brand = "Changed"

	got := ds.Filter(func(Listing) bool { return true })
	require.Len(t, got, 1)
	assert.Equal(t, "Toyota", got[0].Brand)
	assert.Equal(t, 1, ds.Len())
}
