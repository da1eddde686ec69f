package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 15, 10, 0, 0, 0, time.UTC)
}

func marketFixture() *Dataset {
	var ls []Listing
	// 12 Toyota: 6 Vios gasolina, 6 Camry diésel
	for i := 0; i < 6; i++ {
		ls = append(ls, Listing{Brand: "Toyota", Model: "Vios", Condition: ConditionUsed, Mileage: 20_000,
			Price: 400_000_000, Fuel: "petrol", Gearbox: "automatic", Year: 2020, ListTime: month(2024, time.Month(1+i))})
		ls = append(ls, Listing{Brand: "Toyota", Model: "Camry", Condition: ConditionNew, Mileage: 0,
			Price: 1_200_000_000, Fuel: "diesel", Gearbox: "automatic", Year: 2023, ListTime: month(2024, time.Month(1+i))})
	}
	// 3 Kia baratos
	for i := 0; i < 3; i++ {
		ls = append(ls, Listing{Brand: "Kia", Model: "Morning", Condition: ConditionUsed, Mileage: 90_000,
			Price: 150_000_000, Fuel: "petrol", Gearbox: "manual", Year: 2015, ListTime: month(2023, time.December)})
	}
	return NewDataset(ls)
}

func TestOverview_Basics(t *testing.T) {
	ov := Overview(marketFixture())

	assert.Equal(t, 15, ov.TotalListings)
	assert.Equal(t, int64(150_000_000), ov.MinPrice)
	assert.Equal(t, int64(1_200_000_000), ov.MaxPrice)
	assert.Equal(t, int64(400_000_000), ov.MedianPrice)

	require.NotEmpty(t, ov.TopBrands)
	assert.Equal(t, "Toyota", ov.TopBrands[0].Label)
	assert.Equal(t, 12, ov.TopBrands[0].Count)
	assert.InDelta(t, 80.0, ov.TopBrands[0].Percent, 1e-9)

	// Kia tiene 3 anuncios: no entra en el ranking por precio
	require.Len(t, ov.TopBrandsByPrice, 1)
	assert.Equal(t, "Toyota", ov.TopBrandsByPrice[0].Brand)

	assert.Equal(t, month(2023, time.December), ov.From)
	assert.Equal(t, month(2024, time.June), ov.To)
	require.Len(t, ov.Recent, 5)
	assert.Equal(t, month(2024, time.June), ov.Recent[0].ListTime)
}

func TestOverview_PriceRanges(t *testing.T) {
	ov := Overview(marketFixture())
	require.Len(t, ov.PriceRanges, len(PriceRanges))

	got := map[string]int{}
	for _, r := range ov.PriceRanges {
		got[r.Label] = r.Count
	}
	assert.Equal(t, 3, got["<200M"])
	assert.Equal(t, 6, got["200M-500M"])
	assert.Equal(t, 0, got["500M-1B"])
	assert.Equal(t, 6, got["1B-2B"])
	assert.Equal(t, 0, got[">2B"])
}

func TestOverview_Distributions(t *testing.T) {
	ov := Overview(marketFixture())
	require.Len(t, ov.Fuels, 2)
	assert.Equal(t, "petrol", ov.Fuels[0].Label)
	assert.Equal(t, 9, ov.Fuels[0].Count)
	assert.InDelta(t, 60.0, ov.Fuels[0].Percent, 1e-9)
	require.Len(t, ov.Gearboxes, 2)
	assert.Equal(t, "automatic", ov.Gearboxes[0].Label)
	require.Len(t, ov.Conditions, 2)
	assert.Equal(t, "used", ov.Conditions[0].Label)
}

func TestOverview_Empty(t *testing.T) {
	ov := Overview(NewDataset(nil))
	assert.Equal(t, 0, ov.TotalListings)
	assert.Empty(t, ov.TopBrands)
}

func TestInsightsForBrand(t *testing.T) {
	bi, err := InsightsForBrand(marketFixture(), "Toyota")
	require.NoError(t, err)
	assert.Equal(t, 12, bi.TotalListings)
	assert.Equal(t, int64(800_000_000), bi.MeanPrice)
	require.Len(t, bi.PopularModels, 2)
	assert.Equal(t, "Camry", bi.PopularModels[0].Label) // empate 6-6 → orden alfabético
}

func TestInsightsForBrand_NotFound(t *testing.T) {
	_, err := InsightsForBrand(marketFixture(), "Acme")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBrandNotFound))
	assert.Contains(t, err.Error(), "Acme")
}

func TestTrendsForModel(t *testing.T) {
	var ls []Listing
	for i := 0; i < 8; i++ {
		// 8 meses, precio sube 10M por mes
		ls = append(ls, Listing{Brand: "Honda", Model: "City", Condition: ConditionUsed, Mileage: 1,
			Price: 500_000_000 + float64(i)*10_000_000, ListTime: month(2024, time.Month(1+i))})
	}
	ls = append(ls, ls[0], ls[1])

	tr, err := TrendsForModel(NewDataset(ls), "Honda", "City")
	require.NoError(t, err)
	assert.Equal(t, 10, tr.TotalListings)
	require.Len(t, tr.Monthly, 6)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), tr.Monthly[0].Month)
	assert.Equal(t, "increasing", tr.Trend)
}

func TestTrendsForModel_Insufficient(t *testing.T) {
	_, err := TrendsForModel(marketFixture(), "Toyota", "Vios")
	assert.True(t, errors.Is(err, ErrInsufficientTrendData))
}

func TestStatsForSelection(t *testing.T) {
	ds := marketFixture()

	st, err := StatsForSelection(ds, "Toyota", "Vios", 2020, 20_000)
	require.NoError(t, err)
	assert.True(t, st.Bucketed)
	assert.Equal(t, 6, st.Count)
	assert.Equal(t, int64(400_000_000), st.MeanPrice)
	assert.Equal(t, int64(20_000), st.MeanMileage)

	// bucket vacío → cae a toda la selección
	st, err = StatsForSelection(ds, "Toyota", "Vios", 0, 200_000)
	require.NoError(t, err)
	assert.False(t, st.Bucketed)
	assert.Equal(t, 6, st.Count)

	_, err = StatsForSelection(ds, "Toyota", "Vios", 1999, -1)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestCatalogs(t *testing.T) {
	ds := marketFixture()
	assert.Equal(t, []string{"Kia", "Toyota"}, Brands(ds))
	assert.Equal(t, []string{"Camry", "Vios"}, Models(ds, "Toyota"))
	assert.Equal(t, []int{2020}, Years(ds, "Toyota", "Vios"))
	assert.Empty(t, Models(ds, "Acme"))
}
