package notify_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/carfair/internal/adapters/notify"
	"github.com/alejandrodnm/carfair/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEval(score float64, cheap bool) domain.Evaluation {
	cat := domain.Categorize(score)
	return domain.Evaluation{
		ID:    "3f0c8a9e-1111-2222-3333-444455556666",
		Query: domain.Query{Brand: "Toyota", Model: "Vios", Condition: domain.ConditionUsed, Mileage: 50_000},
		Result: domain.FairnessResult{
			Price:             450_000_000,
			Score:             score,
			Category:          cat,
			Recommendation:    cat.Recommendation(),
			MarketMean:        450_000_000,
			MarketMedian:      450_000_000,
			Percentile:        50,
			FairPriceMin:      405_000_000,
			FairPriceMax:      495_000_000,
			CohortSize:        20,
			CohortLabel:       "Toyota Vios used, 30,000-50,000 km",
			PriceVsMedian:     "At median (difference 0 VND)",
			PriceVsMean:       "At average (difference 0 VND)",
			SuspiciouslyCheap: cheap,
		},
		EvaluatedAt: time.Now().Add(-3 * time.Minute),
	}
}

func TestConsole_ReportEvaluation_Table(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.ReportEvaluation(context.Background(), makeEval(50, false)))

	out := buf.String()
	assert.Contains(t, out, "Toyota Vios")
	assert.Contains(t, out, "450,000,000 VND")
	assert.Contains(t, out, "50.0 / 100")
	assert.Contains(t, out, "Slightly Overpriced")
	assert.Contains(t, out, "405,000,000 VND - 495,000,000 VND")
	assert.Contains(t, out, "At median (difference 0 VND)")
	assert.Contains(t, out, domain.CategorySlightlyOverpriced.Recommendation())
	assert.NotContains(t, out, "under half")
}

func TestConsole_ReportEvaluation_CompactCheap(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, c.ReportEvaluation(context.Background(), makeEval(100, true)))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "[++]")
	assert.Contains(t, out, "50,000 km")
	assert.Contains(t, out, "suspiciously cheap")
}

func TestConsole_ReportBatch_MixesErrors(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	results := []domain.BatchResult{
		{Item: domain.BatchItem{Query: makeEval(90, false).Query, Price: 360_000_000}, Evaluation: makeEval(90, false)},
		{
			Item: domain.BatchItem{Query: domain.Query{Brand: "Acme", Model: "Roadster"}, Price: 1e8},
			Err:  errors.New("Insufficient data for Acme Roadster"),
		},
	}
	require.NoError(t, c.ReportBatch(context.Background(), results))

	out := buf.String()
	assert.Contains(t, out, "Excellent Deal")
	assert.Contains(t, out, "Acme Roadster")
	assert.Contains(t, out, "Insufficient data")
	assert.Contains(t, out, "1 evaluated, 1 failed")
}

func TestConsole_ReportBatch_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, true).ReportBatch(context.Background(), nil))
	assert.Contains(t, buf.String(), "no queries")
}

func TestConsole_ReportOverview(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	ov := domain.MarketOverview{
		TotalListings: 12_345,
		MeanPrice:     600_000_000,
		MedianPrice:   480_000_000,
		MinPrice:      90_000_000,
		MaxPrice:      5_000_000_000,
		TopBrands:     []domain.CountShare{{Label: "Toyota", Count: 4000, Percent: 32.4}},
		TopBrandsByPrice: []domain.BrandPrice{
			{Brand: "Lexus", MeanPrice: 3_000_000_000, Count: 40},
		},
		PriceRanges: []domain.CountShare{{Label: "200M-500M", Count: 5000, Percent: 40.5}},
	}
	require.NoError(t, c.ReportOverview(context.Background(), ov))

	out := buf.String()
	assert.Contains(t, out, "12,345 listings")
	assert.Contains(t, out, "Toyota")
	assert.Contains(t, out, "32.4%")
	assert.Contains(t, out, "Lexus")
	assert.Contains(t, out, "3,000,000,000 VND")
	assert.Contains(t, out, "200M-500M")
}

func TestConsole_ReportOverview_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&buf, true).ReportOverview(context.Background(), domain.MarketOverview{}))
	assert.Contains(t, buf.String(), "empty")
}

func TestConsole_ReportTrends(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	tr := domain.ModelTrend{
		Brand: "Honda", Model: "City", Trend: "increasing", TotalListings: 10,
		Monthly: []domain.MonthlyStat{
			{Month: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), MeanPrice: 520_000_000, Count: 2},
		},
	}
	require.NoError(t, c.ReportTrends(context.Background(), tr))

	out := buf.String()
	assert.Contains(t, out, "INCREASING")
	assert.Contains(t, out, "2024-03")
	assert.Contains(t, out, "520,000,000 VND")
}

func TestConsole_ReportHistory(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.ReportHistory(context.Background(), []domain.Evaluation{makeEval(65, false)}))
	out := buf.String()
	assert.Contains(t, out, "minutes ago")
	assert.Contains(t, out, "Fair Price")
	assert.Contains(t, out, "3f0c8a9e")
	assert.NotContains(t, out, "444455556666")

	buf.Reset()
	require.NoError(t, c.ReportHistory(context.Background(), nil))
	assert.Contains(t, buf.String(), "No evaluations")
}
