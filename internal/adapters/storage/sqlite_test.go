package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/carfair/internal/adapters/storage"
	"github.com/alejandrodnm/carfair/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeListing(model string, price float64) domain.Listing {
	return domain.Listing{
		Brand:     "Toyota",
		Model:     model,
		Condition: domain.ConditionUsed,
		Mileage:   45_000,
		Price:     price,
		ListTime:  time.Date(2024, time.March, 3, 8, 30, 0, 0, time.UTC),
		Fuel:      "petrol",
		Gearbox:   "automatic",
		Year:      2020,
	}
}

func makeEvaluation(id string, score float64, at time.Time) domain.Evaluation {
	cat := domain.Categorize(score)
	return domain.Evaluation{
		ID: id,
		Query: domain.Query{
			Brand: "Toyota", Model: "Vios", Condition: domain.ConditionUsed, Mileage: 50_000,
		},
		Result: domain.FairnessResult{
			Price:          450_000_000,
			Score:          score,
			Category:       cat,
			Recommendation: cat.Recommendation(),
			MarketMean:     450_000_000,
			MarketMedian:   450_000_000,
			Percentile:     50,
			FairPriceMin:   405_000_000,
			FairPriceMax:   495_000_000,
			CohortSize:     20,
		},
		EvaluatedAt: at,
	}
}

func TestSQLStorage_ReplaceAndLoadListings(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	n, err := db.ReplaceListings(ctx, []domain.Listing{
		makeListing("Vios", 450_000_000),
		makeListing("Camry", 1_100_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := db.LoadListings(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, makeListing("Vios", 450_000_000), got[0])

	// un segundo import reemplaza, no acumula
	_, err = db.ReplaceListings(ctx, []domain.Listing{makeListing("Yaris", 380_000_000)})
	require.NoError(t, err)
	count, err := db.CountListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLStorage_ReplaceListingsChunks(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	listings := make([]domain.Listing, 1234)
	for i := range listings {
		listings[i] = makeListing("Vios", float64(400_000_000+i))
	}
	n, err := db.ReplaceListings(context.Background(), listings)
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	count, err := db.CountListings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, count)
}

func TestSQLStorage_EmptyDataset(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	got, err := db.LoadListings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLStorage_SaveAndGetHistory(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, db.SaveEvaluation(ctx, makeEvaluation("a", 50, now.Add(-2*time.Minute))))
	require.NoError(t, db.SaveEvaluation(ctx, makeEvaluation("b", 90, now.Add(-time.Minute))))

	history, err := db.GetHistory(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// más reciente primero
	assert.Equal(t, "b", history[0].ID)
	assert.Equal(t, domain.CategoryExcellentDeal, history[0].Result.Category)
	assert.Equal(t, domain.CategoryExcellentDeal.Recommendation(), history[0].Result.Recommendation)
	assert.Equal(t, "a", history[1].ID)
	assert.InDelta(t, 50.0, history[1].Result.Score, 0.001)
	assert.Equal(t, makeEvaluation("a", 50, now.Add(-2*time.Minute)), history[1])
}

func TestSQLStorage_GetHistoryOutOfRange(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, db.SaveEvaluation(ctx, makeEvaluation("a", 50, now)))

	history, err := db.GetHistory(ctx, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLStorage_DuplicateEvaluationID(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	ev := makeEvaluation("dup", 50, time.Now().UTC())
	require.NoError(t, db.SaveEvaluation(ctx, ev))
	assert.Error(t, db.SaveEvaluation(ctx, ev))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := storage.Open("mysql", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestSQLStorage_PrunesOldEvaluationsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carfair.db")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	db, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveEvaluation(ctx, makeEvaluation("stale", 50, now.Add(-100*24*time.Hour))))
	require.NoError(t, db.SaveEvaluation(ctx, makeEvaluation("recent", 90, now.Add(-89*24*time.Hour))))

	all, err := db.GetHistory(ctx, now.Add(-365*24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer db.Close()

	all, err = db.GetHistory(ctx, now.Add(-365*24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "recent", all[0].ID)
}
