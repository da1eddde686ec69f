package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestSource(url string) *Source {
	s := NewSource(url)
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	s.baseWait = time.Millisecond
	return s
}

func TestLoadListings_Success(t *testing.T) {
	data, err := os.ReadFile("../../../testdata/fixtures/listings.csv")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/export/cars.csv", r.URL.Path)
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/csv")
		w.Write(data)
	}))
	defer srv.Close()

	listings, err := newTestSource(srv.URL + "/export/cars.csv").LoadListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 12)

	l := listings[0]
	assert.Equal(t, "Toyota", l.Brand)
	assert.Equal(t, "Vios", l.Model)
	assert.Equal(t, domain.ConditionUsed, l.Condition)
	assert.Equal(t, 45_000, l.Mileage)
	assert.Equal(t, 420_000_000.0, l.Price)
	assert.Equal(t, 2019, l.Year)
	assert.Equal(t, "C 200", listings[11].Model)
}

func TestLoadListings_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("brand,model,mileage,price\nKia,Morning,0,300000000\n"))
	}))
	defer srv.Close()

	listings, err := newTestSource(srv.URL).LoadListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoadListings_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).LoadListings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestLoadListings_ClientErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such export", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).LoadListings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such export")
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadListings_InvalidCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("brand,model,mileage,price\nKia,Morning,0,-1\n"))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).LoadListings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive price")
}

func TestLoadListings_BodyTooLarge(t *testing.T) {
	body := "brand,model,mileage,price\nKia,Morning,0,300000000\nKia,Morning,0,310000000\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	s := newTestSource(srv.URL)
	s.maxBody = int64(len(body)) - 5 // corta la última fila a "Kia,Morning,0,31000"
	_, err := s.LoadListings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	s.maxBody = int64(len(body))
	listings, err := s.LoadListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/cars.csv"))
	assert.True(t, IsURL("http://localhost:8000/cars.csv"))
	assert.False(t, IsURL("data/cars.csv"))
	assert.False(t, IsURL(""))
}
